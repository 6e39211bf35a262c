// Command servicer turns executables into systemd services and manages them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/axondata/go-servicer/internal/logger"
	"github.com/axondata/go-servicer/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Execute(ctx)
	stop()
	logger.Sync()

	if err != nil {
		fmt.Fprint(os.Stderr, ui.ErrorMessage(err))
		os.Exit(1)
	}
}
