package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/axondata/go-servicer"
	"github.com/axondata/go-servicer/internal/logger"
	"github.com/axondata/go-servicer/internal/metrics"
	"github.com/axondata/go-servicer/internal/ui"
)

var (
	statusWatch    bool
	statusInterval time.Duration
	statusOutput   string
	statusTextfile string
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"ls"},
	Short:   "Show every managed service with its CPU and memory usage",
	Example: `  servicer status
  servicer status --output json
  servicer status --watch --interval 5s
  servicer status --textfile /var/lib/node_exporter/servicer.prom`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		sys, err := connect(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = sys.Close() }()

		mon, err := newMonitor(sys)
		if err != nil {
			return err
		}
		r := &statusReporter{mon: mon, w: cmd.OutOrStdout(), format: statusOutput, textfile: statusTextfile}
		if statusTextfile != "" {
			r.exporter = metrics.NewExporter()
		}

		if !statusWatch {
			return r.report(ctx)
		}
		return r.watch(ctx, cfg.UnitDir, statusInterval)
	},
}

func init() {
	f := statusCmd.Flags()
	f.BoolVarP(&statusWatch, "watch", "w", false, "refresh until interrupted")
	f.DurationVar(&statusInterval, "interval", 2*time.Second, "refresh period with --watch")
	f.StringVarP(&statusOutput, "output", "o", ui.FormatTable, "output format: table, json or yaml")
	f.StringVar(&statusTextfile, "textfile", "", "also write Prometheus metrics to this file")
	rootCmd.AddCommand(statusCmd)
}

type statusReporter struct {
	mon      *servicer.Monitor
	w        io.Writer
	format   string
	textfile string
	exporter *metrics.Exporter
	clear    bool
}

func (r *statusReporter) report(ctx context.Context) error {
	rows, err := r.mon.Status(ctx)
	if err != nil {
		return err
	}
	if r.exporter != nil {
		r.exporter.Observe(rows)
		if err := r.exporter.WriteTextfile(r.textfile); err != nil {
			return fmt.Errorf("writing %s: %w", r.textfile, err)
		}
	}
	if r.clear && (r.format == "" || r.format == ui.FormatTable) {
		fmt.Fprint(r.w, "\033[H\033[2J")
	}
	return ui.WriteStatus(r.w, r.format, rows)
}

// watch re-renders on every tick and whenever a managed unit file changes
func (r *statusReporter) watch(ctx context.Context, dir string, every time.Duration) error {
	log := logger.For(logger.ComponentWatcher)
	r.clear = true

	events, cleanup, err := servicer.WatchUnits(ctx, dir, 0)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if err := r.report(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				log.Warnf("Watching %s: %v", dir, ev.Err)
				continue
			}
			log.Debugf("%s: %s", ev.Unit, ev.Op)
		}
	}
}
