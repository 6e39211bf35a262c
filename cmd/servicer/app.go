package main

import (
	"context"
	"fmt"
	"io"

	"github.com/axondata/go-servicer"
	"github.com/axondata/go-servicer/internal/logger"
	"github.com/axondata/go-servicer/internal/ui"
	"github.com/axondata/go-servicer/internal/unix"
)

// requireRoot fails unless the process runs with an effective uid of 0
func requireRoot() error {
	if euid := unix.Geteuid(); euid != 0 {
		return fmt.Errorf("%w: this command changes systemd state and must run as root (effective uid %d)",
			servicer.ErrPrivilege, euid)
	}
	return nil
}

func options(component string) ([]servicer.Option, error) {
	policy, err := servicer.ParseReloadPolicy(cfg.ReloadPolicy)
	if err != nil {
		return nil, err
	}
	finder := servicer.NewSudoFinder()
	finder.SudoCommand = cfg.Sudo

	return []servicer.Option{
		servicer.WithUnitDir(cfg.UnitDir),
		servicer.WithLogger(logger.For(component)),
		servicer.WithConcurrency(cfg.Concurrency),
		servicer.WithTimeout(cfg.Timeout),
		servicer.WithSampleInterval(cfg.SampleInterval),
		servicer.WithInterpreters(cfg.Interpreters),
		servicer.WithReloadPolicy(policy),
		servicer.WithBinaryFinder(finder),
	}, nil
}

func connect(ctx context.Context) (*servicer.SystemdClient, error) {
	opts, err := options(logger.ComponentSystemd)
	if err != nil {
		return nil, err
	}
	return servicer.NewSystemdClient(ctx, opts...)
}

// withOrchestrator connects to systemd and runs fn with an Orchestrator
func withOrchestrator(ctx context.Context, fn func(*servicer.Orchestrator, *servicer.SystemdClient) error) error {
	sys, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sys.Close() }()

	opts, err := options(logger.ComponentOrchestrator)
	if err != nil {
		return err
	}
	return fn(servicer.NewOrchestrator(sys, opts...), sys)
}

func newMonitor(sys servicer.InitSystem) (*servicer.Monitor, error) {
	stats, err := servicer.NewProcFS("")
	if err != nil {
		return nil, err
	}
	opts, err := options(logger.ComponentMonitor)
	if err != nil {
		return nil, err
	}
	return servicer.NewMonitor(sys, stats, opts...), nil
}

// mutate runs a lifecycle operation as root, prints its steps and then the
// status table
func mutate(ctx context.Context, w io.Writer, op func(*servicer.Orchestrator) (*servicer.Outcome, error)) error {
	if err := requireRoot(); err != nil {
		return err
	}
	return withOrchestrator(ctx, func(orch *servicer.Orchestrator, sys *servicer.SystemdClient) error {
		out, err := op(orch)
		ui.RenderOutcome(w, out)
		if err != nil {
			return err
		}
		return printStatus(ctx, w, sys)
	})
}

func printStatus(ctx context.Context, w io.Writer, sys servicer.InitSystem) error {
	mon, err := newMonitor(sys)
	if err != nil {
		return err
	}
	rows, err := mon.Status(ctx)
	if err != nil {
		return err
	}
	ui.StatusTable(w, rows)
	return nil
}
