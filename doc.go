// Package servicer turns an executable or script into a systemd service and
// manages the services it created.
//
// Managed units are recognised by their name alone: every unit file the
// package writes is called <name>.servicer.service, and nothing without that
// suffix is ever listed, started, stopped, enabled or disabled.
//
// The Orchestrator performs lifecycle transitions through an InitSystem,
// normally a SystemdClient talking to systemd over D-Bus:
//
//	sys, err := servicer.NewSystemdClient(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sys.Close()
//
//	orch := servicer.NewOrchestrator(sys)
//	out, err := orch.Create(ctx, servicer.CreateRequest{
//	    Path:  "./server.py",
//	    Start: true,
//	})
//
// Create must run through sudo: the unit runs as the account named by
// SUDO_USER, and interpreters are looked up on that account's PATH.
//
// # Status
//
// The Monitor reports every managed unit with its main PID, boot state,
// CPU share and private memory. Manager queries fan out under a concurrency
// bound, and CPU is measured across a single shared sampling window so a
// report costs one interval no matter how many services run:
//
//	mon := servicer.NewMonitor(sys, procfs, servicer.WithSampleInterval(200*time.Millisecond))
//	rows, err := mon.Status(ctx)
//
// # Errors
//
// Failures carry a sentinel (ErrNotFound, ErrAlreadyExists, ErrInvalidName,
// ErrInterpreterNotFound, ErrPrivilege, ErrAdapter, ...) reachable through
// errors.Is. Multi-step operations that stop half way return a
// PartialFailureError listing the steps that took effect; nothing is rolled
// back and re-running the command converges.
package servicer
