package servicer

import (
	"context"
)

// UnitFileChange is one symlink created or removed while enabling or
// disabling unit files
type UnitFileChange struct {
	// Type is "symlink" or "unlink"
	Type string
	// Filename is the link path
	Filename string
	// Destination is the link target
	Destination string
}

// InitSystem is the narrow surface of the service manager the tool needs.
// Implementations must be safe for concurrent use; a single connection is
// shared by every query of an invocation.
type InitSystem interface {
	// UnitState reads LoadState, ActiveState and UnitFileState fresh.
	// An unknown unit is reported through LoadState ("not-found"), not an
	// error; a failed query returns an error and no state.
	UnitState(ctx context.Context, unit string) (UnitState, error)

	// StartUnit queues a start job. Unknown units return ErrNotFound.
	StartUnit(ctx context.Context, unit, mode string) (JobID, error)

	// StopUnit queues a stop job. Unknown units return ErrNotFound.
	StopUnit(ctx context.Context, unit, mode string) (JobID, error)

	// ReloadUnit asks the unit to reload its own configuration
	ReloadUnit(ctx context.Context, unit, mode string) error

	// EnableUnitFiles links units for boot
	EnableUnitFiles(ctx context.Context, units []string, runtime, force bool) (bool, []UnitFileChange, error)

	// DisableUnitFiles unlinks units from boot
	DisableUnitFiles(ctx context.Context, units []string, runtime bool) ([]UnitFileChange, error)

	// ReloadManager makes the manager re-read all unit files
	ReloadManager(ctx context.Context) error

	// MainPID returns the main process of a service, 0 when it has none
	MainPID(ctx context.Context, unit string) (uint32, error)

	// Close releases the connection
	Close() error
}
