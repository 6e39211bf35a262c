//go:build !linux

package servicer

import (
	"context"
	"fmt"
)

var errSystemdUnsupported = fmt.Errorf("%w: systemd is only supported on Linux", ErrAdapter)

// SystemdClient talks to the systemd manager (Linux only)
type SystemdClient struct{}

// NewSystemdClient returns an error on non-Linux platforms
func NewSystemdClient(_ context.Context, _ ...Option) (*SystemdClient, error) {
	return nil, errSystemdUnsupported
}

// UnitState is unsupported outside Linux
func (c *SystemdClient) UnitState(_ context.Context, _ string) (UnitState, error) {
	return UnitState{}, errSystemdUnsupported
}

// StartUnit is unsupported outside Linux
func (c *SystemdClient) StartUnit(_ context.Context, _, _ string) (JobID, error) {
	return 0, errSystemdUnsupported
}

// StopUnit is unsupported outside Linux
func (c *SystemdClient) StopUnit(_ context.Context, _, _ string) (JobID, error) {
	return 0, errSystemdUnsupported
}

// ReloadUnit is unsupported outside Linux
func (c *SystemdClient) ReloadUnit(_ context.Context, _, _ string) error {
	return errSystemdUnsupported
}

// EnableUnitFiles is unsupported outside Linux
func (c *SystemdClient) EnableUnitFiles(_ context.Context, _ []string, _, _ bool) (bool, []UnitFileChange, error) {
	return false, nil, errSystemdUnsupported
}

// DisableUnitFiles is unsupported outside Linux
func (c *SystemdClient) DisableUnitFiles(_ context.Context, _ []string, _ bool) ([]UnitFileChange, error) {
	return nil, errSystemdUnsupported
}

// ReloadManager is unsupported outside Linux
func (c *SystemdClient) ReloadManager(_ context.Context) error {
	return errSystemdUnsupported
}

// MainPID is unsupported outside Linux
func (c *SystemdClient) MainPID(_ context.Context, _ string) (uint32, error) {
	return 0, errSystemdUnsupported
}

// Close is a no-op outside Linux
func (c *SystemdClient) Close() error {
	return nil
}
