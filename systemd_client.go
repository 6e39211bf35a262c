//go:build linux

package servicer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

// D-Bus error names the client maps onto sentinel errors
const (
	dbusNoSuchUnit      = "org.freedesktop.systemd1.NoSuchUnit"
	dbusAccessDenied    = "org.freedesktop.DBus.Error.AccessDenied"
	dbusInteractiveAuth = "org.freedesktop.DBus.Error.InteractiveAuthorizationRequired"
)

// Unit and service properties read by the client
const (
	propLoadState     = "LoadState"
	propActiveState   = "ActiveState"
	propUnitFileState = "UnitFileState"
	propMainPID       = "MainPID"
)

const jobResultDone = "done"

// SystemdClient talks to the systemd manager over the system bus.
// godbus multiplexes concurrent calls over one socket, so queries are not
// serialised; the lock only guards the handle against Close.
type SystemdClient struct {
	mu       sync.RWMutex
	conn     *sdbus.Conn
	log      *zap.SugaredLogger
	waitJobs bool
}

// NewSystemdClient connects to the system bus
func NewSystemdClient(ctx context.Context, opts ...Option) (*SystemdClient, error) {
	o := buildOptions(opts)

	conn, err := sdbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to systemd: %v", ErrAdapter, err)
	}

	return &SystemdClient{
		conn:     conn,
		log:      o.logger,
		waitJobs: o.waitJobs,
	}, nil
}

func (c *SystemdClient) acquire() (*sdbus.Conn, func(), error) {
	c.mu.RLock()
	if c.conn == nil {
		c.mu.RUnlock()
		return nil, nil, fmt.Errorf("%w: connection closed", ErrAdapter)
	}
	return c.conn, c.mu.RUnlock, nil
}

// UnitState implements InitSystem
func (c *SystemdClient) UnitState(ctx context.Context, unit string) (UnitState, error) {
	conn, release, err := c.acquire()
	if err != nil {
		return UnitState{}, err
	}
	defer release()

	// systemd answers an unknown unit with LoadState "not-found", so any
	// error here is a failed query and never a missing unit
	props, err := conn.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		c.log.Debugf("Reading properties of %s: %v", unit, err)
		return UnitState{}, propertiesErr(ctx, unit, err)
	}

	return UnitState{
		Load:   ParseLoadState(stringProp(props, propLoadState)),
		Active: ParseActiveState(stringProp(props, propActiveState)),
		File:   ParseUnitFileState(stringProp(props, propUnitFileState)),
	}, nil
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return InvalidUnitPath
}

// StartUnit implements InitSystem
func (c *SystemdClient) StartUnit(ctx context.Context, unit, mode string) (JobID, error) {
	return c.runJob(ctx, unit, func(conn *sdbus.Conn, ch chan<- string) (int, error) {
		return conn.StartUnitContext(ctx, unit, mode, ch)
	})
}

// StopUnit implements InitSystem
func (c *SystemdClient) StopUnit(ctx context.Context, unit, mode string) (JobID, error) {
	return c.runJob(ctx, unit, func(conn *sdbus.Conn, ch chan<- string) (int, error) {
		return conn.StopUnitContext(ctx, unit, mode, ch)
	})
}

// ReloadUnit implements InitSystem
func (c *SystemdClient) ReloadUnit(ctx context.Context, unit, mode string) error {
	_, err := c.runJob(ctx, unit, func(conn *sdbus.Conn, ch chan<- string) (int, error) {
		return conn.ReloadUnitContext(ctx, unit, mode, ch)
	})
	return err
}

// runJob queues a job and, when configured, waits for its result.
// The result channel is buffered so an abandoned wait never blocks the
// signal dispatcher.
func (c *SystemdClient) runJob(ctx context.Context, unit string, queue func(*sdbus.Conn, chan<- string) (int, error)) (JobID, error) {
	conn, release, err := c.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	var ch chan string
	if c.waitJobs {
		ch = make(chan string, 1)
	}

	id, err := queue(conn, ch)
	if err != nil {
		return 0, mapDBusError(unit, err)
	}
	job := JobID(id)
	c.log.Debugf("Queued job %s for %s", job.Path(), unit)

	if ch == nil {
		return job, nil
	}

	select {
	case result := <-ch:
		if result != jobResultDone {
			return job, fmt.Errorf("%w: job for %s finished with result %q", ErrAdapter, unit, result)
		}
		return job, nil
	case <-ctx.Done():
		return job, ctx.Err()
	}
}

// EnableUnitFiles implements InitSystem
func (c *SystemdClient) EnableUnitFiles(ctx context.Context, units []string, runtime, force bool) (bool, []UnitFileChange, error) {
	conn, release, err := c.acquire()
	if err != nil {
		return false, nil, err
	}
	defer release()

	carries, changes, err := conn.EnableUnitFilesContext(ctx, units, runtime, force)
	if err != nil {
		return false, nil, mapDBusError(fmt.Sprint(units), err)
	}

	out := make([]UnitFileChange, 0, len(changes))
	for _, ch := range changes {
		out = append(out, UnitFileChange{Type: ch.Type, Filename: ch.Filename, Destination: ch.Destination})
	}
	return carries, out, nil
}

// DisableUnitFiles implements InitSystem
func (c *SystemdClient) DisableUnitFiles(ctx context.Context, units []string, runtime bool) ([]UnitFileChange, error) {
	conn, release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	changes, err := conn.DisableUnitFilesContext(ctx, units, runtime)
	if err != nil {
		return nil, mapDBusError(fmt.Sprint(units), err)
	}

	out := make([]UnitFileChange, 0, len(changes))
	for _, ch := range changes {
		out = append(out, UnitFileChange{Type: ch.Type, Filename: ch.Filename, Destination: ch.Destination})
	}
	return out, nil
}

// ReloadManager implements InitSystem
func (c *SystemdClient) ReloadManager(ctx context.Context) error {
	conn, release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := conn.ReloadContext(ctx); err != nil {
		return mapDBusError("daemon", err)
	}
	return nil
}

// MainPID implements InitSystem
func (c *SystemdClient) MainPID(ctx context.Context, unit string) (uint32, error) {
	conn, release, err := c.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	prop, err := conn.GetServicePropertyContext(ctx, unit, propMainPID)
	if err != nil {
		return 0, mapDBusError(unit, err)
	}
	pid, ok := prop.Value.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("%w: %s of %s has type %s", ErrAdapter, propMainPID, unit, prop.Value.Signature())
	}
	return pid, nil
}

// Close implements InitSystem
func (c *SystemdClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}

// propertiesErr classifies a failed property read
func propertiesErr(ctx context.Context, unit string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return mapDBusError(unit, err)
}

// mapDBusError classifies a bus error into the package's sentinels
func mapDBusError(subject string, err error) error {
	name := dbusErrorName(err)
	switch name {
	case dbusNoSuchUnit:
		return fmt.Errorf("%w: %s: %v", ErrNotFound, subject, err)
	case dbusAccessDenied, dbusInteractiveAuth:
		return fmt.Errorf("%w: %s: %v", ErrPrivilege, subject, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrAdapter, subject, err)
}

func dbusErrorName(err error) string {
	var derr dbus.Error
	if errors.As(err, &derr) {
		return derr.Name
	}
	var pderr *dbus.Error
	if errors.As(err, &pderr) {
		return pderr.Name
	}
	return ""
}
