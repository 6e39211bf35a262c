package servicer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	sdbus "github.com/coreos/go-systemd/v22/dbus"
)

// UnitObjectPrefix is the D-Bus object path prefix of systemd units
const UnitObjectPrefix = "/org/freedesktop/systemd1/unit/"

// PathEntry labels one location associated with a unit
type PathEntry struct {
	Label string
	Path  string
}

// UnitFile returns the unit file path and contents for name
func (o *Orchestrator) UnitFile(name string) (string, []byte, error) {
	_, full, err := o.resolve(ActionStatus, name)
	if err != nil {
		return "", nil, err
	}
	path := o.unitPath(full)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil, &OpError{Op: ActionStatus, Unit: full, Err: fmt.Errorf("%w: no unit file at %s", ErrNotFound, path)}
		}
		return path, nil, &OpError{Op: ActionStatus, Unit: full, Err: err}
	}
	return path, data, nil
}

// Paths lists where an existing unit lives on disk and on the bus
func (o *Orchestrator) Paths(name string) ([]PathEntry, error) {
	_, full, err := o.resolve(ActionStatus, name)
	if err != nil {
		return nil, err
	}
	if err := o.requireUnitFile(ActionStatus, full); err != nil {
		return nil, err
	}
	return []PathEntry{
		{Label: "unit file", Path: o.unitPath(full)},
		{Label: "dbus object", Path: UnitObjectPath(full)},
	}, nil
}

// UnitObjectPath returns the D-Bus object path systemd exports for unit
func UnitObjectPath(unit string) string {
	return UnitObjectPrefix + sdbus.PathBusEscape(unit)
}
