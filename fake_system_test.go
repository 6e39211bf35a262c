package servicer

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeUnit is the manager-side state of one unit
type fakeUnit struct {
	active string
	file   string
	pid    uint32
}

// fakeSystem mimics systemd closely enough for orchestration tests: units
// are loaded from unitDir on ReloadManager, enable needs a unit file, and
// stop or start of an unloaded unit fails with ErrNotFound.
type fakeSystem struct {
	mu      sync.Mutex
	unitDir string
	units   map[string]*fakeUnit
	calls   map[string]int
	fail    map[string]error
	nextPID uint32
	nextJob JobID
	closed  bool
}

func newFakeSystem(unitDir string) *fakeSystem {
	return &fakeSystem{
		unitDir: unitDir,
		units:   make(map[string]*fakeUnit),
		calls:   make(map[string]int),
		fail:    make(map[string]error),
		nextPID: 1000,
	}
}

// set registers a unit in the given states
func (f *fakeSystem) set(unit, active, file string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &fakeUnit{active: active, file: file}
	if active == "active" {
		f.nextPID++
		u.pid = f.nextPID
	}
	f.units[unit] = u
}

func (f *fakeSystem) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeSystem) failOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = err
}

func (f *fakeSystem) enter(method string) error {
	f.calls[method]++
	return f.fail[method]
}

func (f *fakeSystem) hasFile(unit string) bool {
	_, err := os.Stat(filepath.Join(f.unitDir, unit))
	return err == nil
}

func (f *fakeSystem) UnitState(_ context.Context, unit string) (UnitState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UnitState"); err != nil {
		return UnitState{}, err
	}
	u, ok := f.units[unit]
	if !ok {
		// systemd loads unknown names on demand and reports them not-found
		return UnitState{
			Load:   ParseLoadState("not-found"),
			Active: ParseActiveState("inactive"),
			File:   ParseUnitFileState(""),
		}, nil
	}
	return UnitState{
		Load:   ParseLoadState("loaded"),
		Active: ParseActiveState(u.active),
		File:   ParseUnitFileState(u.file),
	}, nil
}

func (f *fakeSystem) StartUnit(_ context.Context, unit, _ string) (JobID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("StartUnit"); err != nil {
		return 0, err
	}
	u, ok := f.units[unit]
	if !ok {
		return 0, fmt.Errorf("%w: unit %s not loaded", ErrNotFound, unit)
	}
	f.nextPID++
	f.nextJob++
	u.active = "active"
	u.pid = f.nextPID
	return f.nextJob, nil
}

func (f *fakeSystem) StopUnit(_ context.Context, unit, _ string) (JobID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("StopUnit"); err != nil {
		return 0, err
	}
	u, ok := f.units[unit]
	if !ok {
		return 0, fmt.Errorf("%w: unit %s not loaded", ErrNotFound, unit)
	}
	f.nextJob++
	u.active = "inactive"
	u.pid = 0
	return f.nextJob, nil
}

func (f *fakeSystem) ReloadUnit(_ context.Context, unit, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ReloadUnit"); err != nil {
		return err
	}
	if _, ok := f.units[unit]; !ok {
		return fmt.Errorf("%w: unit %s not loaded", ErrNotFound, unit)
	}
	return nil
}

func (f *fakeSystem) EnableUnitFiles(_ context.Context, units []string, _, _ bool) (bool, []UnitFileChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("EnableUnitFiles"); err != nil {
		return false, nil, err
	}
	var changes []UnitFileChange
	for _, unit := range units {
		if !f.hasFile(unit) {
			return false, nil, fmt.Errorf("%w: no unit file for %s", ErrNotFound, unit)
		}
		u, ok := f.units[unit]
		if !ok {
			u = &fakeUnit{active: "inactive", file: "disabled"}
			f.units[unit] = u
		}
		if u.file == "enabled" {
			continue
		}
		u.file = "enabled"
		changes = append(changes, UnitFileChange{
			Type:        "symlink",
			Filename:    "/etc/systemd/system/multi-user.target.wants/" + unit,
			Destination: filepath.Join(f.unitDir, unit),
		})
	}
	return false, changes, nil
}

func (f *fakeSystem) DisableUnitFiles(_ context.Context, units []string, _ bool) ([]UnitFileChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DisableUnitFiles"); err != nil {
		return nil, err
	}
	var changes []UnitFileChange
	for _, unit := range units {
		u, ok := f.units[unit]
		if !ok || u.file != "enabled" {
			continue
		}
		u.file = "disabled"
		changes = append(changes, UnitFileChange{
			Type:     "unlink",
			Filename: "/etc/systemd/system/multi-user.target.wants/" + unit,
		})
	}
	return changes, nil
}

// ReloadManager loads new unit files and forgets stopped units whose file is gone
func (f *fakeSystem) ReloadManager(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ReloadManager"); err != nil {
		return err
	}
	files, err := DiscoverUnits(f.unitDir)
	if err != nil {
		return err
	}
	for _, unit := range files {
		if _, ok := f.units[unit]; !ok {
			f.units[unit] = &fakeUnit{active: "inactive", file: "disabled"}
		}
	}
	for unit, u := range f.units {
		if !f.hasFile(unit) && u.active != "active" {
			delete(f.units, unit)
		}
	}
	return nil
}

func (f *fakeSystem) MainPID(_ context.Context, unit string) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("MainPID"); err != nil {
		return 0, err
	}
	if u, ok := f.units[unit]; ok {
		return u.pid, nil
	}
	return 0, nil
}

func (f *fakeSystem) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fakeFinder resolves binaries from a fixed table
type fakeFinder struct {
	paths map[string]string
	calls int
}

func (f *fakeFinder) Find(_ context.Context, _ Invoker, name string) (string, error) {
	f.calls++
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %s is not on the invoker's PATH", ErrInterpreterNotFound, name)
}

// fakeStats serves scripted tick and memory samples per pid. Each CPUTicks
// call consumes the next sample; a pid listed in gone fails after its
// first read.
type fakeStats struct {
	mu       sync.Mutex
	ticks    map[uint32][]uint64
	reads    map[uint32]int
	memory   map[uint32]MemoryPages
	gone     map[uint32]bool
	clkTck   uint64
	pageSize uint64
}

func newFakeStats() *fakeStats {
	return &fakeStats{
		ticks:    make(map[uint32][]uint64),
		reads:    make(map[uint32]int),
		memory:   make(map[uint32]MemoryPages),
		gone:     make(map[uint32]bool),
		clkTck:   100,
		pageSize: 4096,
	}
}

func (s *fakeStats) CPUTicks(_ context.Context, pid uint32) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.reads[pid]
	s.reads[pid]++
	if s.gone[pid] && n > 0 {
		return 0, fmt.Errorf("%w: process %d exited", ErrNotFound, pid)
	}
	samples := s.ticks[pid]
	if n >= len(samples) {
		return 0, fmt.Errorf("%w: process %d exited", ErrNotFound, pid)
	}
	return samples[n], nil
}

func (s *fakeStats) Memory(_ context.Context, pid uint32) (MemoryPages, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone[pid] {
		return MemoryPages{}, fmt.Errorf("%w: process %d exited", ErrNotFound, pid)
	}
	return s.memory[pid], nil
}

func (s *fakeStats) ClockTicks() uint64 { return s.clkTck }

func (s *fakeStats) PageSize() uint64 { return s.pageSize }

// testEnv returns an environment lookup that names the current user as the
// sudo invoker
func testEnv(t *testing.T) func(string) string {
	t.Helper()
	u, err := user.Current()
	require.NoError(t, err)
	return func(key string) string {
		if key == SudoUserEnv {
			return u.Username
		}
		return ""
	}
}

// noSleep records requested sleeps without waiting
type noSleep struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (n *noSleep) sleep(ctx context.Context, d time.Duration) error {
	n.mu.Lock()
	n.calls = append(n.calls, d)
	n.mu.Unlock()
	return ctx.Err()
}

func writeUnit(t *testing.T, dir, unit string) string {
	t.Helper()
	path := filepath.Join(dir, unit)
	require.NoError(t, os.WriteFile(path, []byte(GeneratedHeader+"\n[Service]\nExecStart=/bin/true\n"), FileMode))
	return path
}
