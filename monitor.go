package servicer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ServiceStatus is one row of a status report
type ServiceStatus struct {
	// Name is the short service name
	Name string
	// Unit is the full unit name
	Unit string
	// PID is the main process, 0 when inactive
	PID uint32
	// Active is true only when ActiveState is "active"
	Active bool
	// EnabledOnBoot is true for "enabled" and "enabled-runtime"
	EnabledOnBoot bool
	// CPUPercent is the share of one CPU used during the sampling window
	CPUPercent float64
	// MemoryBytes is private resident memory
	MemoryBytes uint64
	// State is the snapshot the row was built from
	State UnitState
	// Err is a non-fatal failure that zeroed part of the row
	Err error
}

// Monitor builds status reports for every tool-managed unit.
// Manager queries and /proc reads fan out under a concurrency bound, and
// CPU usage is measured over one shared sampling window.
type Monitor struct {
	sys            InitSystem
	stats          ProcStats
	unitDir        string
	concurrency    int
	timeout        time.Duration
	sampleInterval time.Duration
	log            *zap.SugaredLogger

	// sleep waits out the sampling window; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewMonitor creates a Monitor with default settings
func NewMonitor(sys InitSystem, stats ProcStats, opts ...Option) *Monitor {
	o := buildOptions(opts)
	return &Monitor{
		sys:            sys,
		stats:          stats,
		unitDir:        o.unitDir,
		concurrency:    o.concurrency,
		timeout:        o.timeout,
		sampleInterval: o.sampleInterval,
		log:            o.logger,
		sleep:          sleepContext,
	}
}

// Status reports every unit found in the unit directory, in name order
func (m *Monitor) Status(ctx context.Context) ([]ServiceStatus, error) {
	units, err := DiscoverUnits(m.unitDir)
	if err != nil {
		return nil, &OpError{Op: ActionStatus, Unit: m.unitDir, Err: err}
	}
	return m.StatusOf(ctx, units...)
}

// StatusOf reports the given full unit names, in the given order.
// Per-unit failures are recorded on the row and never fail the report.
func (m *Monitor) StatusOf(ctx context.Context, units ...string) ([]ServiceStatus, error) {
	rows := make([]ServiceStatus, len(units))
	if len(units) == 0 {
		return rows, nil
	}

	m.fanOut(ctx, len(units), func(ctx context.Context, i int) {
		rows[i] = m.query(ctx, units[i])
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := m.sample(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (m *Monitor) query(ctx context.Context, unit string) ServiceStatus {
	short, _ := ShortName(unit)
	row := ServiceStatus{Name: short, Unit: unit}

	state, err := m.sys.UnitState(ctx, unit)
	if err != nil {
		m.log.Debugf("Querying %s: %v", unit, err)
		row.Err = &OpError{Op: ActionStatus, Unit: unit, Err: err}
		row.State = InvalidUnitState()
		return row
	}
	row.State = state
	row.Active = state.Active.IsActive()
	row.EnabledOnBoot = state.File.IsEnabled()

	if row.Active {
		pid, err := m.sys.MainPID(ctx, unit)
		if err != nil {
			m.log.Debugf("Reading MainPID of %s: %v", unit, err)
			row.Err = &OpError{Op: ActionStatus, Unit: unit, Err: err}
			return row
		}
		row.PID = pid
	}
	return row
}

// sample fills CPU and memory for rows with a main process. All T0 reads
// happen before the single shared sleep and all T1 reads after it.
func (m *Monitor) sample(ctx context.Context, rows []ServiceStatus) error {
	var idx []int
	for i := range rows {
		if rows[i].Active && rows[i].PID > 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil
	}

	t0 := make([]uint64, len(idx))
	ok := make([]bool, len(idx))
	m.fanOut(ctx, len(idx), func(ctx context.Context, j int) {
		row := &rows[idx[j]]
		ticks, err := m.stats.CPUTicks(ctx, row.PID)
		if err != nil {
			m.zero(row, err)
			return
		}
		t0[j] = ticks
		ok[j] = true
	})

	if err := m.sleep(ctx, m.sampleInterval); err != nil {
		return err
	}

	clk := m.stats.ClockTicks()
	page := m.stats.PageSize()
	m.fanOut(ctx, len(idx), func(ctx context.Context, j int) {
		if !ok[j] {
			return
		}
		row := &rows[idx[j]]
		t1, err := m.stats.CPUTicks(ctx, row.PID)
		if err != nil {
			m.zero(row, err)
			return
		}
		mem, err := m.stats.Memory(ctx, row.PID)
		if err != nil {
			m.zero(row, err)
			return
		}
		row.CPUPercent = CPUPercent(t0[j], t1, clk, m.sampleInterval)
		row.MemoryBytes = MemoryBytes(mem, page)
	})
	return ctx.Err()
}

// zero clears resource figures for a process that vanished or could not be read
func (m *Monitor) zero(row *ServiceStatus, err error) {
	m.log.Debugf("Sampling %s (pid %d): %v", row.Unit, row.PID, err)
	row.CPUPercent = 0
	row.MemoryBytes = 0
	row.Err = &OpError{Op: ActionStatus, Unit: row.Unit, Err: err}
}

// fanOut runs fn for indices [0, n) with bounded concurrency and a
// per-call timeout. Each call owns its index, so results need no lock.
func (m *Monitor) fanOut(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	// Semaphore for concurrency control
	sem := make(chan struct{}, m.concurrency)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			// Acquire semaphore slot
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			// Create operation context with timeout if configured
			opCtx := ctx
			if m.timeout > 0 {
				var cancel context.CancelFunc
				opCtx, cancel = context.WithTimeout(ctx, m.timeout)
				defer cancel()
			}

			fn(opCtx, i)
		}(i)
	}

	// Wait for all goroutines to complete
	wg.Wait()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
