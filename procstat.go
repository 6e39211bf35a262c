package servicer

import (
	"context"
	"time"
)

// MemoryPages is a process's resident and shared memory, in pages
type MemoryPages struct {
	Resident uint64
	Shared   uint64
}

// ProcStats reads per-process accounting from the kernel
type ProcStats interface {
	// CPUTicks returns cumulative user plus system time in clock ticks
	CPUTicks(ctx context.Context, pid uint32) (uint64, error)
	// Memory returns resident and shared pages
	Memory(ctx context.Context, pid uint32) (MemoryPages, error)
	// ClockTicks returns clock ticks per second
	ClockTicks() uint64
	// PageSize returns the page size in bytes
	PageSize() uint64
}

// CPUPercent converts two tick samples taken interval apart into percent of
// one CPU: (t1 - t0) * 1000 / ticksPerSecond / interval_ms * 100
func CPUPercent(t0, t1, ticksPerSecond uint64, interval time.Duration) float64 {
	ms := float64(interval) / float64(time.Millisecond)
	if t1 < t0 || ticksPerSecond == 0 || ms <= 0 {
		return 0
	}
	return float64(t1-t0) * 1000 / float64(ticksPerSecond) / ms * 100
}

// MemoryBytes returns private resident memory: (resident - shared) * pageSize
func MemoryBytes(m MemoryPages, pageSize uint64) uint64 {
	if m.Shared > m.Resident {
		return 0
	}
	return (m.Resident - m.Shared) * pageSize
}
