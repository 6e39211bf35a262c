//go:build linux

package servicer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/prometheus/procfs"
	"github.com/shirou/gopsutil/process"

	"github.com/axondata/go-servicer/internal/unix"
)

// ProcFS reads CPU ticks from /proc/<pid>/stat and memory from /proc/<pid>/statm
type ProcFS struct {
	fs       procfs.FS
	clkTck   uint64
	pageSize uint64
}

// NewProcFS opens the proc filesystem mounted at mountPoint
func NewProcFS(mountPoint string) (*ProcFS, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	pfs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", mountPoint, err)
	}
	return &ProcFS{
		fs:       pfs,
		clkTck:   unix.ClockTicks(),
		pageSize: unix.PageSize(),
	}, nil
}

// CPUTicks implements ProcStats
func (p *ProcFS) CPUTicks(_ context.Context, pid uint32) (uint64, error) {
	proc, err := p.fs.Proc(int(pid))
	if err != nil {
		return 0, classifyProcErr(pid, err)
	}
	stat, err := proc.Stat()
	if err != nil {
		return 0, classifyProcErr(pid, err)
	}
	return uint64(stat.UTime) + uint64(stat.STime), nil
}

// Memory implements ProcStats
func (p *ProcFS) Memory(ctx context.Context, pid uint32) (MemoryPages, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return MemoryPages{}, classifyProcErr(pid, err)
	}
	mem, err := proc.MemoryInfoExWithContext(ctx)
	if err != nil {
		return MemoryPages{}, classifyProcErr(pid, err)
	}
	// gopsutil scales statm pages to bytes with the same page size
	return MemoryPages{
		Resident: mem.RSS / p.pageSize,
		Shared:   mem.Shared / p.pageSize,
	}, nil
}

// ClockTicks implements ProcStats
func (p *ProcFS) ClockTicks() uint64 {
	return p.clkTck
}

// PageSize implements ProcStats
func (p *ProcFS) PageSize() uint64 {
	return p.pageSize
}

func classifyProcErr(pid uint32, err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, process.ErrorProcessNotRunning) {
		return fmt.Errorf("%w: process %d exited", ErrNotFound, pid)
	}
	return fmt.Errorf("%w: process %d: %v", ErrMalformedProcessStat, pid, err)
}
