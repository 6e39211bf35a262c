//go:build !linux

package servicer

import (
	"context"
	"fmt"
)

var errProcUnsupported = fmt.Errorf("%w: /proc is only available on Linux", ErrMalformedProcessStat)

// ProcFS reads process accounting (Linux only)
type ProcFS struct{}

// NewProcFS returns an error on non-Linux platforms
func NewProcFS(_ string) (*ProcFS, error) {
	return nil, errProcUnsupported
}

// CPUTicks is unsupported outside Linux
func (p *ProcFS) CPUTicks(_ context.Context, _ uint32) (uint64, error) {
	return 0, errProcUnsupported
}

// Memory is unsupported outside Linux
func (p *ProcFS) Memory(_ context.Context, _ uint32) (MemoryPages, error) {
	return MemoryPages{}, errProcUnsupported
}

// ClockTicks returns the conventional USER_HZ
func (p *ProcFS) ClockTicks() uint64 {
	return 100
}

// PageSize returns zero outside Linux
func (p *ProcFS) PageSize() uint64 {
	return 0
}
