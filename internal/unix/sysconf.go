//go:build linux || darwin

// Package unix provides platform-specific Unix constants.
package unix

import (
	"github.com/tklauser/go-sysconf"
	sysunix "golang.org/x/sys/unix"
)

// DefaultClockTicks is the USER_HZ value of virtually every Linux build
const DefaultClockTicks = 100

// ClockTicks returns the number of clock ticks per second used by /proc
// CPU time accounting
func ClockTicks() uint64 {
	tck, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || tck <= 0 {
		return DefaultClockTicks
	}
	return uint64(tck)
}

// PageSize returns the memory page size in bytes
func PageSize() uint64 {
	return uint64(sysunix.Getpagesize())
}

// Geteuid returns the effective user id of the process
func Geteuid() int {
	return sysunix.Geteuid()
}
