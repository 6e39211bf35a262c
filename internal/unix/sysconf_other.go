//go:build !linux && !darwin

// Package unix provides platform-specific Unix constants.
package unix

import "os"

// DefaultClockTicks is the USER_HZ value of virtually every Linux build
const DefaultClockTicks = 100

// ClockTicks returns DefaultClockTicks on platforms without sysconf
func ClockTicks() uint64 {
	return DefaultClockTicks
}

// PageSize returns the memory page size in bytes
func PageSize() uint64 {
	return uint64(os.Getpagesize())
}

// Geteuid returns -1 on platforms without user ids
func Geteuid() int {
	return -1
}
