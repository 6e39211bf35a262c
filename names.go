package servicer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// FullName returns the unit name for a short service name
func FullName(short string) string {
	return short + UnitSuffix
}

// IsFullName reports whether name carries the tool's unit suffix
func IsFullName(name string) bool {
	return strings.HasSuffix(name, UnitSuffix)
}

// ShortName strips the unit suffix from a full unit name
func ShortName(full string) (string, error) {
	if !IsFullName(full) {
		return "", fmt.Errorf("%w: %q does not end in %s", ErrInvalidName, full, UnitSuffix)
	}
	short := strings.TrimSuffix(full, UnitSuffix)
	if short == "" {
		return "", fmt.Errorf("%w: %q has an empty service name", ErrInvalidName, full)
	}
	return short, nil
}

// UnitFilePath returns where the unit file for full lives under dir
func UnitFilePath(dir, full string) string {
	return filepath.Join(dir, full)
}

// ValidateShortName checks that short can be embedded in a unit name
func ValidateShortName(short string) error {
	switch {
	case short == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	case short == "." || short == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, short)
	case strings.HasPrefix(short, "-"):
		return fmt.Errorf("%w: %q starts with '-'", ErrInvalidName, short)
	case IsFullName(short):
		return fmt.Errorf("%w: %q already carries the %s suffix", ErrInvalidName, short, UnitSuffix)
	}
	for _, r := range short {
		if r == '/' || r == '\\' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, short, r)
		}
	}
	return nil
}

// ResolveName accepts either a short or a full name and returns both
func ResolveName(name string) (short, full string, err error) {
	if IsFullName(name) {
		short, err = ShortName(name)
		if err != nil {
			return "", "", err
		}
	} else {
		short = name
	}
	if err := ValidateShortName(short); err != nil {
		return "", "", err
	}
	return short, FullName(short), nil
}

// DiscoverUnits lists the tool-managed unit files in dir, sorted by name.
// A missing directory yields an empty list.
func DiscoverUnits(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var units []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if _, err := ShortName(e.Name()); err != nil {
			continue
		}
		units = append(units, e.Name())
	}
	sort.Strings(units)
	return units, nil
}
