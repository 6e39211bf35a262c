package servicer

// InvalidUnitPath is the sentinel state reported for units the manager does not know
const InvalidUnitPath = "invalid-unit-path"

// ActiveKind classifies a unit's ActiveState
type ActiveKind int

const (
	// StateUnknown is any ActiveState value not listed below; the raw string is kept
	StateUnknown ActiveKind = iota
	// StateInvalidUnitPath means the manager has no such unit
	StateInvalidUnitPath
	// StateActive means the unit is running
	StateActive
	// StateReloading means the unit is reloading its configuration
	StateReloading
	// StateInactive means the unit is stopped
	StateInactive
	// StateFailed means the unit stopped unsuccessfully
	StateFailed
	// StateActivating means the unit is starting
	StateActivating
	// StateDeactivating means the unit is stopping
	StateDeactivating
)

var activeKinds = map[string]ActiveKind{
	InvalidUnitPath: StateInvalidUnitPath,
	"active":        StateActive,
	"reloading":     StateReloading,
	"inactive":      StateInactive,
	"failed":        StateFailed,
	"activating":    StateActivating,
	"deactivating":  StateDeactivating,
}

// ActiveState is the manager's live run state of a unit
type ActiveState struct {
	Kind ActiveKind
	Raw  string
}

// ParseActiveState classifies a raw ActiveState property value
func ParseActiveState(raw string) ActiveState {
	return ActiveState{Kind: activeKinds[raw], Raw: raw}
}

// String returns the raw state as reported by the manager
func (s ActiveState) String() string {
	if s.Raw == "" {
		return "unknown"
	}
	return s.Raw
}

// IsActive reports whether the unit is running
func (s ActiveState) IsActive() bool { return s.Kind == StateActive }

// IsReloading reports whether the unit is reloading
func (s ActiveState) IsReloading() bool { return s.Kind == StateReloading }

// IsFailed reports whether the unit is in the failed state
func (s ActiveState) IsFailed() bool { return s.Kind == StateFailed }

// UnitFileKind classifies a unit's UnitFileState
type UnitFileKind int

const (
	// FileUnknown is any UnitFileState value not listed below; the raw string is kept
	FileUnknown UnitFileKind = iota
	// FileInvalidUnitPath means the manager has no such unit
	FileInvalidUnitPath
	// FileEnabled means the unit is linked for boot
	FileEnabled
	// FileEnabledRuntime means the unit is linked for boot until the next reboot
	FileEnabledRuntime
	// FileDisabled means the unit is not linked for boot
	FileDisabled
	// FileStatic means the unit has no [Install] section
	FileStatic
	// FileMasked means the unit is masked
	FileMasked
	// FileLinked means the unit file is linked into the search path
	FileLinked
)

var unitFileKinds = map[string]UnitFileKind{
	InvalidUnitPath:   FileInvalidUnitPath,
	"enabled":         FileEnabled,
	"enabled-runtime": FileEnabledRuntime,
	"disabled":        FileDisabled,
	"static":          FileStatic,
	"masked":          FileMasked,
	"linked":          FileLinked,
}

// UnitFileState is the boot-persistence state of a unit's file
type UnitFileState struct {
	Kind UnitFileKind
	Raw  string
}

// ParseUnitFileState classifies a raw UnitFileState property value
func ParseUnitFileState(raw string) UnitFileState {
	return UnitFileState{Kind: unitFileKinds[raw], Raw: raw}
}

// String returns the raw state as reported by the manager
func (s UnitFileState) String() string {
	if s.Raw == "" {
		return "unknown"
	}
	return s.Raw
}

// IsEnabled reports whether the unit starts on boot
func (s UnitFileState) IsEnabled() bool {
	return s.Kind == FileEnabled || s.Kind == FileEnabledRuntime
}

// LoadKind classifies a unit's LoadState
type LoadKind int

const (
	// LoadUnknown is any LoadState value not listed below; the raw string is kept
	LoadUnknown LoadKind = iota
	// LoadInvalidUnitPath means the manager has no such unit
	LoadInvalidUnitPath
	// LoadLoaded means the unit file was parsed
	LoadLoaded
	// LoadNotFound means no unit file exists for the unit
	LoadNotFound
	// LoadBadSetting means the unit file has invalid settings
	LoadBadSetting
	// LoadError means the unit file could not be loaded
	LoadError
	// LoadMasked means the unit is masked
	LoadMasked
)

var loadKinds = map[string]LoadKind{
	InvalidUnitPath: LoadInvalidUnitPath,
	"loaded":        LoadLoaded,
	"not-found":     LoadNotFound,
	"bad-setting":   LoadBadSetting,
	"error":         LoadError,
	"masked":        LoadMasked,
}

// LoadState reports whether the manager parsed a unit's file
type LoadState struct {
	Kind LoadKind
	Raw  string
}

// ParseLoadState classifies a raw LoadState property value
func ParseLoadState(raw string) LoadState {
	return LoadState{Kind: loadKinds[raw], Raw: raw}
}

// String returns the raw state as reported by the manager
func (s LoadState) String() string {
	if s.Raw == "" {
		return "unknown"
	}
	return s.Raw
}

// UnitState is a snapshot of the three manager-side states of one unit.
// It is always read fresh and never cached.
type UnitState struct {
	Load   LoadState
	Active ActiveState
	File   UnitFileState
}

// InvalidUnitState returns the sentinel snapshot for an unknown unit
func InvalidUnitState() UnitState {
	return UnitState{
		Load:   ParseLoadState(InvalidUnitPath),
		Active: ParseActiveState(InvalidUnitPath),
		File:   ParseUnitFileState(InvalidUnitPath),
	}
}

// Registered reports whether the manager knows the unit. A unit whose file
// is gone still counts while it has a live run state.
func (s UnitState) Registered() bool {
	switch s.Load.Kind {
	case LoadInvalidUnitPath:
		return false
	case LoadNotFound:
		return s.Active.Kind != StateInactive && s.Active.Kind != StateInvalidUnitPath && s.Active.Kind != StateUnknown
	}
	return s.Active.Kind != StateInvalidUnitPath
}
