package servicer

import (
	"fmt"
	"time"
)

// Tool and systemd layout constants
const (
	// ToolName identifies the tool in generated unit files and unit names
	ToolName = "servicer"

	// UnitSuffix marks every unit this tool manages
	UnitSuffix = "." + ToolName + ".service"

	// DefaultUnitDir is the system unit configuration directory
	DefaultUnitDir = "/etc/systemd/system"

	// DefaultSampleInterval is the shared CPU sampling window for status reports
	DefaultSampleInterval = 100 * time.Millisecond

	// DefaultConcurrency bounds concurrent manager queries and /proc reads
	DefaultConcurrency = 10

	// DefaultTimeout is the per-query timeout used by the status aggregator
	DefaultTimeout = 5 * time.Second

	// DefaultWatchDebounce is the default debounce time for unit directory watching
	DefaultWatchDebounce = 25 * time.Millisecond

	// ModeReplace is the job mode used for start, stop and reload requests
	ModeReplace = "replace"
)

// File modes
const (
	// FileMode is the mode for written unit files
	FileMode = 0o644
)

// Action represents a lifecycle step type
type Action int

const (
	// ActionUnknown represents an unknown action
	ActionUnknown Action = iota
	// ActionCreate synthesizes and writes a unit file
	ActionCreate
	// ActionStart asks the manager to start a unit
	ActionStart
	// ActionStop asks the manager to stop a unit
	ActionStop
	// ActionEnable links a unit for boot
	ActionEnable
	// ActionDisable unlinks a unit from boot
	ActionDisable
	// ActionReload asks the unit to reload its own configuration
	ActionReload
	// ActionRename moves a unit to a new name, preserving its state
	ActionRename
	// ActionDelete stops, disables and removes a unit
	ActionDelete
	// ActionCopyFile duplicates a unit file under a new name
	ActionCopyFile
	// ActionRemoveFile removes a unit file
	ActionRemoveFile
	// ActionReloadManager makes the manager re-read unit files
	ActionReloadManager
	// ActionEdit opens a unit file in an editor
	ActionEdit
	// ActionStatus represents a status query
	ActionStatus
)

// Action string constants
const (
	actionUnknownStr       = "unknown"
	actionCreateStr        = "create"
	actionStartStr         = "start"
	actionStopStr          = "stop"
	actionEnableStr        = "enable"
	actionDisableStr       = "disable"
	actionReloadStr        = "reload"
	actionRenameStr        = "rename"
	actionDeleteStr        = "delete"
	actionCopyFileStr      = "copy-file"
	actionRemoveFileStr    = "remove-file"
	actionReloadManagerStr = "daemon-reload"
	actionEditStr          = "edit"
	actionStatusStr        = "status"
)

// String returns the string representation of an Action
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return actionCreateStr
	case ActionStart:
		return actionStartStr
	case ActionStop:
		return actionStopStr
	case ActionEnable:
		return actionEnableStr
	case ActionDisable:
		return actionDisableStr
	case ActionReload:
		return actionReloadStr
	case ActionRename:
		return actionRenameStr
	case ActionDelete:
		return actionDeleteStr
	case ActionCopyFile:
		return actionCopyFileStr
	case ActionRemoveFile:
		return actionRemoveFileStr
	case ActionReloadManager:
		return actionReloadManagerStr
	case ActionEdit:
		return actionEditStr
	case ActionStatus:
		return actionStatusStr
	default:
		return actionUnknownStr
	}
}

// JobID identifies a job queued by the manager
type JobID int

// Path returns the D-Bus object path of the job
func (j JobID) Path() string {
	if j <= 0 {
		return ""
	}
	return fmt.Sprintf("/org/freedesktop/systemd1/job/%d", int(j))
}

// Step is one effect (or deliberate non-effect) of a lifecycle operation
type Step struct {
	// Action is what the step did
	Action Action
	// Unit is the unit name or file path the step touched
	Unit string
	// NoOp is true when the step was skipped because the unit was already in place
	NoOp bool
	// Job is the manager job queued by the step, if any
	Job JobID
	// Detail is a short human-readable note
	Detail string
	// Err is set when a best-effort step failed
	Err error
}

// Succeeded reports whether the step took effect
func (s Step) Succeeded() bool {
	return s.Err == nil && !s.NoOp
}

// Outcome collects the steps a lifecycle operation performed
type Outcome struct {
	// Action is the requested operation
	Action Action
	// Service is the short name of the service the operation targeted
	Service string
	// Steps lists what happened, in order
	Steps []Step
}

func newOutcome(action Action, service string) *Outcome {
	return &Outcome{Action: action, Service: service}
}

func (o *Outcome) add(s Step) {
	o.Steps = append(o.Steps, s)
}

// Completed returns the steps that took effect
func (o *Outcome) Completed() []Step {
	var done []Step
	for _, s := range o.Steps {
		if s.Succeeded() {
			done = append(done, s)
		}
	}
	return done
}

// NoOp reports whether every step was skipped
func (o *Outcome) NoOp() bool {
	for _, s := range o.Steps {
		if !s.NoOp {
			return false
		}
	}
	return len(o.Steps) > 0
}
