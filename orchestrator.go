package servicer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ReloadPolicy selects when Reload forwards the request to the unit
type ReloadPolicy int

const (
	// ReloadFailedOnly forwards only for units in the failed state and rejects the rest
	ReloadFailedOnly ReloadPolicy = iota
	// ReloadUnlessReloading always forwards unless a reload is already running
	ReloadUnlessReloading
)

// String returns the configuration spelling of the policy
func (p ReloadPolicy) String() string {
	if p == ReloadUnlessReloading {
		return "unless-reloading"
	}
	return "failed-only"
}

// ParseReloadPolicy parses the configuration spelling of a policy
func ParseReloadPolicy(s string) (ReloadPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "failed-only":
		return ReloadFailedOnly, nil
	case "unless-reloading":
		return ReloadUnlessReloading, nil
	default:
		return ReloadFailedOnly, fmt.Errorf("unknown reload policy %q (want failed-only or unless-reloading)", s)
	}
}

// CreateRequest describes a service to synthesize
type CreateRequest struct {
	// Path is the executable or script to run
	Path string
	// Name overrides the short service name (default: the file's base name)
	Name string
	// Interpreter overrides the extension based interpreter choice
	Interpreter string
	// Environment is a whitespace separated list of KEY=VALUE tokens
	Environment string
	// Args are appended to the exec line
	Args []string
	// Restart enables Restart=always
	Restart bool
	// Overwrite replaces an existing unit file
	Overwrite bool
	// Start starts the service after writing it
	Start bool
	// Enable links the service for boot after writing it
	Enable bool
}

// Orchestrator performs lifecycle transitions on tool-managed units.
// Operations run sequentially; every name is validated before any mutation.
type Orchestrator struct {
	sys          InitSystem
	unitDir      string
	finder       BinaryFinder
	getenv       func(string) string
	interpreters InterpreterTable
	reloadPolicy ReloadPolicy
	log          *zap.SugaredLogger
}

// NewOrchestrator creates an Orchestrator over sys
func NewOrchestrator(sys InitSystem, opts ...Option) *Orchestrator {
	o := buildOptions(opts)
	return &Orchestrator{
		sys:          sys,
		unitDir:      o.unitDir,
		finder:       o.finder,
		getenv:       o.getenv,
		interpreters: o.interpreters,
		reloadPolicy: o.reloadPolicy,
		log:          o.logger,
	}
}

// UnitDir returns the directory unit files are written to
func (o *Orchestrator) UnitDir() string {
	return o.unitDir
}

func (o *Orchestrator) unitPath(full string) string {
	return UnitFilePath(o.unitDir, full)
}

func (o *Orchestrator) resolve(op Action, name string) (string, string, error) {
	short, full, err := ResolveName(name)
	if err != nil {
		return "", "", &OpError{Op: op, Unit: name, Err: err}
	}
	return short, full, nil
}

func (o *Orchestrator) requireUnitFile(op Action, full string) error {
	path := o.unitPath(full)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &OpError{Op: op, Unit: full, Err: fmt.Errorf("%w: no unit file at %s", ErrNotFound, path)}
		}
		return &OpError{Op: op, Unit: full, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &OpError{Op: op, Unit: full, Err: fmt.Errorf("%w: %s is not a regular file", ErrNotFound, path)}
	}
	return nil
}

// adapterErr keeps sentinel classification from the adapter and tags the rest
func adapterErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPrivilege), errors.Is(err, ErrAdapter),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", ErrAdapter, err)
}

// Create synthesizes a unit file for req.Path. Nothing is written unless
// every check up to rendering succeeds.
func (o *Orchestrator) Create(ctx context.Context, req CreateRequest) (*Outcome, error) {
	target, err := filepath.Abs(req.Path)
	if err != nil {
		return nil, &OpError{Op: ActionCreate, Unit: req.Path, Err: err}
	}
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &OpError{Op: ActionCreate, Unit: req.Path, Err: fmt.Errorf("%w: %s", ErrNotFound, req.Path)}
		}
		return nil, &OpError{Op: ActionCreate, Unit: req.Path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &OpError{Op: ActionCreate, Unit: req.Path, Err: fmt.Errorf("%w: %s is not a file", ErrNotFound, req.Path)}
	}

	fileName := filepath.Base(target)
	name := req.Name
	if name == "" {
		name = fileName
	}
	short, full, err := o.resolve(ActionCreate, name)
	if err != nil {
		return nil, err
	}

	unitPath := o.unitPath(full)
	if _, err := os.Stat(unitPath); err == nil && !req.Overwrite {
		return nil, &OpError{Op: ActionCreate, Unit: full, Err: fmt.Errorf("%w: %s", ErrAlreadyExists, unitPath)}
	}

	inv, err := InvokerFromEnv(o.getenv)
	if err != nil {
		return nil, &OpError{Op: ActionCreate, Unit: full, Err: err}
	}

	interpreter, err := o.resolveInterpreter(ctx, inv, fileName, req.Interpreter)
	if err != nil {
		return nil, &OpError{Op: ActionCreate, Unit: full, Err: err}
	}
	if interpreter == "" {
		if err := checkExecutable(target); err != nil {
			return nil, &OpError{Op: ActionCreate, Unit: full,
				Err: fmt.Errorf("%w: %v; pass an interpreter", ErrInterpreterNotFound, err)}
		}
	}

	env, err := ParseEnvironment(req.Environment)
	if err != nil {
		return nil, &OpError{Op: ActionCreate, Unit: full, Err: err}
	}

	desc := ServiceDescriptor{
		Name:             short,
		WorkingDirectory: filepath.Dir(target),
		FileName:         fileName,
		Interpreter:      interpreter,
		Args:             req.Args,
		Environment:      env,
		User:             inv.Username,
	}
	if req.Restart {
		desc.Restart = RestartAlways
	}

	if err := writeUnitFile(unitPath, []byte(RenderUnit(desc))); err != nil {
		return nil, &OpError{Op: ActionCreate, Unit: unitPath, Err: err}
	}
	o.log.Debugf("Wrote unit file %s", unitPath)

	out := newOutcome(ActionCreate, short)
	out.add(Step{Action: ActionCreate, Unit: unitPath, Detail: "ExecStart=" + desc.ExecLine()})

	if err := o.reloadManager(ctx, out); err != nil {
		return out, o.partial(ActionCreate, full, out, err)
	}

	if req.Start {
		state, err := o.sys.UnitState(ctx, full)
		if err != nil {
			return out, o.partial(ActionCreate, full, out, &OpError{Op: ActionStart, Unit: full, Err: adapterErr(err)})
		}
		if err := o.start(ctx, out, full, state); err != nil {
			return out, o.partial(ActionCreate, full, out, err)
		}
	}
	if req.Enable {
		if err := o.enable(ctx, out, full); err != nil {
			return out, o.partial(ActionCreate, full, out, err)
		}
	}
	return out, nil
}

// resolveInterpreter returns the absolute interpreter path, or "" when the
// file is executed directly
func (o *Orchestrator) resolveInterpreter(ctx context.Context, inv Invoker, fileName, override string) (string, error) {
	bin := override
	if bin == "" {
		var direct bool
		var err error
		bin, direct, err = o.interpreters.Lookup(fileName)
		if err != nil {
			return "", err
		}
		if direct {
			return "", nil
		}
	}
	path, err := o.finder.Find(ctx, inv, bin)
	if err != nil {
		if errors.Is(err, ErrInterpreterNotFound) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrInterpreterNotFound, err)
	}
	o.log.Debugf("Resolved interpreter %s to %s for %s", bin, path, inv.Username)
	return path, nil
}

// Start starts the unit unless it is already active or reloading, and
// optionally enables it unless it is already enabled.
func (o *Orchestrator) Start(ctx context.Context, name string, enable bool) (*Outcome, error) {
	short, full, err := o.resolve(ActionStart, name)
	if err != nil {
		return nil, err
	}
	if err := o.requireUnitFile(ActionStart, full); err != nil {
		return nil, err
	}

	state, err := o.sys.UnitState(ctx, full)
	if err != nil {
		return nil, &OpError{Op: ActionStart, Unit: full, Err: adapterErr(err)}
	}

	out := newOutcome(ActionStart, short)
	if err := o.start(ctx, out, full, state); err != nil {
		return out, err
	}

	if enable {
		if state.File.IsEnabled() {
			out.add(Step{Action: ActionEnable, Unit: full, NoOp: true, Detail: "already " + state.File.String()})
			return out, nil
		}
		if err := o.enable(ctx, out, full); err != nil {
			return out, o.partial(ActionStart, full, out, err)
		}
	}
	return out, nil
}

func (o *Orchestrator) start(ctx context.Context, out *Outcome, full string, state UnitState) error {
	if state.Active.IsActive() || state.Active.IsReloading() {
		out.add(Step{Action: ActionStart, Unit: full, NoOp: true, Detail: "already " + state.Active.String()})
		o.log.Debugf("Not starting %s: already %s", full, state.Active)
		return nil
	}
	return o.startUnit(ctx, out, full)
}

func (o *Orchestrator) startUnit(ctx context.Context, out *Outcome, full string) error {
	job, err := o.sys.StartUnit(ctx, full, ModeReplace)
	if err != nil {
		out.add(Step{Action: ActionStart, Unit: full, Err: err})
		return &OpError{Op: ActionStart, Unit: full, Err: adapterErr(err)}
	}
	out.add(Step{Action: ActionStart, Unit: full, Job: job})
	o.log.Debugf("Started %s (job %d)", full, job)
	return nil
}

// Stop requests a stop unconditionally. A unit unknown to the manager is a no-op.
func (o *Orchestrator) Stop(ctx context.Context, name string) (*Outcome, error) {
	short, full, err := o.resolve(ActionStop, name)
	if err != nil {
		return nil, err
	}

	out := newOutcome(ActionStop, short)
	if err := o.stop(ctx, out, full); err != nil {
		return out, err
	}
	return out, nil
}

func (o *Orchestrator) stop(ctx context.Context, out *Outcome, full string) error {
	job, err := o.sys.StopUnit(ctx, full, ModeReplace)
	switch {
	case errors.Is(err, ErrNotFound):
		out.add(Step{Action: ActionStop, Unit: full, NoOp: true, Detail: "not loaded"})
		return nil
	case err != nil:
		out.add(Step{Action: ActionStop, Unit: full, Err: err})
		return &OpError{Op: ActionStop, Unit: full, Err: adapterErr(err)}
	}
	out.add(Step{Action: ActionStop, Unit: full, Job: job})
	o.log.Debugf("Stopped %s (job %d)", full, job)
	return nil
}

// Enable links the unit for boot and reloads the manager once
func (o *Orchestrator) Enable(ctx context.Context, name string) (*Outcome, error) {
	short, full, err := o.resolve(ActionEnable, name)
	if err != nil {
		return nil, err
	}
	if err := o.requireUnitFile(ActionEnable, full); err != nil {
		return nil, err
	}

	out := newOutcome(ActionEnable, short)
	if err := o.enable(ctx, out, full); err != nil {
		return out, err
	}
	return out, nil
}

func (o *Orchestrator) enable(ctx context.Context, out *Outcome, full string) error {
	_, changes, err := o.sys.EnableUnitFiles(ctx, []string{full}, false, true)
	if err != nil {
		out.add(Step{Action: ActionEnable, Unit: full, Err: err})
		return &OpError{Op: ActionEnable, Unit: full, Err: adapterErr(err)}
	}
	out.add(Step{Action: ActionEnable, Unit: full, NoOp: len(changes) == 0, Detail: describeChanges(changes)})
	return o.reloadManager(ctx, out)
}

// Disable unlinks the unit from boot and reloads the manager once
func (o *Orchestrator) Disable(ctx context.Context, name string) (*Outcome, error) {
	short, full, err := o.resolve(ActionDisable, name)
	if err != nil {
		return nil, err
	}

	out := newOutcome(ActionDisable, short)
	if err := o.disable(ctx, out, full); err != nil {
		return out, err
	}
	if err := o.reloadManager(ctx, out); err != nil {
		return out, err
	}
	return out, nil
}

// disable unlinks without reloading so Delete can reload once at the end
func (o *Orchestrator) disable(ctx context.Context, out *Outcome, full string) error {
	changes, err := o.sys.DisableUnitFiles(ctx, []string{full}, false)
	if err != nil {
		out.add(Step{Action: ActionDisable, Unit: full, Err: err})
		return &OpError{Op: ActionDisable, Unit: full, Err: adapterErr(err)}
	}
	out.add(Step{Action: ActionDisable, Unit: full, NoOp: len(changes) == 0, Detail: describeChanges(changes)})
	return nil
}

func (o *Orchestrator) reloadManager(ctx context.Context, out *Outcome) error {
	if err := o.sys.ReloadManager(ctx); err != nil {
		out.add(Step{Action: ActionReloadManager, Unit: "manager", Err: err})
		return &OpError{Op: ActionReloadManager, Unit: "manager", Err: adapterErr(err)}
	}
	out.add(Step{Action: ActionReloadManager, Unit: "manager"})
	return nil
}

func describeChanges(changes []UnitFileChange) string {
	if len(changes) == 0 {
		return "no changes"
	}
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.Destination != "" {
			parts = append(parts, fmt.Sprintf("%s %s -> %s", c.Type, c.Filename, c.Destination))
		} else {
			parts = append(parts, fmt.Sprintf("%s %s", c.Type, c.Filename))
		}
	}
	return strings.Join(parts, "; ")
}

// Reload asks the unit to reload its configuration, gated by the reload policy
func (o *Orchestrator) Reload(ctx context.Context, name string) (*Outcome, error) {
	short, full, err := o.resolve(ActionReload, name)
	if err != nil {
		return nil, err
	}

	state, err := o.sys.UnitState(ctx, full)
	if err != nil {
		return nil, &OpError{Op: ActionReload, Unit: full, Err: adapterErr(err)}
	}
	if !state.Registered() {
		return nil, &OpError{Op: ActionReload, Unit: full, Err: fmt.Errorf("%w: unit is not loaded", ErrNotFound)}
	}

	out := newOutcome(ActionReload, short)
	switch o.reloadPolicy {
	case ReloadUnlessReloading:
		if state.Active.IsReloading() {
			out.add(Step{Action: ActionReload, Unit: full, NoOp: true, Detail: "already reloading"})
			return out, nil
		}
	default:
		if !state.Active.IsFailed() {
			return nil, &OpError{Op: ActionReload, Unit: full,
				Err: fmt.Errorf("%w: unit is %s; reload applies only to failed units", ErrInvalidState, state.Active)}
		}
	}

	if err := o.sys.ReloadUnit(ctx, full, ModeReplace); err != nil {
		out.add(Step{Action: ActionReload, Unit: full, Err: err})
		return out, &OpError{Op: ActionReload, Unit: full,
			Err: fmt.Errorf("%w (does the unit declare ExecReload=?)", adapterErr(err))}
	}
	out.add(Step{Action: ActionReload, Unit: full})
	return out, nil
}

// Rename moves a unit to a new name and replays its running and boot state
func (o *Orchestrator) Rename(ctx context.Context, oldName, newName string) (*Outcome, error) {
	oldShort, oldFull, err := o.resolve(ActionRename, oldName)
	if err != nil {
		return nil, err
	}
	newShort, newFull, err := o.resolve(ActionRename, newName)
	if err != nil {
		return nil, err
	}
	if oldFull == newFull {
		return nil, &OpError{Op: ActionRename, Unit: oldFull, Err: fmt.Errorf("%w: old and new names are the same", ErrInvalidName)}
	}
	if err := o.requireUnitFile(ActionRename, oldFull); err != nil {
		return nil, err
	}
	newPath := o.unitPath(newFull)
	if _, err := os.Stat(newPath); err == nil {
		return nil, &OpError{Op: ActionRename, Unit: newFull, Err: fmt.Errorf("%w: %s", ErrAlreadyExists, newPath)}
	}

	// captured before any mutation so it can be replayed on the new unit
	state, err := o.sys.UnitState(ctx, oldFull)
	if err != nil {
		return nil, &OpError{Op: ActionRename, Unit: oldFull, Err: adapterErr(err)}
	}

	out := newOutcome(ActionRename, newShort)

	data, err := os.ReadFile(o.unitPath(oldFull))
	if err != nil {
		return nil, &OpError{Op: ActionCopyFile, Unit: oldFull, Err: err}
	}
	data = retitleUnit(data, oldShort, newShort)
	if err := writeUnitFile(newPath, data); err != nil {
		return nil, &OpError{Op: ActionCopyFile, Unit: newPath, Err: err}
	}
	out.add(Step{Action: ActionCopyFile, Unit: newPath, Detail: "from " + oldFull})

	if err := o.remove(ctx, out, oldFull); err != nil {
		return out, o.partial(ActionRename, oldFull, out, err)
	}

	if state.Active.IsActive() {
		if err := o.startUnit(ctx, out, newFull); err != nil {
			return out, o.partial(ActionRename, newFull, out, err)
		}
	}
	if state.File.IsEnabled() {
		if err := o.enable(ctx, out, newFull); err != nil {
			return out, o.partial(ActionRename, newFull, out, err)
		}
	}
	return out, nil
}

// retitleUnit swaps the generated Description= line over to the new name.
// A description the user rewrote is left alone.
func retitleUnit(data []byte, oldShort, newShort string) []byte {
	oldLine := []byte(descriptionLine(oldShort))
	lines := bytes.SplitAfter(data, []byte("\n"))
	for i, line := range lines {
		if bytes.Equal(bytes.TrimRight(line, "\r\n"), oldLine) {
			lines[i] = append([]byte(descriptionLine(newShort)), line[len(oldLine):]...)
			break
		}
	}
	return bytes.Join(lines, nil)
}

// Delete stops, disables and removes the unit. Every step is attempted; a
// mix of successes and failures is reported as a PartialFailureError.
func (o *Orchestrator) Delete(ctx context.Context, name string) (*Outcome, error) {
	short, full, err := o.resolve(ActionDelete, name)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(o.unitPath(full)); errors.Is(err, fs.ErrNotExist) {
		state, err := o.sys.UnitState(ctx, full)
		if err != nil {
			return nil, &OpError{Op: ActionDelete, Unit: full, Err: adapterErr(err)}
		}
		if !state.Registered() {
			return nil, &OpError{Op: ActionDelete, Unit: full, Err: fmt.Errorf("%w: no unit file and no loaded unit", ErrNotFound)}
		}
	}

	out := newOutcome(ActionDelete, short)
	if err := o.remove(ctx, out, full); err != nil {
		return out, err
	}
	return out, nil
}

// remove runs stop, disable, file removal and one manager reload, best effort
func (o *Orchestrator) remove(ctx context.Context, out *Outcome, full string) error {
	merr := &MultiError{}

	if err := o.stop(ctx, out, full); err != nil {
		o.log.Warnf("Stopping %s: %v", full, err)
		merr.Add(err)
	}
	if err := o.disable(ctx, out, full); err != nil {
		o.log.Warnf("Disabling %s: %v", full, err)
		merr.Add(err)
	}

	path := o.unitPath(full)
	switch err := os.Remove(path); {
	case errors.Is(err, fs.ErrNotExist):
		out.add(Step{Action: ActionRemoveFile, Unit: path, NoOp: true, Detail: "already absent"})
	case err != nil:
		out.add(Step{Action: ActionRemoveFile, Unit: path, Err: err})
		merr.Add(&OpError{Op: ActionRemoveFile, Unit: path, Err: err})
	default:
		out.add(Step{Action: ActionRemoveFile, Unit: path})
	}

	if err := o.reloadManager(ctx, out); err != nil {
		merr.Add(err)
	}

	if err := merr.Err(); err != nil {
		return o.partial(ActionDelete, full, out, err)
	}
	return nil
}

// partial wraps err as a PartialFailureError when some steps took effect
func (o *Orchestrator) partial(op Action, unit string, out *Outcome, err error) error {
	var pf *PartialFailureError
	if errors.As(err, &pf) {
		return &PartialFailureError{Op: op, Unit: unit, Completed: out.Completed(), Err: pf.Err}
	}
	done := out.Completed()
	if len(done) == 0 {
		return &OpError{Op: op, Unit: unit, Err: err}
	}
	return &PartialFailureError{Op: op, Unit: unit, Completed: done, Err: err}
}
