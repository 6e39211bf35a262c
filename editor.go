package servicer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
)

// DefaultEditor is used when neither the caller, $VISUAL nor $EDITOR name one
const DefaultEditor = "vi"

// Edit opens the unit file for name in an editor. A missing unit starts from
// a template in a temporary file that is installed only when the editor
// succeeds and the text changed. Any change is followed by a manager reload.
func (o *Orchestrator) Edit(ctx context.Context, name, editor string) (*Outcome, error) {
	short, full, err := o.resolve(ActionEdit, name)
	if err != nil {
		return nil, err
	}
	argv, err := o.editorCommand(editor)
	if err != nil {
		return nil, &OpError{Op: ActionEdit, Unit: full, Err: err}
	}

	path := o.unitPath(full)
	out := newOutcome(ActionEdit, short)

	before, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := runEditor(ctx, argv, path); err != nil {
			return nil, &OpError{Op: ActionEdit, Unit: full, Err: err}
		}
		after, err := os.ReadFile(path)
		if err != nil {
			return nil, &OpError{Op: ActionEdit, Unit: full, Err: err}
		}
		if bytes.Equal(before, after) {
			out.add(Step{Action: ActionEdit, Unit: path, NoOp: true, Detail: "unchanged"})
			return out, nil
		}
		out.add(Step{Action: ActionEdit, Unit: path})

	case errors.Is(err, fs.ErrNotExist):
		changed, err := o.editNew(ctx, argv, short, path)
		if err != nil {
			return nil, &OpError{Op: ActionEdit, Unit: full, Err: err}
		}
		if !changed {
			out.add(Step{Action: ActionEdit, Unit: path, NoOp: true, Detail: "template unchanged, nothing installed"})
			return out, nil
		}
		out.add(Step{Action: ActionEdit, Unit: path, Detail: "installed from template"})

	default:
		return nil, &OpError{Op: ActionEdit, Unit: full, Err: err}
	}

	if err := o.reloadManager(ctx, out); err != nil {
		return out, o.partial(ActionEdit, full, out, err)
	}
	return out, nil
}

// editNew edits a template copy and installs it at path if it changed
func (o *Orchestrator) editNew(ctx context.Context, argv []string, short, path string) (bool, error) {
	owner := "root"
	if inv, err := InvokerFromEnv(o.getenv); err == nil {
		owner = inv.Username
	} else {
		o.log.Debugf("No invoking user for template, using %s: %v", owner, err)
	}
	template := []byte(fmt.Sprintf(editTemplate, short, owner))

	tmp, err := os.CreateTemp("", "*."+FullName(short))
	if err != nil {
		return false, err
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(template); err != nil {
		_ = tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}

	if err := runEditor(ctx, argv, tmpPath); err != nil {
		return false, err
	}
	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return false, err
	}
	if bytes.Equal(edited, template) {
		return false, nil
	}
	if err := writeUnitFile(path, edited); err != nil {
		return false, err
	}
	return true, nil
}

// editorCommand picks the editor and splits it into argv
func (o *Orchestrator) editorCommand(editor string) ([]string, error) {
	for _, candidate := range []string{editor, o.getenv("VISUAL"), o.getenv("EDITOR"), DefaultEditor} {
		if argv := strings.Fields(candidate); len(argv) > 0 {
			return argv, nil
		}
	}
	return nil, errors.New("no editor configured")
}

func runEditor(ctx context.Context, argv []string, path string) error {
	args := append(append([]string{}, argv[1:]...), path)
	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %s: %w", argv[0], err)
	}
	return nil
}
