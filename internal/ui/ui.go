// Package ui renders servicer results for the terminal.
package ui

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/axondata/go-servicer"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CA8A04"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// FormatError returns a styled multi-line error message.
func FormatError(title, detail, suggestion string) string {
	out := errorStyle.Render("Error: "+title) + "\n"
	if detail != "" {
		out += "  " + detail + "\n"
	}
	if suggestion != "" {
		out += "  " + hintStyle.Render("Hint: "+suggestion) + "\n"
	}
	return out
}

// ErrorMessage styles err with a title and hint chosen from its sentinel.
func ErrorMessage(err error) string {
	title, hint := classify(err)
	return FormatError(title, err.Error(), hint)
}

func classify(err error) (string, string) {
	switch {
	case errors.Is(err, servicer.ErrPartialFailure):
		return "operation partially applied", "nothing was rolled back; re-run the command to converge"
	case errors.Is(err, servicer.ErrPrivilege):
		return "insufficient privileges", "run the command with sudo"
	case errors.Is(err, servicer.ErrInterpreterNotFound):
		return "interpreter not found", "install it on your PATH or pass --interpreter"
	case errors.Is(err, servicer.ErrAlreadyExists):
		return "service already exists", "pick another --name or pass --overwrite"
	case errors.Is(err, servicer.ErrNotFound):
		return "no such service", "run `servicer status` to list managed services"
	case errors.Is(err, servicer.ErrInvalidName):
		return "invalid service name", ""
	case errors.Is(err, servicer.ErrInvalidState):
		return "service is in the wrong state", "set reload_policy: unless-reloading to reload running services"
	case errors.Is(err, servicer.ErrInvalidEnvironment):
		return "invalid environment", "use space separated KEY=VALUE pairs"
	case errors.Is(err, servicer.ErrAdapter):
		return "systemd rejected the request", "check `servicer logs <name>` and journalctl"
	default:
		return "command failed", ""
	}
}

// Success prints a green success message.
func Success(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render(msg))
}

// Warn prints a yellow warning message.
func Warn(w io.Writer, msg string) {
	fmt.Fprintln(w, warnStyle.Render("Warning: "+msg))
}

// Hint renders text in dim italic.
func Hint(s string) string {
	return hintStyle.Render(s)
}

// RenderOutcome prints one line per step of a lifecycle operation.
func RenderOutcome(w io.Writer, out *servicer.Outcome) {
	if out == nil {
		return
	}
	for _, s := range out.Steps {
		var mark string
		switch {
		case s.Err != nil:
			mark = errorStyle.Render("ERR")
		case s.NoOp:
			mark = dimStyle.Render(" --")
		default:
			mark = successStyle.Render(" OK")
		}
		line := fmt.Sprintf("  %s %-13s %s", mark, s.Action, s.Unit)
		switch {
		case s.Err != nil:
			line += " " + s.Err.Error()
		case s.Detail != "":
			line += " " + dimStyle.Render("("+s.Detail+")")
		}
		if s.Job > 0 {
			line += " " + dimStyle.Render(fmt.Sprintf("job %d", s.Job))
		}
		fmt.Fprintln(w, line)
	}
}
