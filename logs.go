package servicer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// DefaultJournalctl is the journal reader binary
const DefaultJournalctl = "journalctl"

// maxLogLine bounds one journal line
const maxLogLine = 1024 * 1024

// LogOptions selects what StreamLogs reads
type LogOptions struct {
	// Lines is how many trailing lines to show, 0 for the journal default
	Lines int
	// Follow keeps streaming new entries until the context ends
	Follow bool
	// Journalctl overrides the journalctl binary
	Journalctl string
}

// LogLine is one line of journal output, or the error that ended the stream
type LogLine struct {
	Text string
	Err  error
}

func journalctlArgs(unit string, o LogOptions) []string {
	args := []string{"-u", unit, "--no-pager"}
	if o.Lines > 0 {
		args = append(args, "-n", strconv.Itoa(o.Lines))
	}
	if o.Follow {
		args = append(args, "--follow")
	}
	return args
}

// StreamLogs reads the journal of a managed service. Lines arrive on the
// returned channel, which closes when journalctl exits or ctx ends. A
// non-zero exit is delivered as a final LogLine with Err set.
func StreamLogs(ctx context.Context, name string, o LogOptions) (<-chan LogLine, error) {
	_, full, err := ResolveName(name)
	if err != nil {
		return nil, err
	}
	bin := o.Journalctl
	if bin == "" {
		bin = DefaultJournalctl
	}

	cmd := exec.CommandContext(ctx, bin, journalctlArgs(full, o)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("journalctl for %s: %w", full, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("journalctl for %s: %w", full, err)
	}

	ch := make(chan LogLine, 64)
	go func() {
		defer close(ch)

		send := func(l LogLine) bool {
			select {
			case ch <- l:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)
		for scanner.Scan() {
			if !send(LogLine{Text: scanner.Text()}) {
				_ = cmd.Wait()
				return
			}
		}

		// nothing drains the pipe any more, so a following journalctl
		// would block forever
		if err := scanner.Err(); err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			if ctx.Err() == nil {
				send(LogLine{Err: fmt.Errorf("reading journal of %s: %w", full, err)})
			}
			return
		}

		err := cmd.Wait()
		if err == nil || ctx.Err() != nil {
			return
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = fmt.Errorf("journalctl for %s exited with status %d", full, exitErr.ExitCode())
		}
		send(LogLine{Err: err})
	}()
	return ch, nil
}
