package servicer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"
)

// SudoUserEnv names the variable sudo sets to the invoking account
const SudoUserEnv = "SUDO_USER"

// Invoker is the unprivileged account that asked for the operation
type Invoker struct {
	Username string
	UID      string
	GID      string
	HomeDir  string
}

// InvokerFromEnv recovers the unprivileged invoker from SUDO_USER.
// There is no fallback to the elevated identity.
func InvokerFromEnv(getenv func(string) string) (Invoker, error) {
	name := getenv(SudoUserEnv)
	if name == "" {
		return Invoker{}, fmt.Errorf("%w: %s is not set; run through sudo so the service can run as you",
			ErrPrivilege, SudoUserEnv)
	}
	u, err := user.Lookup(name)
	if err != nil {
		return Invoker{}, fmt.Errorf("%w: looking up %s=%q: %v", ErrPrivilege, SudoUserEnv, name, err)
	}
	return Invoker{Username: u.Username, UID: u.Uid, GID: u.Gid, HomeDir: u.HomeDir}, nil
}

// BinaryFinder resolves a binary name to an absolute path as seen by an invoker
type BinaryFinder interface {
	Find(ctx context.Context, inv Invoker, name string) (string, error)
}

// SudoFinder searches the invoker's own interactive PATH by running a login
// shell as that user
type SudoFinder struct {
	// SudoCommand is the sudo binary (default: "sudo")
	SudoCommand string
	// Shell is the shell run as the invoker (default: "bash")
	Shell string
}

// NewSudoFinder creates a SudoFinder with default commands
func NewSudoFinder() *SudoFinder {
	return &SudoFinder{SudoCommand: "sudo", Shell: "bash"}
}

// Find implements BinaryFinder
func (f *SudoFinder) Find(ctx context.Context, inv Invoker, name string) (string, error) {
	if filepath.IsAbs(name) {
		if err := checkExecutable(name); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInterpreterNotFound, err)
		}
		return name, nil
	}
	if strings.ContainsRune(name, '/') {
		return "", fmt.Errorf("%w: %q must be a bare name or an absolute path", ErrInterpreterNotFound, name)
	}

	// -i sources the invoker's rc files so version managers (nvm, pyenv) are on PATH
	cmd := exec.CommandContext(ctx, f.SudoCommand, "-u", inv.Username,
		f.Shell, "-i", "-c", "command -v "+shellQuote(name))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %q on %s's PATH: %v (stderr: %s)",
			ErrInterpreterNotFound, name, inv.Username, err, strings.TrimSpace(stderr.String()))
	}

	path, ok := parseLookupOutput(stdout.String())
	if !ok {
		return "", fmt.Errorf("%w: %q on %s's PATH", ErrInterpreterNotFound, name, inv.Username)
	}
	return path, nil
}

// parseLookupOutput picks the resolved path out of interactive shell output,
// which may carry banner noise before it
func parseLookupOutput(out string) (string, bool) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if filepath.IsAbs(line) {
			return line, true
		}
	}
	return "", false
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

// shellQuote escapes a string for safe use in shell scripts
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}

	if !needsShellQuoting(s) {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// needsShellQuoting checks if a string contains characters that require shell quoting
func needsShellQuoting(s string) bool {
	const specialChars = " \t\n'\"\\$`!*?[](){}<>|&;~"

	for _, r := range s {
		if strings.ContainsRune(specialChars, r) {
			return true
		}
	}
	return false
}
