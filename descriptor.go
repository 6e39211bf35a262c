package servicer

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RestartPolicy selects the Restart= directive of a generated unit
type RestartPolicy int

const (
	// RestartNever leaves restarts off
	RestartNever RestartPolicy = iota
	// RestartAlways restarts the service whenever it exits
	RestartAlways
)

// String returns the systemd spelling of the policy
func (p RestartPolicy) String() string {
	if p == RestartAlways {
		return "always"
	}
	return "no"
}

// EnvVar is one Environment= entry
type EnvVar struct {
	Key   string
	Value string
}

// String returns the KEY=VALUE form
func (e EnvVar) String() string {
	return e.Key + "=" + e.Value
}

var envEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "%", "%%", "\n", `\n`, "\t", `\t`)

// Directive returns the Environment= value. Assignments systemd would
// split, unescape or expand as specifiers are double quoted and escaped.
func (e EnvVar) Directive() string {
	kv := e.String()
	if !strings.ContainsAny(kv, " \t\n\"'\\%") {
		return kv
	}
	return `"` + envEscaper.Replace(kv) + `"`
}

// ParseEnvironment splits a whitespace separated list of KEY=VALUE tokens.
// Order is preserved.
func ParseEnvironment(s string) ([]EnvVar, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, nil
	}

	env := make([]EnvVar, 0, len(fields))
	for _, tok := range fields {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q is not KEY=VALUE", ErrInvalidEnvironment, tok)
		}
		env = append(env, EnvVar{Key: key, Value: value})
	}
	return env, nil
}

// DefaultInterpreters maps file extensions to interpreter binaries
var DefaultInterpreters = map[string]string{
	".js": "node",
	".py": "python3",
}

// InterpreterTable resolves interpreter binaries by file extension
type InterpreterTable map[string]string

// NewInterpreterTable returns the default table extended by extra.
// Entries in extra override the defaults; keys may omit the leading dot.
func NewInterpreterTable(extra map[string]string) InterpreterTable {
	t := make(InterpreterTable, len(DefaultInterpreters)+len(extra))
	for ext, bin := range DefaultInterpreters {
		t[ext] = bin
	}
	for ext, bin := range extra {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		t[strings.ToLower(ext)] = bin
	}
	return t
}

// Lookup returns the interpreter for fileName. direct is true when the file
// has no extension and should be executed as is.
func (t InterpreterTable) Lookup(fileName string) (bin string, direct bool, err error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return "", true, nil
	}
	bin, ok := t[ext]
	if !ok {
		return "", false, fmt.Errorf("%w: no interpreter known for %q files", ErrInterpreterNotFound, ext)
	}
	return bin, false, nil
}

// ServiceDescriptor is everything needed to render one unit file
type ServiceDescriptor struct {
	// Name is the short service name
	Name string
	// WorkingDirectory is the canonical directory holding the target file
	WorkingDirectory string
	// FileName is the base name of the target file
	FileName string
	// Interpreter is the resolved absolute interpreter path, empty for direct execution
	Interpreter string
	// Args are passed after the file name
	Args []string
	// Environment entries, in order
	Environment []EnvVar
	// Restart selects the restart policy
	Restart RestartPolicy
	// User is the unprivileged account the service runs as
	User string
}

// UnitName returns the full unit name
func (d *ServiceDescriptor) UnitName() string {
	return FullName(d.Name)
}

// UnitFilePath returns where the unit file lives under dir
func (d *ServiceDescriptor) UnitFilePath(dir string) string {
	return UnitFilePath(dir, d.UnitName())
}

// ExecLine returns the ExecStart= value.
// Without an interpreter the absolute file path is used since systemd does
// not search the working directory for executables.
func (d *ServiceDescriptor) ExecLine() string {
	parts := make([]string, 0, len(d.Args)+2)
	if d.Interpreter != "" {
		parts = append(parts, execQuote(d.Interpreter), execQuote(d.FileName))
	} else {
		parts = append(parts, execQuote(filepath.Join(d.WorkingDirectory, d.FileName)))
	}
	for _, arg := range d.Args {
		parts = append(parts, execQuote(arg))
	}
	return strings.Join(parts, " ")
}

var execEscaper = strings.NewReplacer("%", "%%", "$", "$$")

// execQuote quotes an ExecStart= word when systemd would otherwise split or expand it
func execQuote(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\n\"'\\$;%") {
		return fmt.Sprintf("%q", execEscaper.Replace(s))
	}
	return s
}
