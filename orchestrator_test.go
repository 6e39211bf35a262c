package servicer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orchFixture struct {
	dir    string
	work   string
	sys    *fakeSystem
	finder *fakeFinder
	orch   *Orchestrator
}

func newOrchFixture(t *testing.T, opts ...Option) *orchFixture {
	t.Helper()
	f := &orchFixture{
		dir:    t.TempDir(),
		work:   t.TempDir(),
		finder: &fakeFinder{paths: map[string]string{"python3": "/usr/bin/python3"}},
	}
	f.sys = newFakeSystem(f.dir)
	base := []Option{WithUnitDir(f.dir), WithBinaryFinder(f.finder), WithEnv(testEnv(t))}
	f.orch = NewOrchestrator(f.sys, append(base, opts...)...)
	return f
}

func (f *orchFixture) script(t *testing.T, name string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(f.work, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode))
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}

func (f *orchFixture) unitText(t *testing.T, full string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, full))
	require.NoError(t, err)
	return string(data)
}

func TestCreateWritesUnit(t *testing.T) {
	f := newOrchFixture(t)
	path := f.script(t, "worker.py", 0o644)

	out, err := f.orch.Create(context.Background(), CreateRequest{
		Path:        path,
		Name:        "jobs",
		Environment: "QUEUE=high DEBUG=1",
		Args:        []string{"--threads", "4"},
		Restart:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "jobs", out.Service)

	text := f.unitText(t, "jobs.servicer.service")
	assert.True(t, strings.HasPrefix(text, GeneratedHeader+"\n"))
	assert.Contains(t, text, "Description=servicer: jobs\n")
	assert.Contains(t, text, "WorkingDirectory="+filepath.Dir(path)+"\n")
	assert.Contains(t, text, "ExecStart=/usr/bin/python3 worker.py --threads 4\n")
	assert.Contains(t, text, "Restart=always\n")
	assert.Contains(t, text, "Environment=QUEUE=high\nEnvironment=DEBUG=1\n")
	assert.Equal(t, 1, f.sys.count("ReloadManager"))
	assert.Zero(t, f.sys.count("StartUnit"))
}

func TestCreateWithoutRestartOrEnv(t *testing.T) {
	f := newOrchFixture(t)
	path := f.script(t, "server.py", 0o644)

	_, err := f.orch.Create(context.Background(), CreateRequest{Path: path, Name: "web"})
	require.NoError(t, err)

	text := f.unitText(t, "web.servicer.service")
	assert.NotContains(t, text, "Restart=")
	assert.NotContains(t, text, "Environment=")
}

func TestCreateDefaultsNameToFileName(t *testing.T) {
	f := newOrchFixture(t)
	path := f.script(t, "tool", 0o755)

	_, err := f.orch.Create(context.Background(), CreateRequest{Path: path})
	require.NoError(t, err)

	text := f.unitText(t, "tool.servicer.service")
	assert.Contains(t, text, "ExecStart="+path+"\n")
}

func TestCreateAlreadyExists(t *testing.T) {
	f := newOrchFixture(t)
	path := f.script(t, "app.py", 0o644)
	existing := writeUnit(t, f.dir, "app.servicer.service")
	before, err := os.ReadFile(existing)
	require.NoError(t, err)

	_, err = f.orch.Create(context.Background(), CreateRequest{Path: path, Name: "app"})
	require.ErrorIs(t, err, ErrAlreadyExists)

	after, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Zero(t, f.sys.count("ReloadManager"))

	_, err = f.orch.Create(context.Background(), CreateRequest{Path: path, Name: "app", Overwrite: true})
	require.NoError(t, err)
	assert.Contains(t, f.unitText(t, "app.servicer.service"), "ExecStart=/usr/bin/python3 app.py")
}

func TestCreateMissingInterpreterWritesNothing(t *testing.T) {
	f := newOrchFixture(t)
	path := f.script(t, "app.js", 0o644)

	_, err := f.orch.Create(context.Background(), CreateRequest{Path: path})
	require.ErrorIs(t, err, ErrInterpreterNotFound)

	units, err := DiscoverUnits(f.dir)
	require.NoError(t, err)
	assert.Empty(t, units)
	assert.Zero(t, f.sys.count("ReloadManager"))
}

func TestCreateUnknownExtension(t *testing.T) {
	f := newOrchFixture(t)
	path := f.script(t, "app.rb", 0o644)

	_, err := f.orch.Create(context.Background(), CreateRequest{Path: path})
	require.ErrorIs(t, err, ErrInterpreterNotFound)
	assert.Zero(t, f.finder.calls)

	f.finder.paths["ruby"] = "/usr/bin/ruby"
	_, err = f.orch.Create(context.Background(), CreateRequest{Path: path, Name: "rb", Interpreter: "ruby"})
	require.NoError(t, err)
	assert.Contains(t, f.unitText(t, "rb.servicer.service"), "ExecStart=/usr/bin/ruby app.rb\n")
}

func TestCreateExtraInterpreters(t *testing.T) {
	f := newOrchFixture(t, WithInterpreters(map[string]string{"rb": "ruby"}))
	f.finder.paths["ruby"] = "/opt/ruby/bin/ruby"
	path := f.script(t, "app.rb", 0o644)

	_, err := f.orch.Create(context.Background(), CreateRequest{Path: path, Name: "rb"})
	require.NoError(t, err)
	assert.Contains(t, f.unitText(t, "rb.servicer.service"), "ExecStart=/opt/ruby/bin/ruby app.rb\n")
}

func TestCreateNonExecutableWithoutExtension(t *testing.T) {
	f := newOrchFixture(t)
	path := f.script(t, "tool", 0o644)

	_, err := f.orch.Create(context.Background(), CreateRequest{Path: path})
	require.ErrorIs(t, err, ErrInterpreterNotFound)
}

func TestCreateRequiresSudoUser(t *testing.T) {
	f := newOrchFixture(t, WithEnv(func(string) string { return "" }))
	path := f.script(t, "app.py", 0o644)

	_, err := f.orch.Create(context.Background(), CreateRequest{Path: path})
	require.ErrorIs(t, err, ErrPrivilege)
}

func TestCreateValidation(t *testing.T) {
	f := newOrchFixture(t)
	path := f.script(t, "app.py", 0o644)

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"missing file", CreateRequest{Path: filepath.Join(f.work, "nope.py")}, ErrNotFound},
		{"directory", CreateRequest{Path: f.work, Name: "dir"}, ErrNotFound},
		{"slash in name", CreateRequest{Path: path, Name: "a/b"}, ErrInvalidName},
		{"bad environment", CreateRequest{Path: path, Name: "env", Environment: "NOEQUALS"}, ErrInvalidEnvironment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orch.Create(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}
	units, err := DiscoverUnits(f.dir)
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestCreateStartAndEnable(t *testing.T) {
	f := newOrchFixture(t)
	path := f.script(t, "app.py", 0o644)

	_, err := f.orch.Create(context.Background(), CreateRequest{Path: path, Name: "app", Start: true, Enable: true})
	require.NoError(t, err)

	state, err := f.sys.UnitState(context.Background(), "app.servicer.service")
	require.NoError(t, err)
	assert.True(t, state.Active.IsActive())
	assert.True(t, state.File.IsEnabled())
}

func TestCreateStartFailureIsPartial(t *testing.T) {
	f := newOrchFixture(t)
	f.sys.failOn("StartUnit", ErrAdapter)
	path := f.script(t, "app.py", 0o644)

	out, err := f.orch.Create(context.Background(), CreateRequest{Path: path, Name: "app", Start: true})
	require.ErrorIs(t, err, ErrPartialFailure)

	var pf *PartialFailureError
	require.ErrorAs(t, err, &pf)
	require.Len(t, pf.Completed, 2)
	assert.Equal(t, ActionCreate, pf.Completed[0].Action)
	assert.Equal(t, ActionReloadManager, pf.Completed[1].Action)
	assert.NotNil(t, out)
	assert.FileExists(t, filepath.Join(f.dir, "app.servicer.service"))
}

func TestStartIsNoOpWhenRunning(t *testing.T) {
	for _, active := range []string{"active", "reloading"} {
		t.Run(active, func(t *testing.T) {
			f := newOrchFixture(t)
			writeUnit(t, f.dir, "app.servicer.service")
			f.sys.set("app.servicer.service", active, "disabled")

			out, err := f.orch.Start(context.Background(), "app", false)
			require.NoError(t, err)
			assert.True(t, out.NoOp())
			assert.Zero(t, f.sys.count("StartUnit"))
		})
	}
}

func TestStartInactive(t *testing.T) {
	f := newOrchFixture(t)
	writeUnit(t, f.dir, "app.servicer.service")
	f.sys.set("app.servicer.service", "failed", "disabled")

	out, err := f.orch.Start(context.Background(), "app.servicer.service", false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.sys.count("StartUnit"))
	require.Len(t, out.Steps, 1)
	assert.Positive(t, int(out.Steps[0].Job))
}

func TestStartEnableSkipsEnabled(t *testing.T) {
	f := newOrchFixture(t)
	writeUnit(t, f.dir, "app.servicer.service")
	f.sys.set("app.servicer.service", "inactive", "enabled")

	_, err := f.orch.Start(context.Background(), "app", true)
	require.NoError(t, err)
	assert.Zero(t, f.sys.count("EnableUnitFiles"))

	f.sys.set("app.servicer.service", "inactive", "disabled")
	_, err = f.orch.Start(context.Background(), "app", true)
	require.NoError(t, err)
	assert.Equal(t, 1, f.sys.count("EnableUnitFiles"))
	assert.Equal(t, 1, f.sys.count("ReloadManager"))
}

func TestStartRequiresUnitFile(t *testing.T) {
	f := newOrchFixture(t)

	_, err := f.orch.Start(context.Background(), "ghost", false)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.sys.count("UnitState"))
}

func TestStopUnloadedIsNoOp(t *testing.T) {
	f := newOrchFixture(t)

	out, err := f.orch.Stop(context.Background(), "ghost")
	require.NoError(t, err)
	assert.True(t, out.NoOp())
}

func TestStopPropagatesAdapterError(t *testing.T) {
	f := newOrchFixture(t)
	f.sys.failOn("StopUnit", errors.New("bus gone"))

	_, err := f.orch.Stop(context.Background(), "app")
	require.ErrorIs(t, err, ErrAdapter)
}

func TestEnableDisableReloadManagerOnce(t *testing.T) {
	f := newOrchFixture(t)
	writeUnit(t, f.dir, "app.servicer.service")

	_, err := f.orch.Enable(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, 1, f.sys.count("EnableUnitFiles"))
	assert.Equal(t, 1, f.sys.count("ReloadManager"))

	_, err = f.orch.Disable(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, 1, f.sys.count("DisableUnitFiles"))
	assert.Equal(t, 2, f.sys.count("ReloadManager"))
}

func TestEnableRequiresUnitFile(t *testing.T) {
	f := newOrchFixture(t)

	_, err := f.orch.Enable(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.sys.count("EnableUnitFiles"))
}

func TestReloadFailedOnly(t *testing.T) {
	tests := []struct {
		active  string
		wantErr error
		forward bool
	}{
		{"failed", nil, true},
		{"active", ErrInvalidState, false},
		{"inactive", ErrInvalidState, false},
		{"reloading", ErrInvalidState, false},
	}
	for _, tt := range tests {
		t.Run(tt.active, func(t *testing.T) {
			f := newOrchFixture(t)
			f.sys.set("app.servicer.service", tt.active, "disabled")

			_, err := f.orch.Reload(context.Background(), "app")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tt.forward {
				assert.Equal(t, 1, f.sys.count("ReloadUnit"))
			} else {
				assert.Zero(t, f.sys.count("ReloadUnit"))
			}
		})
	}
}

func TestReloadUnlessReloading(t *testing.T) {
	f := newOrchFixture(t, WithReloadPolicy(ReloadUnlessReloading))
	f.sys.set("app.servicer.service", "reloading", "enabled")

	out, err := f.orch.Reload(context.Background(), "app")
	require.NoError(t, err)
	assert.True(t, out.NoOp())
	assert.Zero(t, f.sys.count("ReloadUnit"))

	f.sys.set("app.servicer.service", "active", "enabled")
	_, err = f.orch.Reload(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, 1, f.sys.count("ReloadUnit"))
}

func TestReloadUnknownUnit(t *testing.T) {
	f := newOrchFixture(t)

	_, err := f.orch.Reload(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReloadAdapterErrorHint(t *testing.T) {
	f := newOrchFixture(t)
	f.sys.set("app.servicer.service", "failed", "disabled")
	f.sys.failOn("ReloadUnit", errors.New("Job type reload is not applicable"))

	_, err := f.orch.Reload(context.Background(), "app")
	require.ErrorIs(t, err, ErrAdapter)
	assert.Contains(t, err.Error(), "ExecReload=")
}

func TestRenameReplaysState(t *testing.T) {
	f := newOrchFixture(t)
	ctx := context.Background()
	path := f.script(t, "app.py", 0o644)

	_, err := f.orch.Create(ctx, CreateRequest{Path: path, Name: "old", Start: true, Enable: true})
	require.NoError(t, err)
	original := f.unitText(t, "old.servicer.service")

	_, err = f.orch.Rename(ctx, "old", "new")
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(f.dir, "old.servicer.service"))
	want := strings.Replace(original, "Description=servicer: old\n", "Description=servicer: new\n", 1)
	assert.NotEqual(t, original, want)
	assert.Equal(t, want, f.unitText(t, "new.servicer.service"))

	oldState, err := f.sys.UnitState(ctx, "old.servicer.service")
	require.NoError(t, err)
	assert.False(t, oldState.Registered())

	newState, err := f.sys.UnitState(ctx, "new.servicer.service")
	require.NoError(t, err)
	assert.True(t, newState.Active.IsActive())
	assert.True(t, newState.File.IsEnabled())
}

func TestRenameInactiveDisabled(t *testing.T) {
	f := newOrchFixture(t)
	ctx := context.Background()
	writeUnit(t, f.dir, "old.servicer.service")
	require.NoError(t, f.sys.ReloadManager(ctx))

	_, err := f.orch.Rename(ctx, "old", "new")
	require.NoError(t, err)

	newState, err := f.sys.UnitState(ctx, "new.servicer.service")
	require.NoError(t, err)
	assert.False(t, newState.Active.IsActive())
	assert.False(t, newState.File.IsEnabled())
	assert.Zero(t, f.sys.count("StartUnit"))
	assert.Zero(t, f.sys.count("EnableUnitFiles"))
}

func TestRetitleUnit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "generated",
			in:   "[Unit]\nDescription=servicer: old\nAfter=network.target\n",
			want: "[Unit]\nDescription=servicer: new\nAfter=network.target\n",
		},
		{
			name: "crlf",
			in:   "[Unit]\r\nDescription=servicer: old\r\n",
			want: "[Unit]\r\nDescription=servicer: new\r\n",
		},
		{
			name: "user description kept",
			in:   "[Unit]\nDescription=Billing API (old cluster)\n",
			want: "[Unit]\nDescription=Billing API (old cluster)\n",
		},
		{
			name: "longer name not matched",
			in:   "Description=servicer: older\n",
			want: "Description=servicer: older\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(retitleUnit([]byte(tt.in), "old", "new")))
		})
	}
}

func TestRenameValidation(t *testing.T) {
	f := newOrchFixture(t)
	writeUnit(t, f.dir, "a.servicer.service")
	writeUnit(t, f.dir, "b.servicer.service")

	_, err := f.orch.Rename(context.Background(), "a", "a")
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = f.orch.Rename(context.Background(), "a", "b")
	require.ErrorIs(t, err, ErrAlreadyExists)

	_, err = f.orch.Rename(context.Background(), "ghost", "c")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.orch.Rename(context.Background(), "a", "bad name")
	require.ErrorIs(t, err, ErrInvalidName)

	assert.Zero(t, f.sys.count("StopUnit"))
}

func TestRenameReplayFailureIsPartial(t *testing.T) {
	f := newOrchFixture(t)
	ctx := context.Background()
	writeUnit(t, f.dir, "old.servicer.service")
	require.NoError(t, f.sys.ReloadManager(ctx))
	f.sys.set("old.servicer.service", "active", "disabled")
	f.sys.failOn("StartUnit", ErrAdapter)

	_, err := f.orch.Rename(ctx, "old", "new")
	require.ErrorIs(t, err, ErrPartialFailure)

	var pf *PartialFailureError
	require.ErrorAs(t, err, &pf)
	actions := make([]Action, 0, len(pf.Completed))
	for _, s := range pf.Completed {
		actions = append(actions, s.Action)
	}
	assert.Equal(t, []Action{ActionCopyFile, ActionStop, ActionRemoveFile, ActionReloadManager}, actions)
	assert.FileExists(t, filepath.Join(f.dir, "new.servicer.service"))
}

func TestStateQueryFailureStopsMutation(t *testing.T) {
	f := newOrchFixture(t)
	ctx := context.Background()
	writeUnit(t, f.dir, "old.servicer.service")
	require.NoError(t, f.sys.ReloadManager(ctx))
	f.sys.set("old.servicer.service", "active", "enabled")
	f.sys.failOn("UnitState", fmt.Errorf("%w: connection closed", ErrAdapter))

	_, err := f.orch.Rename(ctx, "old", "new")
	require.ErrorIs(t, err, ErrAdapter)
	assert.NotErrorIs(t, err, ErrPartialFailure)
	assert.FileExists(t, filepath.Join(f.dir, "old.servicer.service"))
	assert.NoFileExists(t, filepath.Join(f.dir, "new.servicer.service"))

	_, err = f.orch.Reload(ctx, "old")
	require.ErrorIs(t, err, ErrAdapter)
	assert.NotErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.Remove(filepath.Join(f.dir, "old.servicer.service")))
	_, err = f.orch.Delete(ctx, "old")
	require.ErrorIs(t, err, ErrAdapter)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.Zero(t, f.sys.count("StopUnit"))
	assert.Zero(t, f.sys.count("DisableUnitFiles"))
}

func TestDelete(t *testing.T) {
	f := newOrchFixture(t)
	ctx := context.Background()
	path := f.script(t, "app.py", 0o644)
	_, err := f.orch.Create(ctx, CreateRequest{Path: path, Name: "app", Start: true, Enable: true})
	require.NoError(t, err)
	reloads := f.sys.count("ReloadManager")

	_, err = f.orch.Delete(ctx, "app")
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(f.dir, "app.servicer.service"))
	assert.Equal(t, reloads+1, f.sys.count("ReloadManager"))
	state, err := f.sys.UnitState(ctx, "app.servicer.service")
	require.NoError(t, err)
	assert.False(t, state.Registered())
}

func TestDeleteNotFound(t *testing.T) {
	f := newOrchFixture(t)

	_, err := f.orch.Delete(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.sys.count("StopUnit"))
}

func TestDeleteLoadedUnitWithoutFile(t *testing.T) {
	f := newOrchFixture(t)
	f.sys.set("app.servicer.service", "active", "enabled")

	out, err := f.orch.Delete(context.Background(), "app")
	require.NoError(t, err)

	var removeStep Step
	for _, s := range out.Steps {
		if s.Action == ActionRemoveFile {
			removeStep = s
		}
	}
	assert.True(t, removeStep.NoOp)
}

func TestDeletePartialFailure(t *testing.T) {
	f := newOrchFixture(t)
	writeUnit(t, f.dir, "app.servicer.service")
	f.sys.set("app.servicer.service", "active", "enabled")
	f.sys.failOn("DisableUnitFiles", errors.New("access denied"))

	_, err := f.orch.Delete(context.Background(), "app")
	require.ErrorIs(t, err, ErrPartialFailure)

	var pf *PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, ActionDelete, pf.Op)
	assert.Len(t, pf.Completed, 3)
	assert.NoFileExists(t, filepath.Join(f.dir, "app.servicer.service"))
}

func TestDeleteAllStepsFail(t *testing.T) {
	f := newOrchFixture(t)
	f.sys.set("app.servicer.service", "active", "enabled")
	f.sys.failOn("StopUnit", ErrAdapter)
	f.sys.failOn("DisableUnitFiles", ErrAdapter)
	f.sys.failOn("ReloadManager", ErrAdapter)

	out, err := f.orch.Delete(context.Background(), "app")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPartialFailure)
	assert.ErrorIs(t, err, ErrAdapter)
	assert.NotEmpty(t, out.Steps)
}

func TestInvalidNamesRejectedBeforeAdapter(t *testing.T) {
	f := newOrchFixture(t)
	ctx := context.Background()

	for _, name := range []string{"", "a/b", "-x", ".servicer.service"} {
		_, err := f.orch.Start(ctx, name, false)
		assert.ErrorIs(t, err, ErrInvalidName, name)
		_, err = f.orch.Stop(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
		_, err = f.orch.Delete(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
	assert.Zero(t, f.sys.count("UnitState"))
	assert.Zero(t, f.sys.count("StopUnit"))
}

func TestParseReloadPolicy(t *testing.T) {
	p, err := ParseReloadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ReloadFailedOnly, p)

	p, err = ParseReloadPolicy("Unless-Reloading")
	require.NoError(t, err)
	assert.Equal(t, ReloadUnlessReloading, p)
	assert.Equal(t, "unless-reloading", p.String())

	_, err = ParseReloadPolicy("always")
	assert.Error(t, err)
}
