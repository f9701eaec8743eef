// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/dunerun/internal/brand"
	"grimm.is/dunerun/internal/build"
	"grimm.is/dunerun/internal/errors"
	"grimm.is/dunerun/internal/proc"
	"grimm.is/dunerun/internal/prompt"
	"grimm.is/dunerun/internal/supervisor"
)

type recordingRunner struct {
	calls []build.Command
	codes []int
}

func (r *recordingRunner) Run(_ context.Context, c build.Command) (int, error) {
	r.calls = append(r.calls, c)
	if len(r.codes) == 0 {
		return 0, nil
	}
	code := r.codes[0]
	r.codes = r.codes[1:]
	return code, nil
}

type stubProcess struct {
	pid    int
	role   proc.Role
	status proc.ExitStatus
}

func (p *stubProcess) Pid() int                             { return p.pid }
func (p *stubProcess) Role() proc.Role                      { return p.role }
func (p *stubProcess) Wait() (proc.ExitStatus, error)       { return p.status, nil }
func (p *stubProcess) Signal(sig syscall.Signal) error      { return nil }
func (p *stubProcess) SignalGroup(sig syscall.Signal) error { return nil }
func (p *stubProcess) IsAlive() bool                        { return false }

type stubLauncher struct {
	specs []proc.Spec
}

func (l *stubLauncher) Start(spec proc.Spec) (supervisor.Process, error) {
	l.specs = append(l.specs, spec)
	return &stubProcess{pid: 100 + len(l.specs), role: spec.Role}, nil
}

type testEnv struct {
	app      *App
	runner   *recordingRunner
	launcher *stubLauncher
	decider  *prompt.Scripted
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	dir      string
}

func newTestEnv(t *testing.T, answers ...string) *testEnv {
	t.Helper()
	for _, v := range []string{"CONFIG", "PROBLEM", "PROJECTS_DIR", "DUNE_BIN", "PREFIX"} {
		t.Setenv(brand.EnvVar(v), "")
	}

	dir := t.TempDir()
	for path, content := range map[string]string{
		"src/lswf/lswf-chem.cc":    "",
		"src/lswf/lswf-chem.input": "[Problem]\nName = chem  #output name\n",
		"src/lswf/other.input":     "",
		"src/gm/gm.cc":             "",
		"src/gm/gm.input":          "[TimeManager]\nTEnd = 10\n",
	} {
		full := filepath.Join(dir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}

	env := &testEnv{
		runner:   &recordingRunner{},
		launcher: &stubLauncher{},
		decider:  prompt.NewScripted(answers...),
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
		dir:      dir,
	}
	env.app = &App{
		Stdin:      strings.NewReader(""),
		Stdout:     env.stdout,
		Stderr:     env.stderr,
		Cwd:        dir,
		Environ:    []string{"PATH=/usr/bin", "CXXFLAGS=-O2"},
		Executable: "/usr/local/bin/dunerun",
		Runner:     env.runner,
		Launcher:   env.launcher,
		Decider:    env.decider,
	}
	return env
}

func TestParseOptions(t *testing.T) {
	t.Setenv(brand.EnvVar("PROBLEM"), "")

	o, err := ParseOptions([]string{"--source=lswf-chem", "--DAMG", "--mpi=4", "--plot", "--DUMF", "--input=1"})
	require.NoError(t, err)
	assert.Equal(t, DefaultProblem, o.Problem)
	assert.Equal(t, "lswf-chem", o.Source)
	assert.True(t, o.Unattended())
	assert.Equal(t, []string{"AMG", "UMF"}, o.Directives)
	assert.Equal(t, 4, o.MPI)
	assert.True(t, o.Plot)
	assert.Equal(t, "1", o.Input)

	o, err = ParseOptions([]string{"--MPI=2"})
	require.NoError(t, err)
	assert.Equal(t, 2, o.MPI)
	assert.False(t, o.Unattended())

	t.Setenv(brand.EnvVar("PROBLEM"), "gm")
	o, err = ParseOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, "gm", o.Problem)
	assert.Equal(t, "info", o.LogLevel)

	for _, bad := range [][]string{{"--bogus"}, {"stray"}, {"--mpi=-1"}, {"--D"}} {
		_, err := ParseOptions(bad)
		assert.True(t, errors.IsKind(err, errors.KindConfig), "%v: %v", bad, err)
	}
}

func TestHelpListsDirectives(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.app.Run(context.Background(), []string{"--help"}))

	out := env.stdout.String()
	assert.Contains(t, out, "*** Usage:")
	assert.Contains(t, out, "--only-compile")
	assert.Contains(t, out, "--DAMG")
	assert.Contains(t, out, "Salinity variable BrooksCorey modified coupled (default)")
	assert.NotContains(t, out, "--MPI")
	assert.Empty(t, env.runner.calls)
}

func TestRunUnattendedMPI(t *testing.T) {
	env := newTestEnv(t)
	err := env.app.Run(context.Background(), []string{"--source=lswf-chem", "--DAMG", "--mpi=2", "--search=src"})
	require.NoError(t, err, env.stderr.String())

	module := "lswf-chem-AMG-BCMVC-UMF-SH2O"
	program := filepath.Join(env.dir, "projects", module)

	require.Len(t, env.runner.calls, 3)
	assert.Equal(t, module, env.runner.calls[0].Argv[2])
	assert.Equal(t, []string{"dunecontrol", "--only=" + module, "configure"}, env.runner.calls[1].Argv)
	assert.Equal(t, program, env.runner.calls[1].Dir)
	assert.Contains(t, env.runner.calls[1].Env, "CXXFLAGS=-O2 -DAMG -DBCMVC -DUMF -DSH2O")

	require.Len(t, env.launcher.specs, 2)
	primary := env.launcher.specs[0]
	runDir := filepath.Join(program, "lswf-chem.output")
	assert.Equal(t, "mpirun", primary.Path)
	assert.Equal(t, []string{"--np", "2", filepath.Join(program, "build-cmake", "src", "lswf-chem"), "-ParameterFile", "../lswf-chem.input"}, primary.Args)
	assert.Equal(t, filepath.Join(runDir, "vtk"), primary.Dir)
	assert.Contains(t, primary.Env, "PATH=/usr/bin:/opt/dune/bin")

	assert.FileExists(t, filepath.Join(runDir, "lswf-chem.input"))
	assert.FileExists(t, filepath.Join(runDir, "lswf-chem.log"))
	assert.FileExists(t, filepath.Join(program, brand.StateFileName))
	assert.Contains(t, env.stdout.String(), "Run complete")
	assert.Empty(t, env.decider.Asked)
}

func TestRunWritesMetrics(t *testing.T) {
	env := newTestEnv(t)
	err := env.app.Run(context.Background(), []string{"--problem=gm", "--source=gm", "--search=src", "--metrics-file=run.prom"})
	require.NoError(t, err, env.stderr.String())

	data, err := os.ReadFile(filepath.Join(env.dir, "run.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `dunerun_run_exit_code{module="gm-DEBUG"} 0`)
	assert.Contains(t, string(data), "dunerun_build_duration_seconds")
}

func TestRunInteractiveWithQuery(t *testing.T) {
	// Problem 1 (lswf-chem), keep module name, input 0, change Name, default run dir.
	env := newTestEnv(t, "1", "", "0", "salty", "")
	err := env.app.Run(context.Background(), []string{"--search=src", "--query"})
	require.NoError(t, err, env.stderr.String())
	assert.Equal(t, 0, env.decider.Remaining())

	data, err := os.ReadFile(filepath.Join(env.dir, "src", "lswf", "lswf-chem.input"))
	require.NoError(t, err)
	assert.Equal(t, "[Problem]\nName = salty  #output name\n", string(data))
	assert.FileExists(t, filepath.Join(env.dir, "src", "lswf", "lswf-chem.input.bak"))

	require.Len(t, env.launcher.specs, 2)
	assert.Equal(t, proc.RoleTailer, env.launcher.specs[1].Role)
}

func TestRunOnlyCompile(t *testing.T) {
	env := newTestEnv(t)
	err := env.app.Run(context.Background(), []string{"--problem=gm", "--source=gm", "--search=src", "--only-compile"})
	require.NoError(t, err)

	require.Len(t, env.runner.calls, 3)
	assert.Equal(t, []string{"dunecontrol", "--only=gm-DEBUG", "make"}, env.runner.calls[2].Argv)
	assert.Empty(t, env.launcher.specs)
	assert.NoDirExists(t, filepath.Join(env.dir, "projects", "gm-DEBUG", "gm.output"))
}

func TestRunLogLevel(t *testing.T) {
	args := []string{"--problem=gm", "--source=gm", "--search=src", "--only-compile"}

	env := newTestEnv(t)
	require.NoError(t, env.app.Run(context.Background(), args))
	assert.Contains(t, env.stderr.String(), "module name is gm-DEBUG")

	env = newTestEnv(t)
	require.NoError(t, env.app.Run(context.Background(), append(args, "--log-level=warn")))
	assert.NotContains(t, env.stderr.String(), "module name is")
}

func TestRunConfigureFailure(t *testing.T) {
	env := newTestEnv(t)
	env.runner.codes = []int{0, 1}

	err := env.app.Run(context.Background(), []string{"--problem=gm", "--source=gm", "--search=src"})
	require.Error(t, err)
	assert.Equal(t, errors.KindBuild, errors.GetKind(err))
	assert.Len(t, env.runner.calls, 2)
	assert.Empty(t, env.launcher.specs)

	var buf bytes.Buffer
	assert.Equal(t, 1, ExitCode(&buf, err))
	assert.Contains(t, buf.String(), "*** Error: configure step exited with status 1")
}

func TestRunUnknownProblem(t *testing.T) {
	env := newTestEnv(t)
	err := env.app.Run(context.Background(), []string{"--problem=nope"})
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}

func TestExitCodeSuccess(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 0, ExitCode(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestChildEnv(t *testing.T) {
	env := childEnv([]string{"HOME=/h", "PATH=/bin"}, "/opt/dune/bin")
	assert.Equal(t, []string{"HOME=/h", "PATH=/bin:/opt/dune/bin"}, env)

	env = childEnv([]string{"HOME=/h"}, "/opt/dune/bin")
	assert.Equal(t, []string{"HOME=/h", "PATH=/opt/dune/bin"}, env)
}
