// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package supervisor

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/dunerun/internal/config"
	"grimm.is/dunerun/internal/directive"
	derrors "grimm.is/dunerun/internal/errors"
	"grimm.is/dunerun/internal/monitor"
	"grimm.is/dunerun/internal/proc"
	"grimm.is/dunerun/internal/prompt"
	"grimm.is/dunerun/internal/testutil"
)

type fakeProcess struct {
	mu      sync.Mutex
	pid     int
	role    proc.Role
	status  proc.ExitStatus
	signals []syscall.Signal
	groups  []syscall.Signal
	waits   int
}

func (p *fakeProcess) Pid() int        { return p.pid }
func (p *fakeProcess) Role() proc.Role { return p.role }
func (p *fakeProcess) IsAlive() bool   { return true }

func (p *fakeProcess) Wait() (proc.ExitStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits++
	return p.status, nil
}

func (p *fakeProcess) Signal(sig syscall.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signals = append(p.signals, sig)
	return nil
}

func (p *fakeProcess) SignalGroup(sig syscall.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.groups = append(p.groups, sig)
	return errors.New("no such process")
}

type fakeLauncher struct {
	specs  []proc.Spec
	procs  map[proc.Role]*fakeProcess
	status proc.ExitStatus
	fail   proc.Role
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{procs: make(map[proc.Role]*fakeProcess)}
}

func (l *fakeLauncher) Start(spec proc.Spec) (Process, error) {
	if spec.Role == l.fail {
		return nil, derrors.New(derrors.KindLaunch, "cannot start")
	}
	l.specs = append(l.specs, spec)
	p := &fakeProcess{pid: 1000 + len(l.specs), role: spec.Role}
	if spec.Role == proc.RolePrimary {
		p.status = l.status
	}
	l.procs[spec.Role] = p
	return p, nil
}

func newTestSupervisor(l Launcher, decider prompt.Source) *Supervisor {
	return &Supervisor{
		Launcher: l,
		Decider:  decider,
		Out:      io.Discard,
		lookPath: func(name string) (string, error) { return "/usr/bin/" + name, nil },
		describe: func(int) string { return "gnuplot" },
	}
}

func testLaunch(t *testing.T) Launch {
	dir := t.TempDir()
	return Launch{
		Command: Command{Argv: []string{"/prog/build-cmake/src/lswf", "-ParameterFile", "../case.input"}, Dir: filepath.Join(dir, "vtk")},
		LogPath: filepath.Join(dir, "lswf.log"),
		Module:  "lswf-BCMVC",
		Input:   "case.input",
	}
}

func withPlot(t *testing.T, l Launch) Launch {
	l.Plot = &PlotSpec{
		Layout: monitor.Layout{RunDir: filepath.Dir(l.LogPath)},
		Title:  "case",
		Tool:   "gnuplot",
		Argv:   []string{"/usr/local/bin/dunerun", "_monitor"},
	}
	return l
}

func TestRunWithoutMonitor(t *testing.T) {
	l := newFakeLauncher()
	decider := prompt.NewScripted()
	s := newTestSupervisor(l, decider)
	launch := testLaunch(t)
	require.NoError(t, os.WriteFile(launch.LogPath, []byte("stale output"), 0644))

	report, err := s.Run(context.Background(), launch)
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Zero(t, report.MonitorPid)
	assert.Zero(t, report.LogSize, "log is truncated before launch")

	require.Len(t, l.specs, 2)
	assert.Equal(t, proc.RolePrimary, l.specs[0].Role, "primary starts before the tailer")
	assert.True(t, l.specs[0].Detach)
	assert.Equal(t, launch.Command.Dir, l.specs[0].Dir)
	assert.Equal(t, proc.RoleTailer, l.specs[1].Role)
	assert.True(t, l.specs[1].NewGroup)
	assert.Equal(t, []string{"-c", "tail -f '" + launch.LogPath + "' | grep 'Time step'"}, l.specs[1].Args)

	tailer := l.procs[proc.RoleTailer]
	assert.Equal(t, []syscall.Signal{syscall.SIGKILL}, tailer.groups, "tailer group killed exactly once")
	assert.Equal(t, 1, tailer.waits)
	assert.Empty(t, decider.Asked, "no teardown question without a monitor")
	assert.Empty(t, l.procs[proc.RolePrimary].signals)
}

func TestRunMonitorKilledOnYes(t *testing.T) {
	l := newFakeLauncher()
	decider := prompt.NewScripted("maybe", "y")
	s := newTestSupervisor(l, decider)

	launch := withPlot(t, testLaunch(t))
	report, err := s.Run(context.Background(), launch)
	require.NoError(t, err)

	m := l.procs[proc.RoleMonitor]
	require.NotNil(t, m)
	assert.Equal(t, m.pid, report.MonitorPid)
	assert.False(t, report.MonitorKept)
	assert.Equal(t, []syscall.Signal{syscall.SIGKILL}, m.signals)
	assert.Len(t, decider.Asked, 2)
	assert.Equal(t, []string{"Please answer Y or N"}, decider.Shown)
	assert.Equal(t, []syscall.Signal{syscall.SIGKILL}, l.procs[proc.RoleTailer].groups)

	assert.FileExists(t, launch.Plot.Layout.Script(monitor.LoopScript))
	assert.Equal(t, []string{"_monitor"}, l.specs[2].Args)
}

func TestRunMonitorKeptOnNo(t *testing.T) {
	l := newFakeLauncher()
	s := newTestSupervisor(l, prompt.NewScripted("N"))

	report, err := s.Run(context.Background(), withPlot(t, testLaunch(t)))
	require.NoError(t, err)
	assert.True(t, report.MonitorKept)
	assert.Empty(t, l.procs[proc.RoleMonitor].signals)
	assert.Equal(t, []syscall.Signal{syscall.SIGKILL}, l.procs[proc.RoleTailer].groups)
}

func TestRunMissingPlotToolSkipsMonitor(t *testing.T) {
	l := newFakeLauncher()
	decider := prompt.NewScripted()
	s := newTestSupervisor(l, decider)
	s.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	report, err := s.Run(context.Background(), withPlot(t, testLaunch(t)))
	require.NoError(t, err)
	assert.Zero(t, report.MonitorPid)
	assert.Len(t, l.specs, 2)
	assert.Empty(t, decider.Asked)
}

func TestRunPrimaryFailureAfterTeardown(t *testing.T) {
	l := newFakeLauncher()
	l.status = proc.ExitStatus{Code: 2}
	s := newTestSupervisor(l, prompt.NewScripted())
	hist := NewHistory(t.TempDir(), DefaultHistoryConfig())
	s.History = hist

	report, err := s.Run(context.Background(), testLaunch(t))
	require.Error(t, err)
	assert.Equal(t, derrors.KindRuntime, derrors.GetKind(err))
	assert.Equal(t, 2, derrors.GetAttributes(err)[derrors.AttrExitCode])
	assert.Equal(t, 2, report.Status.Code)
	assert.Equal(t, []syscall.Signal{syscall.SIGKILL}, l.procs[proc.RoleTailer].groups)

	last, ok := hist.Last()
	require.True(t, ok)
	assert.Equal(t, report.RunID, last.RunID)
	assert.Equal(t, "lswf-BCMVC", last.Module)
	assert.True(t, last.IsCrash())
}

func TestRunTailerStartFailureIsLaunchError(t *testing.T) {
	l := newFakeLauncher()
	l.fail = proc.RoleTailer
	s := newTestSupervisor(l, prompt.NewScripted())

	_, err := s.Run(context.Background(), testLaunch(t))
	require.Error(t, err)
	assert.Equal(t, derrors.KindLaunch, derrors.GetKind(err))
	assert.Equal(t, []syscall.Signal{syscall.SIGKILL}, l.procs[proc.RolePrimary].groups)
}

func TestRunPrimaryStartFailure(t *testing.T) {
	l := newFakeLauncher()
	l.fail = proc.RolePrimary
	s := newTestSupervisor(l, prompt.NewScripted())

	_, err := s.Run(context.Background(), testLaunch(t))
	assert.Equal(t, derrors.KindLaunch, derrors.GetKind(err))
	assert.Empty(t, l.specs)
}

func TestRunReplaceExecs(t *testing.T) {
	l := newFakeLauncher()
	s := newTestSupervisor(l, prompt.NewScripted())
	var got []string
	s.exec = func(argv, env []string) error {
		got = argv
		return derrors.New(derrors.KindLaunch, "exec failed")
	}

	launch := testLaunch(t)
	launch.Command = Command{Argv: []string{"gdb", "-cd=/run/vtk"}, Replace: true}
	_, err := s.Run(context.Background(), launch)
	assert.Equal(t, derrors.KindLaunch, derrors.GetKind(err))
	assert.Equal(t, []string{"gdb", "-cd=/run/vtk"}, got)
	assert.Empty(t, l.specs)
}

func TestRunWithRealProcesses(t *testing.T) {
	testutil.RequireShell(t)
	testutil.RequireTool(t, "tail")
	testutil.RequireTool(t, "grep")
	dir := t.TempDir()
	s := &Supervisor{Launcher: OSLauncher{}, Decider: prompt.Unattended{}, Out: io.Discard}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	report, err := s.Run(ctx, Launch{
		Command: Command{Argv: []string{"/bin/sh", "-c", "echo 'Time step 1'; echo done"}, Dir: dir},
		LogPath: filepath.Join(dir, "sim.log"),
	})
	require.NoError(t, err)
	assert.True(t, report.Status.Success())

	data, err := os.ReadFile(filepath.Join(dir, "sim.log"))
	require.NoError(t, err)
	assert.Equal(t, "Time step 1\ndone\n", string(data))
	assert.Equal(t, int64(len(data)), report.LogSize)
	assert.Equal(t, 1, report.Progress.Steps)
	assert.Equal(t, "Time step 1", report.Progress.LastStep)
}

func TestBuildCommand(t *testing.T) {
	cat, err := config.Default().Catalog("lswf")
	require.NoError(t, err)
	rt := config.Default().Runtime

	amg, err := directive.Resolve(cat, "", []string{"AMG"})
	require.NoError(t, err)
	umf, err := directive.Resolve(cat, "", nil)
	require.NoError(t, err)

	base := CommandSpec{
		Executable: "/p/build-cmake/src/lswf",
		InputFile:  "/src/lswf/case.input",
		VTKDir:     "/p/case.output/vtk",
		Runtime:    rt,
	}

	t.Run("serial", func(t *testing.T) {
		spec := base
		spec.Selection = umf
		cmd, err := BuildCommand(spec)
		require.NoError(t, err)
		assert.Equal(t, []string{"/p/build-cmake/src/lswf", "-ParameterFile", "../case.input"}, cmd.Argv)
		assert.Equal(t, "/p/case.output/vtk", cmd.Dir)
		assert.False(t, cmd.Replace)
	})

	t.Run("mpi with AMG", func(t *testing.T) {
		spec := base
		spec.Selection = amg
		spec.MPI = 4
		cmd, err := BuildCommand(spec)
		require.NoError(t, err)
		assert.Equal(t, []string{"mpirun", "--np", "4", "/p/build-cmake/src/lswf", "-ParameterFile", "../case.input"}, cmd.Argv)
		assert.Empty(t, cmd.Warnings)
	})

	t.Run("mpi without AMG", func(t *testing.T) {
		spec := base
		spec.Selection = umf
		spec.MPI = 4
		cmd, err := BuildCommand(spec)
		require.NoError(t, err)
		assert.Equal(t, "/p/build-cmake/src/lswf", cmd.Argv[0])
		assert.Len(t, cmd.Warnings, 1)
	})

	t.Run("gdb", func(t *testing.T) {
		spec := base
		spec.Selection = amg
		spec.MPI = 4
		spec.Debug = true
		cmd, err := BuildCommand(spec)
		require.NoError(t, err)
		assert.True(t, cmd.Replace)
		assert.Equal(t, []string{"gdb", "-cd=/p/case.output/vtk", "/p/build-cmake/src/lswf", "-ex", "set args -ParameterFile ../case.input"}, cmd.Argv)
	})

	_, err = BuildCommand(CommandSpec{})
	assert.Equal(t, derrors.KindConfig, derrors.GetKind(err))
}
