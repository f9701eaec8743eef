// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package supervisor runs a simulation together with its log tailer and
// optional plot monitor, and tears the helpers down when it finishes.
// Runs are recorded in a small history that tells crashes apart from
// requested stops.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"grimm.is/dunerun/internal/errors"
	"grimm.is/dunerun/internal/logging"
	"grimm.is/dunerun/internal/monitor"
	"grimm.is/dunerun/internal/proc"
	"grimm.is/dunerun/internal/prompt"
)

// DefaultTailMarker selects the solver's progress lines.
const DefaultTailMarker = "Time step"

// TeardownQuestion is asked when a plot monitor outlived the simulation.
const TeardownQuestion = "Finish process?"

// PlotSpec enables the plot monitor.
type PlotSpec struct {
	Layout         monitor.Layout
	Title          string
	RefreshSeconds int
	Tool           string
	// Argv starts the monitor child, normally this binary's hidden
	// monitor subcommand.
	Argv []string
}

// Launch describes one supervised run.
type Launch struct {
	Command    Command
	LogPath    string
	Env        []string
	TailMarker string
	Plot       *PlotSpec

	// Module and Input are recorded in the run history.
	Module string
	Input  string
}

// Report summarises a finished run.
type Report struct {
	RunID    string
	Status   proc.ExitStatus
	Duration time.Duration
	LogSize  int64
	// Finished is zero when the primary never started.
	Finished time.Time

	// MonitorPid is non-zero when a monitor was started.
	MonitorPid int
	// MonitorKept is set when the monitor was left running on request.
	MonitorKept bool

	// Progress is the last sample of the simulation log.
	Progress monitor.Progress
}

// Supervisor owns the children of one invocation.
type Supervisor struct {
	Launcher Launcher
	Decider  prompt.Source
	History  *History
	Logger   *logging.Logger
	// Out receives the tailer and monitor output.
	Out io.Writer
	// ProgressInterval is how often the log is sampled during a run.
	ProgressInterval time.Duration

	// Hooks swapped in tests.
	exec     func(argv, env []string) error
	lookPath func(string) (string, error)
	describe func(int) string
	now      func() time.Time
}

// New returns a supervisor that starts real processes.
func New(decider prompt.Source, history *History) *Supervisor {
	return &Supervisor{
		Launcher: OSLauncher{},
		Decider:  decider,
		History:  history,
		Logger:   logging.WithComponent("supervisor"),
		Out:      os.Stdout,
	}
}

// Run launches l and blocks until the simulation exits and the helpers are
// torn down. A non-zero simulation exit is returned as a KindRuntime error
// together with the report. A command marked Replace never returns on
// success.
func (s *Supervisor) Run(ctx context.Context, l Launch) (Report, error) {
	s.defaults()
	log := s.Logger

	for _, w := range l.Command.Warnings {
		log.Warn(w)
	}

	if l.Command.Replace {
		log.Info("handing over to debugger", "command", strings.Join(l.Command.Argv, " "))
		return Report{}, s.exec(l.Command.Argv, l.Env)
	}
	if len(l.Command.Argv) == 0 {
		return Report{}, errors.New(errors.KindConfig, "empty command")
	}

	logFile, err := os.Create(l.LogPath)
	if err != nil {
		return Report{}, errors.Attr(errors.Wrap(err, errors.KindIO, "failed to create log file"), errors.AttrPath, l.LogPath)
	}

	reg := newRegistry()
	report := Report{RunID: uuid.NewString()}
	started := s.now()

	primary, err := s.Launcher.Start(proc.Spec{
		Role:   proc.RolePrimary,
		Path:   l.Command.Argv[0],
		Args:   l.Command.Argv[1:],
		Dir:    l.Command.Dir,
		Env:    l.Env,
		Stdout: logFile,
		Stderr: os.Stderr,
		Detach: true,
	})
	logFile.Close()
	if err != nil {
		return report, err
	}
	reg.add(primary)
	log.Info("started simulation", "pid", primary.Pid(), "run_id", report.RunID, "command", strings.Join(l.Command.Argv, " "))

	if err := s.startTailer(reg, l); err != nil {
		s.abort(reg)
		return report, err
	}

	if l.Plot != nil {
		if err := s.startMonitor(reg, l); err != nil {
			s.abort(reg)
			return report, err
		}
		if m, ok := reg.get(proc.RoleMonitor); ok {
			report.MonitorPid = m.Pid()
		}
	}

	progress := monitor.NewProgressService(log.WithComponent("progress"), l.LogPath, tailMarker(l), s.ProgressInterval)
	progress.Start()

	waitDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			log.Warn("interrupted, stopping simulation", "pid", primary.Pid())
			_ = primary.SignalGroup(unix.SIGTERM)
		case <-waitDone:
		}
	}()
	status, waitErr := primary.Wait()
	close(waitDone)

	report.Status = status
	report.Finished = s.now()
	report.Duration = report.Finished.Sub(started)
	report.Progress = progress.Stop()
	report.LogSize = report.Progress.LogSize
	s.record(l, report, started)

	report.MonitorKept = s.teardown(reg)

	if waitErr != nil {
		return report, waitErr
	}
	if !status.Success() {
		err := errors.Errorf(errors.KindRuntime, "simulation failed: %s", status)
		err = errors.Attr(err, errors.AttrExitCode, status.Code)
		return report, errors.Attr(err, errors.AttrRole, string(proc.RolePrimary))
	}
	return report, nil
}

func (s *Supervisor) startTailer(reg *registry, l Launch) error {
	script := "tail -f " + shellQuote(l.LogPath) + " | grep " + shellQuote(tailMarker(l))
	s.Logger.Debug("starting tailer", "command", script)

	tailer, err := s.Launcher.Start(proc.Spec{
		Role:     proc.RoleTailer,
		Path:     "/bin/sh",
		Args:     []string{"-c", script},
		Env:      l.Env,
		Stdout:   s.Out,
		Stderr:   s.Out,
		NewGroup: true,
	})
	if err != nil {
		return err
	}
	reg.add(tailer)
	return nil
}

// startMonitor writes the plot scripts and starts the monitor child. A
// missing plot tool is a warning, not an error.
func (s *Supervisor) startMonitor(reg *registry, l Launch) error {
	p := l.Plot
	if _, err := s.lookPath(p.Tool); err != nil {
		s.Logger.Warn(p.Tool + " is not available on this system, not plotting")
		return nil
	}
	if len(p.Argv) == 0 {
		return errors.New(errors.KindConfig, "no monitor command")
	}
	if err := monitor.WriteScripts(p.Layout, p.Title, p.RefreshSeconds); err != nil {
		return err
	}
	s.Logger.Info(fmt.Sprintf("following simulation with %s every %d seconds", p.Tool, refreshOrDefault(p.RefreshSeconds)))

	m, err := s.Launcher.Start(proc.Spec{
		Role:   proc.RoleMonitor,
		Path:   p.Argv[0],
		Args:   p.Argv[1:],
		Env:    l.Env,
		Stdout: s.Out,
		Stderr: s.Out,
	})
	if err != nil {
		return err
	}
	reg.add(m)
	s.Logger.Info("detached monitor", "pid", m.Pid())
	return nil
}

// teardown asks about a surviving monitor, then kills the tailer's
// process group exactly once. It reports whether the monitor was kept.
func (s *Supervisor) teardown(reg *registry) bool {
	kept := false
	if m, ok := reg.get(proc.RoleMonitor); ok {
		kept = s.decideMonitor(m)
		reg.remove(proc.RoleMonitor)
	}

	if t, ok := reg.get(proc.RoleTailer); ok {
		s.Logger.Debug("killing tail subprocess", "pid", t.Pid())
		_ = t.SignalGroup(unix.SIGKILL)
		_, _ = t.Wait()
		reg.remove(proc.RoleTailer)
	}
	return kept
}

func (s *Supervisor) decideMonitor(m Process) bool {
	q := prompt.Question{Kind: prompt.KindConfirm, Title: TeardownQuestion, Default: "Y"}
	for {
		answer, err := s.Decider.Ask(q)
		if err != nil {
			s.Logger.Warn("no answer, leaving monitor running", "pid", m.Pid(), "error", err)
			return true
		}
		switch {
		case prompt.IsYes(answer):
			_ = m.Signal(unix.SIGKILL)
			_, _ = m.Wait()
			return false
		case prompt.IsNo(answer):
			s.Logger.Info(fmt.Sprintf("process %d (%s) is still active", m.Pid(), s.describe(m.Pid())))
			return true
		}
		s.Decider.Show("Please answer Y or N")
	}
}

// abort kills whatever was started when a later child failed to start.
func (s *Supervisor) abort(reg *registry) {
	for _, role := range []proc.Role{proc.RoleMonitor, proc.RoleTailer, proc.RolePrimary} {
		p, ok := reg.get(role)
		if !ok {
			continue
		}
		_ = p.SignalGroup(unix.SIGKILL)
		_, _ = p.Wait()
		reg.remove(role)
	}
}

func (s *Supervisor) record(l Launch, r Report, started time.Time) {
	if s.History == nil {
		return
	}
	err := s.History.Record(RunEvent{
		RunID:    r.RunID,
		Module:   l.Module,
		Input:    l.Input,
		ExitCode: r.Status.Code,
		Signal:   r.Status.Signal,
		Started:  started,
		Duration: r.Duration,
	})
	if err != nil {
		s.Logger.Warn("failed to record run", "error", err)
	}
}

func (s *Supervisor) defaults() {
	if s.Launcher == nil {
		s.Launcher = OSLauncher{}
	}
	if s.Decider == nil {
		s.Decider = prompt.Unattended{}
	}
	if s.Logger == nil {
		s.Logger = logging.WithComponent("supervisor")
	}
	if s.Out == nil {
		s.Out = io.Discard
	}
	if s.exec == nil {
		s.exec = proc.Exec
	}
	if s.lookPath == nil {
		s.lookPath = exec.LookPath
	}
	if s.describe == nil {
		s.describe = proc.Describe
	}
	if s.now == nil {
		s.now = time.Now
	}
}

func tailMarker(l Launch) string {
	if l.TailMarker == "" {
		return DefaultTailMarker
	}
	return l.TailMarker
}

func refreshOrDefault(n int) int {
	if n <= 0 {
		return monitor.DefaultRefreshSeconds
	}
	return n
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
