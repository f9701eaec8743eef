// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package proc wraps the OS processes dunerun supervises: the simulation,
// its log tailer and the plot monitor.
package proc

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"grimm.is/dunerun/internal/errors"
)

// Role identifies a supervised process.
type Role string

const (
	RolePrimary Role = "primary"
	RoleTailer  Role = "tailer"
	RoleMonitor Role = "monitor"
)

// State is the lifecycle state of a Handle.
type State int

const (
	Running State = iota
	Exited
	Killed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Exited:
		return "exited"
	case Killed:
		return "killed"
	default:
		return "unknown"
	}
}

// Spec describes a process to start.
type Spec struct {
	Role Role
	Path string
	// Args excludes the program name.
	Args   []string
	Dir    string
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// NewGroup puts the child in its own process group so the whole
	// pipeline can be signalled with SignalGroup.
	NewGroup bool
	// Detach starts the child in a new session, away from the terminal's
	// job control.
	Detach bool
}

// ExitStatus describes how a process ended.
type ExitStatus struct {
	// Code is the exit code, or -1 when the process died from a signal.
	Code   int
	Signal syscall.Signal
}

// Success reports a zero exit code.
func (s ExitStatus) Success() bool { return s.Code == 0 }

func (s ExitStatus) String() string {
	if s.Signal != 0 {
		return fmt.Sprintf("killed by %s", unix.SignalName(s.Signal))
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

// Handle is a started process.
type Handle struct {
	role Role
	cmd  *exec.Cmd

	mu     sync.Mutex
	state  State
	killed bool

	waitOnce sync.Once
	status   ExitStatus
	waitErr  error
}

// Start launches spec. Failures are KindLaunch errors.
func Start(spec Spec) (*Handle, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	switch {
	case spec.Detach:
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	case spec.NewGroup:
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	if err := cmd.Start(); err != nil {
		err = errors.Wrapf(err, errors.KindLaunch, "failed to start %s process", spec.Role)
		err = errors.Attr(err, errors.AttrRole, string(spec.Role))
		return nil, errors.Attr(err, errors.AttrPath, spec.Path)
	}
	return &Handle{role: spec.Role, cmd: cmd, state: Running}, nil
}

// Pid returns the process id.
func (h *Handle) Pid() int { return h.cmd.Process.Pid }

// Role returns the role the process was started with.
func (h *Handle) Role() Role { return h.role }

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Wait blocks until the process exits and reaps it. It is safe to call
// more than once; later calls return the first result. A non-zero exit is
// reported in the status, not the error.
func (h *Handle) Wait() (ExitStatus, error) {
	h.waitOnce.Do(func() {
		err := h.cmd.Wait()
		h.status = exitStatus(h.cmd, err)
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			h.waitErr = errors.Wrapf(err, errors.KindRuntime, "waiting for %s process", h.role)
		}

		h.mu.Lock()
		if h.killed {
			h.state = Killed
		} else {
			h.state = Exited
		}
		h.mu.Unlock()
	})
	return h.status, h.waitErr
}

// Signal sends sig to the process.
func (h *Handle) Signal(sig syscall.Signal) error {
	if h.State() != Running {
		return nil
	}
	if err := unix.Kill(h.Pid(), sig); err != nil {
		return err
	}
	h.markKilled(sig)
	return nil
}

// SignalGroup sends sig to the process group of the process.
func (h *Handle) SignalGroup(sig syscall.Signal) error {
	if h.State() != Running {
		return nil
	}
	pgid, err := unix.Getpgid(h.Pid())
	if err != nil {
		return err
	}
	if err := unix.Kill(-pgid, sig); err != nil {
		return err
	}
	h.markKilled(sig)
	return nil
}

// IsAlive reports whether the process has not been reaped and still
// accepts signals.
func (h *Handle) IsAlive() bool {
	if h.State() != Running {
		return false
	}
	return unix.Kill(h.Pid(), 0) == nil
}

func (h *Handle) markKilled(sig syscall.Signal) {
	if sig != unix.SIGKILL && sig != unix.SIGTERM {
		return
	}
	h.mu.Lock()
	h.killed = true
	h.mu.Unlock()
}

func exitStatus(cmd *exec.Cmd, err error) ExitStatus {
	ps := cmd.ProcessState
	if ps == nil {
		return ExitStatus{Code: -1}
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ExitStatus{Code: -1, Signal: ws.Signal()}
	}
	return ExitStatus{Code: ps.ExitCode()}
}
