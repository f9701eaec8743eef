// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package supervisor

import (
	"syscall"

	"grimm.is/dunerun/internal/proc"
)

// Process is the view of a supervised child the supervisor needs.
// *proc.Handle implements it.
type Process interface {
	Pid() int
	Role() proc.Role
	Wait() (proc.ExitStatus, error)
	Signal(sig syscall.Signal) error
	SignalGroup(sig syscall.Signal) error
	IsAlive() bool
}

// Launcher starts processes.
type Launcher interface {
	Start(spec proc.Spec) (Process, error)
}

// OSLauncher starts real processes with proc.Start.
type OSLauncher struct{}

// Start implements Launcher.
func (OSLauncher) Start(spec proc.Spec) (Process, error) {
	h, err := proc.Start(spec)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// registry holds the children of one invocation, one per role.
type registry struct {
	procs map[proc.Role]Process
}

func newRegistry() *registry {
	return &registry{procs: make(map[proc.Role]Process)}
}

func (r *registry) add(p Process) {
	r.procs[p.Role()] = p
}

func (r *registry) get(role proc.Role) (Process, bool) {
	p, ok := r.procs[role]
	return p, ok
}

func (r *registry) remove(role proc.Role) {
	delete(r.procs, role)
}
