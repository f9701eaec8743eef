// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package supervisor

import (
	"path/filepath"

	"grimm.is/dunerun/internal/config"
	"grimm.is/dunerun/internal/directive"
	"grimm.is/dunerun/internal/errors"
)

// ParameterFileArg is the solver flag naming the runtime parameter file.
const ParameterFileArg = "-ParameterFile"

// CommandSpec describes the simulation to launch.
type CommandSpec struct {
	Executable string
	// InputFile is the parameter file; it is referenced from the vtk
	// directory as ../<base name>.
	InputFile string
	VTKDir    string
	Selection directive.Selection
	Runtime   *config.Runtime

	Debug bool
	// MPI is the process count; zero runs serially.
	MPI int
}

// Command is the assembled primary command.
type Command struct {
	Argv []string
	Dir  string
	// Replace means the command takes over the current process image
	// instead of running supervised.
	Replace  bool
	Warnings []string
}

// BuildCommand assembles the primary command. The debugger replaces the
// current process. MPI wrapping only applies with the AMG solver.
func BuildCommand(spec CommandSpec) (Command, error) {
	if spec.Executable == "" {
		return Command{}, errors.New(errors.KindConfig, "no executable")
	}
	paramArg := "../" + filepath.Base(spec.InputFile)

	if spec.Debug {
		debugger := spec.Runtime.Debugger
		if debugger == "" {
			debugger = "gdb"
		}
		return Command{
			Argv: []string{
				debugger,
				"-cd=" + spec.VTKDir,
				spec.Executable,
				"-ex", "set args " + ParameterFileArg + " " + paramArg,
			},
			Dir:     spec.VTKDir,
			Replace: true,
		}, nil
	}

	cmd := Command{
		Argv: []string{spec.Executable, ParameterFileArg, paramArg},
		Dir:  spec.VTKDir,
	}
	if spec.MPI <= 0 {
		return cmd, nil
	}
	if !spec.Selection.Has(directive.AMG) {
		cmd.Warnings = append(cmd.Warnings, "MPI execution is only supported with the --DAMG directive; running serially")
		return cmd, nil
	}
	launcher, err := spec.Runtime.LauncherArgv(spec.MPI)
	if err != nil {
		return Command{}, err
	}
	cmd.Argv = append(launcher, cmd.Argv...)
	return cmd, nil
}
