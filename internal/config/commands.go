// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"strconv"
	"strings"

	"github.com/anmitsu/go-shlex"

	"grimm.is/dunerun/internal/errors"
)

// Expand substitutes {name} placeholders in tmpl and splits the result into
// argv with shell quoting rules.
func Expand(tmpl string, vars map[string]string) ([]string, error) {
	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	argv, err := shlex.Split(strings.NewReplacer(pairs...).Replace(tmpl), true)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindConfig, "invalid command template %q", tmpl)
	}
	if len(argv) == 0 {
		return nil, errors.Errorf(errors.KindConfig, "empty command template %q", tmpl)
	}
	return argv, nil
}

// ConfigureArgv returns the configure command for module.
func (t *Toolchain) ConfigureArgv(module string) ([]string, error) {
	return Expand(t.ConfigureCommand, map[string]string{"module": module})
}

// MakeArgv returns the compile command for module.
func (t *Toolchain) MakeArgv(module string) ([]string, error) {
	return Expand(t.MakeCommand, map[string]string{"module": module})
}

// LauncherArgv returns the MPI launcher prefix for n processes.
func (r *Runtime) LauncherArgv(n int) ([]string, error) {
	return Expand(r.MPILauncher, map[string]string{"n": strconv.Itoa(n)})
}
