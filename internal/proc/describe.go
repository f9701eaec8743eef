// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package proc

import (
	"os"
	"os/exec"

	ps "github.com/mitchellh/go-ps"
	"golang.org/x/sys/unix"

	"grimm.is/dunerun/internal/errors"
)

// Describe returns the executable name of pid, or "" when it is gone.
func Describe(pid int) string {
	p, err := ps.FindProcess(pid)
	if err != nil || p == nil {
		return ""
	}
	return p.Executable()
}

// Exec replaces the current process image with argv[0], looked up in PATH.
// It only returns on failure.
func Exec(argv []string, env []string) error {
	if len(argv) == 0 {
		return errors.New(errors.KindLaunch, "empty command")
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return errors.Attr(errors.Wrapf(err, errors.KindLaunch, "cannot exec %s", argv[0]), errors.AttrPath, argv[0])
	}
	if env == nil {
		env = os.Environ()
	}
	err = unix.Exec(path, argv, env)
	return errors.Attr(errors.Wrapf(err, errors.KindLaunch, "exec %s", path), errors.AttrPath, path)
}
