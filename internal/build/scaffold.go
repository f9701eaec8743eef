// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package build

import (
	"context"
	"path/filepath"

	"grimm.is/dunerun/internal/config"
	"grimm.is/dunerun/internal/errors"
)

// ScaffoldRequest describes the generation of a DUNE module from a problem
// source file.
type ScaffoldRequest struct {
	Module string
	// SourceDir and SourceStem locate <SourceDir>/<SourceStem>.cc.
	SourceDir  string
	SourceStem string
	// ProjectsDir receives the generated module directory.
	ProjectsDir string
	IncludeDir  string
	ScriptDir   string
	Flags       string
	// Overwrite forces a fresh module; ReuseOnly keeps an existing one.
	Overwrite bool
	ReuseOnly bool
	// Unattended tells the script to take its defaults without asking.
	Unattended bool
}

// Scaffold runs the project script ("<script> <module> all"), which copies
// the problem sources into <ProjectsDir>/<Module> and writes the module
// boilerplate.
func (d *Driver) Scaffold(ctx context.Context, req ScaffoldRequest) error {
	script := d.Toolchain.ProjectScript
	if !filepath.IsAbs(script) {
		script = filepath.Join(req.ScriptDir, script)
	}

	env := d.childEnv(map[string]string{
		config.FlagsVar: req.Flags,
		"SRC_DIR":       req.SourceDir,
		"SRC_FILE":      req.SourceStem,
		"PROJECTS":      req.ProjectsDir,
		"LOCAL_INCLUDE": req.IncludeDir,
		"OVERWRITE":     req.overwrite(),
		"DEFAULTS":      yesNo(req.Unattended),
	})

	d.logger().Info("scaffolding project", "module", req.Module, "source", filepath.Join(req.SourceDir, req.SourceStem+".cc"))
	code, err := d.runner().Run(ctx, Command{
		Argv:   []string{"/bin/bash", script, req.Module, "all"},
		Env:    env,
		Stdout: d.stdout(),
		Stderr: d.stderr(),
	})
	if err != nil || code != 0 {
		return errors.Attr(stepError(StepScaffold, code, err), errors.AttrPath, script)
	}
	return nil
}

func (r ScaffoldRequest) overwrite() string {
	switch {
	case r.Overwrite:
		return "yes"
	case r.ReuseOnly:
		return "no"
	default:
		return ""
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
