// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package build drives the DUNE toolchain for a generated project:
// scaffolding, clean, configure and compile.
package build

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"grimm.is/dunerun/internal/config"
	"grimm.is/dunerun/internal/errors"
	"grimm.is/dunerun/internal/logging"
)

// Outcome is the result of a build.
type Outcome int

const (
	Success Outcome = iota
	ConfigureFailed
	CompileFailed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case ConfigureFailed:
		return "configure failed"
	case CompileFailed:
		return "compile failed"
	default:
		return "unknown"
	}
}

// Step names, used as the errors.AttrStep value.
const (
	StepClean     = "clean"
	StepConfigure = "configure"
	StepCompile   = "compile"
	StepScaffold  = "scaffold"
)

// Request describes one build.
type Request struct {
	// ProjectDir is the generated program directory; commands run there.
	ProjectDir string
	Module     string
	// Flags is the CXXFLAGS value for the children.
	Flags   string
	Verbose bool
}

// Result reports how a build ended.
type Result struct {
	Outcome  Outcome
	ExitCode int
	Duration time.Duration
}

// Driver runs the toolchain. The zero Runner is replaced by ExecRunner.
type Driver struct {
	Toolchain *config.Toolchain
	Runner    Runner

	// Environ is the base child environment. Nil means os.Environ().
	Environ []string
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *logging.Logger
}

// NewDriver returns a driver for tc that runs real commands.
func NewDriver(tc *config.Toolchain) *Driver {
	return &Driver{
		Toolchain: tc,
		Runner:    ExecRunner{},
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Logger:    logging.WithComponent("build"),
	}
}

// Build cleans, configures and compiles req.Module. A failed step is
// reported both in the Result and as a KindBuild error; a configure failure
// skips the compile.
func (d *Driver) Build(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res := Result{Outcome: Success}

	if err := d.Clean(req.ProjectDir); err != nil {
		res.Outcome = ConfigureFailed
		res.ExitCode = -1
		return res, err
	}

	env := d.childEnv(map[string]string{config.FlagsVar: req.Flags})

	argv, err := d.Toolchain.ConfigureArgv(req.Module)
	if err != nil {
		return res, err
	}
	d.logger().Info("configuring", "module", req.Module, "flags", req.Flags)
	cfgCmd := Command{Argv: argv, Dir: req.ProjectDir, Env: env, Stdout: io.Discard, Stderr: io.Discard}
	if req.Verbose {
		cfgCmd.Stderr = d.stderr()
	}
	code, err := d.runner().Run(ctx, cfgCmd)
	if err != nil || code != 0 {
		res.Outcome = ConfigureFailed
		res.ExitCode = code
		res.Duration = time.Since(start)
		return res, stepError(StepConfigure, code, err)
	}

	argv, err = d.Toolchain.MakeArgv(req.Module)
	if err != nil {
		return res, err
	}
	d.logger().Info("compiling", "module", req.Module)
	code, err = d.runner().Run(ctx, Command{
		Argv:   argv,
		Dir:    req.ProjectDir,
		Env:    env,
		Stdout: d.stdout(),
		Stderr: d.stderr(),
	})
	res.Duration = time.Since(start)
	if err != nil || code != 0 {
		res.Outcome = CompileFailed
		res.ExitCode = code
		return res, stepError(StepCompile, code, err)
	}
	d.logger().Info("build done", "module", req.Module, "duration", res.Duration.Round(time.Millisecond))
	return res, nil
}

// Clean removes the build directory below projectDir. A missing directory
// is not an error.
func (d *Driver) Clean(projectDir string) error {
	dir := filepath.Join(projectDir, d.buildDir())
	if err := os.RemoveAll(dir); err != nil {
		err = errors.Wrap(err, errors.KindBuild, "failed to remove build directory")
		err = errors.Attr(err, errors.AttrStep, StepClean)
		return errors.Attr(err, errors.AttrPath, dir)
	}
	return nil
}

// Executable returns where the compiled program for source stem lands.
func (d *Driver) Executable(projectDir, stem string) string {
	return filepath.Join(projectDir, d.buildDir(), "src", stem)
}

// NeedsBuild reports whether exe must be (re)built: it is missing, or the
// caller forces a rebuild.
func (d *Driver) NeedsBuild(exe string, force bool) bool {
	if force {
		return true
	}
	info, err := os.Stat(exe)
	return err != nil || info.IsDir()
}

func (d *Driver) buildDir() string {
	if d.Toolchain != nil && d.Toolchain.BuildDir != "" {
		return d.Toolchain.BuildDir
	}
	return "build-cmake"
}

// childEnv copies the base environment, appends the DUNE bin directory to
// PATH and overrides vars.
func (d *Driver) childEnv(vars map[string]string) []string {
	base := d.Environ
	if base == nil {
		base = os.Environ()
	}
	env := make([]string, 0, len(base)+len(vars)+1)
	path := ""
	for _, kv := range base {
		k, v, _ := strings.Cut(kv, "=")
		if k == "PATH" {
			path = v
			continue
		}
		if _, ok := vars[k]; ok {
			continue
		}
		env = append(env, kv)
	}
	if bin := d.Toolchain.DuneBin; bin != "" {
		if path == "" {
			path = bin
		} else {
			path += string(os.PathListSeparator) + bin
		}
	}
	if path != "" {
		env = append(env, "PATH="+path)
	}
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	return env
}

func (d *Driver) runner() Runner {
	if d.Runner == nil {
		return ExecRunner{}
	}
	return d.Runner
}

func (d *Driver) stdout() io.Writer {
	if d.Stdout == nil {
		return io.Discard
	}
	return d.Stdout
}

func (d *Driver) stderr() io.Writer {
	if d.Stderr == nil {
		return io.Discard
	}
	return d.Stderr
}

func (d *Driver) logger() *logging.Logger {
	if d.Logger == nil {
		return logging.WithComponent("build")
	}
	return d.Logger
}

func stepError(step string, code int, cause error) error {
	var err error
	if cause != nil {
		err = errors.Wrapf(cause, errors.KindBuild, "%s step could not run", step)
	} else {
		err = errors.Errorf(errors.KindBuild, "%s step exited with status %d", step, code)
	}
	err = errors.Attr(err, errors.AttrStep, step)
	return errors.Attr(err, errors.AttrExitCode, code)
}
