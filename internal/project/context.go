// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package project

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"grimm.is/dunerun/internal/errors"
)

// DefaultBuildDir is the DUNE build directory name inside a module.
const DefaultBuildDir = "build-cmake"

// Options are the inputs of NewRunContext.
type Options struct {
	ProjectsDir string
	Source      Source
	// Tag is the directive tag, e.g. "-BCMVC-UMF-SH2O".
	Tag string
	// Module overrides the derived module name.
	Module string
	// InputFile may be empty in compile-only mode.
	InputFile string
	// RunDir overrides the default <program>/<input stem>.output.
	RunDir   string
	BuildDir string
}

// RunContext holds the names and paths of one invocation.
type RunContext struct {
	Module     string
	ProblemDir string
	SourceFile string
	Stem       string
	ProgramDir string
	Executable string
	Tag        string

	InputFile string
	RunDir    string
	VTKDir    string
	LogPath   string
	PlotTitle string
}

// ModuleName returns the module name for a source stem and directive tag.
func ModuleName(stem, tag string) string { return stem + tag }

// NewRunContext derives every path of the invocation.
func NewRunContext(o Options) (*RunContext, error) {
	if o.Source.File == "" {
		return nil, errors.New(errors.KindConfig, "no problem source selected")
	}
	if o.ProjectsDir == "" {
		return nil, errors.New(errors.KindConfig, "no projects directory")
	}
	buildDir := o.BuildDir
	if buildDir == "" {
		buildDir = DefaultBuildDir
	}

	stem := o.Source.Stem()
	module := o.Module
	if module == "" {
		module = ModuleName(stem, o.Tag)
	}
	program := filepath.Join(o.ProjectsDir, module)

	rc := &RunContext{
		Module:     module,
		ProblemDir: o.Source.Dir,
		SourceFile: o.Source.File,
		Stem:       stem,
		ProgramDir: program,
		Executable: filepath.Join(program, buildDir, "src", stem),
		Tag:        o.Tag,
		InputFile:  o.InputFile,
	}
	if o.InputFile == "" {
		return rc, nil
	}

	inputStem := strings.TrimSuffix(filepath.Base(o.InputFile), InputExt)
	rc.RunDir = o.RunDir
	if rc.RunDir == "" {
		rc.RunDir = DefaultRunDir(program, o.InputFile)
	}
	rc.VTKDir = filepath.Join(rc.RunDir, "vtk")
	rc.LogPath = filepath.Join(rc.RunDir, stem+".log")
	rc.PlotTitle = strings.ReplaceAll(inputStem, "_", "-") + o.Tag
	return rc, nil
}

// DefaultRunDir returns <program>/<input stem>.output.
func DefaultRunDir(program, inputFile string) string {
	return filepath.Join(program, strings.TrimSuffix(filepath.Base(inputFile), InputExt)+".output")
}

// RunInput returns the copy of the input file inside the run directory.
func (rc *RunContext) RunInput() string {
	return filepath.Join(rc.RunDir, filepath.Base(rc.InputFile))
}

// Prepare sets up the run directory: it is removed first when clean is set,
// the vtk directory is created and the input file copied in unless a copy
// is already there.
func Prepare(rc *RunContext, clean bool) error {
	if rc.RunDir == "" {
		return errors.New(errors.KindConfig, "no run directory")
	}
	if clean {
		if err := os.RemoveAll(rc.RunDir); err != nil {
			return errors.Attr(errors.Wrap(err, errors.KindIO, "failed to clean run directory"), errors.AttrPath, rc.RunDir)
		}
	}
	if err := os.MkdirAll(rc.VTKDir, 0755); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindIO, "failed to create vtk directory"), errors.AttrPath, rc.VTKDir)
	}
	dst := rc.RunInput()
	if isFile(dst) {
		return nil
	}
	if err := copyFile(rc.InputFile, dst); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindIO, "failed to copy input file"), errors.AttrPath, rc.InputFile)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
