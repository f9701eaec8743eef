// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads the dunerun tool configuration: toolchain commands,
// runtime helpers and the directive catalog of every problem type.
package config

import (
	"sort"

	"grimm.is/dunerun/internal/directive"
	"grimm.is/dunerun/internal/errors"
	"grimm.is/dunerun/internal/install"
)

// Config is the complete tool configuration.
type Config struct {
	Toolchain *Toolchain `hcl:"toolchain,block" yaml:"toolchain"`
	Runtime   *Runtime   `hcl:"runtime,block" yaml:"runtime"`
	Problems  []Problem  `hcl:"problem,block" yaml:"problems"`

	// BaseFlags are the externally preset CXXFLAGS, resolved by Load.
	BaseFlags string `yaml:"-"`
	// Source is the file the configuration was read from, or "" for built-ins.
	Source string `yaml:"-"`
}

// Toolchain describes the external build commands. Command strings may use
// {module}; they are split with shell quoting rules.
type Toolchain struct {
	DuneBin          string `hcl:"dune_bin,optional" yaml:"dune_bin"`
	ConfigureCommand string `hcl:"configure_command,optional" yaml:"configure_command"`
	MakeCommand      string `hcl:"make_command,optional" yaml:"make_command"`
	ProjectScript    string `hcl:"project_script,optional" yaml:"project_script"`
	BuildDir         string `hcl:"build_dir,optional" yaml:"build_dir"`
	CXXFlags         string `hcl:"cxxflags,optional" yaml:"cxxflags"`
}

// Runtime describes the helpers used while the simulation runs. MPILauncher
// may use {n} for the process count.
type Runtime struct {
	MPILauncher        string `hcl:"mpi_launcher,optional" yaml:"mpi_launcher"`
	Debugger           string `hcl:"debugger,optional" yaml:"debugger"`
	TailMarker         string `hcl:"tail_marker,optional" yaml:"tail_marker"`
	PlotTool           string `hcl:"plot_tool,optional" yaml:"plot_tool"`
	PlotRefreshSeconds int    `hcl:"plot_refresh_seconds,optional" yaml:"plot_refresh_seconds"`
}

// Problem is the directive catalog of one problem type.
type Problem struct {
	Name       string         `hcl:"name,label" yaml:"name"`
	Defaults   []string       `hcl:"defaults,optional" yaml:"defaults"`
	Directives []DirectiveDef `hcl:"directive,block" yaml:"directives"`
}

// DirectiveDef declares one directive of a problem.
type DirectiveDef struct {
	Name        string `hcl:"name,label" yaml:"name"`
	Description string `hcl:"description,optional" yaml:"description"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Toolchain: &Toolchain{
			DuneBin:          install.GetDuneBinDir(),
			ConfigureCommand: "dunecontrol --only={module} configure",
			MakeCommand:      "dunecontrol --only={module} make",
			ProjectScript:    "_project",
			BuildDir:         "build-cmake",
		},
		Runtime: &Runtime{
			MPILauncher:        "mpirun --np {n}",
			Debugger:           "gdb",
			TailMarker:         "Time step",
			PlotTool:           "gnuplot",
			PlotRefreshSeconds: 5,
		},
		Problems: []Problem{
			{
				Name: "lswf",
				Directives: []DirectiveDef{
					{Name: "AMG", Description: "Solve with AMG iterations"},
					{Name: "UMF", Description: "Solve direct with Umfpack backend"},
					{Name: "DIFFUSION", Description: "Use MilliganQuirk molecular diffusion"},
					{Name: "ALPHA_DIFFUSION", Description: "Use alpha diffusion (implies DIFFUSION)"},
					{Name: "USE_BC", Description: "BrooksCorey"},
					{Name: "BCM", Description: "BrooksCorey modified"},
					{Name: "BCMV", Description: "Salinity variable BrooksCorey modified non-coupled"},
					{Name: "BCMVC", Description: "Salinity variable BrooksCorey modified coupled"},
					{Name: "SH2O", Description: "Use simple water"},
					{Name: "TH2O", Description: "Use tabulated water"},
					{Name: "NTH2O", Description: "Use non-tabulated water"},
				},
				Defaults: []string{"BCMVC", "UMF", "SH2O"},
			},
			{
				Name: "gm",
				Directives: []DirectiveDef{
					{Name: "DEBUG", Description: "Print out debug messages"},
				},
				Defaults: []string{"DEBUG"},
			},
		},
	}
}

// Problem returns the named problem definition.
func (c *Config) Problem(name string) (*Problem, error) {
	for i := range c.Problems {
		if c.Problems[i].Name == name {
			return &c.Problems[i], nil
		}
	}
	return nil, errors.Errorf(errors.KindConfig, "unknown problem type %q (available: %v)", name, c.ProblemNames())
}

// ProblemNames returns the configured problem types, sorted.
func (c *Config) ProblemNames() []string {
	names := make([]string, 0, len(c.Problems))
	for _, p := range c.Problems {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Catalog builds the directive catalog of the named problem.
func (c *Config) Catalog(problem string) (*directive.Catalog, error) {
	p, err := c.Problem(problem)
	if err != nil {
		return nil, err
	}
	entries := make([]directive.Entry, 0, len(p.Directives))
	for _, d := range p.Directives {
		entries = append(entries, directive.Entry{Name: d.Name, Description: d.Description})
	}
	cat, err := directive.NewCatalog(entries, p.Defaults)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindConfig, "problem %q", problem)
	}
	return cat, nil
}

// Validate checks problem names and builds every catalog once.
func (c *Config) Validate() error {
	if len(c.Problems) == 0 {
		return errors.New(errors.KindConfig, "no problem types configured")
	}
	seen := make(map[string]bool, len(c.Problems))
	for _, p := range c.Problems {
		if p.Name == "" {
			return errors.New(errors.KindConfig, "problem with empty name")
		}
		if seen[p.Name] {
			return errors.Errorf(errors.KindConfig, "duplicate problem %q", p.Name)
		}
		seen[p.Name] = true
		if _, err := c.Catalog(p.Name); err != nil {
			return err
		}
	}
	if c.Runtime.PlotRefreshSeconds < 0 {
		return errors.New(errors.KindConfig, "plot_refresh_seconds must not be negative")
	}
	return nil
}

// merge overlays non-empty values from o onto c. Problems replace built-ins
// with the same name and are appended otherwise.
func (c *Config) merge(o *Config) {
	if t := o.Toolchain; t != nil {
		setIf(&c.Toolchain.DuneBin, t.DuneBin)
		setIf(&c.Toolchain.ConfigureCommand, t.ConfigureCommand)
		setIf(&c.Toolchain.MakeCommand, t.MakeCommand)
		setIf(&c.Toolchain.ProjectScript, t.ProjectScript)
		setIf(&c.Toolchain.BuildDir, t.BuildDir)
		setIf(&c.Toolchain.CXXFlags, t.CXXFlags)
	}
	if r := o.Runtime; r != nil {
		setIf(&c.Runtime.MPILauncher, r.MPILauncher)
		setIf(&c.Runtime.Debugger, r.Debugger)
		setIf(&c.Runtime.TailMarker, r.TailMarker)
		setIf(&c.Runtime.PlotTool, r.PlotTool)
		if r.PlotRefreshSeconds != 0 {
			c.Runtime.PlotRefreshSeconds = r.PlotRefreshSeconds
		}
	}
	for _, p := range o.Problems {
		replaced := false
		for i := range c.Problems {
			if c.Problems[i].Name == p.Name {
				c.Problems[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			c.Problems = append(c.Problems, p)
		}
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
