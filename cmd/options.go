// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"flag"
	"io"
	"os"

	"grimm.is/dunerun/internal/brand"
	"grimm.is/dunerun/internal/directive"
	"grimm.is/dunerun/internal/errors"
)

// DefaultProblem is used when neither --problem nor DUNERUN_PROBLEM is set.
const DefaultProblem = "lswf"

// Options are the parsed command line.
type Options struct {
	Problem  string
	Config   string
	Projects string
	Search   string
	Source   string

	OnlyCompile bool
	NoClean     bool
	Query       bool
	Verbose     bool
	Overwrite   bool
	RunOnly     bool
	Input       string
	Plot        bool
	MPI         int
	GDB         bool

	Debug       bool
	LogLevel    string
	LogJSON     bool
	MetricsFile string
	Help        bool

	// Directives are the --D<NAME> tokens in order.
	Directives []string
}

// Unattended reports whether a specific source was named, which skips the
// interactive problem, module and run directory questions.
func (o Options) Unattended() bool { return o.Source != "" }

func newFlagSet(o *Options, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(brand.BinaryName, flag.ContinueOnError)
	fs.SetOutput(out)

	problem := os.Getenv(brand.EnvVar("PROBLEM"))
	if problem == "" {
		problem = DefaultProblem
	}
	fs.StringVar(&o.Problem, "problem", problem, "problem type whose directive catalog is used")
	fs.StringVar(&o.Config, "config", "", "tool configuration file (HCL or YAML)")
	fs.StringVar(&o.Projects, "projects", "", "output directory for generated projects (default ./projects)")
	fs.StringVar(&o.Search, "search", "", "directory searched for problem sources (default ./)")
	fs.StringVar(&o.Source, "source", "", "solve `problem` with defaults, unattended")
	fs.BoolVar(&o.OnlyCompile, "only-compile", false, "remove build-cmake and compile, do not run")
	fs.BoolVar(&o.NoClean, "no-clean", false, "keep the existing run directory")
	fs.BoolVar(&o.Query, "query", false, "edit the input file parameters interactively")
	fs.BoolVar(&o.Verbose, "verbose", false, "show stderr of the configure step")
	fs.BoolVar(&o.Overwrite, "overwrite", false, "force creation of a new project")
	fs.BoolVar(&o.RunOnly, "run", false, "short circuit to run an existing project")
	fs.StringVar(&o.Input, "input", "", "with several input files, use the one indexed by `n`")
	fs.BoolVar(&o.Plot, "plot", false, "follow the simulation with gnuplot")
	fs.IntVar(&o.MPI, "mpi", 0, "run with mpirun --np `n` (requires --DAMG)")
	fs.IntVar(&o.MPI, "MPI", 0, "alias of --mpi")
	fs.BoolVar(&o.GDB, "gdb", false, "run the simulation under gdb")
	fs.BoolVar(&o.Debug, "debug", false, "print debug messages (same as --log-level=debug)")
	fs.StringVar(&o.LogLevel, "log-level", "info", "minimum log `level`: debug, info, warn or error")
	fs.BoolVar(&o.LogJSON, "log-json", false, "log as JSON")
	fs.StringVar(&o.MetricsFile, "metrics-file", "", "write run metrics to `file` in Prometheus textfile format")
	fs.BoolVar(&o.Help, "help", false, "print this text and the directive listing")
	return fs
}

// ParseOptions parses args, which exclude the program name.
func ParseOptions(args []string) (Options, error) {
	var o Options
	tokens, rest, err := directive.ParseArgs(args)
	if err != nil {
		return o, err
	}
	o.Directives = tokens

	fs := newFlagSet(&o, io.Discard)
	if err := fs.Parse(rest); err != nil {
		if err == flag.ErrHelp {
			o.Help = true
			return o, nil
		}
		return o, errors.Wrap(err, errors.KindConfig, "invalid arguments")
	}
	if fs.NArg() > 0 {
		return o, errors.Errorf(errors.KindConfig, "unexpected argument %q", fs.Arg(0))
	}
	if o.MPI < 0 {
		return o, errors.New(errors.KindConfig, "--mpi needs a positive process count")
	}
	return o, nil
}
