// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"grimm.is/dunerun/internal/build"
	"grimm.is/dunerun/internal/config"
	"grimm.is/dunerun/internal/directive"
	"grimm.is/dunerun/internal/errors"
	"grimm.is/dunerun/internal/install"
	"grimm.is/dunerun/internal/logging"
	"grimm.is/dunerun/internal/metrics"
	"grimm.is/dunerun/internal/monitor"
	"grimm.is/dunerun/internal/paramfile"
	"grimm.is/dunerun/internal/project"
	"grimm.is/dunerun/internal/prompt"
	"grimm.is/dunerun/internal/supervisor"
)

// App runs one dunerun invocation. The zero values of the collaborator
// fields select the real implementations.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Cwd     string
	Environ []string
	// Executable is this binary, re-executed as the plot monitor.
	Executable string

	Runner   build.Runner
	Launcher supervisor.Launcher
	Decider  prompt.Source
}

// NewApp returns an App wired to the process's stdio and environment.
func NewApp() *App {
	cwd, _ := os.Getwd()
	exe, _ := os.Executable()
	return &App{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Cwd:        cwd,
		Environ:    os.Environ(),
		Executable: exe,
	}
}

// RunMain runs dunerun with args (excluding the program name) and returns
// the process exit code.
func RunMain(ctx context.Context, args []string) int {
	app := NewApp()
	return ExitCode(app.Stderr, app.Run(ctx, args))
}

// ExitCode prints err, if any, and maps it to an exit code.
func ExitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(w, errorStyle.Render("*** Error: "+err.Error()))
	return 1
}

// Run executes the invocation described by args.
func (a *App) Run(ctx context.Context, args []string) error {
	opts, err := ParseOptions(args)
	if err != nil {
		return err
	}

	logger := a.setupLogging(opts)

	res, err := config.Load(config.LoadOptions{
		Path:    a.configPath(opts),
		DotEnv:  filepath.Join(a.Cwd, ".env"),
		Environ: a.Environ,
	})
	if err != nil {
		return err
	}
	cfg := res.Config
	for _, w := range res.Warnings {
		logger.Warn(w)
	}
	if cfg.Source != "" {
		logger.Debug("loaded configuration", "path", cfg.Source)
	}

	cat, err := cfg.Catalog(opts.Problem)
	if err != nil {
		return err
	}
	if opts.Help {
		PrintHelp(a.Stdout, opts.Problem, cat)
		return nil
	}

	sel, err := directive.Resolve(cat, cfg.BaseFlags, opts.Directives)
	if err != nil {
		return err
	}
	for _, w := range sel.Warnings {
		logger.Warn(w)
	}
	logger.Debug("resolved directives", "tag", sel.Tag, "flags", sel.Flags)

	decider := a.decider()

	projects, err := a.projectsDir(opts)
	if err != nil {
		return err
	}
	src, err := a.selectSource(opts, projects, decider, logger)
	if err != nil {
		return err
	}

	module := project.ModuleName(src.Stem(), sel.Tag)
	if opts.Query && !opts.Unattended() {
		module, err = askDefault(decider, "Module name", module)
		if err != nil {
			return err
		}
	}
	logger.Info("module name is " + module)

	driver := a.driver(cfg, logger)
	err = driver.Scaffold(ctx, build.ScaffoldRequest{
		Module:      module,
		SourceDir:   src.Dir,
		SourceStem:  src.Stem(),
		ProjectsDir: projects,
		IncludeDir:  install.GetLocalIncludeDir(),
		ScriptDir:   install.GetScriptDir(),
		Flags:       sel.Flags,
		Overwrite:   opts.Overwrite,
		ReuseOnly:   opts.RunOnly,
		Unattended:  opts.Unattended(),
	})
	if err != nil {
		return err
	}

	input := ""
	if !opts.OnlyCompile {
		input, err = a.selectInput(opts, src, decider)
		if err != nil {
			return err
		}
		logger.Info("using input file " + input)
		if opts.Query {
			if err := a.editParameters(input, decider, logger); err != nil {
				return err
			}
		}
	}

	rcOpts := project.Options{
		ProjectsDir: projects,
		Source:      src,
		Tag:         sel.Tag,
		Module:      module,
		InputFile:   input,
		BuildDir:    cfg.Toolchain.BuildDir,
	}
	if input != "" && !opts.Unattended() {
		def := project.DefaultRunDir(filepath.Join(projects, module), input)
		rcOpts.RunDir, err = askDefault(decider, "Output directory", def)
		if err != nil {
			return err
		}
	}
	rc, err := project.NewRunContext(rcOpts)
	if err != nil {
		return err
	}

	stats := metrics.New()
	req := build.Request{ProjectDir: rc.ProgramDir, Module: rc.Module, Flags: sel.Flags, Verbose: opts.Verbose}
	if opts.OnlyCompile {
		result, err := driver.Build(ctx, req)
		if err != nil {
			return err
		}
		stats.ObserveBuild(rc.Module, result.Duration)
		a.writeMetrics(opts, stats, logger)
		logger.Info("--only-compile complete")
		return nil
	}

	if err := project.Prepare(rc, !opts.NoClean); err != nil {
		return err
	}
	if driver.NeedsBuild(rc.Executable, false) {
		result, err := driver.Build(ctx, req)
		if err != nil {
			return err
		}
		stats.ObserveBuild(rc.Module, result.Duration)
	}

	return a.run(ctx, opts, cfg, sel, rc, decider, stats, logger)
}

func (a *App) run(ctx context.Context, opts Options, cfg *config.Config, sel directive.Selection,
	rc *project.RunContext, decider prompt.Source, stats *metrics.Metrics, logger *logging.Logger) error {
	command, err := supervisor.BuildCommand(supervisor.CommandSpec{
		Executable: rc.Executable,
		InputFile:  rc.InputFile,
		VTKDir:     rc.VTKDir,
		Selection:  sel,
		Runtime:    cfg.Runtime,
		Debug:      opts.GDB,
		MPI:        opts.MPI,
	})
	if err != nil {
		return err
	}

	launch := supervisor.Launch{
		Command:    command,
		LogPath:    rc.LogPath,
		Env:        childEnv(a.Environ, cfg.Toolchain.DuneBin),
		TailMarker: cfg.Runtime.TailMarker,
		Module:     rc.Module,
		Input:      filepath.Base(rc.InputFile),
	}
	var layout monitor.Layout
	if opts.Plot {
		layout = monitor.Layout{RunDir: rc.RunDir}
		launch.Plot = &supervisor.PlotSpec{
			Layout:         layout,
			Title:          rc.PlotTitle,
			RefreshSeconds: cfg.Runtime.PlotRefreshSeconds,
			Tool:           cfg.Runtime.PlotTool,
			Argv: []string{
				a.Executable, MonitorCommand,
				"--run-dir", rc.RunDir,
				"--tool", cfg.Runtime.PlotTool,
				"--poll", strconv.Itoa(cfg.Runtime.PlotRefreshSeconds),
			},
		}
	}

	logger.Info("running from " + rc.VTKDir)
	history := supervisor.NewHistory(rc.ProgramDir, supervisor.DefaultHistoryConfig())
	sup := supervisor.New(decider, history)
	sup.Out = a.Stdout
	if a.Launcher != nil {
		sup.Launcher = a.Launcher
	}
	sup.Logger = logger.WithComponent("supervisor")
	sup.ProgressInterval = time.Duration(cfg.Runtime.PlotRefreshSeconds) * time.Second

	report, runErr := sup.Run(ctx, launch)
	if !report.Finished.IsZero() {
		stats.ObserveRun(metrics.RunSample{
			Module:        rc.Module,
			Input:         launch.Input,
			ExitCode:      report.Status.Code,
			Duration:      report.Duration,
			Steps:         report.Progress.Steps,
			LogBytes:      report.LogSize,
			RecentCrashes: history.RecentCrashes(),
			Finished:      report.Finished,
		})
		a.writeMetrics(opts, stats, logger)
	}
	if report.MonitorPid != 0 {
		if png, err := monitor.Snapshot(ctx, layout, cfg.Runtime.PlotTool); err != nil {
			logger.Debug("no plot snapshot", "error", err)
		} else {
			logger.Info("plot snapshot written to " + png)
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintln(a.Stdout, doneStyle.Render(fmt.Sprintf("Run complete in %s, %s time steps, log %s (%s)",
		report.Duration.Round(time.Second), humanize.Comma(int64(report.Progress.Steps)),
		rc.LogPath, humanize.Bytes(uint64(report.LogSize)))))
	if report.Progress.LastStep != "" {
		logger.Info("last progress line: " + report.Progress.LastStep)
	}
	if n := history.RecentCrashes(); n > 0 {
		logger.Warn(fmt.Sprintf("%s of the recent runs of %s crashed", humanize.Comma(int64(n)), rc.Module))
	}
	return nil
}

// writeMetrics exports stats when --metrics-file is set. Failures are logged
// and never change the exit status.
func (a *App) writeMetrics(opts Options, stats *metrics.Metrics, logger *logging.Logger) {
	if opts.MetricsFile == "" {
		return
	}
	if err := stats.WriteTextfile(a.abs(opts.MetricsFile)); err != nil {
		logger.Warn("metrics not written", "error", err)
		return
	}
	logger.Debug("metrics written", "path", opts.MetricsFile)
}

func (a *App) setupLogging(opts Options) *logging.Logger {
	cfg := logging.DefaultConfig()
	cfg.Output = a.Stderr
	cfg.JSON = opts.LogJSON
	cfg.Level = logging.ParseLevel(opts.LogLevel)
	if opts.Debug {
		cfg.Level = logging.LevelDebug
	}
	logger := logging.New(cfg)
	logging.SetDefault(logger)
	return logger.WithComponent("dunerun")
}

func (a *App) configPath(opts Options) string {
	if opts.Config != "" {
		return opts.Config
	}
	return install.GetConfigPath(a.Cwd)
}

func (a *App) projectsDir(opts Options) (string, error) {
	dir := opts.Projects
	if dir == "" {
		dir = install.GetProjectsDir(a.Cwd)
	}
	dir = a.abs(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Attr(errors.Wrap(err, errors.KindIO, "cannot create projects directory"), errors.AttrPath, dir)
	}
	return dir, nil
}

func (a *App) selectSource(opts Options, projects string, decider prompt.Source, logger *logging.Logger) (project.Source, error) {
	search := a.Cwd
	if opts.Search != "" {
		search = a.abs(opts.Search)
		if info, err := os.Stat(search); err != nil || !info.IsDir() {
			return project.Source{}, errors.Attr(errors.New(errors.KindConfig, "cannot locate search directory"), errors.AttrPath, search)
		}
	}
	logger.Info("search directory set to " + search)

	if opts.Unattended() {
		src, err := project.FindSource(search, opts.Source, projects)
		if err != nil {
			return src, err
		}
		logger.Info("unattended run for " + src.Path())
		return src, nil
	}
	src, err := project.ChooseSource(search, decider, projects)
	if err != nil {
		return src, err
	}
	logger.Info("selected problem " + src.Path())
	return src, nil
}

func (a *App) selectInput(opts Options, src project.Source, decider prompt.Source) (string, error) {
	if opts.Unattended() {
		return project.PreferredInput(src.Dir, src.Stem(), opts.Input, decider)
	}
	return project.SelectInput(src.Dir, opts.Input, decider)
}

func (a *App) editParameters(input string, decider prompt.Source, logger *logging.Logger) error {
	logger.Info("setting runtime parameters in " + input)
	res, err := paramfile.Edit(input, true, decider)
	if err != nil {
		return err
	}
	if len(res.Changed) == 0 {
		logger.Info("no parameters changed")
		return nil
	}
	logger.Info("updated parameters", "keys", strings.Join(res.Changed, ","), "backup", res.BackupPath)
	logger.Debug("parameter diff\n" + res.Diff())
	return nil
}

func (a *App) driver(cfg *config.Config, logger *logging.Logger) *build.Driver {
	d := build.NewDriver(cfg.Toolchain)
	d.Environ = a.Environ
	d.Stdout = a.Stdout
	d.Stderr = a.Stderr
	d.Logger = logger.WithComponent("build")
	if a.Runner != nil {
		d.Runner = a.Runner
	}
	return d
}

// decider picks a huh form on a terminal and a line reader otherwise.
func (a *App) decider() prompt.Source {
	if a.Decider != nil {
		return a.Decider
	}
	if f, ok := a.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return prompt.NewForm(a.Stderr)
	}
	return prompt.NewLine(a.Stdin, a.Stderr)
}

func (a *App) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(a.Cwd, p)
}

// askDefault asks a free-text question; an empty answer keeps def.
func askDefault(src prompt.Source, title, def string) (string, error) {
	answer, err := src.Ask(prompt.Question{Kind: prompt.KindText, Title: title, Default: def})
	if err != nil {
		return "", err
	}
	if answer = strings.TrimSpace(answer); answer == "" {
		return def, nil
	}
	return answer, nil
}

// childEnv appends the DUNE bin directory to PATH.
func childEnv(environ []string, duneBin string) []string {
	env := make([]string, 0, len(environ)+1)
	path := ""
	for _, kv := range environ {
		if v, ok := strings.CutPrefix(kv, "PATH="); ok {
			path = v
			continue
		}
		env = append(env, kv)
	}
	if duneBin != "" {
		if path != "" {
			path += string(os.PathListSeparator)
		}
		path += duneBin
	}
	return append(env, "PATH="+path)
}
