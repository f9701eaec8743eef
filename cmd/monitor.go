// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"flag"
	"os"
	"time"

	"grimm.is/dunerun/internal/brand"
	"grimm.is/dunerun/internal/logging"
	"grimm.is/dunerun/internal/monitor"
)

// MonitorCommand is the hidden subcommand run by the plot monitor child.
const MonitorCommand = "_monitor"

// RunMonitor runs the plot monitor child. args are the arguments after
// `dunerun _monitor`. On success the process becomes the plotting tool and
// this function does not return.
func RunMonitor(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet(MonitorCommand, flag.ContinueOnError)
	runDir := flags.String("run-dir", "", "Run directory holding vtk/ and gnuplot/")
	tool := flags.String("tool", "gnuplot", "Plotting tool")
	poll := flags.Int("poll", monitor.DefaultRefreshSeconds, "Polling interval in seconds while waiting for data")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	logCfg := logging.DefaultConfig()
	logCfg.Output = os.Stderr
	logger := logging.New(logCfg).WithComponent("monitor")
	logging.SetDefault(logger)

	if *runDir == "" {
		logger.Error("--run-dir is required")
		return 2
	}
	if err := SetProcessName(brand.LowerName + "-monitor"); err != nil {
		logger.Debug("cannot set process name", "error", err)
	}

	err := monitor.Run(ctx, monitor.Options{
		Layout:   monitor.Layout{RunDir: *runDir},
		PlotTool: *tool,
		Poll:     time.Duration(*poll) * time.Second,
		Out:      os.Stdout,
		Logger:   logger,
	})
	return ExitCode(os.Stderr, err)
}
