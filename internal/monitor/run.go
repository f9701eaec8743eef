// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"grimm.is/dunerun/internal/errors"
	"grimm.is/dunerun/internal/logging"
	"grimm.is/dunerun/internal/proc"
)

// Options configures a monitor run.
type Options struct {
	Layout   Layout
	PlotTool string
	// Poll is the fallback polling interval while waiting for data.
	Poll   time.Duration
	Out    io.Writer
	Logger *logging.Logger

	// exec replaces the process image; swapped in tests.
	exec func(argv, env []string) error
}

// Available reports whether the plotting tool is on PATH.
func Available(tool string) (string, bool) {
	path, err := exec.LookPath(tool)
	return path, err == nil
}

// Run waits for the data file and then replaces the current process with
// "<tool> loop.scr" running in the script directory. It only returns on
// error or cancellation.
func Run(ctx context.Context, opts Options) error {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.WithComponent("monitor")
	}

	tool, ok := Available(opts.PlotTool)
	if !ok {
		return errors.Errorf(errors.KindLaunch, "%s is not available on this system", opts.PlotTool)
	}

	data := opts.Layout.Data()
	if !exists(data) {
		fmt.Fprintf(out, "Waiting for %s\n", data)
	}
	if err := WaitForData(ctx, data, opts.Poll); err != nil {
		return err
	}
	fmt.Fprintf(out, "Found %s\n", data)

	if err := os.Chdir(opts.Layout.Dir()); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindIO, "failed to enter plot script directory"), errors.AttrPath, opts.Layout.Dir())
	}
	logger.Debug("exec plot tool", "tool", tool, "script", LoopScript)

	execFn := opts.exec
	if execFn == nil {
		execFn = proc.Exec
	}
	return execFn([]string{tool, LoopScript}, nil)
}

// Snapshot renders the current data to monitor.png with create_png.scr.
func Snapshot(ctx context.Context, l Layout, plotTool string) (string, error) {
	tool, ok := Available(plotTool)
	if !ok {
		return "", errors.Errorf(errors.KindLaunch, "%s is not available on this system", plotTool)
	}
	if !exists(l.Data()) {
		return "", errors.Attr(errors.New(errors.KindIO, "no plot data"), errors.AttrPath, l.Data())
	}

	cmd := exec.CommandContext(ctx, tool, PNGScript)
	cmd.Dir = l.Dir()
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", errors.Wrapf(err, errors.KindRuntime, "%s %s: %s", plotTool, PNGScript, out)
	}
	return l.Script(PNGFile), nil
}
