// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command dunerun builds and runs DuMuX/DUNE simulation projects.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"grimm.is/dunerun/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var code int
	if len(os.Args) > 1 && os.Args[1] == cmd.MonitorCommand {
		code = cmd.RunMonitor(ctx, os.Args[2:])
	} else {
		code = cmd.RunMain(ctx, os.Args[1:])
	}
	stop()
	os.Exit(code)
}
