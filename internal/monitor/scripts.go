// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package monitor follows a running simulation with gnuplot. It writes the
// plot scripts, waits for the data file and then hands the process over to
// the plotting tool.
package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"grimm.is/dunerun/internal/errors"
)

// File names below the run directory.
const (
	ScriptDir       = "gnuplot"
	LoopScript      = "loop.scr"
	PNGScript       = "create_png.scr"
	MultiplotScript = "multiplot.scr"
	PNGFile         = "monitor.png"
	DataFile        = "gnuplot.dat"
)

// DefaultRefreshSeconds is the pause between redraws.
const DefaultRefreshSeconds = 5

// Layout locates the monitor files of one run directory.
type Layout struct {
	RunDir string
}

// Dir returns the script directory.
func (l Layout) Dir() string { return filepath.Join(l.RunDir, ScriptDir) }

// Data returns the data file written by the simulation.
func (l Layout) Data() string { return filepath.Join(l.RunDir, "vtk", DataFile) }

// Script returns the path of a script in Dir.
func (l Layout) Script(name string) string { return filepath.Join(l.Dir(), name) }

// PlotTitle turns a run name into the multiplot title. Underscores would be
// taken as subscripts by gnuplot.
func PlotTitle(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

// WriteScripts writes loop.scr, create_png.scr and multiplot.scr.
func WriteScripts(l Layout, title string, refreshSeconds int) error {
	if refreshSeconds <= 0 {
		refreshSeconds = DefaultRefreshSeconds
	}
	dir := l.Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindIO, "failed to create plot script directory"), errors.AttrPath, dir)
	}

	scripts := map[string]string{
		LoopScript: fmt.Sprintf(`while (1) {
    reset
    load %q
    pause %d
}
`, l.Script(MultiplotScript), refreshSeconds),

		PNGScript: fmt.Sprintf(`    reset
    set terminal pngcairo
    set output %q
    load %q
    unset output
`, l.Script(PNGFile), l.Script(MultiplotScript)),

		MultiplotScript: fmt.Sprintf(`file9 = %q
set multiplot layout 1,2 title %q font ",14"
unset key
set grid
hours(x) = x/3600
f(x) = 1/x
set title "Recuperacion acumulada"
set xlabel "Horas"
set ylabel "Por ciento del volumen inicial"
plot  file9 using (hours($2)):($7) with linespoints
set title "Convergencia"
set xlabel "Paso"
set ylabel "1/T"
set logscale y
plot file9 using ($1):(f($3)) with lines
unset logscale y
unset multiplot
`, l.Data(), PlotTitle(title)),
	}

	for name, body := range scripts {
		path := l.Script(name)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			return errors.Attr(errors.Wrapf(err, errors.KindIO, "failed to write %s", name), errors.AttrPath, path)
		}
	}
	return nil
}
