// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"grimm.is/dunerun/internal/brand"
	"grimm.is/dunerun/internal/directive"
)

var (
	usageStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	flagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	doneStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
)

// PrintHelp writes the usage text, the flags and the directive listing of
// the selected problem.
func PrintHelp(w io.Writer, problem string, cat *directive.Catalog) {
	fmt.Fprintln(w, usageStyle.Render(fmt.Sprintf("*** Usage:\n  %s [options] [--D<NAME> ...]\n  %s", brand.BinaryName, brand.VersionString())))

	var sb strings.Builder
	var o Options
	fs := newFlagSet(&o, &sb)
	fs.VisitAll(func(f *flag.Flag) {
		if f.Name == "MPI" {
			return
		}
		name, usage := flag.UnquoteUsage(f)
		line := "  --" + f.Name
		if name != "" {
			line += "=" + name
		}
		fmt.Fprintf(&sb, "%-24s %s\n", line, usage)
	})
	fmt.Fprint(w, flagStyle.Render(strings.TrimRight(sb.String(), "\n")))
	fmt.Fprintln(w)

	if cat == nil {
		return
	}
	fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("# Directives for %s:", problem)))
	fmt.Fprint(w, cat.Describe())
}
