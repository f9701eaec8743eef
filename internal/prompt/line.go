// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"grimm.is/dunerun/internal/errors"
)

// Line reads answers one line at a time. It works on any reader, which makes
// it the fallback when stdin is not a terminal.
type Line struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLine returns a line-oriented Source reading from in and writing prompts to out.
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: bufio.NewReader(in), out: out}
}

func (l *Line) Ask(q Question) (string, error) {
	switch q.Kind {
	case KindParameter:
		fmt.Fprintf(l.out, "%s %s\n", groupStyle.Render("# "+q.Group), commentStyle.Render(q.Comment))
		fmt.Fprintf(l.out, "%s%s%s%s",
			keyStyle.Render(q.Key), keyStyle.Render("["), valueStyle.Render(q.Value), keyStyle.Render("] = "))
	case KindChoice:
		for i, opt := range q.Options {
			fmt.Fprintf(l.out, "%s\n", keyStyle.Render(fmt.Sprintf("%s [%d]", opt, i)))
		}
		fmt.Fprintf(l.out, "%s %s", markerStyle.Render(">"), titleStyle.Render(fmt.Sprintf("%s [%s]: ", q.Title, q.Default)))
	case KindConfirm:
		fmt.Fprintf(l.out, "%s", markerStyle.Render(q.Title+" [Y]/N: "))
	default:
		fmt.Fprintf(l.out, "%s", titleStyle.Render(fmt.Sprintf("%s [%s]: ", q.Title, q.Default)))
	}
	return l.readLine()
}

func (l *Line) Show(text string) {
	fmt.Fprintln(l.out, contextStyle.Render(text))
}

func (l *Line) readLine() (string, error) {
	s, err := l.in.ReadString('\n')
	if err != nil {
		if err == io.EOF && s != "" {
			return strings.TrimRight(s, "\r\n"), nil
		}
		return "", errors.Wrap(err, errors.KindIO, "failed to read answer")
	}
	return strings.TrimRight(s, "\r\n"), nil
}
