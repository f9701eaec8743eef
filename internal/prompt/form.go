// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package prompt

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/huh"

	"grimm.is/dunerun/internal/errors"
)

// Form asks each question through a single-field huh form. Use it when stdin
// is a terminal.
type Form struct {
	out io.Writer
}

// NewForm returns a huh-backed Source that prints context lines to out.
func NewForm(out io.Writer) *Form {
	return &Form{out: out}
}

func (f *Form) Ask(q Question) (string, error) {
	var answer string
	var field huh.Field

	switch q.Kind {
	case KindParameter:
		field = huh.NewInput().
			Title(fmt.Sprintf("%s [%s]", q.Key, q.Value)).
			Description(fmt.Sprintf("# %s %s", q.Group, q.Comment)).
			Placeholder(q.Value).
			Value(&answer)
	case KindChoice:
		opts := make([]huh.Option[string], 0, len(q.Options))
		for i, o := range q.Options {
			opts = append(opts, huh.NewOption(fmt.Sprintf("%s [%d]", o, i), strconv.Itoa(i)))
		}
		answer = q.Default
		field = huh.NewSelect[string]().
			Title(q.Title).
			Options(opts...).
			Value(&answer)
	case KindConfirm:
		field = huh.NewInput().
			Title(q.Title + " [Y]/N").
			Value(&answer)
	default:
		field = huh.NewInput().
			Title(q.Title).
			Placeholder(q.Default).
			Value(&answer)
	}

	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return "", errors.Wrap(err, errors.KindIO, "prompt aborted")
	}
	return answer, nil
}

func (f *Form) Show(text string) {
	fmt.Fprintln(f.out, contextStyle.Render(text))
}
