// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package prompt supplies the decision sources behind every interactive
// question dunerun asks: parameter values, teardown confirmation and
// problem/input selection. Orchestration code only sees Source, so the same
// logic runs against a terminal, a huh form or a fixed list of answers.
package prompt

import "strings"

// Kind tells a Source how to present a question.
type Kind int

const (
	KindText Kind = iota
	// KindParameter asks for a replacement value of one parameter entry.
	KindParameter
	// KindConfirm asks a yes/no question; callers validate the raw answer.
	KindConfirm
	// KindChoice asks for an index into Options.
	KindChoice
)

// Question is one request for input.
type Question struct {
	Kind  Kind
	Title string
	// Default is returned by unattended sources.
	Default string

	// Parameter context.
	Group   string
	Key     string
	Value   string
	Comment string

	// Choice options, presented with their index.
	Options []string
}

// Source answers questions. An empty answer means "keep the current value"
// for parameters and "take the default" elsewhere.
type Source interface {
	Ask(q Question) (string, error)
	// Show displays context that needs no answer, such as a comment line.
	Show(text string)
}

// IsYes reports whether answer is Y or y.
func IsYes(answer string) bool {
	a := strings.TrimSpace(answer)
	return a == "Y" || a == "y"
}

// IsNo reports whether answer is N or n.
func IsNo(answer string) bool {
	a := strings.TrimSpace(answer)
	return a == "N" || a == "n"
}

// Unattended answers every question with its default and shows nothing.
type Unattended struct{}

func (Unattended) Ask(q Question) (string, error) { return q.Default, nil }
func (Unattended) Show(string)                    {}
