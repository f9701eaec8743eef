// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package prompt

import (
	"sync"

	"grimm.is/dunerun/internal/errors"
)

// Scripted replays pre-supplied answers in order and records what was asked.
type Scripted struct {
	mu      sync.Mutex
	answers []string
	Asked   []Question
	Shown   []string
}

// NewScripted returns a Source that answers with answers in order.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

// Ask returns the next scripted answer, or an error once they run out.
func (s *Scripted) Ask(q Question) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asked = append(s.Asked, q)
	if len(s.answers) == 0 {
		return "", errors.Errorf(errors.KindIO, "no scripted answer for %q", q.Title)
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func (s *Scripted) Show(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Shown = append(s.Shown, text)
}

// Remaining returns the number of unused answers.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}
