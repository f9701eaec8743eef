// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package supervisor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"grimm.is/dunerun/internal/brand"
	"grimm.is/dunerun/internal/errors"
)

const (
	// DefaultWindow is how long run events are kept.
	DefaultWindow = 30 * 24 * time.Hour
	// DefaultMaxEvents caps the number of kept run events.
	DefaultMaxEvents = 50
)

// HistoryConfig holds run history retention settings.
type HistoryConfig struct {
	Window    time.Duration
	MaxEvents int
}

// DefaultHistoryConfig returns the default retention.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Window:    DefaultWindow,
		MaxEvents: DefaultMaxEvents,
	}
}

// RunEvent records how one simulation run ended.
type RunEvent struct {
	RunID    string         `json:"run_id"`
	Module   string         `json:"module"`
	Input    string         `json:"input"`
	ExitCode int            `json:"exit_code"`
	Signal   syscall.Signal `json:"signal"`
	Started  time.Time      `json:"started"`
	Duration time.Duration  `json:"duration"`
}

// IsCrash returns true if the run died rather than finished or was
// asked to stop.
func (e RunEvent) IsCrash() bool {
	switch e.Signal {
	case syscall.SIGKILL, syscall.SIGSEGV, syscall.SIGBUS, syscall.SIGABRT, syscall.SIGFPE:
		return true
	case syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP:
		return false
	}

	// Non-zero exit without a signal: the solver gave up.
	return e.ExitCode != 0
}

// State holds the persisted run history.
type State struct {
	Events []RunEvent `json:"events"`
}

// History persists run events of one program directory.
type History struct {
	config   HistoryConfig
	stateDir string
	state    State
}

// NewHistory loads the history kept in stateDir.
func NewHistory(stateDir string, config HistoryConfig) *History {
	h := &History{
		config:   config,
		stateDir: stateDir,
	}
	_ = h.loadState() // Best-effort load
	return h
}

// Record appends e and saves the history.
func (h *History) Record(e RunEvent) error {
	h.state.Events = append(h.state.Events, e)
	h.prune()
	return h.saveState()
}

// Events returns the kept events, oldest first.
func (h *History) Events() []RunEvent {
	h.prune()
	return append([]RunEvent(nil), h.state.Events...)
}

// Last returns the most recent event.
func (h *History) Last() (RunEvent, bool) {
	if len(h.state.Events) == 0 {
		return RunEvent{}, false
	}
	return h.state.Events[len(h.state.Events)-1], true
}

// RecentCrashes counts the kept events that were crashes.
func (h *History) RecentCrashes() int {
	n := 0
	for _, e := range h.Events() {
		if e.IsCrash() {
			n++
		}
	}
	return n
}

// prune drops events outside the window and beyond the cap.
func (h *History) prune() {
	cutoff := time.Now().Add(-h.config.Window)
	filtered := make([]RunEvent, 0, len(h.state.Events))
	for _, e := range h.state.Events {
		if h.config.Window <= 0 || e.Started.After(cutoff) {
			filtered = append(filtered, e)
		}
	}
	if h.config.MaxEvents > 0 && len(filtered) > h.config.MaxEvents {
		filtered = filtered[len(filtered)-h.config.MaxEvents:]
	}
	h.state.Events = filtered
}

func (h *History) statePath() string {
	return filepath.Join(h.stateDir, brand.StateFileName)
}

func (h *History) loadState() error {
	data, err := os.ReadFile(h.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No state yet
		}
		return err
	}

	if err := json.Unmarshal(data, &h.state); err != nil {
		// Corrupt state - reset
		h.state = State{}
	}
	return nil
}

func (h *History) saveState() error {
	if err := os.MkdirAll(h.stateDir, 0755); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to create state directory")
	}

	data, err := json.MarshalIndent(h.state, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "failed to encode run history")
	}

	if err := os.WriteFile(h.statePath(), data, 0644); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindIO, "failed to save run history"), errors.AttrPath, h.statePath())
	}
	return nil
}
