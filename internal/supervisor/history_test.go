// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package supervisor

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"grimm.is/dunerun/internal/brand"
)

func TestRunEvent_IsCrash(t *testing.T) {
	tests := []struct {
		name     string
		event    RunEvent
		expected bool
	}{
		{
			name:     "clean exit",
			event:    RunEvent{ExitCode: 0},
			expected: false,
		},
		{
			name:     "SIGTERM",
			event:    RunEvent{ExitCode: -1, Signal: syscall.SIGTERM},
			expected: false,
		},
		{
			name:     "SIGINT",
			event:    RunEvent{ExitCode: -1, Signal: syscall.SIGINT},
			expected: false,
		},
		{
			name:     "SIGKILL",
			event:    RunEvent{ExitCode: -1, Signal: syscall.SIGKILL},
			expected: true,
		},
		{
			name:     "SIGFPE",
			event:    RunEvent{ExitCode: -1, Signal: syscall.SIGFPE},
			expected: true,
		},
		{
			name:     "non-zero exit",
			event:    RunEvent{ExitCode: 1},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.IsCrash(); got != tt.expected {
				t.Errorf("IsCrash() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHistory_Persistence(t *testing.T) {
	dir := t.TempDir()
	h := NewHistory(dir, DefaultHistoryConfig())

	now := time.Now()
	if err := h.Record(RunEvent{RunID: "a", ExitCode: 0, Started: now}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := h.Record(RunEvent{RunID: "b", ExitCode: 3, Started: now}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, brand.StateFileName)); err != nil {
		t.Fatalf("state file not written: %v", err)
	}

	reloaded := NewHistory(dir, DefaultHistoryConfig())
	if got := len(reloaded.Events()); got != 2 {
		t.Fatalf("Events() = %d, want 2", got)
	}
	if got := reloaded.RecentCrashes(); got != 1 {
		t.Errorf("RecentCrashes() = %d, want 1", got)
	}
	last, ok := reloaded.Last()
	if !ok || last.RunID != "b" {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestHistory_Prune(t *testing.T) {
	dir := t.TempDir()
	h := NewHistory(dir, HistoryConfig{Window: time.Hour, MaxEvents: 2})

	_ = h.Record(RunEvent{RunID: "old", Started: time.Now().Add(-2 * time.Hour)})
	_ = h.Record(RunEvent{RunID: "1", Started: time.Now()})
	_ = h.Record(RunEvent{RunID: "2", Started: time.Now()})
	_ = h.Record(RunEvent{RunID: "3", Started: time.Now()})

	events := h.Events()
	if len(events) != 2 {
		t.Fatalf("Events() = %d, want 2", len(events))
	}
	if events[0].RunID != "2" || events[1].RunID != "3" {
		t.Errorf("kept %q, %q; want 2, 3", events[0].RunID, events[1].RunID)
	}
}

func TestHistory_CorruptStateResets(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, brand.StateFileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	h := NewHistory(dir, DefaultHistoryConfig())
	if len(h.Events()) != 0 {
		t.Error("corrupt state should load as empty")
	}
	if err := h.Record(RunEvent{RunID: "x", Started: time.Now()}); err != nil {
		t.Errorf("Record() after corrupt state: %v", err)
	}
}
