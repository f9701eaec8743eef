// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package monitor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WaitForData blocks until path exists or ctx is done. It watches the parent
// directory and falls back to polling every poll interval when the watch
// cannot be set up or misses an event.
func WaitForData(ctx context.Context, path string, poll time.Duration) error {
	if exists(path) {
		return nil
	}
	if poll <= 0 {
		poll = DefaultRefreshSeconds * time.Second
	}

	var events chan fsnotify.Event
	var watchErrs chan error
	if w, err := fsnotify.NewWatcher(); err == nil {
		defer w.Close()
		if err := w.Add(filepath.Dir(path)); err == nil {
			events = w.Events
			watchErrs = w.Errors
		}
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		// Checked after the watch is in place so a create between the first
		// check and Add is not lost.
		if exists(path) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		case _, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
			}
		case <-ticker.C:
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
