// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package monitor

import (
	"bytes"
	"io"
	"os"
	"sync"
	"time"

	"grimm.is/dunerun/internal/logging"
)

// tailWindow is how much of the end of the log is scanned per check.
const tailWindow = 64 * 1024

// Progress holds the latest sample of a simulation log.
type Progress struct {
	LogSize   int64     `json:"log_size"`
	LastStep  string    `json:"last_step"`
	Steps     int       `json:"steps"`
	LastCheck time.Time `json:"last_check"`
	Error     string    `json:"error,omitempty"`
}

// ProgressService samples a simulation log in the background and remembers
// the most recent progress line.
type ProgressService struct {
	logger   *logging.Logger
	path     string
	marker   []byte
	interval time.Duration

	mu     sync.RWMutex
	latest Progress
	offset int64

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewProgressService returns a service sampling path every interval for
// lines containing marker.
func NewProgressService(logger *logging.Logger, path, marker string, interval time.Duration) *ProgressService {
	if logger == nil {
		logger = logging.WithComponent("progress")
	}
	if interval <= 0 {
		interval = DefaultRefreshSeconds * time.Second
	}
	return &ProgressService{
		logger:   logger,
		path:     path,
		marker:   []byte(marker),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sampling loop.
func (s *ProgressService) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop ends the loop, takes a final sample and returns it.
func (s *ProgressService) Stop() Progress {
	s.once.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.Check()
	return s.Latest()
}

// Latest returns the most recent sample.
func (s *ProgressService) Latest() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *ProgressService) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Check()
		case <-s.stopCh:
			return
		}
	}
}

// Check samples the log once. Only the bytes written since the previous
// check are scanned for step lines.
func (s *ProgressService) Check() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest.LastCheck = time.Now()
	f, err := os.Open(s.path)
	if err != nil {
		s.latest.Error = err.Error()
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.latest.Error = err.Error()
		return
	}
	s.latest.Error = ""
	size := info.Size()
	if size < s.offset {
		// Truncated: start over.
		s.offset = 0
		s.latest.Steps = 0
		s.latest.LastStep = ""
	}
	s.latest.LogSize = size

	start := s.offset
	if size-start > tailWindow {
		start = size - tailWindow
	}
	buf := make([]byte, size-start)
	if _, err := f.ReadAt(buf, start); err != nil && err != io.EOF {
		s.latest.Error = err.Error()
		return
	}

	// Keep an incomplete last line for the next check.
	end := bytes.LastIndexByte(buf, '\n')
	if end < 0 {
		return
	}
	for _, line := range bytes.Split(buf[:end], []byte{'\n'}) {
		if len(s.marker) > 0 && bytes.Contains(line, s.marker) {
			s.latest.Steps++
			s.latest.LastStep = string(bytes.TrimSpace(line))
		}
	}
	s.offset = start + int64(end) + 1
	s.logger.Debug("progress", "steps", s.latest.Steps, "log_size", size)
}
