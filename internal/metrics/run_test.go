// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveBuild("dune-lswf", 90*time.Second)
	m.ObserveRun(RunSample{
		Module:        "dune-lswf",
		Input:         "basic.input",
		ExitCode:      0,
		Duration:      2 * time.Minute,
		Steps:         120,
		LogBytes:      4096,
		RecentCrashes: 1,
		Finished:      time.Unix(1700000000, 0),
	})

	assert.Equal(t, 90.0, testutil.ToFloat64(m.BuildSeconds.WithLabelValues("dune-lswf")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.RunSeconds.WithLabelValues("dune-lswf", "basic.input")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.TimeSteps.WithLabelValues("dune-lswf")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Crashes.WithLabelValues("dune-lswf")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastRun.WithLabelValues("dune-lswf")))

	expected := `
# HELP dunerun_run_exit_code Exit code of the last simulation run, -1 when killed by a signal
# TYPE dunerun_run_exit_code gauge
dunerun_run_exit_code{module="dune-lswf"} 0
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "dunerun_run_exit_code"))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveRun(RunSample{Module: "dune-gm", Input: "a.input", ExitCode: 3, Steps: 7})

	path := filepath.Join(t.TempDir(), "dunerun.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `dunerun_run_exit_code{module="dune-gm"} 3`)
	assert.Contains(t, string(data), `dunerun_run_time_steps{module="dune-gm"} 7`)
}

func TestWriteTextfileMissingDir(t *testing.T) {
	m := New()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}
