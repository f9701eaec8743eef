// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exports the outcome of one build and run as Prometheus
// metrics, written in the node_exporter textfile collector format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"grimm.is/dunerun/internal/errors"
)

const namespace = "dunerun"

// Metrics holds the per-run gauges, labelled by module.
type Metrics struct {
	registry *prometheus.Registry

	BuildSeconds *prometheus.GaugeVec
	RunSeconds   *prometheus.GaugeVec
	ExitCode     *prometheus.GaugeVec
	TimeSteps    *prometheus.GaugeVec
	LogBytes     *prometheus.GaugeVec
	Crashes      *prometheus.GaugeVec
	LastRun      *prometheus.GaugeVec
}

// RunSample is what gets recorded after the primary process ends.
type RunSample struct {
	Module   string
	Input    string
	ExitCode int
	Duration time.Duration
	Steps    int
	LogBytes int64
	// RecentCrashes is the crash count from the run history window.
	RecentCrashes int
	Finished      time.Time
}

// New creates the gauges on a private registry.
func New() *Metrics {
	labels := []string{"module"}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BuildSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall time of the last configure and compile",
		}, labels),
		RunSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last simulation run",
		}, []string{"module", "input"}),
		ExitCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_exit_code",
			Help:      "Exit code of the last simulation run, -1 when killed by a signal",
		}, labels),
		TimeSteps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_time_steps",
			Help:      "Time steps seen in the simulation log",
		}, labels),
		LogBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_log_bytes",
			Help:      "Size of the simulation log",
		}, labels),
		Crashes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recent_crashes",
			Help:      "Crashed runs within the history window",
		}, labels),
		LastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}, labels),
	}
	m.registry.MustRegister(m.BuildSeconds, m.RunSeconds, m.ExitCode,
		m.TimeSteps, m.LogBytes, m.Crashes, m.LastRun)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveBuild records a completed build.
func (m *Metrics) ObserveBuild(module string, d time.Duration) {
	m.BuildSeconds.WithLabelValues(module).Set(d.Seconds())
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(s RunSample) {
	m.RunSeconds.WithLabelValues(s.Module, s.Input).Set(s.Duration.Seconds())
	m.ExitCode.WithLabelValues(s.Module).Set(float64(s.ExitCode))
	m.TimeSteps.WithLabelValues(s.Module).Set(float64(s.Steps))
	m.LogBytes.WithLabelValues(s.Module).Set(float64(s.LogBytes))
	m.Crashes.WithLabelValues(s.Module).Set(float64(s.RecentCrashes))
	if !s.Finished.IsZero() {
		m.LastRun.WithLabelValues(s.Module).Set(float64(s.Finished.Unix()))
	}
}

// WriteTextfile writes every gathered metric to path. The file is replaced
// by rename so a concurrent scrape never sees it half written.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindIO, "cannot write metrics"), errors.AttrPath, path)
	}
	return nil
}
