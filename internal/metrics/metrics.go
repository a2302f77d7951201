// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics counts pipeline activity with Prometheus collectors on a
// private registry. A CLI run writes the registry to a textfile at exit so
// a node exporter can pick it up.
//
// All recorder methods accept a nil *Metrics and do nothing, so components
// can be used without metrics in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "paperpal"

// Metrics holds the collectors for one process.
type Metrics struct {
	Registry *prometheus.Registry

	SourcePages   *prometheus.CounterVec // result: ok, gap
	SourcePapers  *prometheus.CounterVec // outcome: yielded, duplicate, too_old, too_new
	JudgeCalls    *prometheus.CounterVec // task, result: ok, failed, malformed
	JudgeLatency  *prometheus.HistogramVec
	ScoreResults  *prometheus.CounterVec // status: ok, failed, canceled, cached
	ProfileEvents *prometheus.CounterVec // event: updated, compressed, failed, reset
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		SourcePages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "pages_total",
			Help:      "Paper source pages by result.",
		}, []string{"result"}),
		SourcePapers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "papers_total",
			Help:      "Paper source entries by outcome.",
		}, []string{"outcome"}),
		JudgeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "judge",
			Name:      "calls_total",
			Help:      "Judge calls by task and result.",
		}, []string{"task", "result"}),
		JudgeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "judge",
			Name:      "call_duration_seconds",
			Help:      "Judge call latency by task.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"task"}),
		ScoreResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "results_total",
			Help:      "Score results by status.",
		}, []string{"status"}),
		ProfileEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "events_total",
			Help:      "Preference memory events.",
		}, []string{"event"}),
	}
	m.Registry.MustRegister(
		m.SourcePages,
		m.SourcePapers,
		m.JudgeCalls,
		m.JudgeLatency,
		m.ScoreResults,
		m.ProfileEvents,
	)
	return m
}

// Page records a fetched page ("ok") or a recorded gap ("gap").
func (m *Metrics) Page(result string) {
	if m == nil {
		return
	}
	m.SourcePages.WithLabelValues(result).Inc()
}

// Paper records what happened to one source entry.
func (m *Metrics) Paper(outcome string) {
	if m == nil {
		return
	}
	m.SourcePapers.WithLabelValues(outcome).Inc()
}

// JudgeCall records one judge call and its duration.
func (m *Metrics) JudgeCall(task, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.JudgeCalls.WithLabelValues(task, result).Inc()
	m.JudgeLatency.WithLabelValues(task).Observe(d.Seconds())
}

// Score records one score result status.
func (m *Metrics) Score(status string) {
	if m == nil {
		return
	}
	m.ScoreResults.WithLabelValues(status).Inc()
}

// Profile records a preference memory event.
func (m *Metrics) Profile(event string) {
	if m == nil {
		return
	}
	m.ProfileEvents.WithLabelValues(event).Inc()
}

// WriteFile writes the registry in Prometheus text format to path.
func (m *Metrics) WriteFile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
