// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the walker
// service.
//
// Metrics cover walk volume and latency per walk kind, discovered node
// counts, interpretation outcomes, and live stream connections. All
// operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "reverie"
const walkerSubsystem = "walker"

// Kind labels a walk operation for metrics.
type Kind string

const (
	// KindWalk is a raw single-character walk.
	KindWalk Kind = "walk"

	// KindMulti is a trust-gated multi-character walk.
	KindMulti Kind = "multi"

	// KindDream is an agent dream walk.
	KindDream Kind = "dream"

	// KindDiary is an agent diary walk.
	KindDiary Kind = "diary"

	// KindContext is an agent context-enrichment walk.
	KindContext Kind = "context"
)

// WalkerMetrics holds all Prometheus metrics for walk operations.
type WalkerMetrics struct {
	// WalksTotal counts walks by kind and status. A walk that returns a
	// partial result after a store failure counts as an error.
	WalksTotal *prometheus.CounterVec

	// WalkDurationSeconds measures end-to-end walk latency by kind.
	WalkDurationSeconds *prometheus.HistogramVec

	// NodesDiscovered measures how many nodes each walk surfaced.
	NodesDiscovered *prometheus.HistogramVec

	// InterpretationsTotal counts generation calls by kind and status.
	InterpretationsTotal *prometheus.CounterVec

	// ActiveStreams tracks open walk-stream websocket connections.
	ActiveStreams prometheus.Gauge
}

// DefaultMetrics is the singleton instance, populated by InitMetrics.
// Handlers nil-check it so the service also runs unmetered.
var DefaultMetrics *WalkerMetrics

var initOnce sync.Once

// InitMetrics creates and registers the default metrics instance.
// Registration against the default registry happens once; later calls
// return the existing instance.
func InitMetrics() *WalkerMetrics {
	initOnce.Do(registerMetrics)
	return DefaultMetrics
}

func registerMetrics() {
	DefaultMetrics = &WalkerMetrics{
		WalksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: walkerSubsystem,
				Name:      "walks_total",
				Help:      "Total walks by kind and status",
			},
			[]string{"kind", "status"},
		),

		WalkDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: walkerSubsystem,
				Name:      "walk_duration_seconds",
				Help:      "End-to-end walk duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),

		NodesDiscovered: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: walkerSubsystem,
				Name:      "nodes_discovered",
				Help:      "Nodes surfaced per walk",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
			[]string{"kind"},
		),

		InterpretationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: walkerSubsystem,
				Name:      "interpretations_total",
				Help:      "Generation calls by kind and status",
			},
			[]string{"kind", "status"},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: walkerSubsystem,
				Name:      "active_streams",
				Help:      "Open walk-stream websocket connections",
			},
		),
	}
}

// RecordWalk records one completed walk.
func (m *WalkerMetrics) RecordWalk(kind Kind, nodes int, seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.WalksTotal.WithLabelValues(string(kind), status).Inc()
	m.WalkDurationSeconds.WithLabelValues(string(kind)).Observe(seconds)
	m.NodesDiscovered.WithLabelValues(string(kind)).Observe(float64(nodes))
}

// RecordInterpretation records one generation outcome. An empty
// interpretation on a non-empty walk counts as an error.
func (m *WalkerMetrics) RecordInterpretation(kind Kind, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.InterpretationsTotal.WithLabelValues(string(kind), status).Inc()
}

// StreamStarted increments the active stream gauge.
func (m *WalkerMetrics) StreamStarted() {
	m.ActiveStreams.Inc()
}

// StreamEnded decrements the active stream gauge.
func (m *WalkerMetrics) StreamEnded() {
	m.ActiveStreams.Dec()
}
