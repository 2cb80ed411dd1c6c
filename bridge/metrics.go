// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call results recorded in calls_total.
const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultError    = "error"
)

// Metrics are the Prometheus collectors for sessions. A nil *Metrics
// records nothing.
type Metrics struct {
	callsTotal             *prometheus.CounterVec
	callDuration           *prometheus.HistogramVec
	desynchronizationTotal prometheus.Counter
	restartsTotal          prometheus.Counter
}

// NewMetrics registers the session collectors with registerer
// (prometheus.DefaultRegisterer when nil).
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)
	return &Metrics{
		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "effectbridge",
			Subsystem: "session",
			Name:      "calls_total",
			Help:      "Requests sent to the worker, by message type and result.",
		}, []string{"type", "result"}),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "effectbridge",
			Subsystem: "session",
			Name:      "call_duration_seconds",
			Help:      "Round-trip time of worker requests, by message type.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1, 2},
		}, []string{"type"}),
		desynchronizationTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "effectbridge",
			Subsystem: "session",
			Name:      "desynchronizations_total",
			Help:      "Transport or protocol failures that left the session desynchronized.",
		}),
		restartsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "effectbridge",
			Subsystem: "session",
			Name:      "restarts_total",
			Help:      "Worker restarts performed by Restart.",
		}),
	}
}

func (m *Metrics) observeCall(messageType, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.callsTotal.WithLabelValues(messageType, result).Inc()
	m.callDuration.WithLabelValues(messageType).Observe(duration.Seconds())
}

func (m *Metrics) desynchronized() {
	if m == nil {
		return
	}
	m.desynchronizationTotal.Inc()
}

func (m *Metrics) restarted() {
	if m == nil {
		return
	}
	m.restartsTotal.Inc()
}
