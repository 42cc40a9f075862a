// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

// MenuMetrics collectors for the menu tree. A nil *MenuMetrics records nothing.
type MenuMetrics struct {
	RebuildDuration prometheus.Histogram
	Nodes           prometheus.Gauge
	Mutations       *prometheus.CounterVec
	AuditRuns       *prometheus.CounterVec
	AuditViolations prometheus.Counter
}

func NewMenuMetrics() *MenuMetrics {
	return &MenuMetrics{
		RebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "beacon",
			Subsystem: "menu",
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of full nested-set rebuilds in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16), // 0.5ms to ~16s
		}),
		Nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beacon",
			Subsystem: "menu",
			Name:      "nodes",
			Help:      "Number of menu nodes seen by the last rebuild",
		}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "menu",
			Name:      "mutations_total",
			Help:      "Menu tree mutations by operation and result",
		}, []string{"op", "result"}),
		AuditRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "menu",
			Name:      "audit_runs_total",
			Help:      "Scheduled consistency audits by result",
		}, []string{"result"}),
		AuditViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon",
			Subsystem: "menu",
			Name:      "audit_violations_total",
			Help:      "Scheduled audits that found stored coordinates out of date",
		}),
	}
}

// Register adds every collector to the registerer
func (m *MenuMetrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.RebuildDuration, m.Nodes, m.Mutations, m.AuditRuns, m.AuditViolations} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *MenuMetrics) ObserveRebuild(d time.Duration, nodes int) {
	if m == nil {
		return
	}
	m.RebuildDuration.Observe(d.Seconds())
	m.Nodes.Set(float64(nodes))
}

func (m *MenuMetrics) ObserveMutation(op string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.Mutations.WithLabelValues(op, result).Inc()
}

// ObserveAudit counts one audit run; violation marks a consistency failure,
// err any other failure.
func (m *MenuMetrics) ObserveAudit(violation bool, err error) {
	if m == nil {
		return
	}
	switch {
	case violation:
		m.AuditViolations.Inc()
		m.AuditRuns.WithLabelValues("violation").Inc()
	case err != nil:
		m.AuditRuns.WithLabelValues(ResultError).Inc()
	default:
		m.AuditRuns.WithLabelValues(ResultOK).Inc()
	}
}
