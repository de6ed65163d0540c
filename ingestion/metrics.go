// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/poiesic/docloader/core"
)

const metricsNamespace = "docloader"

// Metrics records run statistics in its own Prometheus registry.
// It implements Monitor.
type Metrics struct {
	registry     *prometheus.Registry
	index        string
	records      *prometheus.CounterVec
	dispatched   prometheus.Counter
	inFlight     prometheus.Gauge
	latency      prometheus.Histogram
	runDuration  prometheus.Gauge
	lastRunTotal *prometheus.GaugeVec
	lastRunEnd   prometheus.Gauge
}

var _ Monitor = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_total",
			Help:      "Records processed, by status and failure cause.",
		}, []string{"index", "status", "cause"}),
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_dispatched_total",
			Help:      "Records handed to a worker for submission.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "records_in_flight",
			Help:      "Records dispatched but not yet completed.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "submission_duration_seconds",
			Help:      "Time from dispatch to outcome for submitted records.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastRunTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_records",
			Help:      "Record counts of the last run, by result.",
		}, []string{"result"}),
		lastRunEnd: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_finished_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	m.registry.MustRegister(m.records, m.dispatched, m.inFlight, m.latency,
		m.runDuration, m.lastRunTotal, m.lastRunEnd)
	return m
}

// Registry exposes the registry for scraping or inspection.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current values in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) Start(job *core.Job) {
	m.index = job.Index()
}

func (m *Metrics) Dispatched(count int) {
	m.dispatched.Add(float64(count))
	m.inFlight.Add(float64(count))
}

func (m *Metrics) Completed(o core.Outcome) {
	status, cause := "success", ""
	if !o.Succeeded() {
		status = "failure"
		if o.Cause != nil {
			cause = string(o.Cause.Kind)
		}
	}
	if o.Skipped {
		status = "skipped"
	}
	// Outcomes produced without a submission carry no duration.
	if o.Duration > 0 {
		m.inFlight.Dec()
		m.latency.Observe(o.Duration.Seconds())
	}
	m.records.WithLabelValues(m.index, status, cause).Inc()
}

func (m *Metrics) Finish(r *core.Report) {
	if r == nil {
		return
	}
	m.runDuration.Set(r.Elapsed().Seconds())
	m.lastRunTotal.WithLabelValues("total").Set(float64(r.Total))
	m.lastRunTotal.WithLabelValues("succeeded").Set(float64(r.Succeeded))
	m.lastRunTotal.WithLabelValues("failed").Set(float64(r.Failed))
	m.lastRunTotal.WithLabelValues("skipped").Set(float64(r.Skipped))
	m.lastRunEnd.Set(float64(r.FinishedAt.Unix()))
}
