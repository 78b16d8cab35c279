/*
Copyright 2025 The Glimpse Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes prometheus instrumentation for the diagnostics
// runtime. Recording works whether or not Register has been called; metrics
// are simply not exported until they are registered.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "glimpse"

var (
	requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Counter of requests entering the diagnostics lifecycle, by handling mode.",
		},
		[]string{"mode"},
	)

	requestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Histogram of per-request diagnostics execution time.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	collectorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "collector_failures_total",
			Help:      "Counter of collector invocations converted to failure results.",
		},
		[]string{"kind", "collector"},
	)

	collectorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "collector_duration_seconds",
			Help:      "Histogram of individual collector execution time.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1},
		},
		[]string{"kind", "collector"},
	)

	policyDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "policy_decisions_total",
			Help:      "Counter of narrowed policy decisions, by lifecycle event and resulting policy.",
		},
		[]string{"event", "policy"},
	)

	resourceResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "resource_responses_total",
			Help:      "Counter of resource dispatch outcomes, by HTTP status.",
		},
		[]string{"status"},
	)

	persistenceFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "persistence_failures_total",
			Help:      "Counter of snapshot save attempts that failed and were swallowed.",
		},
	)
)

var registerOnce sync.Once

// Register registers all runtime metrics with the given registerer, or the
// default registerer when nil. Safe to call more than once.
func Register(registerer prometheus.Registerer) {
	registerOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		registerer.MustRegister(
			requestCounter,
			requestDuration,
			collectorFailures,
			collectorLatency,
			policyDecisions,
			resourceResponses,
			persistenceFailures,
		)
	})
}

// RecordRequest counts a request entering the lifecycle.
func RecordRequest(mode string) {
	requestCounter.WithLabelValues(mode).Inc()
}

// RecordRequestDuration observes the elapsed execution time of a completed
// request.
func RecordRequestDuration(elapsed time.Duration) {
	if elapsed < 0 {
		return
	}
	requestDuration.Observe(elapsed.Seconds())
}

// RecordCollectorFailure counts a collector invocation that was converted to
// a failure result.
func RecordCollectorFailure(kind, collector string) {
	collectorFailures.WithLabelValues(kind, collector).Inc()
}

// RecordCollectorLatency observes one collector invocation.
func RecordCollectorLatency(kind, collector string, elapsed time.Duration) {
	collectorLatency.WithLabelValues(kind, collector).Observe(elapsed.Seconds())
}

// RecordPolicyDecision counts a narrowed policy decision.
func RecordPolicyDecision(event, policy string) {
	policyDecisions.WithLabelValues(event, policy).Inc()
}

// RecordResourceResponse counts a resource dispatch outcome.
func RecordResourceResponse(status int) {
	resourceResponses.WithLabelValues(strconv.Itoa(status)).Inc()
}

// RecordPersistenceFailure counts a swallowed snapshot save failure.
func RecordPersistenceFailure() {
	persistenceFailures.Inc()
}
