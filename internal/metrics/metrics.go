// Copyright Project Contour Authors
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

// Package metrics provides Prometheus metrics for the snapshot cache.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	BuildInfoGauge = "xds_cache_build_info"

	WatchesActiveGauge     = "xds_cache_watches_active"
	WatchesCreatedTotal    = "xds_cache_watches_created_total"
	WatchesDispatchedTotal = "xds_cache_watches_dispatched_total"
	WatchesCanceledTotal   = "xds_cache_watches_canceled_total"
	SnapshotsSetTotal      = "xds_cache_snapshots_set_total"
	FetchOutcomeTotal      = "xds_cache_fetch_outcome_total"
)

// Metrics provides Prometheus metrics for the cache core: watch
// lifecycle, snapshot turnover, and fetch outcomes, each broken down
// by resource type URL where that distinction is useful.
type Metrics struct {
	buildInfoGauge *prometheus.GaugeVec

	watchesActiveGauge     *prometheus.GaugeVec
	watchesCreatedTotal    *prometheus.CounterVec
	watchesDispatchedTotal *prometheus.CounterVec
	watchesCanceledTotal   *prometheus.CounterVec
	snapshotsSetTotal      *prometheus.CounterVec
	fetchOutcomeTotal      *prometheus.CounterVec
}

// NewMetrics creates a new set of metrics and registers them with the
// supplied registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		buildInfoGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: BuildInfoGauge,
				Help: "Build information for the cache process. Labels include the branch and git SHA it was built from, and its version.",
			},
			[]string{"branch", "revision", "version"},
		),
		watchesActiveGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: WatchesActiveGauge,
				Help: "Number of watches currently installed, by type URL.",
			},
			[]string{"type_url"},
		),
		watchesCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: WatchesCreatedTotal,
				Help: "Total number of watches installed by CreateWatch, by type URL.",
			},
			[]string{"type_url"},
		),
		watchesDispatchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: WatchesDispatchedTotal,
				Help: "Total number of watches that fired with a response, by type URL.",
			},
			[]string{"type_url"},
		),
		watchesCanceledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: WatchesCanceledTotal,
				Help: "Total number of watches removed by CancelWatch, by type URL.",
			},
			[]string{"type_url"},
		),
		snapshotsSetTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: SnapshotsSetTotal,
				Help: "Total number of SetSnapshot calls, by node id.",
			},
			[]string{"node_id"},
		),
		fetchOutcomeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: FetchOutcomeTotal,
				Help: "Total number of Fetch calls, by outcome (ok, not_found, up_to_date, error).",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		m.buildInfoGauge,
		m.watchesActiveGauge,
		m.watchesCreatedTotal,
		m.watchesDispatchedTotal,
		m.watchesCanceledTotal,
		m.snapshotsSetTotal,
		m.fetchOutcomeTotal,
	)

	return m
}

// SetBuildInfo records the build's branch, revision and version as a
// single gauge sample of value 1, following the usual Prometheus
// build-info convention.
func (m *Metrics) SetBuildInfo(branch, revision, version string) {
	m.buildInfoGauge.WithLabelValues(branch, revision, version).Set(1)
}

// WatchCreated records a watch installed for typeURL.
func (m *Metrics) WatchCreated(typeURL string) {
	m.watchesCreatedTotal.WithLabelValues(typeURL).Inc()
	m.watchesActiveGauge.WithLabelValues(typeURL).Inc()
}

// WatchDispatched records a watch firing with a response for typeURL.
func (m *Metrics) WatchDispatched(typeURL string) {
	m.watchesDispatchedTotal.WithLabelValues(typeURL).Inc()
	m.watchesActiveGauge.WithLabelValues(typeURL).Dec()
}

// WatchCanceled records a watch removed without ever firing.
func (m *Metrics) WatchCanceled(typeURL string) {
	m.watchesCanceledTotal.WithLabelValues(typeURL).Inc()
	m.watchesActiveGauge.WithLabelValues(typeURL).Dec()
}

// SnapshotSet records a SetSnapshot call for nodeID.
func (m *Metrics) SnapshotSet(nodeID string) {
	m.snapshotsSetTotal.WithLabelValues(nodeID).Inc()
}

// FetchOutcome records the result of a Fetch call.
func (m *Metrics) FetchOutcome(outcome string) {
	m.fetchOutcomeTotal.WithLabelValues(outcome).Inc()
}

// Handler returns an http.Handler for a metrics endpoint.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
