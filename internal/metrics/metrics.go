// SPDX-License-Identifier: MPL-2.0

// Package metrics provides Prometheus metrics for install and load runs.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Graft kinds reported by the installer.
const (
	GraftCopy  = "graft"
	GraftLink  = "link"
	GraftReuse = "reuse"
)

// Module load outcomes reported by the loader.
const (
	LoadEvaluated = "evaluated"
	LoadCached    = "cached"
	LoadStubbed   = "stubbed"
	LoadFailed    = "failed"
)

// Recorder owns the modfs collectors. It satisfies the observer interfaces
// of the installer and the loader.
type Recorder struct {
	fetchesTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	graftsTotal   *prometheus.CounterVec
	loadsTotal    *prometheus.CounterVec
}

// New registers the modfs collectors on reg. Passing nil uses a fresh
// private registry so that tests and repeated runs never collide.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Recorder{
		fetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modfs_fetches_total",
				Help: "Total number of remote package fetches",
			},
			[]string{"status"},
		),
		fetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "modfs_fetch_duration_seconds",
				Help:    "Remote package fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		graftsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modfs_grafts_total",
				Help: "Dependency directory entries by kind (graft, link, reuse)",
			},
			[]string{"kind"},
		),
		loadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modfs_module_loads_total",
				Help: "Module load requests by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// FetchDone records one completed fetch.
func (r *Recorder) FetchDone(_, _ string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.fetchesTotal.WithLabelValues(status).Inc()
	r.fetchDuration.Observe(elapsed.Seconds())
}

// Grafted records one dependency directory entry.
func (r *Recorder) Grafted(_ string, kind string) {
	r.graftsTotal.WithLabelValues(kind).Inc()
}

// ModuleLoaded records one load request.
func (r *Recorder) ModuleLoaded(_ string, outcome string) {
	r.loadsTotal.WithLabelValues(outcome).Inc()
}

// WriteText writes every metric family gathered from g in the Prometheus
// text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
