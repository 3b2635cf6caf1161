// Package metrics exposes the detector's Prometheus collectors and admin handlers.
package metrics

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuotesTotal          = prometheus.NewCounter(prometheus.CounterOpts{Name: "triarb_quotes_total", Help: "Quote events applied to the pair cache"})
	UnknownQuotesTotal   = prometheus.NewCounter(prometheus.CounterOpts{Name: "triarb_unknown_quotes_total", Help: "Quote events for pairs not in the catalog"})
	TrianglesEvaluated   = prometheus.NewCounter(prometheus.CounterOpts{Name: "triarb_triangles_evaluated_total", Help: "Triangle profit evaluations"})
	OpportunitiesTotal   = prometheus.NewCounter(prometheus.CounterOpts{Name: "triarb_opportunities_total", Help: "Profitable opportunities emitted"})
	OpportunitiesDropped = prometheus.NewCounter(prometheus.CounterOpts{Name: "triarb_opportunities_dropped_total", Help: "Opportunities dropped because the output buffer was full"})
	OpportunityRatio     = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "triarb_opportunity_ratio_bps", Help: "Emitted opportunity ratio in bps", Buckets: prometheus.ExponentialBuckets(0.5, 2, 14)})
	Triangles            = prometheus.NewGauge(prometheus.GaugeOpts{Name: "triarb_triangles", Help: "Derived triangles"})
	TrackedPairs         = prometheus.NewGauge(prometheus.GaugeOpts{Name: "triarb_tracked_pairs", Help: "Pairs referenced by at least one triangle"})
	UninitializedPairs   = prometheus.NewGauge(prometheus.GaugeOpts{Name: "triarb_uninitialized_pairs", Help: "Tracked pairs without a quote at the cold-start deadline"})
	SinkErrorsTotal      = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "triarb_sink_errors_total", Help: "Opportunity sink failures by sink"}, []string{"sink"})
	FeedReconnectsTotal  = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "triarb_feed_reconnects_total", Help: "Quote feed reconnects by exchange"}, []string{"exchange"})
)

var ready atomic.Bool

// Init registers all collectors on a fresh registry.
func Init(logger *slog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		QuotesTotal, UnknownQuotesTotal, TrianglesEvaluated, OpportunitiesTotal, OpportunitiesDropped,
		OpportunityRatio, Triangles, TrackedPairs, UninitializedPairs, SinkErrorsTotal, FeedReconnectsTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		if err := reg.Register(c); err != nil {
			logger.Warn("Failed to register collector", "error", err)
		}
	}
	logger.Info("Prometheus metrics initialized")
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// SetReady marks whether the detector has left cold start.
func SetReady(v bool) { ready.Store(v) }

// Ready returns the current readiness.
func Ready() bool { return ready.Load() }

// Healthz answers liveness checks.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz answers 200 once the detector is running.
func Readyz(w http.ResponseWriter, r *http.Request) {
	if Ready() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	http.Error(w, "not ready", http.StatusServiceUnavailable)
}

// NewMux wires the admin endpoints.
func NewMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(reg))
	mux.HandleFunc("/healthz", Healthz)
	mux.HandleFunc("/readyz", Readyz)
	return mux
}
