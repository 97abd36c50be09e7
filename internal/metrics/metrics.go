// Package metrics bundles the Prometheus collectors of the core. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sptf"

type Metrics struct {
	requests       *prometheus.CounterVec
	retries        prometheus.Counter
	rateLimitWait  prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
	imageDownloads *prometheus.CounterVec
	authRefreshes  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webapi",
			Name:      "requests_total",
			Help:      "Web API requests by HTTP status.",
		}, []string{"status"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webapi",
			Name:      "retries_total",
			Help:      "Requests repeated after a 429 response.",
		}),
		rateLimitWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for a rate limit permit.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Object and image cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		imageDownloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "image_downloads_total",
			Help:      "Images fetched from the CDN by kind.",
		}, []string{"kind"}),
		authRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "refreshes_total",
			Help:      "Access token refreshes by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.retries, m.rateLimitWait, m.cacheLookups, m.imageDownloads, m.authRefreshes)
	}

	return m
}

func (m *Metrics) ObserveRequest(status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) ObserveRateLimitWait(d time.Duration) {
	if m == nil {
		return
	}
	m.rateLimitWait.Observe(d.Seconds())
}

func (m *Metrics) ObserveCacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveImageDownload(kind string) {
	if m == nil {
		return
	}
	m.imageDownloads.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveAuthRefresh(err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	m.authRefreshes.WithLabelValues(result).Inc()
}
