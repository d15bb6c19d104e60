// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the distribution pipeline (scans, cache, CDN purge), following the
// same promauto vector pattern the HTTP middleware stack already uses.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lighty-launcher/distserver/internal/distio/contentcache"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distio_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "distio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "distio_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		},
		[]string{"method", "endpoint"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "distio_http_response_size_bytes",
			Help:    "HTTP response size in bytes.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "endpoint"},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "distio_scan_duration_seconds",
			Help:    "Profile scan duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"profile"},
	)

	rescanTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distio_rescan_total",
			Help: "Total rescans by lifecycle outcome.",
		},
		[]string{"profile", "result"}, // result: new, updated, unchanged
	)

	cdnPurgeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distio_cdn_purge_total",
			Help: "Total CDN purge attempts by outcome.",
		},
		[]string{"result"}, // success, failure
	)

	cacheHits = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "distio_cache_hits_total",
		Help: "Content cache hit count.",
	})
	cacheMisses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "distio_cache_misses_total",
		Help: "Content cache miss count.",
	})
	cacheEvictions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "distio_cache_evictions_total",
		Help: "Content cache eviction count.",
	})
	cacheWeightKB = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "distio_cache_weight_kb",
		Help: "Current content cache weighted size in KB.",
	})

	manifestEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "distio_manifest_entries",
			Help: "Number of entries in a profile's current manifest.",
		},
		[]string{"profile"},
	)
)

// HTTPMiddleware instruments every request with the standard request-count,
// duration, in-flight, and response-size vectors. The endpoint label is the
// matched mux route template, not the raw path, to avoid unbounded
// cardinality from path-resolved file requests.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := routeTemplate(r)
		method := r.Method

		httpRequestsInFlight.WithLabelValues(method, endpoint).Inc()
		defer httpRequestsInFlight.WithLabelValues(method, endpoint).Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
		httpResponseSize.WithLabelValues(method, endpoint).Observe(float64(rw.size))
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// ObserveScanDuration records how long a profile's scan took.
func ObserveScanDuration(profile string, d time.Duration) {
	scanDuration.WithLabelValues(profile).Observe(d.Seconds())
}

// IncRescan increments the rescan outcome counter for profile.
func IncRescan(profile, result string) {
	rescanTotal.WithLabelValues(profile, result).Inc()
}

// IncCDNPurge increments the CDN purge outcome counter.
func IncCDNPurge(result string) {
	cdnPurgeTotal.WithLabelValues(result).Inc()
}

// SetCacheStats publishes the content cache's current counters.
func SetCacheStats(stats contentcache.Stats) {
	cacheHits.Set(float64(stats.Hits))
	cacheMisses.Set(float64(stats.Misses))
	cacheEvictions.Set(float64(stats.Evictions))
	cacheWeightKB.Set(float64(stats.TotalWeightKB))
}

// SetManifestEntries publishes the current entry count for profile.
func SetManifestEntries(profile string, count int) {
	manifestEntries.WithLabelValues(profile).Set(float64(count))
}
