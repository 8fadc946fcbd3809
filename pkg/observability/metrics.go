package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platinummonkey/ofxhost/pkg/plugincache"
)

const namespace = "ofxhost"

var _ plugincache.Recorder = (*Metrics)(nil)

var sizeBuckets = prometheus.ExponentialBuckets(100, 10, 6)

// Metrics records plugin cache activity and HTTP traffic. It implements
// plugincache.Recorder.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	ScanModulesTotal  *prometheus.CounterVec
	ModuleLoadsTotal  prometheus.Counter
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter
	CollisionsTotal   prometheus.Counter
	ScanDuration      prometheus.Histogram
	IndexedPlugins    prometheus.Gauge
	EntryStatusTotal  *prometheus.CounterVec
	LastScanTimestamp prometheus.Gauge
}

// NewMetrics registers the metrics with registry. Registering twice with the
// same registry panics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	f := promauto.With(registry)
	route := []string{"method", "path"}

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route template and status",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, route),
		HTTPRequestSize: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_size_bytes",
			Help:    "HTTP request body size",
			Buckets: sizeBuckets,
		}, route),
		HTTPResponseSize: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "response_size_bytes",
			Help:    "HTTP response body size",
			Buckets: sizeBuckets,
		}, route),

		ScanModulesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scan", Name: "modules_total",
			Help: "Modules visited by plugin scans, by outcome",
		}, []string{"result"}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "scan", Name: "duration_seconds",
			Help:    "Duration of plugin directory scans",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		ModuleLoadsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "module_loads_total",
			Help: "Binary modules opened by the host",
		}),
		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_hits_total",
			Help: "Modules whose cached descriptors were reused",
		}),
		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_misses_total",
			Help: "Modules that had to be loaded and described",
		}),
		CollisionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "collisions_total",
			Help: "Plugins shadowed by an earlier plugin with the same identifier and major version",
		}),
		IndexedPlugins: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "indexed_plugins",
			Help: "Plugins reachable through the lookup indices",
		}),
		EntryStatusTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "entry_status_total",
			Help: "Statuses returned by plugin entry points, by action",
		}, []string{"action", "status"}),
		LastScanTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_scan_timestamp_seconds",
			Help: "Unix time of the last completed scan",
		}),
	}
}

// ModuleScanned counts a module visited by a scan
func (m *Metrics) ModuleScanned(result string) {
	m.ScanModulesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ModuleLoaded() { m.ModuleLoadsTotal.Inc() }

func (m *Metrics) CacheHit() { m.CacheHitsTotal.Inc() }

func (m *Metrics) CacheMiss() { m.CacheMissesTotal.Inc() }

func (m *Metrics) CollisionDetected(plugincache.Collision) { m.CollisionsTotal.Inc() }

// ScanCompleted records the scan duration and the number of indexed plugins
func (m *Metrics) ScanCompleted(d time.Duration, plugins int) {
	m.ScanDuration.Observe(d.Seconds())
	m.IndexedPlugins.Set(float64(plugins))
	m.LastScanTimestamp.SetToCurrentTime()
}

func (m *Metrics) EntryStatus(action, status string) {
	m.EntryStatusTotal.WithLabelValues(action, status).Inc()
}

// statusRecorder remembers the status code and counts body bytes
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.size += n
	return n, err
}

// routePath labels a request by its route template so that identifiers in
// the URL do not become label values
func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// HTTPMetricsMiddleware counts and times requests by route template
func HTTPMetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := routePath(r)
			timer := prometheus.NewTimer(m.HTTPRequestDuration.WithLabelValues(r.Method, path))
			if r.ContentLength > 0 {
				m.HTTPRequestSize.WithLabelValues(r.Method, path).Observe(float64(r.ContentLength))
			}

			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)

			timer.ObserveDuration()
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sr.status)).Inc()
			m.HTTPResponseSize.WithLabelValues(r.Method, path).Observe(float64(sr.size))
		})
	}
}

// RegisterMetricsEndpoint serves registry on GET /metrics
func RegisterMetricsEndpoint(router *mux.Router, registry *prometheus.Registry) {
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
