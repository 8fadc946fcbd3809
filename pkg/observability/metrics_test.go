package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/ofxhost/pkg/plugincache"
)

func TestNewMetrics_RegistersOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NotNil(t, m)

	assert.Panics(t, func() { NewMetrics(registry) }, "duplicate registration must panic")
}

func TestMetrics_Recorder(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	var rec plugincache.Recorder = m

	rec.ModuleScanned(plugincache.ResultCached)
	rec.ModuleScanned(plugincache.ResultCached)
	rec.ModuleScanned(plugincache.ResultFailed)
	rec.ModuleLoaded()
	rec.CacheHit()
	rec.CacheHit()
	rec.CacheMiss()
	rec.CollisionDetected(plugincache.Collision{Identifier: "org.fx", VersionMajor: 1})
	rec.ScanCompleted(250*time.Millisecond, 7)
	rec.EntryStatus("OfxActionDescribe", "kOfxStatOK")
	rec.EntryStatus("OfxActionDescribe", "kOfxStatOK")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScanModulesTotal.WithLabelValues(plugincache.ResultCached)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanModulesTotal.WithLabelValues(plugincache.ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModuleLoadsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CollisionsTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.IndexedPlugins))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EntryStatusTotal.WithLabelValues("OfxActionDescribe", "kOfxStatOK")))
	assert.Greater(t, testutil.ToFloat64(m.LastScanTimestamp), 0.0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.ScanDuration))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/api/v1/plugins/id/{id}/{major}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "not found")
	}).Methods(http.MethodGet)

	for _, id := range []string{"org.a", "org.b"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/plugins/id/"+id+"/1", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}

	// both requests share the route template label
	tpl := "/api/v1/plugins/id/{id}/{major}"
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", tpl, "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestsTotal))
}

func TestHTTPMetricsMiddleware_PlainHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	h := HTTPMetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/rescan", strings.NewReader("{}")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/rescan", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestSize))
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.CacheHit()

	router := mux.NewRouter()
	RegisterMetricsEndpoint(router, registry)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ofxhost_cache_hits_total 1")
}
