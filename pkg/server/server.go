package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ofxhost/pkg/httputil"
	"github.com/platinummonkey/ofxhost/pkg/observability"
	"github.com/platinummonkey/ofxhost/pkg/plugincache"
	"github.com/platinummonkey/ofxhost/pkg/watch"
)

// Options configures a Server
type Options struct {
	Cache *plugincache.Cache
	// Rescanner enables POST /api/v1/rescan. Nil serves a read-only API.
	Rescanner *watch.Rescanner
	// RescanLimit throttles POST /api/v1/rescan per client when set
	RescanLimit *httputil.RateLimiter
	// Registry is served on /metrics when set
	Registry *prometheus.Registry
	// Metrics instruments the HTTP handlers when set
	Metrics *observability.Metrics
	// Health is served on /healthz. Nil creates a checker with the cache
	// check only.
	Health  *observability.HealthChecker
	Version string
	Logger  *logrus.Logger
}

// Server is the HTTP lookup API over a plugin cache
type Server struct {
	cache     *plugincache.Cache
	rescanner *watch.Rescanner
	limit     *httputil.RateLimiter
	health    *observability.HealthChecker
	router    *mux.Router
	log       *logrus.Logger
}

// New creates a server and sets up its routes
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	health := opts.Health
	if health == nil {
		health = observability.NewHealthChecker(opts.Version)
	}

	s := &Server{
		cache:     opts.Cache,
		rescanner: opts.Rescanner,
		limit:     opts.RescanLimit,
		health:    health,
		router:    mux.NewRouter(),
		log:       log,
	}
	s.health.AddCheck("plugin_cache", true, s.checkCache)
	if s.rescanner != nil {
		s.health.AddCheck("rescan", false, s.rescanner.HealthCheck)
	}

	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.LoggingMiddleware(log))
	s.router.Use(httputil.RecoveryMiddleware(log))
	if opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}

	s.setupRoutes()
	observability.RegisterHealthRoutes(s.router, s.health)
	if opts.Registry != nil {
		observability.RegisterMetricsEndpoint(s.router, opts.Registry)
	}
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/plugins", s.listPlugins).Methods("GET")
	api.HandleFunc("/plugins/id/{id}", s.listVersions).Methods("GET")
	api.HandleFunc("/plugins/id/{id}/{major}", s.getPluginByID).Methods("GET")
	api.HandleFunc("/plugins/label/{label}/{major}", s.getPluginByLabel).Methods("GET")
	api.HandleFunc("/modules", s.listModules).Methods("GET")
	api.HandleFunc("/collisions", s.listCollisions).Methods("GET")
	api.HandleFunc("/stats", s.getStats).Methods("GET")

	var rescan http.Handler = http.HandlerFunc(s.rescan)
	if s.limit != nil {
		rescan = s.limit.Middleware(rescan)
	}
	api.Handle("/rescan", rescan).Methods("POST")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer wraps the router in an http.Server listening on addr
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout, idleTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// checkCache fails until the cache holds at least one readable module
// record or a scan has completed
func (s *Server) checkCache(ctx context.Context) error {
	if len(s.cache.Modules()) > 0 {
		return nil
	}
	if s.rescanner != nil && !s.rescanner.Status().LastScan.IsZero() {
		return nil
	}
	return errCacheEmpty
}
