// Package observability provides logging, Prometheus metrics and health checks
// for the plugin host.
//
// # Logging
//
//	log, err := observability.NewLogger("info", "text", os.Stderr)
//
// # Metrics
//
// Metrics implements plugincache.Recorder, so a cache reports its scans
// directly:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	opts := plugincache.DefaultOptions()
//	opts.Recorder = metrics
//
// HTTP handlers are instrumented with HTTPMetricsMiddleware and the registry
// is served by RegisterMetricsEndpoint.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version)
//	checker.AddCheck("store", false, store.HealthCheck)
//	observability.RegisterHealthRoutes(router, checker)
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/server: routes using these handlers
package observability
