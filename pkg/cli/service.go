package cli

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/ofxhost/pkg/cachestore"
	"github.com/platinummonkey/ofxhost/pkg/httputil"
	"github.com/platinummonkey/ofxhost/pkg/observability"
	"github.com/platinummonkey/ofxhost/pkg/plugincache"
	"github.com/platinummonkey/ofxhost/pkg/server"
	"github.com/platinummonkey/ofxhost/pkg/watch"
)

// service is a long-running cache kept current by a rescanner, shared by
// the serve and watch commands
type service struct {
	cache     *plugincache.Cache
	store     cachestore.Store
	rescanner *watch.Rescanner
	// registry and metrics are nil when metrics are disabled
	registry *prometheus.Registry
	metrics  *observability.Metrics
}

// newService loads the cache from the configured store. Rescans save back
// to the same store.
func (a *app) newService(ctx context.Context, paths []string) (*service, error) {
	svc := &service{}

	var recorder plugincache.Recorder
	if a.cfg.Observability.MetricsEnabled {
		svc.registry = prometheus.NewRegistry()
		svc.metrics = observability.NewMetrics(svc.registry)
		recorder = svc.metrics
	}

	cache, err := a.newCache(recorder)
	if err != nil {
		return nil, err
	}
	store, err := a.openStore(ctx)
	if err != nil {
		cache.Close()
		return nil, err
	}
	if err := cache.Load(ctx, store, a.cfg.Cache.Key); err != nil {
		cache.Close()
		store.Close()
		return nil, err
	}

	svc.cache = cache
	svc.store = store
	svc.rescanner = watch.NewRescanner(cache, a.searchPaths(paths), store, a.cfg.Cache.Key, a.log)
	return svc, nil
}

// newServer wires the lookup API to the service
func (a *app) newServer(svc *service, version string) *server.Server {
	health := observability.NewHealthChecker(version)
	if hc, ok := svc.store.(cachestore.HealthChecker); ok {
		health.AddCheck("cache_store", false, hc.HealthCheck)
	}
	opts := server.Options{
		Cache:     svc.cache,
		Rescanner: svc.rescanner,
		Registry:  svc.registry,
		Metrics:   svc.metrics,
		Health:    health,
		Version:   version,
		Logger:    a.log,
	}
	if n := a.cfg.Server.RescanPerMinute; n > 0 {
		opts.RescanLimit = httputil.NewRateLimiter(n, time.Minute, 0)
	}
	return server.New(opts)
}

// startWatcher runs a filesystem watcher until the returned stop function
// is called
func (a *app) startWatcher(ctx context.Context, svc *service) (func(), error) {
	w, err := watch.NewWatcher(svc.rescanner, a.cfg.Cache.Extensions, a.cfg.Cache.WatchDebounce, a.log)
	if err != nil {
		return nil, err
	}
	a.log.Infof("Watching %d directories for plugin changes", len(w.WatchList()))

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer observability.RecoverPanic(a.log, "plugin watcher")
		w.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}, nil
}

func (s *service) Close() error {
	return errors.Join(s.cache.Close(), s.store.Close())
}
