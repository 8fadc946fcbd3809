package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ofxhost/pkg/cachestore"
	"github.com/platinummonkey/ofxhost/pkg/plugincache"
)

// Status describes the most recent rescan
type Status struct {
	Scans     int64         `json:"scans"`
	LastScan  time.Time     `json:"last_scan"`
	Duration  time.Duration `json:"duration"`
	LastError string        `json:"last_error,omitempty"`
}

// Rescanner scans a fixed set of plugin directories into a cache and, when
// a store is configured, persists the result after every successful scan
type Rescanner struct {
	cache *plugincache.Cache
	paths []string
	store cachestore.Store
	key   string
	log   *logrus.Logger

	scanMu sync.Mutex
	mu     sync.Mutex
	status Status
}

// NewRescanner creates a rescanner. store may be nil.
func NewRescanner(cache *plugincache.Cache, paths []string, store cachestore.Store, key string, log *logrus.Logger) *Rescanner {
	if log == nil {
		log = logrus.New()
	}
	return &Rescanner{
		cache: cache,
		paths: append([]string(nil), paths...),
		store: store,
		key:   key,
		log:   log,
	}
}

// Paths returns the scanned directories
func (r *Rescanner) Paths() []string {
	return append([]string(nil), r.paths...)
}

// Rescan scans the directories and saves the cache. Concurrent calls run
// one after the other.
func (r *Rescanner) Rescan(ctx context.Context) error {
	r.scanMu.Lock()
	defer r.scanMu.Unlock()

	start := time.Now()
	err := r.cache.ScanPluginFiles(ctx, r.paths)
	if err == nil && r.store != nil {
		if saveErr := r.cache.Save(ctx, r.store, r.key); saveErr != nil {
			err = fmt.Errorf("failed to save plugin cache: %w", saveErr)
		}
	}

	r.mu.Lock()
	r.status.Scans++
	r.status.LastScan = start
	r.status.Duration = time.Since(start)
	r.status.LastError = ""
	if err != nil {
		r.status.LastError = err.Error()
	}
	r.mu.Unlock()

	if err != nil {
		r.log.Errorf("Rescan failed: %v", err)
	}
	return err
}

// Status returns a snapshot of the last rescan
func (r *Rescanner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// HealthCheck fails while the last rescan failed
func (r *Rescanner) HealthCheck(ctx context.Context) error {
	if msg := r.Status().LastError; msg != "" {
		return errors.New(msg)
	}
	return nil
}
