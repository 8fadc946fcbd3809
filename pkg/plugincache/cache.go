package plugincache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/ofxhost/pkg/cachestore"
	"github.com/platinummonkey/ofxhost/pkg/host"
	"github.com/platinummonkey/ofxhost/pkg/loader"
	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/props"
)

// Options configures a Cache
type Options struct {
	// Extensions are the file suffixes treated as plugin modules
	Extensions []string
	// Workers > 1 describes modules in parallel
	Workers int
	Policy  Policy
	// ResidentModules is how many modules Acquire keeps open
	ResidentModules int
	// ResidentTTL closes resident modules not acquired for longer. Zero
	// keeps them until evicted by size.
	ResidentTTL time.Duration
	// Host is advertised to plugins while they are described. Nil uses
	// host.DefaultDescription.
	Host     *host.Description
	Loader   *loader.Loader
	Logger   *logrus.Logger
	Recorder Recorder
}

// DefaultOptions returns the options used when NewCache is given nil
func DefaultOptions() *Options {
	return &Options{
		Extensions:      []string{".ofx", ".so"},
		Workers:         1,
		Policy:          PolicyBounded,
		ResidentModules: 8,
	}
}

// Cache is the persistent index of plugin metadata. Records are kept in scan
// order; lookups go through an Index that is swapped atomically after every
// read and scan.
type Cache struct {
	extensions []string
	workers    int
	policy     Policy
	log        *logrus.Logger
	recorder   Recorder

	loader   *loader.Loader
	store    *props.Store
	host     *host.Host
	resident *residentPool

	// scanMu serializes scans and reads
	scanMu  sync.Mutex
	mu      sync.RWMutex
	records []*ModuleRecord
	index   atomic.Pointer[Index]
	metrics *metrics
}

// NewCache creates an empty cache with its own property store and host
func NewCache(opts *Options) (*Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	defaults := DefaultOptions()

	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = defaults.Extensions
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	residentSize := opts.ResidentModules
	if residentSize < 1 {
		residentSize = defaults.ResidentModules
	}
	l := opts.Loader
	if l == nil {
		l = loader.NewLoader(nil, log)
	}
	desc := host.DefaultDescription()
	if opts.Host != nil {
		desc = *opts.Host
	}

	store := props.NewStore(log)
	h, err := host.New(store, desc, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create host: %w", err)
	}

	c := &Cache{
		extensions: extensions,
		workers:    workers,
		policy:     opts.Policy,
		log:        log,
		recorder:   recorder,
		loader:     l,
		store:      store,
		host:       h,
		metrics:    newMetrics(),
	}
	c.resident = newResidentPool(c, residentSize, opts.ResidentTTL)
	c.index.Store(buildIndex(nil, c.policy, log))
	return c, nil
}

// ReadCache replaces the cache contents with the records read from r.
// Malformed blocks are skipped; a stream that is not a readable cache leaves
// the cache empty. Only read errors from r are returned.
func (c *Cache) ReadCache(r io.Reader) error {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	records, skipped, err := readRecords(r, c.log)
	if err != nil {
		c.log.Warnf("Plugin cache unreadable, starting empty: %v", err)
		records = nil
	}

	seen := make(map[string]bool, len(records))
	kept := records[:0]
	for _, rec := range records {
		if seen[rec.Path] {
			c.log.Warnf("Plugin cache lists module %s twice, keeping the first", rec.Path)
			continue
		}
		seen[rec.Path] = true
		kept = append(kept, rec)
	}

	c.publish(kept)
	c.log.Infof("Read %d modules from plugin cache (%d skipped)", len(kept), skipped)
	return err
}

// WritePluginCache serializes every record that was described successfully,
// in scan order
func (c *Cache) WritePluginCache(w io.Writer) error {
	c.mu.RLock()
	records := make([]*ModuleRecord, 0, len(c.records))
	for _, rec := range c.records {
		if rec.State != StateFailed {
			records = append(records, rec)
		}
	}
	c.mu.RUnlock()

	if err := writeRecords(w, records); err != nil {
		return fmt.Errorf("failed to write plugin cache: %w", err)
	}
	return nil
}

// Load reads the cache from key in store. A missing or unreadable object
// is an empty cache, so the next scan loads every module. Only cancellation
// of ctx is returned.
func (c *Cache) Load(ctx context.Context, store cachestore.Store, key string) error {
	data, err := store.Get(ctx, key)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	switch {
	case errors.Is(err, cachestore.ErrCacheMiss):
		c.log.Infof("No plugin cache at %s, starting empty", key)
		data = nil
	case err != nil:
		c.log.Warnf("Plugin cache at %s unreadable, starting empty: %v", key, err)
		data = nil
	}
	if err := c.ReadCache(bytes.NewReader(data)); err != nil {
		c.log.Warnf("Plugin cache at %s unreadable, starting empty: %v", key, err)
	}
	return nil
}

// Save writes the cache to key in store
func (c *Cache) Save(ctx context.Context, store cachestore.Store, key string) error {
	var buf bytes.Buffer
	if err := c.WritePluginCache(&buf); err != nil {
		return err
	}
	if err := store.Put(ctx, key, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to save plugin cache: %w", err)
	}
	return nil
}

// ScanPluginFiles walks dirs for plugin modules. Modules whose size and
// modification time match their record are reused without loading; all
// others are loaded and described. Records of modules that are gone are
// dropped. Per-module failures are logged and recorded; only cancellation
// of ctx aborts the scan, leaving the previous contents in place.
func (c *Cache) ScanPluginFiles(ctx context.Context, dirs []string) error {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	start := time.Now()
	paths, err := c.discover(ctx, dirs)
	if err != nil {
		return err
	}

	c.mu.RLock()
	previous := make(map[string]*ModuleRecord, len(c.records))
	for _, rec := range c.records {
		previous[rec.Path] = rec
	}
	c.mu.RUnlock()

	results := make([]*ModuleRecord, len(paths))
	if c.workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.workers)
		for i, path := range paths {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = c.scanModule(path, previous[path])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("plugin scan aborted: %w", err)
		}
	} else {
		for i, path := range paths {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("plugin scan aborted: %w", err)
			}
			results[i] = c.scanModule(path, previous[path])
		}
	}

	present := make(map[string]bool, len(paths))
	for _, path := range paths {
		present[path] = true
	}
	for path := range previous {
		if !present[path] {
			c.log.Infof("Module %s is gone, dropping it from the cache", path)
			c.evictResident(path)
		}
	}

	ix := c.publish(results)
	elapsed := time.Since(start)
	c.recorder.ScanCompleted(elapsed, len(ix.plugins))
	c.log.Infof("Scanned %d modules in %s: %d plugins indexed, %d collisions", len(paths), elapsed, len(ix.plugins), len(ix.collisions))
	return nil
}

// discover lists candidate module files. Directories are walked in the order
// given and lexically within each; the same file found twice is listed once.
func (c *Cache) discover(ctx context.Context, dirs []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		root, err := filepath.Abs(dir)
		if err != nil {
			root = filepath.Clean(dir)
		}
		if _, err := os.Stat(root); err != nil {
			c.log.Warnf("Skipping plugin directory %s: %v", root, err)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				c.log.Warnf("Skipping %s: %v", path, err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !c.hasExtension(d.Name()) {
				return nil
			}
			if d.Type()&fs.ModeSymlink != 0 {
				info, err := os.Stat(path)
				if err != nil {
					c.log.Warnf("Skipping dangling link %s: %v", path, err)
					return nil
				}
				if !info.Mode().IsRegular() {
					return nil
				}
			} else if !d.Type().IsRegular() {
				return nil
			}
			if !seen[path] {
				seen[path] = true
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("plugin scan aborted: %w", err)
		}
	}
	return paths, nil
}

func (c *Cache) hasExtension(name string) bool {
	return HasExtension(name, c.extensions)
}

// HasExtension reports whether name ends in one of exts, ignoring case
func HasExtension(name string, exts []string) bool {
	for _, ext := range exts {
		if len(name) >= len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext) {
			return true
		}
	}
	return false
}

// scanModule returns the record for path: the previous one when the file is
// unchanged, a freshly described one otherwise
func (c *Cache) scanModule(path string, prev *ModuleRecord) *ModuleRecord {
	info, err := os.Stat(path)
	if err != nil {
		c.log.Warnf("Failed to stat module %s: %v", path, err)
		c.recorder.ModuleScanned(ResultFailed)
		return &ModuleRecord{Path: path, State: StateFailed, Error: err.Error()}
	}
	modTime := info.ModTime().UnixNano()
	size := info.Size()

	if prev != nil && prev.matches(modTime, size) {
		if prev.State == StateFailed {
			c.log.Debugf("Module %s is unchanged since it failed, not retrying", path)
			c.recorder.ModuleScanned(ResultFailed)
			return prev
		}
		c.metrics.recordHit()
		c.recorder.CacheHit()
		c.recorder.ModuleScanned(ResultCached)
		rec := *prev
		rec.State = StateCachedValid
		return &rec
	}

	c.metrics.recordMiss()
	c.recorder.CacheMiss()
	if prev != nil {
		c.log.Debugf("Module %s changed on disk, reloading", path)
	}

	rec := &ModuleRecord{Path: path, ModTime: modTime, Size: size, State: StateReloading}
	descs, err := c.describeModule(path)
	if err != nil {
		c.log.Warnf("Failed to describe module %s: %v", path, err)
		c.recorder.ModuleScanned(ResultFailed)
		rec.State = StateFailed
		rec.Error = err.Error()
		return rec
	}
	c.metrics.recordLoad()
	c.recorder.ModuleScanned(ResultLoaded)
	rec.Descriptors = descs
	rec.Loaded = true
	rec.State = StateCachedValid
	return rec
}

// publish installs records and the index built from them
func (c *Cache) publish(records []*ModuleRecord) *Index {
	ix := buildIndex(records, c.policy, c.log)
	for _, col := range ix.collisions {
		c.recorder.CollisionDetected(col)
	}

	c.mu.Lock()
	c.records = records
	c.index.Store(ix)
	c.mu.Unlock()
	return ix
}

// GetPluginByID returns the plugin with identifier id answering major
func (c *Cache) GetPluginByID(id string, major int) (*Descriptor, error) {
	if d := c.index.Load().ByID(id, major); d != nil {
		return d, nil
	}
	return nil, ofx.WrapError(ofx.NotFound, "plugincache.GetPluginByID", id, fmt.Errorf("no version answering major %d", major))
}

// GetPluginByLabel returns the plugin labelled label answering major
func (c *Cache) GetPluginByLabel(label string, major int) (*Descriptor, error) {
	if d := c.index.Load().ByLabel(label, major); d != nil {
		return d, nil
	}
	return nil, ofx.WrapError(ofx.NotFound, "plugincache.GetPluginByLabel", label, fmt.Errorf("no version answering major %d", major))
}

// Modules returns every record, failed ones included, in scan order
func (c *Cache) Modules() []*ModuleRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*ModuleRecord(nil), c.records...)
}

// Plugins returns the indexed descriptors in scan order
func (c *Cache) Plugins() []*Descriptor {
	return c.index.Load().Plugins()
}

// Collisions returns the plugins shadowed by an earlier module
func (c *Cache) Collisions() []Collision {
	return c.index.Load().Collisions()
}

// Index returns the current index generation
func (c *Cache) Index() *Index {
	return c.index.Load()
}

// Host returns the host plugins are described against
func (c *Cache) Host() *host.Host {
	return c.host
}

// Stats returns cache statistics
func (c *Cache) Stats() *Stats {
	ix := c.index.Load()

	c.mu.RLock()
	stats := &Stats{
		Hits:       c.metrics.getHits(),
		Misses:     c.metrics.getMisses(),
		Loads:      c.metrics.getLoads(),
		Modules:    len(c.records),
		Plugins:    len(ix.plugins),
		Collisions: len(ix.collisions),
		Generation: ix.Generation.String(),
	}
	for _, rec := range c.records {
		if rec.State == StateFailed {
			stats.Failed++
		}
	}
	c.mu.RUnlock()

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// Close unloads resident modules and releases the host
func (c *Cache) Close() error {
	c.resident.close()
	return c.host.Close()
}

// Stats summarizes the cache
type Stats struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Loads      int64   `json:"loads"`
	HitRate    float64 `json:"hit_rate"`
	Modules    int     `json:"modules"`
	Failed     int     `json:"failed"`
	Plugins    int     `json:"plugins"`
	Collisions int     `json:"collisions"`
	Generation string  `json:"generation"`
}

// metrics tracks cache metrics
type metrics struct {
	hits   atomic.Int64
	misses atomic.Int64
	loads  atomic.Int64
}

func newMetrics() *metrics {
	return &metrics{}
}

func (m *metrics) recordHit() {
	m.hits.Add(1)
}

func (m *metrics) recordMiss() {
	m.misses.Add(1)
}

func (m *metrics) recordLoad() {
	m.loads.Add(1)
}

func (m *metrics) getHits() int64 {
	return m.hits.Load()
}

func (m *metrics) getMisses() int64 {
	return m.misses.Load()
}

func (m *metrics) getLoads() int64 {
	return m.loads.Load()
}
