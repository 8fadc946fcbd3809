package plugincache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/ofxhost/pkg/loader"
	"github.com/platinummonkey/ofxhost/pkg/ofx"
)

// resident is a module kept open for instantiation, with the plugins that
// have received their load action
type resident struct {
	module *loader.Module
	loaded map[int]string
}

type evicted struct {
	path     string
	resident *resident
}

// residentPool keeps recently acquired modules open. Evicted modules get an
// unload for every loaded plugin and are closed. The LRU only queues
// evictions; they are released under mu, by the caller that caused them or,
// for expired entries, by the reaper.
type residentPool struct {
	cache *Cache
	mu    sync.Mutex
	lru   *lru.LRU[string, *resident]

	pendingMu sync.Mutex
	pending   []evicted
	wake      chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
	reaped    sync.WaitGroup
}

func newResidentPool(c *Cache, size int, ttl time.Duration) *residentPool {
	p := &residentPool{
		cache: c,
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}
	p.lru = lru.NewLRU[string, *resident](size, p.onEvict, ttl)
	if ttl > 0 {
		p.reaped.Go(p.reap)
	}
	return p
}

// onEvict runs inside the LRU, sometimes on its expiry goroutine, and must
// not touch the module
func (p *residentPool) onEvict(path string, r *resident) {
	p.pendingMu.Lock()
	p.pending = append(p.pending, evicted{path: path, resident: r})
	p.pendingMu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *residentPool) reap() {
	for {
		select {
		case <-p.stop:
			return
		case <-p.wake:
			p.mu.Lock()
			p.drainLocked()
			p.mu.Unlock()
		}
	}
}

// drainLocked releases queued evictions. An entry that was acquired again
// after it expired is still in the LRU and stays open.
func (p *residentPool) drainLocked() {
	p.pendingMu.Lock()
	queued := p.pending
	p.pending = nil
	p.pendingMu.Unlock()

	for _, e := range queued {
		if cur, ok := p.lru.Peek(e.path); ok && cur == e.resident {
			continue
		}
		p.release(e.path, e.resident)
	}
}

func (p *residentPool) release(path string, r *resident) {
	c := p.cache
	for nth, id := range r.loaded {
		if err := c.call(r.module, nth, id, ofx.ActionUnload, ofx.NullHandle, ofx.NullHandle, ofx.NullHandle); err != nil {
			c.log.Warnf("Plugin %s failed to unload: %v", id, err)
		}
	}
	if err := c.loader.Close(r.module); err != nil {
		c.log.Warnf("Failed to close resident module %s: %v", path, err)
	}
	c.log.Debugf("Released resident module %s", path)
}

func (p *residentPool) remove(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lru.Remove(path)
	p.drainLocked()
}

// close releases every resident module and stops the reaper
func (p *residentPool) close() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.reaped.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lru.Purge()
	p.drainLocked()
}

func (p *residentPool) len() int {
	return p.lru.Len()
}

// Acquire returns the module holding d, opened and with d's plugin loaded
// against the cache's host. The module stays open until it falls out of the
// resident pool, is released, or is rescanned.
func (c *Cache) Acquire(d *Descriptor) (*loader.Module, error) {
	if d == nil {
		return nil, ofx.NewError(ofx.NotFound, "plugincache.Acquire", "")
	}

	p := c.resident
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.drainLocked()

	r, ok := p.lru.Get(d.ModulePath)
	if ok {
		// refreshes the idle timeout
		p.lru.Add(d.ModulePath, r)
	} else {
		// an expired entry may still hold the module open
		p.lru.Remove(d.ModulePath)
		p.drainLocked()

		m, err := c.loader.Open(d.ModulePath)
		if err != nil {
			return nil, err
		}
		c.recorder.ModuleLoaded()
		r = &resident{module: m, loaded: make(map[int]string)}
		p.lru.Add(d.ModulePath, r)
	}
	if _, ok := r.loaded[d.Index]; ok {
		return r.module, nil
	}

	plugin, err := r.module.Plugin(d.Index)
	if err != nil {
		return nil, err
	}
	if plugin.Identifier != d.Identifier || plugin.VersionMajor != d.VersionMajor {
		return nil, ofx.WrapError(ofx.NotFound, "plugincache.Acquire", d.Identifier,
			fmt.Errorf("%s now holds %s v%d at index %d, rescan needed", d.ModulePath, plugin.Identifier, plugin.VersionMajor, d.Index))
	}
	if plugin.SetHost != nil {
		plugin.SetHost(c.host.ABI())
	}
	if err := c.call(r.module, d.Index, d.Identifier, ofx.ActionLoad, ofx.NullHandle, ofx.NullHandle, ofx.NullHandle); err != nil {
		return nil, err
	}
	r.loaded[d.Index] = d.Identifier
	return r.module, nil
}

// Release unloads and closes the resident module at path, if any
func (c *Cache) Release(path string) {
	c.resident.remove(path)
}

// Resident returns how many modules are currently held open
func (c *Cache) Resident() int {
	return c.resident.len()
}

func (c *Cache) evictResident(path string) {
	c.resident.remove(path)
}
