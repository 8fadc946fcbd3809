package plugincache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/ofxhost/pkg/cachestore"
	"github.com/platinummonkey/ofxhost/pkg/loader"
	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/plugintest"
)

type cacheFixture struct {
	t       *testing.T
	modules *plugintest.Modules
	loader  *loader.Loader
	cache   *Cache
	logs    *bytes.Buffer
	opts    Options
}

func newCacheFixture(t *testing.T, opts *Options) *cacheFixture {
	t.Helper()

	logs := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(logs)
	log.SetLevel(logrus.DebugLevel)

	modules := plugintest.NewModules(t, log)
	l := loader.NewLoader(modules.Opener, log)

	if opts == nil {
		opts = &Options{}
	}
	opts.Loader = l
	opts.Logger = log

	f := &cacheFixture{t: t, modules: modules, loader: l, logs: logs, opts: *opts}
	f.cache = f.newCache()
	return f
}

// newCache builds another cache sharing the fixture's loader and modules
func (f *cacheFixture) newCache() *Cache {
	f.t.Helper()
	opts := f.opts
	c, err := NewCache(&opts)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { c.Close() })
	return c
}

func (f *cacheFixture) scan(c *Cache, dirs ...string) {
	f.t.Helper()
	if len(dirs) == 0 {
		dirs = []string{f.modules.Dir}
	}
	require.NoError(f.t, c.ScanPluginFiles(context.Background(), dirs))
}

func (f *cacheFixture) written(c *Cache) string {
	f.t.Helper()
	var buf bytes.Buffer
	require.NoError(f.t, c.WritePluginCache(&buf))
	return buf.String()
}

func sampleEffect() *plugintest.Effect {
	e := plugintest.NewEffect("uk.test.sample", 2, 1, "Sample")
	e.Contexts = []ofx.Context{ofx.ContextFilter, ofx.ContextGeneral}
	e.Flags = []string{"supports-tiles"}
	return e
}

func TestCache_SampleEndToEnd(t *testing.T) {
	f := newCacheFixture(t, nil)
	effect := sampleEffect()
	path := f.modules.Add("Sample.ofx", effect)

	f.scan(f.cache)
	assert.Equal(t, int64(1), f.loader.Opens())
	assert.Equal(t, 1, effect.Loads())
	assert.Equal(t, 1, effect.Unloads())
	assert.Empty(t, f.loader.OpenModules())

	d, err := f.cache.GetPluginByID("uk.test.sample", 2)
	require.NoError(t, err)
	assert.Equal(t, Identity{Identifier: "uk.test.sample", VersionMajor: 2, VersionMinor: 1}, d.Identity)
	assert.Equal(t, "Sample", d.Label)
	assert.Equal(t, []ofx.Context{ofx.ContextFilter, ofx.ContextGeneral}, d.Contexts)
	assert.Equal(t, []Flag{FlagSupportsTiles}, d.Flags)
	assert.Equal(t, path, d.ModulePath)

	byLabel, err := f.cache.GetPluginByLabel("Sample", 2)
	require.NoError(t, err)
	assert.Same(t, d, byLabel)

	_, err = f.cache.GetPluginByLabel("Sample", 3)
	assert.True(t, errors.Is(err, ofx.ErrNotFound), "got %v", err)
	_, err = f.cache.GetPluginByID("uk.test.missing", 1)
	assert.True(t, errors.Is(err, ofx.ErrNotFound))

	info, err := os.Stat(path)
	require.NoError(t, err)
	want := fmt.Sprintf(`ofx-plugin-cache 1
module %s
  mtime %d
  size %d
  plugin "uk.test.sample"
    index 0
    version 2 1
    api "OfxImageEffectPluginAPI" 1
    label "Sample"
    contexts "filter" "general"
    flags "supports-tiles"
  end
end
`, strconv.Quote(path), info.ModTime().UnixNano(), info.Size())
	text := f.written(f.cache)
	assert.Equal(t, want, text)

	// a second run reads the cache and finds nothing to load
	describes := effect.Describes()
	next := f.newCache()
	require.NoError(t, next.ReadCache(strings.NewReader(text)))
	f.scan(next)
	assert.Equal(t, int64(1), f.loader.Opens())
	assert.Equal(t, describes, effect.Describes())
	assert.Equal(t, text, f.written(next))

	stats := next.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Zero(t, stats.Misses)
	assert.Equal(t, 1, stats.Plugins)
}

func TestCache_HitWithoutReload(t *testing.T) {
	f := newCacheFixture(t, nil)
	f.modules.Add("a.ofx", plugintest.NewEffect("org.a", 1, 0, "A"))
	f.modules.Add("b.ofx", plugintest.NewEffect("org.b", 1, 0, "B"))

	f.scan(f.cache)
	assert.Equal(t, int64(2), f.loader.Opens())

	f.scan(f.cache)
	assert.Equal(t, int64(2), f.loader.Opens())

	stats := f.cache.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(2), stats.Loads)
	assert.InDelta(t, 0.5, stats.HitRate, 0.0001)

	for _, rec := range f.cache.Modules() {
		assert.Equal(t, StateCachedValid, rec.State)
	}
}

func TestCache_Invalidation(t *testing.T) {
	f := newCacheFixture(t, nil)
	effect := plugintest.NewEffect("org.fx", 1, 0, "FX")
	path := f.modules.Add("fx.ofx", effect)
	f.modules.Touch(path, time.Unix(1700000000, 0))

	f.scan(f.cache)
	require.Equal(t, int64(1), f.loader.Opens())

	t.Run("size change", func(t *testing.T) {
		f.modules.Grow(path)
		f.scan(f.cache)
		assert.Equal(t, int64(2), f.loader.Opens())
	})

	t.Run("mtime change", func(t *testing.T) {
		f.modules.Touch(path, time.Unix(1700000100, 0))
		f.scan(f.cache)
		assert.Equal(t, int64(3), f.loader.Opens())
	})

	t.Run("unchanged", func(t *testing.T) {
		f.scan(f.cache)
		assert.Equal(t, int64(3), f.loader.Opens())
	})

	rec := f.cache.Modules()[0]
	assert.Equal(t, time.Unix(1700000100, 0).UnixNano(), rec.ModTime)
	assert.Equal(t, 3, effect.Loads())
	assert.Equal(t, 3, effect.Unloads())
}

func TestCache_ReadCacheThenStaleModule(t *testing.T) {
	f := newCacheFixture(t, nil)
	path := f.modules.Add("fx.ofx", plugintest.NewEffect("org.fx", 1, 0, "FX"))

	// a record for the same path whose size no longer matches
	stale := fmt.Sprintf(`ofx-plugin-cache 1
module %s
  mtime 1
  size 1
  plugin "org.old"
    version 1 0
  end
end
`, strconv.Quote(path))
	require.NoError(t, f.cache.ReadCache(strings.NewReader(stale)))
	_, err := f.cache.GetPluginByID("org.old", 1)
	require.NoError(t, err)

	f.scan(f.cache)
	assert.Equal(t, int64(1), f.loader.Opens())
	_, err = f.cache.GetPluginByID("org.old", 1)
	assert.True(t, errors.Is(err, ofx.ErrNotFound))
	_, err = f.cache.GetPluginByID("org.fx", 1)
	assert.NoError(t, err)
}

func TestCache_EmptyDirectory(t *testing.T) {
	f := newCacheFixture(t, nil)

	f.scan(f.cache)
	assert.Empty(t, f.cache.Plugins())
	assert.Empty(t, f.cache.Modules())
	assert.Zero(t, f.loader.Opens())
	assert.Equal(t, "ofx-plugin-cache 1\n", f.written(f.cache))

	next := f.newCache()
	require.NoError(t, next.ReadCache(strings.NewReader(f.written(f.cache))))
	assert.Empty(t, next.Plugins())
}

func TestCache_MissingDirectoryIsSkipped(t *testing.T) {
	f := newCacheFixture(t, nil)
	f.modules.Add("fx.ofx", plugintest.NewEffect("org.fx", 1, 0, "FX"))

	f.scan(f.cache, filepath.Join(f.modules.Dir, "nope"), f.modules.Dir)
	assert.Len(t, f.cache.Plugins(), 1)
	assert.Contains(t, f.logs.String(), "Skipping plugin directory")
}

func TestCache_FirstScannedWins(t *testing.T) {
	f := newCacheFixture(t, nil)
	f.modules.Add("a/fx.ofx", plugintest.NewEffect("org.fx", 1, 0, "From A"))
	kept := f.modules.Add("b/fx.ofx", plugintest.NewEffect("org.fx", 1, 3, "From B"))

	dirA := filepath.Join(f.modules.Dir, "a")
	dirB := filepath.Join(f.modules.Dir, "b")
	f.scan(f.cache, dirB, dirA)

	d, err := f.cache.GetPluginByID("org.fx", 1)
	require.NoError(t, err)
	assert.Equal(t, kept, d.ModulePath)
	assert.Equal(t, 3, d.VersionMinor)

	collisions := f.cache.Collisions()
	require.Len(t, collisions, 1)
	assert.Equal(t, kept, collisions[0].Kept)
	assert.Equal(t, filepath.Join(dirA, "fx.ofx"), collisions[0].Shadowed)
	assert.Equal(t, 1, f.cache.Stats().Collisions)
	assert.Contains(t, f.logs.String(), "is shadowed by")

	// both modules are still cached
	assert.Len(t, f.cache.Modules(), 2)
}

func TestCache_FailedModules(t *testing.T) {
	f := newCacheFixture(t, nil)
	broken := f.modules.AddBroken("broken.ofx")

	failing := plugintest.NewEffect("org.failing", 1, 0, "Failing")
	failing.DescribeErr = ofx.NewError(ofx.Failed, "describe", "org.failing")
	f.modules.Add("failing.ofx", failing)

	loadFails := plugintest.NewEffect("org.noload", 1, 0, "No Load")
	loadFails.LoadErr = errors.New("licence server unreachable")
	f.modules.Add("noload.ofx", loadFails)

	f.modules.Add("good.ofx", plugintest.NewEffect("org.good", 1, 0, "Good"))

	f.scan(f.cache)
	opens := f.loader.Opens()
	assert.Equal(t, int64(4), opens)

	plugins := f.cache.Plugins()
	require.Len(t, plugins, 1)
	assert.Equal(t, "org.good", plugins[0].Identifier)

	failed := 0
	for _, rec := range f.cache.Modules() {
		if rec.State == StateFailed {
			failed++
			assert.NotEmpty(t, rec.Error)
		}
	}
	assert.Equal(t, 3, failed)
	assert.Equal(t, 3, f.cache.Stats().Failed)

	text := f.written(f.cache)
	assert.NotContains(t, text, broken)
	assert.NotContains(t, text, "org.failing")
	assert.Contains(t, text, "org.good")

	// a failed load is rolled back so the plugin can be loaded again later
	assert.Equal(t, 1, loadFails.Loads())
	assert.Zero(t, loadFails.Unloads())

	// unchanged failures are not retried
	f.scan(f.cache)
	assert.Equal(t, opens, f.loader.Opens())
	assert.Empty(t, f.loader.OpenModules())
}

func TestCache_DroppedContext(t *testing.T) {
	f := newCacheFixture(t, nil)
	effect := sampleEffect()
	effect.ContextErr = map[ofx.Context]error{
		ofx.ContextGeneral: ofx.NewError(ofx.Failed, "describeInContext", "general"),
	}
	f.modules.Add("Sample.ofx", effect)

	f.scan(f.cache)
	d, err := f.cache.GetPluginByID("uk.test.sample", 2)
	require.NoError(t, err)
	assert.Equal(t, []ofx.Context{ofx.ContextFilter}, d.Contexts)
	assert.Contains(t, f.logs.String(), "dropped context general")
}

func TestCache_MultiplePluginsPerModule(t *testing.T) {
	f := newCacheFixture(t, nil)
	f.modules.Add("bundle.ofx",
		plugintest.NewEffect("org.bundle.blur", 1, 0, "Blur"),
		plugintest.NewEffect("org.bundle.sharpen", 2, 0, "Sharpen"),
	)

	f.scan(f.cache)
	assert.Equal(t, int64(1), f.loader.Opens())

	sharpen, err := f.cache.GetPluginByLabel("Sharpen", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, sharpen.Index)

	next := f.newCache()
	require.NoError(t, next.ReadCache(strings.NewReader(f.written(f.cache))))
	again, err := next.GetPluginByID("org.bundle.sharpen", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Index)
}

func TestCache_SkipsForeignAPI(t *testing.T) {
	f := newCacheFixture(t, nil)
	path := filepath.Join(f.modules.Dir, "other.ofx")
	f.modules.Write(path, "other api")
	foreign := &ofx.Plugin{
		API:        "OfxParticlePluginAPI",
		APIVersion: 1,
		Identifier: "org.particles",
		MainEntry: func(string, ofx.Handle, ofx.Handle, ofx.Handle) ofx.Status {
			return ofx.StatOK
		},
	}
	f.modules.Opener.Register(path, loader.Symbols{
		ofx.SymbolGetNumberOfPlugins: func() int { return 1 },
		ofx.SymbolGetPlugin:          func(int) *ofx.Plugin { return foreign },
	})

	f.scan(f.cache)
	require.Len(t, f.cache.Modules(), 1)
	assert.Equal(t, StateCachedValid, f.cache.Modules()[0].State)
	assert.Empty(t, f.cache.Plugins())
	assert.Contains(t, f.logs.String(), "unsupported API")
}

func TestCache_DiscoveryOrderAndFilters(t *testing.T) {
	f := newCacheFixture(t, &Options{Extensions: []string{".ofx"}})
	f.modules.Add("z.ofx", plugintest.NewEffect("org.z", 1, 0, "Z"))
	f.modules.Add("a.ofx", plugintest.NewEffect("org.a", 1, 0, "A"))
	f.modules.Add("sub/m.ofx", plugintest.NewEffect("org.m", 1, 0, "M"))
	f.modules.Add("ignored.so", plugintest.NewEffect("org.so", 1, 0, "SO"))
	f.modules.Write(filepath.Join(f.modules.Dir, "README.txt"), "not a plugin")

	target := f.modules.Add("elsewhere/linked.ofx", plugintest.NewEffect("org.linked", 1, 0, "Linked"))
	links := filepath.Join(f.modules.Dir, "links")
	require.NoError(t, os.MkdirAll(links, 0755))
	link := filepath.Join(links, "linked.ofx")
	require.NoError(t, os.Symlink(target, link))
	f.modules.Opener.Register(link, plugintest.Symbols(nil, plugintest.NewEffect("org.linked", 1, 0, "Linked")))

	// listing a directory twice does not scan it twice
	f.scan(f.cache, f.modules.Dir, f.modules.Dir)

	var ids []string
	for _, d := range f.cache.Plugins() {
		ids = append(ids, d.Identifier)
	}
	assert.Equal(t, []string{"org.a", "org.linked", "org.m", "org.z"}, ids)
	assert.Len(t, f.cache.Collisions(), 1)
}

func TestCache_RemovedModulesAreDropped(t *testing.T) {
	f := newCacheFixture(t, nil)
	gone := f.modules.Add("gone.ofx", plugintest.NewEffect("org.gone", 1, 0, "Gone"))
	f.modules.Add("kept.ofx", plugintest.NewEffect("org.kept", 1, 0, "Kept"))

	f.scan(f.cache)
	require.Len(t, f.cache.Modules(), 2)

	require.NoError(t, os.Remove(gone))
	f.scan(f.cache)
	require.Len(t, f.cache.Modules(), 1)
	assert.Equal(t, "org.kept", f.cache.Plugins()[0].Identifier)
	assert.NotContains(t, f.written(f.cache), "org.gone")
}

func TestCache_ParallelScanMatchesSequential(t *testing.T) {
	seq := newCacheFixture(t, nil)
	par := newCacheFixture(t, &Options{Workers: 4})
	for _, f := range []*cacheFixture{seq, par} {
		for i := 0; i < 12; i++ {
			name := fmt.Sprintf("fx%02d.ofx", i)
			path := f.modules.Add(name, plugintest.NewEffect(fmt.Sprintf("org.fx%02d", i), 1+i%3, 0, "FX"))
			f.modules.Touch(path, time.Unix(1700000000, 0))
		}
		f.scan(f.cache)
	}

	assert.Equal(t, int64(12), par.loader.Opens())
	require.Len(t, par.cache.Plugins(), 12)
	for i, d := range par.cache.Plugins() {
		assert.Equal(t, seq.cache.Plugins()[i].Identifier, d.Identifier)
	}

	// paths differ between the two fixtures, the rest of the text must not
	normalize := func(f *cacheFixture) string {
		return strings.ReplaceAll(f.written(f.cache), f.modules.Dir, "DIR")
	}
	assert.Equal(t, normalize(seq), normalize(par))
}

func TestCache_CancelledScanKeepsPreviousContents(t *testing.T) {
	f := newCacheFixture(t, nil)
	f.modules.Add("fx.ofx", plugintest.NewEffect("org.fx", 1, 0, "FX"))
	f.scan(f.cache)
	before := f.cache.Index().Generation

	f.modules.Add("new.ofx", plugintest.NewEffect("org.new", 1, 0, "New"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.cache.ScanPluginFiles(ctx, []string{f.modules.Dir})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, before, f.cache.Index().Generation)
	assert.Len(t, f.cache.Plugins(), 1)
}

func TestCache_ReadCacheGarbage(t *testing.T) {
	f := newCacheFixture(t, nil)
	f.modules.Add("fx.ofx", plugintest.NewEffect("org.fx", 1, 0, "FX"))
	f.scan(f.cache)

	require.NoError(t, f.cache.ReadCache(strings.NewReader("this is not a plugin cache\n")))
	assert.Empty(t, f.cache.Plugins())
	assert.Empty(t, f.cache.Modules())
}

func TestCache_LoadAndSave(t *testing.T) {
	f := newCacheFixture(t, nil)
	f.modules.Add("Sample.ofx", sampleEffect())
	f.scan(f.cache)

	store, err := cachestore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	empty := f.newCache()
	require.NoError(t, empty.Load(ctx, store, "plugins.cache"))
	assert.Empty(t, empty.Plugins())

	require.NoError(t, f.cache.Save(ctx, store, "plugins.cache"))

	loaded := f.newCache()
	require.NoError(t, loaded.Load(ctx, store, "plugins.cache"))
	d, err := loaded.GetPluginByLabel("Sample", 2)
	require.NoError(t, err)
	assert.Equal(t, "uk.test.sample", d.Identifier)
	assert.Equal(t, f.written(f.cache), f.written(loaded))
}

// failingStore cannot read anything back
type failingStore struct {
	cachestore.Store
}

func (failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("connection reset")
}

func TestCache_LoadUnreadableStartsEmpty(t *testing.T) {
	f := newCacheFixture(t, nil)
	f.modules.Add("fx.ofx", plugintest.NewEffect("org.fx", 1, 0, "FX"))
	f.scan(f.cache)

	require.NoError(t, f.cache.Load(context.Background(), failingStore{}, "plugins.cache"))
	assert.Empty(t, f.cache.Plugins())
	assert.Contains(t, f.logs.String(), "unreadable, starting empty")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.cache.Load(ctx, failingStore{}, "plugins.cache"), context.Canceled)
}

func TestCache_LoadOversizedRecord(t *testing.T) {
	f := newCacheFixture(t, nil)
	f.modules.Add("Sample.ofx", sampleEffect())
	f.scan(f.cache)

	text := f.written(f.cache) + "module \"/huge.ofx\"\n  mtime 1\n  size 2\n" +
		"  future-key \"" + strings.Repeat("x", maxLineLength+1) + "\"\nend\n"
	store, err := cachestore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "plugins.cache", []byte(text)))

	loaded := f.newCache()
	require.NoError(t, loaded.Load(context.Background(), store, "plugins.cache"))
	require.Len(t, loaded.Modules(), 1)
	_, err = loaded.GetPluginByLabel("Sample", 2)
	assert.NoError(t, err)
}

func TestCache_Acquire(t *testing.T) {
	f := newCacheFixture(t, &Options{ResidentModules: 1})
	a := plugintest.NewEffect("org.a", 1, 0, "A")
	b := plugintest.NewEffect("org.b", 1, 0, "B")
	pathA := f.modules.Add("a.ofx", a)
	f.modules.Add("b.ofx", b)
	f.scan(f.cache)
	require.Equal(t, 1, a.Loads())

	descA, err := f.cache.GetPluginByID("org.a", 1)
	require.NoError(t, err)
	m, err := f.cache.Acquire(descA)
	require.NoError(t, err)
	assert.True(t, m.IsOpen())
	assert.Equal(t, 2, a.Loads())
	assert.Equal(t, 1, f.cache.Resident())

	again, err := f.cache.Acquire(descA)
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, 2, a.Loads())

	// the instance can be driven through the acquired module
	plugin, err := m.Plugin(descA.Index)
	require.NoError(t, err)
	assert.Equal(t, "org.a", plugin.Identifier)

	// acquiring another module evicts the first from a pool of one
	descB, err := f.cache.GetPluginByID("org.b", 1)
	require.NoError(t, err)
	_, err = f.cache.Acquire(descB)
	require.NoError(t, err)
	assert.False(t, m.IsOpen())
	assert.Equal(t, 2, a.Unloads())
	assert.Equal(t, []string{filepath.Join(f.modules.Dir, "b.ofx")}, f.loader.OpenModules())

	// rescanning a changed resident module releases it before describing
	_, err = f.cache.Acquire(descA)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Unloads())
	f.modules.Grow(pathA)
	f.scan(f.cache)
	assert.Equal(t, 4, a.Unloads())
	assert.Empty(t, f.loader.OpenModules())

	_, err = f.cache.Acquire(nil)
	assert.True(t, errors.Is(err, ofx.ErrNotFound))

	f.cache.Release(pathA)
	assert.Zero(t, f.cache.Resident())
}

func TestCache_AcquireRefreshesResidentTTL(t *testing.T) {
	f := newCacheFixture(t, &Options{ResidentModules: 4, ResidentTTL: 300 * time.Millisecond})
	fx := plugintest.NewEffect("org.fx", 1, 0, "FX")
	f.modules.Add("fx.ofx", fx)
	f.scan(f.cache)
	d, err := f.cache.GetPluginByID("org.fx", 1)
	require.NoError(t, err)

	m, err := f.cache.Acquire(d)
	require.NoError(t, err)

	// acquiring within the timeout keeps the module open well past it
	deadline := time.Now().Add(900 * time.Millisecond)
	for time.Now().Before(deadline) {
		time.Sleep(30 * time.Millisecond)
		again, err := f.cache.Acquire(d)
		require.NoError(t, err)
		require.Same(t, m, again)
		require.True(t, m.IsOpen())
	}
	// only the describe pass has unloaded it
	assert.Equal(t, 1, fx.Unloads())

	// once idle the module is unloaded and closed
	require.Eventually(t, func() bool { return !m.IsOpen() }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 2, fx.Unloads())
	assert.Zero(t, f.cache.Resident())

	// and opens again on the next acquire
	reopened, err := f.cache.Acquire(d)
	require.NoError(t, err)
	assert.NotSame(t, m, reopened)
	assert.True(t, reopened.IsOpen())
}

func TestHasExtension(t *testing.T) {
	exts := []string{".ofx", ".so"}
	assert.True(t, HasExtension("blur.ofx", exts))
	assert.True(t, HasExtension("Blur.OFX", exts))
	assert.True(t, HasExtension("libfx.So", exts))
	assert.False(t, HasExtension("blur.ofx.txt", exts))
	assert.False(t, HasExtension("ofx", exts))
	assert.False(t, HasExtension("blur.ofx", nil))
}

func TestCache_ScanMatchesExtensionCase(t *testing.T) {
	f := newCacheFixture(t, &Options{Extensions: []string{".ofx"}})
	f.modules.Add("Upper.OFX", plugintest.NewEffect("org.upper", 1, 0, "Upper"))
	f.modules.Write(filepath.Join(f.modules.Dir, "notes.txt"), "notes\n")
	f.scan(f.cache)

	_, err := f.cache.GetPluginByID("org.upper", 1)
	assert.NoError(t, err)
	assert.Len(t, f.cache.Modules(), 1)
}
