package plugincache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/ofxhost/pkg/loader"
	"github.com/platinummonkey/ofxhost/pkg/plugintest"
)

func TestCache_GoPluginShadowingAndReplacement(t *testing.T) {
	root := t.TempDir()
	d1, d2 := filepath.Join(root, "d1"), filepath.Join(root, "d2")
	require.NoError(t, os.MkdirAll(d1, 0755))
	require.NoError(t, os.MkdirAll(d2, 0755))

	sample := filepath.Join(d1, "sample.ofx")
	plugintest.BuildPlugin(t, "./examples/sampleplugin", sample)
	plugintest.BuildPlugin(t, "./examples/noiseplugin", filepath.Join(d1, "noise.ofx"))
	data, err := os.ReadFile(sample)
	require.NoError(t, err)
	shadowed := filepath.Join(d2, "sample.ofx")
	require.NoError(t, os.WriteFile(shadowed, data, 0644))

	log := quietLogger()
	opts := DefaultOptions()
	opts.Loader = loader.NewLoader(nil, log)
	opts.Logger = log
	cache, err := NewCache(opts)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.ScanPluginFiles(ctx, []string{d1, d2}))
	for _, rec := range cache.Modules() {
		if rec.Error != "" {
			plugintest.SkipIfPluginMismatch(t, errors.New(rec.Error))
		}
	}

	// the same binary in a later directory is described and shadowed
	for _, rec := range cache.Modules() {
		assert.NotEqual(t, StateFailed, rec.State, "%s: %s", rec.Path, rec.Error)
	}
	d, err := cache.GetPluginByID("com.platinummonkey.ofxhost.invert", 1)
	require.NoError(t, err)
	assert.Equal(t, sample, d.ModulePath)
	require.Len(t, cache.Collisions(), 1)
	c := cache.Collisions()[0]
	assert.Equal(t, sample, c.Kept)
	assert.Equal(t, shadowed, c.Shadowed)

	_, err = cache.GetPluginByLabel("Noise", 1)
	assert.NoError(t, err)

	// a module rewritten in place fails instead of reporting the old binary
	f, err := os.OpenFile(sample, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte{0})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, cache.ScanPluginFiles(ctx, []string{d1, d2}))
	var rewritten *ModuleRecord
	for _, rec := range cache.Modules() {
		if rec.Path == sample {
			rewritten = rec
		}
	}
	require.NotNil(t, rewritten)
	assert.Equal(t, StateFailed, rewritten.State)
	assert.Contains(t, rewritten.Error, "restart required")

	// the copy in d2 now answers and the failed record is not persisted
	d, err = cache.GetPluginByID("com.platinummonkey.ofxhost.invert", 1)
	require.NoError(t, err)
	assert.Equal(t, shadowed, d.ModulePath)
	var buf bytes.Buffer
	require.NoError(t, cache.WritePluginCache(&buf))
	assert.NotContains(t, buf.String(), strconv.Quote(sample))
}
