package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/ofxhost/pkg/cachestore"
	"github.com/platinummonkey/ofxhost/pkg/plugincache"
)

// cacheFlags locate the cache a command reads and the directories it scans
type cacheFlags struct {
	cacheFile string
	paths     []string
}

func (f *cacheFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.cacheFile, "cache", "", "cache file (default: the configured store)")
	cmd.Flags().StringSliceVar(&f.paths, "path", nil, "plugin directory to scan (repeatable, default: the configured search path)")
}

// location returns the store and key the cache lives under. A cache file is
// served by a file store rooted at its directory.
func (a *app) location(ctx context.Context, cacheFile string) (cachestore.Store, string, error) {
	if cacheFile == "" {
		store, err := a.openStore(ctx)
		if err != nil {
			return nil, "", err
		}
		return store, a.cfg.Cache.Key, nil
	}
	store, err := cachestore.NewFileStore(filepath.Dir(cacheFile))
	if err != nil {
		return nil, "", err
	}
	return store, filepath.Base(cacheFile), nil
}

// loadCache creates a cache and fills it from the cache location, scanning
// the search path as well when scan is set
func (a *app) loadCache(ctx context.Context, flags *cacheFlags, scan bool) (*plugincache.Cache, error) {
	cache, err := a.newCache(nil)
	if err != nil {
		return nil, err
	}

	store, key, err := a.location(ctx, flags.cacheFile)
	if err != nil {
		cache.Close()
		return nil, err
	}
	defer store.Close()

	if err := cache.Load(ctx, store, key); err != nil {
		cache.Close()
		return nil, err
	}
	if scan {
		if err := cache.ScanPluginFiles(ctx, a.searchPaths(flags.paths)); err != nil {
			cache.Close()
			return nil, err
		}
	}
	return cache, nil
}

func newScanCommand(a *app) *cobra.Command {
	var (
		flags   cacheFlags
		outFile string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Read the cache, scan the plugin directories and write the cache back",
		Long: `Scan reads the existing cache, walks the plugin directories and writes
the updated cache. Modules whose size and modification time are unchanged
are reused from the cache without being loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(cmd.Context(), cmd.OutOrStdout(), &flags, outFile)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&outFile, "out", "", "write the cache to this file instead of where it was read from")
	return cmd
}

func (a *app) runScan(ctx context.Context, out io.Writer, flags *cacheFlags, outFile string) error {
	cache, err := a.loadCache(ctx, flags, true)
	if err != nil {
		return err
	}
	defer cache.Close()

	if outFile == "" {
		outFile = flags.cacheFile
	}
	store, key, err := a.location(ctx, outFile)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := cache.Save(ctx, store, key); err != nil {
		return err
	}
	a.log.Debugf("Wrote plugin cache to %s", key)

	printSummary(out, cache)
	return nil
}

func printSummary(out io.Writer, cache *plugincache.Cache) {
	stats := cache.Stats()
	fmt.Fprintf(out, "Modules:    %d (%d failed)\n", stats.Modules, stats.Failed)
	fmt.Fprintf(out, "Plugins:    %d\n", stats.Plugins)
	fmt.Fprintf(out, "Reused:     %d\n", stats.Hits)
	fmt.Fprintf(out, "Loaded:     %d\n", stats.Loads)
	fmt.Fprintf(out, "Collisions: %d\n", stats.Collisions)

	for _, c := range cache.Collisions() {
		fmt.Fprintf(out, "  %s v%d in %s shadowed by %s\n", c.Identifier, c.VersionMajor, c.Shadowed, c.Kept)
	}
	for _, rec := range cache.Modules() {
		if rec.State == plugincache.StateFailed {
			fmt.Fprintf(out, "  failed: %s: %s\n", rec.Path, rec.Error)
		}
	}
}
