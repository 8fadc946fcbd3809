package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/ofxhost/pkg/cachestore"
	"github.com/platinummonkey/ofxhost/pkg/config"
	"github.com/platinummonkey/ofxhost/pkg/loader"
	"github.com/platinummonkey/ofxhost/pkg/observability"
	"github.com/platinummonkey/ofxhost/pkg/plugincache"
)

// app holds what every subcommand shares once the root command has loaded
// the configuration
type app struct {
	configPath string
	logLevel   string
	store      string

	cfg *config.Config
	log *logrus.Logger
	// opener is nil outside tests, which opens Go shared objects
	opener loader.Opener
}

// NewRootCommand creates the ofxcache command tree
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(version, &app{})
}

func newRootCommand(version string, a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ofxcache",
		Short: "OFX plugin cache - scan, inspect and serve plugin metadata",
		Long: `ofxcache keeps a persistent cache of the OFX image effect plugins found
on the plugin search path. Modules are only loaded when they are new or
have changed since the last scan.

Examples:
  ofxcache scan --cache ./plugins.cache --path /usr/OFX/Plugins
  ofxcache lookup --id uk.co.thefoundry.furnace.f_blocktexture --major 2
  ofxcache serve --listen :8080`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.store, "store", "", "cache store backend (file, redis, s3)")

	root.AddCommand(
		newScanCommand(a),
		newLookupCommand(a),
		newListCommand(a),
		newServeCommand(a, version),
		newWatchCommand(a),
	)
	return root
}

// setup loads the configuration and applies the global flags on top of it
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Observability.LogLevel = a.logLevel
	}
	if a.store != "" {
		cfg.Store.Backend = a.store
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	log, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}

// newCache builds an empty cache from the configuration
func (a *app) newCache(recorder plugincache.Recorder) (*plugincache.Cache, error) {
	opts, err := a.cfg.CacheOptions()
	if err != nil {
		return nil, err
	}
	opts.Loader = loader.NewLoader(a.opener, a.log)
	opts.Logger = a.log
	opts.Recorder = recorder
	return plugincache.NewCache(opts)
}

func (a *app) openStore(ctx context.Context) (cachestore.Store, error) {
	store, err := cachestore.Open(ctx, a.cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	return store, nil
}

// searchPaths returns paths, or the configured search path when it is empty
func (a *app) searchPaths(paths []string) []string {
	if len(paths) > 0 {
		return paths
	}
	return a.cfg.Cache.Paths
}
