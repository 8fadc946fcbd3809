package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/ofxhost/pkg/cachestore"
	"github.com/platinummonkey/ofxhost/pkg/host"
	"github.com/platinummonkey/ofxhost/pkg/observability"
	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/plugincache"
)

// PluginPathEnv lists extra plugin directories, separated by the OS list
// separator. Its entries are searched before the default directories.
const PluginPathEnv = "OFX_PLUGIN_PATH"

// Config holds all application configuration
type Config struct {
	Cache         CacheConfig         `yaml:"cache"`
	Host          HostConfig          `yaml:"host"`
	Store         cachestore.Config   `yaml:"store"`
	Observability ObservabilityConfig `yaml:"observability"`
	Server        ServerConfig        `yaml:"server"`
}

// CacheConfig controls plugin discovery and the persisted cache
type CacheConfig struct {
	Paths           []string      `yaml:"paths"`
	Extensions      []string      `yaml:"extensions"`
	Key             string        `yaml:"key"`
	Workers         int           `yaml:"workers"`
	Policy          string        `yaml:"policy"`
	ResidentModules int           `yaml:"resident_modules"`
	ResidentTTL     time.Duration `yaml:"resident_ttl"`

	// RescanSchedule is a cron expression for periodic rescans in serve mode
	RescanSchedule string `yaml:"rescan_schedule"`
	// WatchDebounce coalesces bursts of filesystem events in watch mode
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// HostConfig is the host description advertised to plugins
type HostConfig struct {
	host.Description `yaml:",inline"`
	Contexts         []string `yaml:"contexts"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RescanPerMinute limits POST /api/v1/rescan per client; 0 disables
	// the limit
	RescanPerMinute int `yaml:"rescan_per_minute"`
}

// Default returns the configuration used when no file or environment
// overrides are present
func Default() *Config {
	desc := host.DefaultDescription()
	contexts := make([]string, 0, len(desc.Contexts))
	for _, c := range desc.Contexts {
		contexts = append(contexts, c.String())
	}

	return &Config{
		Cache: CacheConfig{
			Paths:           DefaultPluginPaths(),
			Extensions:      []string{".ofx", ".so"},
			Key:             "plugins.cache",
			Workers:         1,
			Policy:          plugincache.PolicyBounded.String(),
			ResidentModules: 8,
			WatchDebounce:   500 * time.Millisecond,
		},
		Host: HostConfig{Description: desc, Contexts: contexts},
		Store: cachestore.Config{
			Backend: cachestore.BackendFile,
			Dir:     defaultCacheDir(),
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      observability.FormatText,
			MetricsEnabled: true,
		},
		Server: ServerConfig{
			Listen:          ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RescanPerMinute: 6,
		},
	}
}

// DefaultPluginPaths returns the OFX_PLUGIN_PATH entries followed by the
// standard plugin directories
func DefaultPluginPaths() []string {
	var paths []string
	for _, p := range filepath.SplitList(os.Getenv(PluginPathEnv)) {
		if p != "" {
			paths = append(paths, p)
		}
	}
	paths = append(paths, "/usr/OFX/Plugins")
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".ofx", "plugins"))
	}
	return paths
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "ofxhost")
	}
	return ".ofxhost"
}

// LoadConfig reads the YAML file at path (optional, "" skips it), applies
// OFXHOST_* environment overrides and validates the result
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	// Cache
	if paths := getEnv("OFXHOST_PLUGIN_PATHS", ""); paths != "" {
		c.Cache.Paths = filepath.SplitList(paths)
	}
	if exts := getEnv("OFXHOST_EXTENSIONS", ""); exts != "" {
		c.Cache.Extensions = strings.Split(exts, ",")
	}
	c.Cache.Key = getEnv("OFXHOST_CACHE_KEY", c.Cache.Key)
	c.Cache.Workers = getEnvInt("OFXHOST_WORKERS", c.Cache.Workers)
	c.Cache.Policy = getEnv("OFXHOST_VERSION_POLICY", c.Cache.Policy)
	c.Cache.ResidentModules = getEnvInt("OFXHOST_RESIDENT_MODULES", c.Cache.ResidentModules)
	c.Cache.ResidentTTL = getEnvDuration("OFXHOST_RESIDENT_TTL", c.Cache.ResidentTTL)
	c.Cache.RescanSchedule = getEnv("OFXHOST_RESCAN_SCHEDULE", c.Cache.RescanSchedule)
	c.Cache.WatchDebounce = getEnvDuration("OFXHOST_WATCH_DEBOUNCE", c.Cache.WatchDebounce)

	// Host
	c.Host.Name = getEnv("OFXHOST_HOST_NAME", c.Host.Name)
	c.Host.Label = getEnv("OFXHOST_HOST_LABEL", c.Host.Label)

	// Store
	c.Store.Backend = getEnv("OFXHOST_STORE", c.Store.Backend)
	c.Store.Dir = getEnv("OFXHOST_CACHE_DIR", c.Store.Dir)
	c.Store.RedisURL = getEnv("OFXHOST_REDIS_URL", c.Store.RedisURL)
	c.Store.RedisPassword = getEnv("OFXHOST_REDIS_PASSWORD", c.Store.RedisPassword)
	c.Store.RedisDB = getEnvInt("OFXHOST_REDIS_DB", c.Store.RedisDB)
	c.Store.RedisPrefix = getEnv("OFXHOST_REDIS_PREFIX", c.Store.RedisPrefix)
	c.Store.S3Bucket = getEnv("OFXHOST_S3_BUCKET", c.Store.S3Bucket)
	c.Store.S3Region = getEnv("OFXHOST_S3_REGION", c.Store.S3Region)
	c.Store.S3Endpoint = getEnv("OFXHOST_S3_ENDPOINT", c.Store.S3Endpoint)
	c.Store.S3AccessKey = getEnv("OFXHOST_S3_ACCESS_KEY", c.Store.S3AccessKey)
	c.Store.S3SecretKey = getEnv("OFXHOST_S3_SECRET_KEY", c.Store.S3SecretKey)
	c.Store.S3UsePathStyle = getEnvBool("OFXHOST_S3_USE_PATH_STYLE", c.Store.S3UsePathStyle)
	c.Store.S3Prefix = getEnv("OFXHOST_S3_PREFIX", c.Store.S3Prefix)

	// Observability
	c.Observability.LogLevel = getEnv("OFXHOST_LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = getEnv("OFXHOST_LOG_FORMAT", c.Observability.LogFormat)
	c.Observability.MetricsEnabled = getEnvBool("OFXHOST_METRICS_ENABLED", c.Observability.MetricsEnabled)

	// Server
	c.Server.Listen = getEnv("OFXHOST_LISTEN", c.Server.Listen)
	c.Server.ReadTimeout = getEnvDuration("OFXHOST_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("OFXHOST_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("OFXHOST_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("OFXHOST_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.RescanPerMinute = getEnvInt("OFXHOST_RESCAN_PER_MINUTE", c.Server.RescanPerMinute)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Cache
	if len(c.Cache.Extensions) == 0 {
		return fmt.Errorf("at least one plugin extension is required")
	}
	for _, ext := range c.Cache.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("plugin extension %q must start with a dot", ext)
		}
	}
	if c.Cache.Key == "" {
		return fmt.Errorf("cache key is required")
	}
	if c.Cache.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Cache.Workers)
	}
	if c.Cache.ResidentModules < 1 {
		return fmt.Errorf("resident modules must be at least 1, got %d", c.Cache.ResidentModules)
	}
	if _, err := plugincache.ParsePolicy(c.Cache.Policy); err != nil {
		return err
	}
	if c.Cache.RescanSchedule != "" {
		if _, err := cron.ParseStandard(c.Cache.RescanSchedule); err != nil {
			return fmt.Errorf("invalid rescan schedule %q: %w", c.Cache.RescanSchedule, err)
		}
	}

	// Host
	if c.Host.Name == "" {
		return fmt.Errorf("host name is required")
	}
	if _, err := c.Host.contexts(); err != nil {
		return err
	}

	// Store
	switch c.Store.Backend {
	case "", cachestore.BackendFile:
		if c.Store.Dir == "" {
			return fmt.Errorf("cache directory is required for the file store")
		}
	case cachestore.BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis store")
		}
	case cachestore.BackendS3:
		if c.Store.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for the s3 store")
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be file, redis, or s3)", c.Store.Backend)
	}

	// Server
	if c.Server.Listen == "" {
		return fmt.Errorf("server listen address is required")
	}
	if c.Server.RescanPerMinute < 0 {
		return fmt.Errorf("rescan rate limit must not be negative, got %d", c.Server.RescanPerMinute)
	}

	return nil
}

func (h HostConfig) contexts() ([]ofx.Context, error) {
	contexts := make([]ofx.Context, 0, len(h.Contexts))
	for _, tag := range h.Contexts {
		c := ofx.ParseContextTag(tag)
		if c == ofx.ContextNone {
			return nil, fmt.Errorf("unknown host context %q", tag)
		}
		contexts = append(contexts, c)
	}
	return contexts, nil
}

// HostDescription returns the host description with its contexts resolved
func (c *Config) HostDescription() host.Description {
	desc := c.Host.Description
	desc.Contexts, _ = c.Host.contexts()
	return desc
}

// CacheOptions converts the configuration into plugincache options. The
// loader, logger and recorder are left for the caller.
func (c *Config) CacheOptions() (*plugincache.Options, error) {
	policy, err := plugincache.ParsePolicy(c.Cache.Policy)
	if err != nil {
		return nil, err
	}
	desc := c.HostDescription()

	opts := plugincache.DefaultOptions()
	opts.Extensions = c.Cache.Extensions
	opts.Workers = c.Cache.Workers
	opts.Policy = policy
	opts.ResidentModules = c.Cache.ResidentModules
	opts.ResidentTTL = c.Cache.ResidentTTL
	opts.Host = &desc
	return opts, nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
