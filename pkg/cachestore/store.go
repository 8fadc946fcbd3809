package cachestore

import (
	"context"
	"fmt"
)

// Store persists serialized plugin caches
type Store interface {
	// Get returns the bytes stored under key, or ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the bytes stored under key
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// HealthChecker is implemented by every backend in this package
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

var (
	_ HealthChecker = (*FileStore)(nil)
	_ HealthChecker = (*RedisStore)(nil)
	_ HealthChecker = (*S3Store)(nil)
)

// Backend names accepted by Open
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendS3    = "s3"
)

// Config selects and configures a backend
type Config struct {
	Backend string `yaml:"backend"`

	// Dir is the FileStore root
	Dir string `yaml:"dir"`

	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	S3Bucket       string `yaml:"s3_bucket"`
	S3Region       string `yaml:"s3_region"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style"`
	S3Prefix       string `yaml:"s3_prefix"`
}

// Open connects to the backend named by cfg.Backend
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendFile:
		return NewFileStore(cfg.Dir)
	case BackendRedis:
		return NewRedisStore(ctx, cfg)
	case BackendS3:
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
