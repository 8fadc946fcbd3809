package cachestore

import "errors"

var (
	// ErrCacheMiss is returned when no cache is stored under a key
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidCacheKey is returned when a key is empty or escapes the store
	ErrInvalidCacheKey = errors.New("invalid cache key")

	// ErrUnknownBackend is returned by Open for an unsupported backend name
	ErrUnknownBackend = errors.New("unknown cache store backend")
)
