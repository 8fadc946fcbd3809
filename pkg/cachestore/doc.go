// Package cachestore holds the serialized plugin cache between runs.
//
// A Store maps a key to the bytes of one cache file. Three backends are
// provided:
//
//   - FileStore: a directory on the local filesystem, written atomically
//   - RedisStore: a Redis string per key
//   - S3Store: an object per key in an S3 (or S3-compatible) bucket
//
// A key that has never been written returns ErrCacheMiss, which the plugin
// cache treats as an empty cache.
package cachestore
