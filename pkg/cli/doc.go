// Package cli provides the ofxcache command-line interface.
//
// # Overview
//
// ofxcache maintains the persistent plugin cache from the terminal: it scans
// plugin directories, answers lookups, and can run as a long-lived service
// that keeps the cache current.
//
// # Commands
//
// scan: Read the cache, scan and write it back
//
//	ofxcache scan --cache ./plugins.cache --path /usr/OFX/Plugins
//
// lookup: Resolve an identifier or label and major version
//
//	ofxcache lookup --id uk.co.thefoundry.furnace.f_blocktexture --major 2
//	ofxcache lookup --label F_BlockTexture --major 3 --json
//
// list: Print the cached plugins
//
//	ofxcache list --context generator
//
// serve: HTTP lookup API with health checks and metrics
//
//	ofxcache serve --listen :8080 --watch
//
// watch: Rescan whenever plugin directories change
//
//	ofxcache watch --path ./plugins
//
// # Configuration
//
// Global flags --config, --log-level and --store override pkg/config, which
// reads an optional YAML file and OFXHOST_* environment variables. Without
// --cache the cache lives in the configured store (file, redis or s3) under
// the configured key.
//
// # Related Packages
//
//   - pkg/plugincache: The cache the commands operate on
//   - pkg/server: HTTP API used by serve
//   - pkg/watch: Rescanner, watcher and scheduler
package cli
