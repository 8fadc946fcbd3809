// Package server exposes a plugin cache over HTTP.
//
// Routes:
//
//	GET  /api/v1/plugins[?context=filter]
//	GET  /api/v1/plugins/id/{id}
//	GET  /api/v1/plugins/id/{id}/{major}
//	GET  /api/v1/plugins/label/{label}/{major}
//	GET  /api/v1/modules[?failed=true]
//	GET  /api/v1/collisions
//	GET  /api/v1/stats
//	POST /api/v1/rescan
//	GET  /healthz, /healthz/live, /healthz/ready
//	GET  /metrics
//
// Lookups follow the cache's version policy; a miss is a 404 whose body
// carries the error kind.
package server
