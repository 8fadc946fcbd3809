// Package config loads the ofxhost configuration.
//
// # Sources
//
// Defaults are overlaid by an optional YAML file and then by OFXHOST_*
// environment variables:
//
//	cache:
//	  paths: [/usr/OFX/Plugins]
//	  workers: 4
//	  policy: bounded          # or nearest-lower
//	  rescan_schedule: "*/15 * * * *"
//	store:
//	  backend: redis           # file, redis, s3
//	  redis_url: redis://localhost:6379/0
//	observability:
//	  log_level: debug
//	  log_format: json
//
// Environment overrides:
//
//	OFXHOST_PLUGIN_PATHS="/opt/ofx:/usr/OFX/Plugins"
//	OFXHOST_WORKERS="4"
//	OFXHOST_STORE="s3"
//	OFXHOST_S3_BUCKET="plugin-caches"
//	OFXHOST_LOG_LEVEL="debug"
//	OFXHOST_LISTEN=":9090"
//
// Without an explicit path list the search path is OFX_PLUGIN_PATH,
// then /usr/OFX/Plugins, then ~/.ofx/plugins.
//
// # Usage Example
//
//	cfg, err := config.LoadConfig("ofxhost.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	opts, err := cfg.CacheOptions()
//
// # Related Packages
//
//   - pkg/cachestore: store configuration
//   - pkg/plugincache: cache options
package config
