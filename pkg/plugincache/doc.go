// Package plugincache builds and persists an index of plugin metadata so a
// host does not have to load every plugin binary on every start.
//
// A scan walks plugin directories for module files. A module whose size and
// modification time match its cached record is reused as is; any other module
// is opened through a loader.Loader, each of its plugins is taken through
// load, describe, describe-in-context and unload, and the results replace the
// record. The records are written in a line oriented text format:
//
//	ofx-plugin-cache 1
//	module "/plugins/Sample.ofx"
//	  mtime 1700000000123456789
//	  size 4096
//	  plugin "uk.test.sample"
//	    index 0
//	    version 2 1
//	    api "OfxImageEffectPluginAPI" 1
//	    label "Sample"
//	    contexts "filter" "general"
//	    flags "supports-tiles"
//	  end
//	end
//
// Plugins are looked up by identifier or label and a major version. When the
// same identifier and major appear in two modules the first one scanned wins.
package plugincache
