// Package support is the plugin side of the ABI. A plugin author implements
// Effect, wraps it in a Runtime and exports the runtime's NumberOfPlugins and
// GetPlugin as OfxGetNumberOfPlugins and OfxGetPlugin.
//
// # Usage Example
//
//	var rt = support.NewRuntime(blur{}, nil)
//
//	func OfxGetNumberOfPlugins() int         { return rt.NumberOfPlugins() }
//	func OfxGetPlugin(nth int) *ofx.Plugin { return rt.GetPlugin(nth) }
//
// The runtime owns the single multiplexed entry point. It resolves the action
// name, checks which handles may be null, validates argument property sets,
// keeps the load/unload balance, fetches the host's suites on first load and
// converts every error or panic into a status code before it reaches the
// host.
package support
