// Package host is the host side of the plugin ABI: the property set that
// describes what the host can do, and the suites plugins fetch from it.
package host
