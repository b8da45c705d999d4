// Package fleetconfig acquires the fleet document that names the repositories to
// synchronize. It resolves the requested project from the command line or the
// persisted settings file, reads the document from a local file, a URL, or the
// configuration repository on GitHub, and validates its submodules mapping.
package fleetconfig
