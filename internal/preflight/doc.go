// Package preflight checks the filesystem, encoder binaries, and record store
// that prism depends on.
//
// "prism doctor" prints every result; "prism process" runs RunAll first and
// refuses to start when a required check fails.
package preflight
