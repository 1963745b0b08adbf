// Package records connects prism to the external product record store.
//
// The store is a best-effort mirror: it yields asset references for product
// keys and receives the canonical URL of each committed asset. Drivers exist
// for a local SQLite mirror, a JSON REST service, and a disabled store.
package records
