// Package pipeline drives source images through hashing, variant encoding,
// file layout, catalog commit, and record store propagation.
//
// Variant files are always written before the catalog record that references
// them, so an interrupted run leaves orphaned files at worst. Each Process
// call is independent; Run fans jobs out over a bounded worker pool and
// aggregates a Report. Refresh fills in combinations an existing asset lacks.
package pipeline
