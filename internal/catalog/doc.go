// Package catalog persists the asset catalog: a single JSON document mapping
// content ids to their variant files.
//
// Upsert is a read-modify-write of the whole document guarded by an
// in-process mutex and a cross-process file lock. Records with no variants
// are rejected, so the catalog never points at an asset that has no files.
package catalog
