// Package contentid derives asset identities from source bytes.
//
// Sum and SumFile produce a keyed BLAKE3 digest; the hex form names the asset
// directory on disk and keys the catalog. Perceptual and Distance are a
// separate difference-hash helper used only to flag near-duplicate uploads.
package contentid
