// Package variant turns a decoded source image into the fixed matrix of
// output files: every configured format at original size, every configured
// width below the source width, and one blurred placeholder.
//
// Quality settings come from the format table in format.go. jpg and png are
// encoded natively; webp and avif shell out to cwebp and avifenc, and a
// missing binary costs only the variants of that format.
package variant
