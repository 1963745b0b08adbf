// Package config loads, normalizes, and validates prism configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the PRISM_RECORDS_API_KEY
// environment fallback. Downstream packages receive canonical format names,
// sorted target widths, and absolute paths.
package config
