package preflight

import (
	"context"
	"path/filepath"

	"prism/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Asset root", cfg.Paths.AssetRoot))

	catalogDir := filepath.Dir(cfg.CatalogFile())
	if catalogDir != filepath.Clean(cfg.Paths.AssetRoot) {
		results = append(results, CheckDirectoryAccess("Catalog directory", catalogDir))
	}

	results = append(results, CheckEncoders(ctx, cfg)...)

	if cfg.Records.Driver != config.RecordsDriverNone {
		results = append(results, CheckRecords(ctx, cfg))
	}

	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
