package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"prism/internal/catalog"
	"prism/internal/config"
	"prism/internal/logging"
	"prism/internal/records"
	"prism/internal/variant"
)

// defaultNearDuplicateDistance is the dHash distance under which two assets
// with different ids are reported as likely re-encodes of one image.
const defaultNearDuplicateDistance = 6

// Syncer propagates committed assets to the external record store.
type Syncer interface {
	Sync(ctx context.Context, summary records.Summary) error
}

// Pipeline turns source images into cataloged variant sets.
type Pipeline struct {
	assetRoot     string
	baseURL       string
	encoder       *variant.Encoder
	catalog       *catalog.Store
	syncer        Syncer
	batchWorkers  int
	nearDuplicate int
	logger        *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithSyncer enables propagation of committed assets.
func WithSyncer(syncer Syncer) Option {
	return func(p *Pipeline) {
		p.syncer = syncer
	}
}

// WithBatchWorkers bounds how many files Run processes at once.
func WithBatchWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchWorkers = n
		}
	}
}

// WithNearDuplicateDistance sets the perceptual distance used for duplicate
// warnings. A negative value disables the check.
func WithNearDuplicateDistance(distance int) Option {
	return func(p *Pipeline) {
		p.nearDuplicate = distance
	}
}

// New builds a Pipeline writing under cfg.Paths.AssetRoot.
func New(cfg *config.Config, encoder *variant.Encoder, store *catalog.Store, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		assetRoot:     cfg.Paths.AssetRoot,
		baseURL:       strings.TrimRight(cfg.Loader.BaseURL, "/"),
		encoder:       encoder,
		catalog:       store,
		batchWorkers:  max(cfg.Encoding.BatchWorkers, 1),
		nearDuplicate: defaultNearDuplicateDistance,
		logger:        logging.NewComponentLogger(logger, "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Catalog returns the store the pipeline commits to.
func (p *Pipeline) Catalog() *catalog.Store { return p.catalog }

// CanonicalURL returns the URL published for asset, or "" when it has no
// original variant.
func (p *Pipeline) CanonicalURL(asset catalog.Asset) string {
	_, file, ok := asset.Canonical()
	if !ok {
		return ""
	}
	return p.baseURL + "/" + file.RelativePath
}

// Outcome describes one committed asset.
type Outcome struct {
	Asset catalog.Asset
	// Failures lists variants that were not produced or not written.
	Failures []variant.Failure
	// Written counts variant files whose bytes changed on disk.
	Written int
	// Unchanged is true when every variant file already held identical bytes.
	Unchanged bool
	// NearDuplicates holds ids of visually similar assets with other ids.
	NearDuplicates []string
	// SyncErr is the *records.SyncError from propagation, if any. The asset
	// is committed regardless.
	SyncErr error
}

// ProcessError is a terminal failure for one source.
type ProcessError struct {
	Path string
	ID   string
	Err  error
}

func (e *ProcessError) Error() string {
	switch {
	case e.ID != "" && e.Path != "":
		return fmt.Sprintf("process %s (id %s): %v", e.Path, e.ID, e.Err)
	case e.ID != "":
		return fmt.Sprintf("process asset %s: %v", e.ID, e.Err)
	default:
		return fmt.Sprintf("process %s: %v", e.Path, e.Err)
	}
}

func (e *ProcessError) Unwrap() error { return e.Err }
