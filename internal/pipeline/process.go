package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"prism/internal/catalog"
	"prism/internal/contentid"
	"prism/internal/fileutil"
	"prism/internal/logging"
	"prism/internal/records"
	"prism/internal/services"
	"prism/internal/textutil"
	"prism/internal/variant"
)

// Job is one source file to process.
type Job struct {
	Path        string
	Category    string
	LogicalName string
	// ProductKey selects the record store entry to update. It defaults to
	// the logical name.
	ProductKey string
}

// Process reads sourcePath, encodes its variants, writes them under the asset
// root and commits the catalog record.
func (p *Pipeline) Process(ctx context.Context, sourcePath, category, logicalName string) (*Outcome, error) {
	return p.ProcessJob(ctx, Job{Path: sourcePath, Category: category, LogicalName: logicalName})
}

// ProcessJob is Process with an explicit product key.
func (p *Pipeline) ProcessJob(ctx context.Context, job Job) (*Outcome, error) {
	path := strings.TrimSpace(job.Path)
	if path == "" {
		return nil, &ProcessError{Err: services.Wrap(services.ErrValidation, "process", "validate job", "source path is empty", nil)}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if strings.TrimSpace(job.Category) == "" {
		return nil, &ProcessError{Path: path, Err: services.Wrap(services.ErrValidation, "process", "validate job", "category is empty", nil)}
	}
	category := textutil.SanitizeToken(job.Category)
	logicalName := strings.TrimSpace(job.LogicalName)
	if logicalName == "" {
		logicalName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	ctx = services.WithStage(services.WithSource(ctx, path), "process")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ProcessError{Path: path, Err: services.Wrap(services.ErrUnreadableSource, "process", "read source", "cannot read source file", err)}
	}
	id := contentid.Sum(data).String()
	ctx = services.WithAssetID(ctx, id)
	logger := logging.WithContext(ctx, p.logger)

	// Variant paths include the category, so a known id keeps the one it
	// was first filed under.
	if existing, ok := p.catalog.Get(id); ok && existing.Category != "" && existing.Category != category {
		logging.WarnWithContext(logger, "category ignored for cataloged asset", "category_ignored",
			logging.String(logging.FieldCategory, existing.Category),
			logging.String("requested_category", category),
			logging.String(logging.FieldErrorHint, "identical bytes are already filed under "+existing.Category),
			logging.String(logging.FieldImpact, "asset stays under its recorded category"))
		category = existing.Category
	}

	img, info, err := variant.Decode(data)
	if err != nil {
		marker := services.ErrUnreadableSource
		if errors.Is(err, variant.ErrUnsupportedSourceFormat) {
			marker = services.ErrUnsupportedSource
		}
		return nil, &ProcessError{Path: path, ID: id, Err: services.Wrap(marker, "process", "decode source", "cannot read image metadata", err)}
	}
	logger.Debug("source decoded",
		logging.String("source_format", info.Format),
		logging.Int("width", info.Width),
		logging.Int("height", info.Height),
		logging.Int64("size_bytes", info.SizeBytes))

	hash, err := contentid.Perceptual(img)
	if err != nil {
		logger.Debug("perceptual hash unavailable", logging.Error(err))
	}
	nearDuplicates := p.nearDuplicates(ctx, id, hash)

	result, err := p.encoder.Encode(ctx, img, info)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &ProcessError{Path: path, ID: id, Err: ctxErr}
		}
		return nil, &ProcessError{Path: path, ID: id, Err: services.Wrap(services.ErrEncode, "process", "encode variants", "no variant could be encoded", err)}
	}

	base := catalog.Asset{
		ID:                id,
		Category:          category,
		LogicalName:       logicalName,
		OriginalFormat:    info.Format,
		OriginalWidth:     info.Width,
		OriginalHeight:    info.Height,
		OriginalSizeBytes: info.SizeBytes,
		PerceptualHash:    hash,
		SourcePath:        path,
		ProductKey:        productKey(job.ProductKey, logicalName),
	}
	outcome, err := p.commit(ctx, base, result)
	if err != nil {
		var procErr *ProcessError
		if errors.As(err, &procErr) {
			procErr.Path = path
		}
		return nil, err
	}
	outcome.NearDuplicates = nearDuplicates

	outcome.SyncErr = p.sync(ctx, base.ProductKey, outcome.Asset)

	logger.Info("asset processed",
		logging.String(logging.FieldCategory, category),
		logging.String("logical_name", logicalName),
		logging.Int("variants", outcome.Asset.VariantCount()),
		logging.Int("failures", len(outcome.Failures)),
		logging.Int("written", outcome.Written),
		logging.Bool("unchanged", outcome.Unchanged))
	return outcome, nil
}

// commit writes every encoded variant then upserts the record built from the
// files that landed. Files always precede the catalog entry that names them.
func (p *Pipeline) commit(ctx context.Context, asset catalog.Asset, result variant.Result) (*Outcome, error) {
	logger := logging.WithContext(ctx, p.logger)
	outcome := &Outcome{Failures: append([]variant.Failure(nil), result.Failures...)}
	asset.Variants = nil

	for _, output := range result.Variants {
		rel := variant.RelativePath(asset.Category, asset.ID, output.Kind, output.Format)
		changed, err := p.writeVariant(rel, output.Data)
		if err != nil {
			logging.WarnWithContext(logger, "variant write failed", "variant_write_failed",
				logging.String(logging.FieldFormat, string(output.Format)),
				logging.String(logging.FieldVariant, string(output.Kind)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check free space and permissions under the asset root"),
				logging.String(logging.FieldImpact, "variant omitted from the asset"))
			outcome.Failures = append(outcome.Failures, variant.Failure{Format: output.Format, Kind: output.Kind, Err: err})
			continue
		}
		if changed {
			outcome.Written++
		}
		asset.SetVariant(output.Format, output.Kind, catalog.VariantFile{
			RelativePath: rel,
			SizeBytes:    int64(len(output.Data)),
		})
	}

	if asset.VariantCount() == 0 {
		return nil, &ProcessError{ID: asset.ID, Err: services.Wrap(services.ErrEncode, "commit", "write variants", "no variant file could be written", &variant.EncodeError{Failures: outcome.Failures})}
	}

	if err := p.catalog.Upsert(ctx, asset); err != nil {
		logging.ErrorWithContext(logger, "catalog commit failed", "catalog_commit_failed",
			logging.Error(err),
			logging.Kind(services.Kind(err)),
			logging.String(logging.FieldErrorHint, "re-run prism process for this file; written variants are orphaned until then"))
		return nil, &ProcessError{ID: asset.ID, Err: err}
	}

	committed, ok := p.catalog.Get(asset.ID)
	if !ok {
		committed = asset
	}
	outcome.Asset = committed
	outcome.Unchanged = outcome.Written == 0
	return outcome, nil
}

// productKey returns the record store key for an asset, defaulting to its
// logical name.
func productKey(key, logicalName string) string {
	if key = strings.TrimSpace(key); key != "" {
		return key
	}
	return logicalName
}

func (p *Pipeline) writeVariant(rel string, data []byte) (bool, error) {
	abs := filepath.Join(p.assetRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return false, fmt.Errorf("create %s: %w", filepath.Dir(rel), err)
	}
	changed, err := fileutil.WriteIfChanged(abs, data, 0o644)
	if err != nil {
		return false, fmt.Errorf("write %s: %w", rel, err)
	}
	return changed, nil
}

func (p *Pipeline) nearDuplicates(ctx context.Context, id, hash string) []string {
	if hash == "" || p.nearDuplicate < 0 {
		return nil
	}
	var ids []string
	for _, match := range p.catalog.FindSimilar(hash, p.nearDuplicate) {
		if match.Asset.ID == id {
			continue
		}
		ids = append(ids, match.Asset.ID)
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "near-duplicate source", "near_duplicate",
			logging.String("similar_asset_id", match.Asset.ID),
			logging.String("similar_source", match.Asset.SourcePath),
			logging.Int("distance", match.Distance),
			logging.String(logging.FieldErrorHint, "confirm this is not a re-export of an existing image"),
			logging.String(logging.FieldImpact, "a second asset is created for visually similar content"))
	}
	return ids
}

func (p *Pipeline) sync(ctx context.Context, productKey string, asset catalog.Asset) error {
	if p.syncer == nil {
		return nil
	}
	summary := records.Summary{
		ProductKey:   productKey,
		AssetID:      asset.ID,
		LogicalName:  asset.LogicalName,
		Category:     asset.Category,
		CanonicalURL: p.CanonicalURL(asset),
	}
	return p.syncer.Sync(ctx, summary)
}
