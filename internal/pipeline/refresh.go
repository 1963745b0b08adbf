package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"prism/internal/catalog"
	"prism/internal/contentid"
	"prism/internal/logging"
	"prism/internal/services"
	"prism/internal/variant"
)

// refreshSources lists the original variants Refresh may decode when the
// recorded source is gone, best first. AVIF has no decoder.
var refreshSources = []variant.Format{variant.PNG, variant.JPEG, variant.WebP}

// MissingVariants lists the configured combinations asset lacks, either in
// the catalog or on disk, as "format/kind" (or "placeholder").
func (p *Pipeline) MissingVariants(asset catalog.Asset) []string {
	var out []string
	for _, task := range p.missingTasks(asset) {
		out = append(out, taskKey(task))
	}
	return out
}

func (p *Pipeline) missingTasks(asset catalog.Asset) []variant.Task {
	if asset.OriginalWidth <= 0 {
		return nil
	}
	var missing []variant.Task
	for _, task := range p.encoder.Plan(asset.OriginalWidth, p.encoder.Available()) {
		if task.Kind == variant.KindPlaceholder {
			if _, file, ok := asset.Placeholder(); ok && p.exists(file) {
				continue
			}
			missing = append(missing, task)
			continue
		}
		if file, ok := asset.Variant(task.Format, task.Kind); ok && p.exists(file) {
			continue
		}
		missing = append(missing, task)
	}
	return missing
}

func taskKey(task variant.Task) string {
	if task.Kind == variant.KindPlaceholder {
		return string(variant.KindPlaceholder)
	}
	return string(task.Format) + "/" + string(task.Kind)
}

func (p *Pipeline) exists(file catalog.VariantFile) bool {
	info, err := os.Stat(filepath.Join(p.assetRoot, filepath.FromSlash(file.RelativePath)))
	return err == nil && info.Mode().IsRegular() && info.Size() == file.SizeBytes
}

// Refresh encodes the combinations an existing asset is missing and merges
// them into its record under the same id. Variants already on disk are left
// untouched. The recorded source is preferred; when it is gone or no longer
// hashes to the id, the best decodable original variant is used instead.
func (p *Pipeline) Refresh(ctx context.Context, id string) (*Outcome, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	ctx = services.WithStage(services.WithAssetID(ctx, id), "refresh")
	logger := logging.WithContext(ctx, p.logger)

	asset, ok := p.catalog.Get(id)
	if !ok {
		return nil, &ProcessError{ID: id, Err: services.Wrap(services.ErrNotFound, "refresh", "lookup asset", "asset is not cataloged", nil)}
	}

	missing := p.missingTasks(asset)
	if len(missing) == 0 {
		logger.Debug("asset complete")
		return &Outcome{Asset: asset, Unchanged: true}, nil
	}
	wanted := make(map[string]bool, len(missing))
	for _, task := range missing {
		wanted[taskKey(task)] = true
	}

	data, origin, err := p.refreshSource(asset)
	if err != nil {
		return nil, &ProcessError{Path: asset.SourcePath, ID: id, Err: err}
	}
	img, info, err := variant.Decode(data)
	if err != nil {
		return nil, &ProcessError{Path: origin, ID: id, Err: services.Wrap(services.ErrUnreadableSource, "refresh", "decode source", "cannot decode refresh source", err)}
	}
	logger.Debug("refresh source selected",
		logging.String("origin", origin),
		logging.Int("missing", len(missing)))

	result, err := p.encoder.EncodeSelected(ctx, img, info, func(task variant.Task) bool {
		return wanted[taskKey(task)]
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &ProcessError{Path: origin, ID: id, Err: ctxErr}
		}
		return nil, &ProcessError{Path: origin, ID: id, Err: services.Wrap(services.ErrEncode, "refresh", "encode variants", "no missing variant could be encoded", err)}
	}

	base := catalog.Asset{ID: asset.ID, Category: asset.Category, LogicalName: asset.LogicalName}
	outcome, err := p.commit(ctx, base, result)
	if err != nil {
		var procErr *ProcessError
		if errors.As(err, &procErr) {
			procErr.Path = origin
		}
		return nil, err
	}
	outcome.SyncErr = p.sync(ctx, productKey(asset.ProductKey, asset.LogicalName), outcome.Asset)

	logger.Info("asset refreshed",
		logging.String(logging.FieldCategory, asset.Category),
		logging.Int("added", len(result.Variants)),
		logging.Int("failures", len(outcome.Failures)))
	return outcome, nil
}

// refreshSource returns the bytes to re-encode from and where they came from.
func (p *Pipeline) refreshSource(asset catalog.Asset) ([]byte, string, error) {
	if asset.SourcePath != "" {
		data, err := os.ReadFile(asset.SourcePath)
		if err == nil && contentid.Sum(data).String() == asset.ID {
			return data, asset.SourcePath, nil
		}
	}
	for _, format := range refreshSources {
		file, ok := asset.Variant(format, variant.KindOriginal)
		if !ok {
			continue
		}
		path := filepath.Join(p.assetRoot, filepath.FromSlash(file.RelativePath))
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
	}
	return nil, "", services.Wrap(services.ErrUnreadableSource, "refresh", "locate source",
		"recorded source is gone and no decodable original variant exists", nil)
}
