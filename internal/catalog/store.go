package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"prism/internal/contentid"
	"prism/internal/fileutil"
	"prism/internal/logging"
)

const (
	defaultLockTimeout = 10 * time.Second
	lockRetryDelay     = 25 * time.Millisecond
)

// Store is the catalog document: one JSON object keyed by asset id.
//
// Reads are served from memory. Upsert serializes writers within the process
// with a mutex and across processes with a flock on {path}.lock, re-reading
// the document under the lock so no concurrent write is lost.
type Store struct {
	path        string
	lockPath    string
	lockTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu     sync.RWMutex
	assets map[string]Asset
}

// Option customizes a Store.
type Option func(*Store)

// WithLockTimeout bounds the wait for the cross-process lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithClock overrides the time source used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open loads the catalog at path. A missing file is an empty catalog.
func Open(path string, logger *slog.Logger, opts ...Option) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, catalogErr("open", "", errors.New("catalog path is empty"))
	}
	s := &Store{
		path:        path,
		lockPath:    path + ".lock",
		lockTimeout: defaultLockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logging.NewComponentLogger(logger, "catalog"),
		assets:      make(map[string]Asset),
	}
	for _, opt := range opts {
		opt(s)
	}

	assets, err := s.read()
	if err != nil {
		return nil, catalogErr("open", "", err)
	}
	s.assets = assets

	s.logger.Debug("loaded catalog",
		logging.Int("asset_count", len(assets)),
		logging.String("path", path))
	return s, nil
}

// Path returns the catalog document path.
func (s *Store) Path() string { return s.path }

// Get returns the asset for id.
func (s *Store) Get(id string) (Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Asset{}, false
	}
	return asset.Clone(), true
}

// List returns every asset, newest first.
func (s *Store) List() []Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assets := make([]Asset, 0, len(s.assets))
	for _, asset := range s.assets {
		assets = append(assets, asset.Clone())
	}
	sort.Slice(assets, func(i, j int) bool {
		if !assets[i].CreatedAt.Equal(assets[j].CreatedAt) {
			return assets[i].CreatedAt.After(assets[j].CreatedAt)
		}
		return assets[i].ID < assets[j].ID
	})
	return assets
}

// Count returns the number of assets.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}

// Reload replaces the in-memory view with the document on disk.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets, err := s.read()
	if err != nil {
		return catalogErr("reload", "", err)
	}
	s.assets = assets
	return nil
}

// Upsert commits asset, merging it with any record already stored under the
// same id. Committing an identical record again leaves the file untouched.
func (s *Store) Upsert(ctx context.Context, asset Asset) error {
	asset.ID = strings.ToLower(strings.TrimSpace(asset.ID))
	if !contentid.Valid(asset.ID) {
		return catalogErr("upsert", asset.ID, fmt.Errorf("%w: id %q is not a content id", ErrInvalidAsset, asset.ID))
	}
	if asset.VariantCount() == 0 {
		return catalogErr("upsert", asset.ID, fmt.Errorf("%w: no variants", ErrInvalidAsset))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return catalogErr("upsert", asset.ID, err)
	}
	defer unlock()

	current, err := s.read()
	if err != nil {
		return catalogErr("upsert", asset.ID, err)
	}

	existing, found := current[asset.ID]
	merged := merge(existing, asset, s.now())
	if found && sameRecord(existing, merged) {
		s.assets = current
		s.logger.Debug("catalog record unchanged", logging.String(logging.FieldAssetID, asset.ID))
		return nil
	}

	current[asset.ID] = merged
	if err := s.write(current); err != nil {
		return catalogErr("upsert", asset.ID, err)
	}
	s.assets = current

	s.logger.Debug("catalog record committed",
		logging.String(logging.FieldAssetID, asset.ID),
		logging.String(logging.FieldCategory, merged.Category),
		logging.Int("variants", merged.VariantCount()),
		logging.Bool("created", !found))
	return nil
}

// Similar is a FindSimilar match.
type Similar struct {
	Asset    Asset
	Distance int
}

// FindSimilar returns assets whose perceptual hash is within maxDistance of
// hash, closest first.
func (s *Store) FindSimilar(hash string, maxDistance int) []Similar {
	if hash == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Similar
	for _, asset := range s.assets {
		if asset.PerceptualHash == "" {
			continue
		}
		distance, err := contentid.Distance(hash, asset.PerceptualHash)
		if err != nil || distance > maxDistance {
			continue
		}
		matches = append(matches, Similar{Asset: asset.Clone(), Distance: distance})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Asset.ID < matches[j].Asset.ID
	})
	return matches
}

func (s *Store) lock(ctx context.Context) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	fileLock := flock.New(s.lockPath)
	ok, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !ok {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err == nil || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s (%s)", ErrLockTimeout, s.lockTimeout, s.lockPath)
		}
		return nil, fmt.Errorf("acquire %s: %w", s.lockPath, err)
	}
	return func() {
		if err := fileLock.Unlock(); err != nil {
			s.logger.Warn("failed to release catalog lock",
				logging.String(logging.FieldEventType, "catalog_unlock_failed"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the stale lock file if no prism process is running"),
				logging.String(logging.FieldImpact, "other writers may wait for the lock timeout"))
		}
	}, nil
}

func (s *Store) read() (map[string]Asset, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]Asset), nil
		}
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return make(map[string]Asset), nil
	}

	var assets map[string]Asset
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if assets == nil {
		assets = make(map[string]Asset)
	}
	for id, asset := range assets {
		if asset.ID == "" {
			asset.ID = id
			assets[id] = asset
		}
	}
	return assets, nil
}

func (s *Store) write(assets map[string]Asset) error {
	data, err := encode(assets)
	if err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog file: %w", err)
	}
	return nil
}

// encode renders the document with sorted keys and a trailing newline.
func encode(assets map[string]Asset) ([]byte, error) {
	data, err := json.MarshalIndent(assets, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal catalog: %w", err)
	}
	return append(data, '\n'), nil
}

func sameRecord(a, b Asset) bool {
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	left, errA := json.Marshal(a)
	right, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(left, right)
}
