package records

import (
	"context"
	"fmt"
	"strings"

	"prism/internal/services"
)

// ErrNotFound reports a product key the record store does not know.
var ErrNotFound = fmt.Errorf("record %w", services.ErrNotFound)

// ErrRejected reports a summary the record store refused. Resending the same
// summary cannot succeed.
var ErrRejected = fmt.Errorf("record rejected: %w", services.ErrValidation)

// AssetRef is what the record store holds for one product: either an asset
// id from the catalog or a direct image path.
type AssetRef struct {
	ProductKey string `json:"product_key"`
	AssetID    string `json:"asset_id,omitempty"`
	DirectURL  string `json:"direct_url,omitempty"`
	Category   string `json:"category,omitempty"`
}

// Ref renders the reference in loader syntax.
func (r AssetRef) Ref() string {
	if r.AssetID != "" {
		return "asset:" + r.AssetID
	}
	return r.DirectURL
}

// Category is a product category known to the record store.
type Category struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Summary is the denormalized view written back after a commit.
type Summary struct {
	ProductKey   string `json:"product_key"`
	AssetID      string `json:"asset_id"`
	LogicalName  string `json:"logical_name"`
	Category     string `json:"category"`
	CanonicalURL string `json:"canonical_url"`
}

func (s Summary) validate() error {
	if strings.TrimSpace(s.ProductKey) == "" {
		return fmt.Errorf("%w: summary product key is empty", ErrRejected)
	}
	if strings.TrimSpace(s.CanonicalURL) == "" {
		return fmt.Errorf("%w: summary canonical url is empty", ErrRejected)
	}
	return nil
}

// Store is the external product record store.
type Store interface {
	AssetRef(ctx context.Context, productKey string) (AssetRef, error)
	WriteCanonical(ctx context.Context, summary Summary) error
	Categories(ctx context.Context) ([]Category, error)
	Close() error
}

// SyncError is returned when a summary could not be written after all retries.
type SyncError struct {
	ProductKey string
	AssetID    string
	Attempts   int
	Err        error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s (asset %s) failed after %d attempt(s): %v", e.ProductKey, e.AssetID, e.Attempts, e.Err)
}

// Unwrap exposes both services.ErrSync and the last cause.
func (e *SyncError) Unwrap() []error {
	return []error{services.ErrSync, e.Err}
}

type noneStore struct{}

// None returns a Store that holds nothing and accepts every write.
func None() Store { return noneStore{} }

func (noneStore) AssetRef(_ context.Context, productKey string) (AssetRef, error) {
	return AssetRef{}, fmt.Errorf("%s: %w", productKey, ErrNotFound)
}

func (noneStore) WriteCanonical(context.Context, Summary) error { return nil }

func (noneStore) Categories(context.Context) ([]Category, error) { return nil, nil }

func (noneStore) Close() error { return nil }
