package records

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"prism/internal/textutil"
)

// LookupCache holds category and product lookups for the lifetime of one run.
// It is filled by a single Preload call and passed to whoever needs it.
type LookupCache struct {
	mu         sync.RWMutex
	categories map[string]Category
	products   map[string]AssetRef
	loaded     bool
}

// NewLookupCache returns an empty cache.
func NewLookupCache() *LookupCache {
	return &LookupCache{
		categories: make(map[string]Category),
		products:   make(map[string]AssetRef),
	}
}

// Preload fetches every category and the given product keys from store.
// Unknown product keys are skipped.
func (c *LookupCache) Preload(ctx context.Context, store Store, productKeys ...string) error {
	if store == nil {
		return errors.New("lookup cache: store is nil")
	}
	categories, err := store.Categories(ctx)
	if err != nil {
		return fmt.Errorf("preload categories: %w", err)
	}
	products := make(map[string]AssetRef, len(productKeys))
	for _, key := range productKeys {
		ref, err := store.AssetRef(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("preload product %s: %w", key, err)
		}
		products[textutil.FoldKey(key)] = ref
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, category := range categories {
		c.categories[textutil.FoldKey(category.Key)] = category
		if category.Name != "" {
			c.categories[textutil.FoldKey(category.Name)] = category
		}
	}
	for key, ref := range products {
		c.products[key] = ref
	}
	c.loaded = true
	return nil
}

// Loaded reports whether Preload has completed.
func (c *LookupCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Category matches name against category keys and display names, ignoring
// case and Unicode normalization differences.
func (c *LookupCache) Category(name string) (Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	category, ok := c.categories[textutil.FoldKey(name)]
	return category, ok
}

// Product returns a preloaded product reference.
func (c *LookupCache) Product(key string) (AssetRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref, ok := c.products[textutil.FoldKey(key)]
	return ref, ok
}

// CategoryCount returns the number of distinct categories.
func (c *LookupCache) CategoryCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]struct{}, len(c.categories))
	for _, category := range c.categories {
		seen[category.Key] = struct{}{}
	}
	return len(seen)
}
