package records

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// ErrSchemaMismatch indicates a records database from another schema version.
var ErrSchemaMismatch = errors.New("records schema version mismatch")

// SQLiteStore is a local mirror of the product record store.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("records sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create records dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var tableExists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AssetRef returns the stored reference for productKey.
func (s *SQLiteStore) AssetRef(ctx context.Context, productKey string) (AssetRef, error) {
	key := strings.TrimSpace(productKey)
	var assetID, directURL, category sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT asset_id, direct_url, category FROM products WHERE key = ?", key,
	).Scan(&assetID, &directURL, &category)
	if errors.Is(err, sql.ErrNoRows) {
		return AssetRef{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return AssetRef{}, fmt.Errorf("query product %s: %w", key, err)
	}
	return AssetRef{
		ProductKey: key,
		AssetID:    assetID.String,
		DirectURL:  directURL.String,
		Category:   category.String,
	}, nil
}

// PutProduct inserts or replaces the reference for ref.ProductKey.
func (s *SQLiteStore) PutProduct(ctx context.Context, ref AssetRef) error {
	key := strings.TrimSpace(ref.ProductKey)
	if key == "" {
		return errors.New("product key is empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (key, asset_id, direct_url, category, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			asset_id = excluded.asset_id,
			direct_url = excluded.direct_url,
			category = excluded.category,
			updated_at = excluded.updated_at`,
		key, nullable(ref.AssetID), nullable(ref.DirectURL), nullable(ref.Category), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put product %s: %w", key, err)
	}
	return nil
}

// WriteCanonical records the resolved canonical URL for a product.
func (s *SQLiteStore) WriteCanonical(ctx context.Context, summary Summary) error {
	if err := summary.validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (key, asset_id, category, logical_name, canonical_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			asset_id = excluded.asset_id,
			category = COALESCE(excluded.category, products.category),
			logical_name = excluded.logical_name,
			canonical_url = excluded.canonical_url,
			updated_at = excluded.updated_at`,
		strings.TrimSpace(summary.ProductKey), summary.AssetID, nullable(summary.Category),
		summary.LogicalName, summary.CanonicalURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write canonical %s: %w", summary.ProductKey, err)
	}
	return nil
}

// CanonicalURL returns the last canonical URL written for productKey.
func (s *SQLiteStore) CanonicalURL(ctx context.Context, productKey string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT canonical_url FROM products WHERE key = ?", strings.TrimSpace(productKey),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", productKey, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query canonical url: %w", err)
	}
	return value.String, nil
}

// PutCategory inserts or renames a category.
func (s *SQLiteStore) PutCategory(ctx context.Context, category Category) error {
	if strings.TrimSpace(category.Key) == "" {
		return errors.New("category key is empty")
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (key, name) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET name = excluded.name",
		category.Key, category.Name)
	if err != nil {
		return fmt.Errorf("put category %s: %w", category.Key, err)
	}
	return nil
}

// Categories lists categories ordered by key.
func (s *SQLiteStore) Categories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, name FROM categories ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var category Category
		if err := rows.Scan(&category.Key, &category.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, category)
	}
	return out, rows.Err()
}

func nullable(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}
