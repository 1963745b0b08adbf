package catalog

import (
	"errors"
	"fmt"

	"prism/internal/services"
)

var (
	// ErrLockTimeout is returned when the catalog file lock is not acquired in time.
	ErrLockTimeout = errors.New("catalog lock timeout")
	// ErrInvalidAsset rejects records that must never be committed.
	ErrInvalidAsset = errors.New("invalid asset record")
)

// CatalogError reports a failed catalog read or write.
type CatalogError struct {
	Op  string
	ID  string
	Err error
}

func (e *CatalogError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("catalog %s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

// Unwrap exposes both services.ErrCatalog and the cause.
func (e *CatalogError) Unwrap() []error {
	return []error{services.ErrCatalog, e.Err}
}

func catalogErr(op, id string, err error) error {
	return &CatalogError{Op: op, ID: id, Err: err}
}
