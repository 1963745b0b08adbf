package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnreadableSource  = errors.New("unreadable source")
	ErrUnsupportedSource = errors.New("unsupported source format")
	ErrEncode            = errors.New("encode error")
	ErrCatalog           = errors.New("catalog error")
	ErrSync              = errors.New("sync error")
	ErrProbe             = errors.New("probe failure")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrEncode
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a failed operation may succeed when re-run without
// operator intervention. Source-level failures (unreadable, unsupported, zero
// variants encoded) are deterministic for identical bytes and never retryable.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrUnreadableSource), errors.Is(err, ErrUnsupportedSource),
		errors.Is(err, ErrEncode), errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return false
	case errors.Is(err, ErrCatalog), errors.Is(err, ErrSync), errors.Is(err, ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return false
	}
}

// Kind returns a short, stable label for the marker carried by err. It is
// used as the failure column in batch reports and as the event type suffix
// in structured logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnreadableSource):
		return "unreadable_source"
	case errors.Is(err, ErrUnsupportedSource):
		return "unsupported_source"
	case errors.Is(err, ErrEncode):
		return "encode"
	case errors.Is(err, ErrCatalog):
		return "catalog"
	case errors.Is(err, ErrSync):
		return "sync"
	case errors.Is(err, ErrProbe):
		return "probe"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
