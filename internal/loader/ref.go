package loader

import (
	"fmt"
	"strconv"
	"strings"

	"prism/internal/contentid"
	"prism/internal/services"
)

// RefKind distinguishes direct URLs from catalog asset references.
type RefKind string

const (
	RefDirect RefKind = "direct"
	RefAsset  RefKind = "asset"
)

// Ref is a logical image reference.
type Ref struct {
	Kind RefKind `json:"kind"`
	URL  string  `json:"url,omitempty"`
	ID   string  `json:"id,omitempty"`
	// WidthHint selects the smallest cataloged width at or above it.
	WidthHint int `json:"width_hint,omitempty"`
	// PlaceholderShown allows the placeholder as a last candidate because
	// the caller already displayed it.
	PlaceholderShown bool `json:"placeholder_shown,omitempty"`
}

// Direct returns a reference to url.
func Direct(url string) Ref { return Ref{Kind: RefDirect, URL: strings.TrimSpace(url)} }

// AssetRef returns a reference to a cataloged asset.
func AssetRef(id string, widthHint int) Ref {
	return Ref{Kind: RefAsset, ID: strings.ToLower(strings.TrimSpace(id)), WidthHint: max(widthHint, 0)}
}

// Key identifies requests that may share one probe chain.
func (r Ref) Key() string {
	var b strings.Builder
	switch r.Kind {
	case RefAsset:
		b.WriteString("asset:")
		b.WriteString(r.ID)
		if r.WidthHint > 0 {
			b.WriteString("@")
			b.WriteString(strconv.Itoa(r.WidthHint))
		}
	default:
		b.WriteString("direct:")
		b.WriteString(r.URL)
		if r.WidthHint > 0 {
			b.WriteString("@")
			b.WriteString(strconv.Itoa(r.WidthHint))
		}
	}
	if r.PlaceholderShown {
		b.WriteString("+placeholder")
	}
	return b.String()
}

func (r Ref) String() string { return r.Key() }

// ParseRef accepts "asset:<id>[@<width>]" or a direct URL or path.
func ParseRef(value string) (Ref, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Ref{}, services.Wrap(services.ErrValidation, "loader", "parse ref", "reference is empty", nil)
	}
	rest, ok := strings.CutPrefix(value, "asset:")
	if !ok {
		return Direct(value), nil
	}
	id, width, hasWidth := strings.Cut(rest, "@")
	if !contentid.Valid(id) {
		return Ref{}, services.Wrap(services.ErrValidation, "loader", "parse ref", fmt.Sprintf("%q is not a content id", id), nil)
	}
	ref := AssetRef(id, 0)
	if hasWidth {
		w, err := strconv.Atoi(width)
		if err != nil || w <= 0 {
			return Ref{}, services.Wrap(services.ErrValidation, "loader", "parse ref", fmt.Sprintf("width hint %q must be a positive integer", width), nil)
		}
		ref.WidthHint = w
	}
	return ref, nil
}
