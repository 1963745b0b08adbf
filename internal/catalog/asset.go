package catalog

import (
	"maps"
	"slices"
	"time"

	"prism/internal/variant"
)

// VariantFile locates one encoded variant relative to the asset root.
type VariantFile struct {
	RelativePath string `json:"path"`
	SizeBytes    int64  `json:"size_bytes"`
}

// Asset is the catalog record for one content id.
type Asset struct {
	ID                string                                          `json:"id"`
	Category          string                                          `json:"category"`
	LogicalName       string                                          `json:"logical_name"`
	OriginalFormat    string                                          `json:"original_format"`
	OriginalWidth     int                                             `json:"original_width"`
	OriginalHeight    int                                             `json:"original_height"`
	OriginalSizeBytes int64                                           `json:"original_size_bytes"`
	PerceptualHash    string                                          `json:"perceptual_hash,omitempty"`
	SourcePath        string                                          `json:"source_path,omitempty"`
	ProductKey        string                                          `json:"product_key,omitempty"`
	CreatedAt         time.Time                                       `json:"created_at"`
	UpdatedAt         time.Time                                       `json:"updated_at"`
	Variants          map[variant.Format]map[variant.Kind]VariantFile `json:"variants"`
}

// Variant returns the file for format and kind.
func (a Asset) Variant(format variant.Format, kind variant.Kind) (VariantFile, bool) {
	kinds, ok := a.Variants[format]
	if !ok {
		return VariantFile{}, false
	}
	file, ok := kinds[kind]
	return file, ok
}

// SetVariant records a file, allocating maps as needed.
func (a *Asset) SetVariant(format variant.Format, kind variant.Kind, file VariantFile) {
	if a.Variants == nil {
		a.Variants = make(map[variant.Format]map[variant.Kind]VariantFile)
	}
	kinds, ok := a.Variants[format]
	if !ok {
		kinds = make(map[variant.Kind]VariantFile)
		a.Variants[format] = kinds
	}
	kinds[kind] = file
}

// VariantCount returns the number of variant files across all formats.
func (a Asset) VariantCount() int {
	total := 0
	for _, kinds := range a.Variants {
		total += len(kinds)
	}
	return total
}

// Formats returns the formats present, in format table order.
func (a Asset) Formats() []variant.Format {
	var out []variant.Format
	for _, format := range variant.Formats() {
		if len(a.Variants[format]) > 0 {
			out = append(out, format)
		}
	}
	return out
}

// Widths returns the width variants present for format, ascending.
func (a Asset) Widths(format variant.Format) []int {
	var widths []int
	for kind := range a.Variants[format] {
		if width, ok := kind.Width(); ok {
			widths = append(widths, width)
		}
	}
	slices.Sort(widths)
	return widths
}

// Placeholder returns the placeholder variant in whichever format holds it.
func (a Asset) Placeholder() (variant.Format, VariantFile, bool) {
	for _, format := range variant.Formats() {
		if file, ok := a.Variant(format, variant.KindPlaceholder); ok {
			return format, file, true
		}
	}
	return "", VariantFile{}, false
}

// Clone returns a deep copy that shares no maps with a.
func (a Asset) Clone() Asset {
	out := a
	if a.Variants != nil {
		out.Variants = make(map[variant.Format]map[variant.Kind]VariantFile, len(a.Variants))
		for format, kinds := range a.Variants {
			out.Variants[format] = maps.Clone(kinds)
		}
	}
	return out
}

// merge overlays incoming onto existing. Variants merge per (format, kind)
// with incoming entries winning; the first CreatedAt is kept.
func merge(existing Asset, incoming Asset, now time.Time) Asset {
	out := existing.Clone()
	out.ID = incoming.ID
	if incoming.Category != "" {
		out.Category = incoming.Category
	}
	if incoming.LogicalName != "" {
		out.LogicalName = incoming.LogicalName
	}
	if incoming.OriginalFormat != "" {
		out.OriginalFormat = incoming.OriginalFormat
	}
	if incoming.OriginalWidth > 0 {
		out.OriginalWidth = incoming.OriginalWidth
		out.OriginalHeight = incoming.OriginalHeight
	}
	if incoming.OriginalSizeBytes > 0 {
		out.OriginalSizeBytes = incoming.OriginalSizeBytes
	}
	if incoming.PerceptualHash != "" {
		out.PerceptualHash = incoming.PerceptualHash
	}
	if incoming.SourcePath != "" {
		out.SourcePath = incoming.SourcePath
	}
	if incoming.ProductKey != "" {
		out.ProductKey = incoming.ProductKey
	}
	for format, kinds := range incoming.Variants {
		for kind, file := range kinds {
			out.SetVariant(format, kind, file)
		}
	}
	switch {
	case !existing.CreatedAt.IsZero():
		out.CreatedAt = existing.CreatedAt
	case !incoming.CreatedAt.IsZero():
		out.CreatedAt = incoming.CreatedAt
	default:
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	return out
}

// Canonical returns the original variant a caller should link to: the first
// modern format present, else the first legacy one.
func (a Asset) Canonical() (variant.Format, VariantFile, bool) {
	var withOriginal []variant.Format
	for _, format := range a.Formats() {
		if _, ok := a.Variant(format, variant.KindOriginal); ok {
			withOriginal = append(withOriginal, format)
		}
	}
	format, ok := variant.Primary(withOriginal)
	if !ok {
		return "", VariantFile{}, false
	}
	file, _ := a.Variant(format, variant.KindOriginal)
	return format, file, true
}
