package loader

import (
	"slices"
	"strings"

	"prism/internal/catalog"
	"prism/internal/variant"
)

// Candidates returns the ordered, de-duplicated URLs Resolve probes for ref.
// The default image is not included.
//
// For an asset: the hint-selected variant in the primary format, the primary
// original, the secondary legacy original, then the placeholder when the
// caller already showed it. A direct URL comes first on its own; when it
// follows the {category}/{id}/{kind}.{ext} layout of a cataloged asset the
// asset candidates follow it.
func (l *Loader) Candidates(ref Ref) []string {
	var urls []string
	add := func(url string) {
		if url != "" && !slices.Contains(urls, url) {
			urls = append(urls, url)
		}
	}

	id := ref.ID
	widthHint := ref.WidthHint
	if ref.Kind != RefAsset {
		add(ref.URL)
		loc, ok := variant.ParsePath(strings.TrimPrefix(ref.URL, l.baseURL))
		if !ok {
			return urls
		}
		id = loc.ID
		if width, isWidth := loc.Kind.Width(); isWidth && widthHint == 0 {
			widthHint = width
		}
	}

	if l.catalog == nil {
		return urls
	}
	asset, ok := l.catalog.Get(id)
	if !ok {
		return urls
	}

	formats := l.assetFormats(asset)
	if primary, ok := variant.Primary(formats); ok {
		add(l.variantURL(asset, primary, selectKind(asset, primary, widthHint)))
		add(l.variantURL(asset, primary, variant.KindOriginal))
	}
	if secondary, ok := variant.Secondary(formats); ok {
		add(l.variantURL(asset, secondary, variant.KindOriginal))
	}
	if ref.PlaceholderShown {
		if _, file, ok := asset.Placeholder(); ok {
			add(l.url(file.RelativePath))
		}
	}
	return urls
}

// assetFormats orders the asset's formats by configuration, then any
// cataloged formats no longer configured.
func (l *Loader) assetFormats(asset catalog.Asset) []variant.Format {
	present := asset.Formats()
	var out []variant.Format
	for _, format := range l.formats {
		if slices.Contains(present, format) {
			out = append(out, format)
		}
	}
	for _, format := range present {
		if !slices.Contains(out, format) {
			out = append(out, format)
		}
	}
	return out
}

// selectKind picks the smallest cataloged width at or above hint, else the
// original.
func selectKind(asset catalog.Asset, format variant.Format, hint int) variant.Kind {
	if hint <= 0 {
		return variant.KindOriginal
	}
	for _, width := range asset.Widths(format) {
		if width >= hint {
			return variant.WidthKind(width)
		}
	}
	return variant.KindOriginal
}

func (l *Loader) variantURL(asset catalog.Asset, format variant.Format, kind variant.Kind) string {
	file, ok := asset.Variant(format, kind)
	if !ok {
		return ""
	}
	return l.url(file.RelativePath)
}

func (l *Loader) url(rel string) string {
	return l.baseURL + "/" + strings.TrimPrefix(rel, "/")
}
