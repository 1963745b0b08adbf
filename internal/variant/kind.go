package variant

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Kind names one resolution of an asset: "original", "placeholder", or a
// decimal width such as "640".
type Kind string

const (
	KindOriginal    Kind = "original"
	KindPlaceholder Kind = "placeholder"
)

// WidthKind returns the kind for a downscaled width.
func WidthKind(width int) Kind {
	return Kind(strconv.Itoa(width))
}

// Width returns the pixel width encoded in a width kind.
func (k Kind) Width() (int, bool) {
	if k == KindOriginal || k == KindPlaceholder || k == "" {
		return 0, false
	}
	width, err := strconv.Atoi(string(k))
	if err != nil || width <= 0 || strconv.Itoa(width) != string(k) {
		return 0, false
	}
	return width, true
}

// ParseKind validates a kind string.
func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.TrimSpace(value))
	switch kind {
	case KindOriginal, KindPlaceholder:
		return kind, nil
	}
	if _, ok := kind.Width(); ok {
		return kind, nil
	}
	return "", fmt.Errorf("variant kind %q: want original, placeholder, or a positive width", value)
}

// RelativePath returns the slash-separated location of a variant relative to
// the asset root: {category}/{id}/{kind}.{ext}.
func RelativePath(category, id string, kind Kind, format Format) string {
	return path.Join(category, id, string(kind)+format.Extension())
}

// Location is a parsed RelativePath.
type Location struct {
	Category string
	ID       string
	Kind     Kind
	Format   Format
}

// ParsePath reverses RelativePath. Leading path segments before the category
// (such as a URL base) are ignored.
func ParsePath(rel string) (Location, bool) {
	rel = strings.Trim(rel, "/")
	parts := strings.Split(rel, "/")
	if len(parts) < 3 {
		return Location{}, false
	}
	parts = parts[len(parts)-3:]
	file := parts[2]
	ext := path.Ext(file)
	spec, ok := Lookup(ext)
	if !ok || ext != spec.Extension {
		return Location{}, false
	}
	kind, err := ParseKind(strings.TrimSuffix(file, ext))
	if err != nil || parts[0] == "" || parts[1] == "" {
		return Location{}, false
	}
	return Location{Category: parts[0], ID: parts[1], Kind: kind, Format: spec.Format}, true
}
