package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// SanitizeToken converts a string to a lowercase path-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

// ValidToken reports whether value already is a SanitizeToken result.
func ValidToken(value string) bool {
	return value != "" && SanitizeToken(value) == value
}

// FoldKey returns a comparison key for free-form identifiers such as product
// keys: NFC-normalized, Unicode case-folded, inner whitespace collapsed.
func FoldKey(value string) string {
	fields := strings.Fields(norm.NFC.String(value))
	if len(fields) == 0 {
		return ""
	}
	// Casers carry state; one per call keeps FoldKey safe across goroutines.
	return cases.Fold().String(strings.Join(fields, " "))
}
