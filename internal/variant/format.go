package variant

import (
	"slices"

	"prism/internal/config"
)

// Format is an output file format. The set is closed.
type Format string

const (
	AVIF Format = config.FormatAVIF
	WebP Format = config.FormatWebP
	JPEG Format = config.FormatJPEG
	PNG  Format = config.FormatPNG
)

// Class groups formats by browser support and compression model.
type Class int

const (
	ModernLossy Class = iota
	ModernLossless
	LegacyLossy
	LegacyLossless
)

// Modern reports whether the class needs a current browser.
func (c Class) Modern() bool { return c == ModernLossy || c == ModernLossless }

// Settings are the fixed encoder parameters for one kind of output.
type Settings struct {
	// Quality is 0-100 for lossy codecs and ignored for png.
	Quality int
	// NearLossless is the cwebp -near_lossless level; zero disables it.
	NearLossless int
}

// Spec describes one row of the format table.
type Spec struct {
	Format      Format
	Extension   string
	MIME        string
	Class       Class
	Full        Settings
	Placeholder Settings
}

// Quality settings live here and nowhere else so that the same source always
// yields the same bytes.
var table = []Spec{
	{
		Format:      AVIF,
		Extension:   ".avif",
		MIME:        "image/avif",
		Class:       ModernLossy,
		Full:        Settings{Quality: 60},
		Placeholder: Settings{Quality: 20},
	},
	{
		Format:      WebP,
		Extension:   ".webp",
		MIME:        "image/webp",
		Class:       ModernLossless,
		Full:        Settings{Quality: 90, NearLossless: 60},
		Placeholder: Settings{Quality: 30},
	},
	{
		Format:      JPEG,
		Extension:   ".jpg",
		MIME:        "image/jpeg",
		Class:       LegacyLossy,
		Full:        Settings{Quality: 82},
		Placeholder: Settings{Quality: 40},
	},
	{
		Format:      PNG,
		Extension:   ".png",
		MIME:        "image/png",
		Class:       LegacyLossless,
		Full:        Settings{},
		Placeholder: Settings{},
	},
}

// Lookup returns the table row for name, accepting "jpeg" and a leading dot.
func Lookup(name string) (Spec, bool) {
	format := Format(config.NormalizeFormat(name))
	for _, spec := range table {
		if spec.Format == format {
			return spec, true
		}
	}
	return Spec{}, false
}

// Formats lists every known format in table order.
func Formats() []Format {
	out := make([]Format, 0, len(table))
	for _, spec := range table {
		out = append(out, spec.Format)
	}
	return out
}

// Spec returns the table row for f. Unknown formats return the zero Spec.
func (f Format) Spec() Spec {
	spec, _ := Lookup(string(f))
	return spec
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string { return f.Spec().Extension }

// Valid reports whether f is in the table.
func (f Format) Valid() bool {
	for _, spec := range table {
		if spec.Format == f {
			return true
		}
	}
	return false
}

// ParseFormats maps configured names onto formats, dropping unknown entries.
func ParseFormats(names []string) []Format {
	out := make([]Format, 0, len(names))
	for _, name := range names {
		spec, ok := Lookup(name)
		if !ok || slices.Contains(out, spec.Format) {
			continue
		}
		out = append(out, spec.Format)
	}
	return out
}

// Primary returns the first modern format in formats, or the first format when
// none is modern.
func Primary(formats []Format) (Format, bool) {
	for _, f := range formats {
		if f.Spec().Class.Modern() {
			return f, true
		}
	}
	if len(formats) > 0 {
		return formats[0], true
	}
	return "", false
}

// Secondary returns the first legacy format in formats.
func Secondary(formats []Format) (Format, bool) {
	for _, f := range formats {
		if !f.Spec().Class.Modern() {
			return f, true
		}
	}
	return "", false
}
