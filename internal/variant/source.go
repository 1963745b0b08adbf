package variant

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxSourcePixels bounds decoded source size.
const MaxSourcePixels = 100_000_000

var (
	// ErrUnsupportedSourceFormat marks sources whose container has no decoder.
	ErrUnsupportedSourceFormat = errors.New("unsupported source format")
	// ErrCorruptSource marks sources in a known format that fail to parse.
	ErrCorruptSource = errors.New("corrupt source image")
)

// UnsupportedFormatError names the container that could not be decoded.
type UnsupportedFormatError struct {
	// Format is the sniffed container (avif, heif) or "unknown".
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Format == "" || e.Format == "unknown" {
		return ErrUnsupportedSourceFormat.Error()
	}
	return fmt.Sprintf("%s: %s is recognized but cannot be decoded", ErrUnsupportedSourceFormat, e.Format)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedSourceFormat }

// SourceInfo is the metadata read from a source image.
type SourceInfo struct {
	Format    string
	Width     int
	Height    int
	SizeBytes int64
}

// ReadInfo detects the format and dimensions of data without decoding pixels.
func ReadInfo(data []byte) (SourceInfo, error) {
	info := SourceInfo{SizeBytes: int64(len(data))}
	if len(data) == 0 {
		return info, fmt.Errorf("%w: empty source", ErrCorruptSource)
	}
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			container := sniffContainer(data)
			info.Format = container
			return info, &UnsupportedFormatError{Format: container}
		}
		return info, fmt.Errorf("%w: %v", ErrCorruptSource, err)
	}
	info.Format = name
	info.Width = cfg.Width
	info.Height = cfg.Height
	if info.Width <= 0 || info.Height <= 0 {
		return info, fmt.Errorf("%w: zero dimensions %dx%d", ErrCorruptSource, info.Width, info.Height)
	}
	if int64(info.Width)*int64(info.Height) > MaxSourcePixels {
		return info, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrCorruptSource, info.Width, info.Height, MaxSourcePixels)
	}
	return info, nil
}

// Decode reads metadata and decodes pixels. Errors match ErrUnsupportedSourceFormat
// or ErrCorruptSource.
func Decode(data []byte) (image.Image, SourceInfo, error) {
	info, err := ReadInfo(data)
	if err != nil {
		return nil, info, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, info, fmt.Errorf("%w: %v", ErrCorruptSource, err)
	}
	return img, info, nil
}

// sniffContainer recognizes ISO-BMFF image containers that Go cannot decode.
func sniffContainer(data []byte) string {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return "unknown"
	}
	switch string(data[8:12]) {
	case "avif", "avis":
		return "avif"
	case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
		return "heif"
	}
	return "unknown"
}
