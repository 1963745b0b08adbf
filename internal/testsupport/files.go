package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// NewImage returns a deterministic RGBA test pattern. seed shifts the pattern
// so different seeds give different bytes and different content ids.
func NewImage(width, height int, seed uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x*255/max(width, 1)) + seed,
				G: uint8(y*255/max(height, 1)) ^ seed,
				B: uint8((x+y)/4) + seed/2,
				A: 0xff,
			})
		}
	}
	return img
}

// JPEGBytes encodes a NewImage pattern as JPEG.
func JPEGBytes(t testing.TB, width, height int, seed uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, NewImage(width, height, seed), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// PNGBytes encodes a NewImage pattern as PNG.
func PNGBytes(t testing.TB, width, height int, seed uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, NewImage(width, height, seed)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// WriteJPEG writes a width x height JPEG fixture and returns its path.
func WriteJPEG(t testing.TB, path string, width, height int, seed uint8) string {
	t.Helper()
	writeBytes(t, path, JPEGBytes(t, width, height, seed))
	return path
}

// WritePNG writes a width x height PNG fixture and returns its path.
func WritePNG(t testing.TB, path string, width, height int, seed uint8) string {
	t.Helper()
	writeBytes(t, path, PNGBytes(t, width, height, seed))
	return path
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
