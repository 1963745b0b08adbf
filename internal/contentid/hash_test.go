package contentid_test

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"prism/internal/contentid"
)

func TestSumIsDeterministic(t *testing.T) {
	data := []byte("the same bytes")
	first := contentid.Sum(data)
	second := contentid.Sum(append([]byte(nil), data...))
	if first != second {
		t.Fatalf("equal input produced different ids: %s vs %s", first, second)
	}
	if other := contentid.Sum([]byte("the same bytes!")); other == first {
		t.Fatal("different input produced the same id")
	}
	if got := first.String(); len(got) != contentid.HexLength || strings.ToLower(got) != got {
		t.Fatalf("unexpected hex form %q", got)
	}
}

func TestSumIsKeyed(t *testing.T) {
	// The empty-input digest of unkeyed BLAKE3-256.
	const unkeyedEmpty = "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"
	if got := contentid.Sum(nil).String(); got == unkeyedEmpty {
		t.Fatal("expected keyed digest to differ from plain BLAKE3")
	}
}

func TestSumFileMatchesSum(t *testing.T) {
	data := bytes.Repeat([]byte("prism"), 100_000)
	path := filepath.Join(t.TempDir(), "source.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	id, size, err := contentid.SumFile(path)
	if err != nil {
		t.Fatalf("SumFile: %v", err)
	}
	if size != int64(len(data)) {
		t.Fatalf("size = %d, want %d", size, len(data))
	}
	if id != contentid.Sum(data) {
		t.Fatal("streaming and in-memory digests differ")
	}
	if _, _, err := contentid.SumFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseRoundTrip(t *testing.T) {
	id := contentid.Sum([]byte("round trip"))
	parsed, err := contentid.Parse(strings.ToUpper(id.String()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed != id {
		t.Fatal("parsed id differs")
	}
	for _, bad := range []string{"", "abc", strings.Repeat("z", 64), id.String() + "00"} {
		if contentid.Valid(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
	if id.Short() != id.String()[:12] {
		t.Fatalf("short form %q is not a prefix", id.Short())
	}
}

func gradient(w, h int, invert bool) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / w)
			if invert {
				v = 255 - v
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestPerceptualDistance(t *testing.T) {
	a, err := contentid.Perceptual(gradient(64, 64, false))
	if err != nil {
		t.Fatalf("Perceptual: %v", err)
	}
	b, err := contentid.Perceptual(gradient(128, 128, false))
	if err != nil {
		t.Fatalf("Perceptual: %v", err)
	}
	c, err := contentid.Perceptual(gradient(64, 64, true))
	if err != nil {
		t.Fatalf("Perceptual: %v", err)
	}
	if len(a) != 16 {
		t.Fatalf("unexpected hash length: %q", a)
	}

	near, err := contentid.Distance(a, b)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	far, err := contentid.Distance(a, c)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if near >= far {
		t.Fatalf("rescaled image should be closer (%d) than inverted image (%d)", near, far)
	}
	if _, err := contentid.Distance(a, "nothex"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}
