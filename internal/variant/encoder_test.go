package variant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"prism/internal/logging"
	"prism/internal/services"
	"prism/internal/testsupport"
)

func newTestEncoder(t *testing.T, opts ...testsupport.ConfigOption) *Encoder {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	return NewEncoder(OptionsFromConfig(cfg), logging.NewNop())
}

func kindsFor(result Result, format Format) map[Kind]Output {
	out := map[Kind]Output{}
	for _, v := range result.Variants {
		if v.Format == format {
			out[v.Kind] = v
		}
	}
	return out
}

func TestEncodeSquareSourceProducesFullMatrix(t *testing.T) {
	enc := newTestEncoder(t, testsupport.WithWidths(640, 768, 1024))
	img := testsupport.NewImage(1200, 1200, 7)

	result, err := enc.Encode(context.Background(), img, SourceInfo{Format: "jpeg", Width: 1200, Height: 1200})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", result.Failures)
	}
	if len(result.Variants) != 9 {
		t.Fatalf("expected 9 variants, got %d", len(result.Variants))
	}

	for _, format := range []Format{JPEG, PNG} {
		kinds := kindsFor(result, format)
		for _, kind := range []Kind{KindOriginal, "640", "768", "1024"} {
			if _, ok := kinds[kind]; !ok {
				t.Fatalf("missing %s/%s", format, kind)
			}
		}
		if _, ok := kinds["1200"]; ok {
			t.Fatalf("unexpected 1200 variant for %s", format)
		}
		if v := kinds["640"]; v.Width != 640 || v.Height != 640 {
			t.Fatalf("640 variant has %dx%d", v.Width, v.Height)
		}
	}

	placeholders := 0
	for _, v := range result.Variants {
		if v.Kind == KindPlaceholder {
			placeholders++
			if v.Format != JPEG {
				t.Fatalf("placeholder format = %s, want configured jpg", v.Format)
			}
			if v.Width != 20 {
				t.Fatalf("placeholder width = %d", v.Width)
			}
		}
	}
	if placeholders != 1 {
		t.Fatalf("expected exactly one placeholder, got %d", placeholders)
	}
}

func TestEncodeNeverUpscales(t *testing.T) {
	enc := newTestEncoder(t, testsupport.WithWidths(320, 700, 768, 1024))
	result, err := enc.Encode(context.Background(), testsupport.NewImage(700, 350, 1), SourceInfo{Width: 700, Height: 350})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, v := range result.Variants {
		if width, ok := v.Kind.Width(); ok && width >= 700 {
			t.Fatalf("variant %s/%s is not smaller than the source", v.Format, v.Kind)
		}
	}
	if v, ok := result.Lookup(PNG, "320"); !ok || v.Height != 160 {
		t.Fatalf("expected 320x160 png, got %+v (found=%v)", v, ok)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	enc := newTestEncoder(t)
	img := testsupport.NewImage(800, 600, 9)
	first, err := enc.Encode(context.Background(), img, SourceInfo{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	second, err := enc.Encode(context.Background(), img, SourceInfo{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(first.Variants) != len(second.Variants) {
		t.Fatalf("variant counts differ: %d vs %d", len(first.Variants), len(second.Variants))
	}
	for i := range first.Variants {
		a, b := first.Variants[i], second.Variants[i]
		if a.Format != b.Format || a.Kind != b.Kind || !bytes.Equal(a.Data, b.Data) {
			t.Fatalf("variant %d differs between runs (%s/%s)", i, a.Format, a.Kind)
		}
	}
}

func TestEncodeMissingBinaryFailsOnlyThatFormat(t *testing.T) {
	enc := newTestEncoder(t,
		testsupport.WithEmptyPath(),
		testsupport.WithFormats("webp", "jpg"),
		testsupport.WithPlaceholderFormat("webp"),
		testsupport.WithWidths(640),
	)
	result, err := enc.Encode(context.Background(), testsupport.NewImage(1000, 500, 2), SourceInfo{Width: 1000, Height: 500})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(kindsFor(result, JPEG)) != 3 {
		t.Fatalf("expected jpg original, 640, and fallback placeholder, got %v", kindsFor(result, JPEG))
	}
	if len(kindsFor(result, WebP)) != 0 {
		t.Fatal("webp variants should be absent without cwebp")
	}
	if len(result.Failures) != 2 {
		t.Fatalf("expected 2 webp failures, got %v", result.Failures)
	}
	for _, f := range result.Failures {
		if f.Format != WebP || !errors.Is(f.Err, ErrCodecUnavailable) {
			t.Fatalf("unexpected failure %s", f)
		}
	}
	if _, ok := result.Lookup(JPEG, KindPlaceholder); !ok {
		t.Fatal("placeholder should fall back to the first available format")
	}
}

func TestEncodeZeroSuccessIsEncodeError(t *testing.T) {
	enc := newTestEncoder(t,
		testsupport.WithEmptyPath(),
		testsupport.WithFormats("webp", "avif"),
		testsupport.WithPlaceholderFormat("webp"),
	)
	result, err := enc.Encode(context.Background(), testsupport.NewImage(100, 100, 3), SourceInfo{Width: 100, Height: 100})
	var encodeErr *EncodeError
	if !errors.As(err, &encodeErr) {
		t.Fatalf("expected *EncodeError, got %v", err)
	}
	if !errors.Is(err, services.ErrEncode) || !errors.Is(err, ErrCodecUnavailable) {
		t.Fatalf("expected encode marker and codec cause, got %v", err)
	}
	if len(result.Variants) != 0 || len(encodeErr.Failures) != 2 {
		t.Fatalf("unexpected result: %d variants, %d failures", len(result.Variants), len(encodeErr.Failures))
	}
}

func TestEncodeWithStubbedExternalCodecs(t *testing.T) {
	enc := newTestEncoder(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithFormats("avif", "webp", "png"),
		testsupport.WithPlaceholderFormat("webp"),
		testsupport.WithWidths(64),
	)
	result, err := enc.Encode(context.Background(), testsupport.NewImage(128, 128, 5), SourceInfo{Width: 128, Height: 128})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", result.Failures)
	}
	if _, ok := result.Lookup(AVIF, "64"); !ok {
		t.Fatal("missing avif 64 variant")
	}
	if _, ok := result.Lookup(WebP, KindPlaceholder); !ok {
		t.Fatal("missing webp placeholder")
	}
}

func TestEncodeFailingBinaryIsPerVariantFailure(t *testing.T) {
	enc := newTestEncoder(t,
		testsupport.WithFailingBinaries("cwebp"),
		testsupport.WithFormats("webp", "png"),
		testsupport.WithPlaceholderFormat("png"),
		testsupport.WithWidths(32),
	)
	result, err := enc.Encode(context.Background(), testsupport.NewImage(64, 64, 6), SourceInfo{Width: 64, Height: 64})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(result.Failures) != 2 {
		t.Fatalf("expected webp original and 32 to fail, got %v", result.Failures)
	}
	if errors.Is(result.Failures[0].Err, ErrCodecUnavailable) {
		t.Fatal("a failing run is not an unavailable codec")
	}
	if len(kindsFor(result, PNG)) != 3 {
		t.Fatalf("expected png original, 32, placeholder; got %v", kindsFor(result, PNG))
	}
}

type flakyCodec struct {
	failKind int
}

func (flakyCodec) Format() Format { return PNG }

func (flakyCodec) Check() error { return nil }

func (c flakyCodec) Encode(ctx context.Context, img image.Image, s Settings) ([]byte, error) {
	if img.Bounds().Dx() == c.failKind {
		return nil, fmt.Errorf("encoder rejected width %d", c.failKind)
	}
	return pngCodec{}.Encode(ctx, img, s)
}

func TestEncodeContinuesPastSingleFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFormats("png"), testsupport.WithWidths(100, 200), testsupport.WithPlaceholderFormat("png"))
	enc := NewEncoder(OptionsFromConfig(cfg), logging.NewNop(), WithCodec(flakyCodec{failKind: 100}))

	result, err := enc.Encode(context.Background(), testsupport.NewImage(400, 400, 8), SourceInfo{Width: 400, Height: 400})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(result.Failures) != 1 || result.Failures[0].Kind != "100" {
		t.Fatalf("expected only the 100 variant to fail, got %v", result.Failures)
	}
	for _, kind := range []Kind{KindOriginal, "200", KindPlaceholder} {
		if _, ok := result.Lookup(PNG, kind); !ok {
			t.Fatalf("missing png/%s", kind)
		}
	}
}

func TestEncodeCancelled(t *testing.T) {
	enc := newTestEncoder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := enc.Encode(ctx, testsupport.NewImage(200, 200, 1), SourceInfo{Width: 200, Height: 200}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestJPEGFlattensTransparencyOntoWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetNRGBA(x, y, color.NRGBA{})
		}
	}
	data, err := jpegCodec{}.Encode(context.Background(), img, JPEG.Spec().Full)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, g, b, _ := decoded.At(8, 8).RGBA()
	if r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Fatalf("expected white background, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestPlanOrdering(t *testing.T) {
	enc := newTestEncoder(t, testsupport.WithWidths(1024, 640))
	tasks := enc.Plan(800, []Format{JPEG, PNG})
	var got []string
	for _, task := range tasks {
		got = append(got, string(task.Format)+"/"+string(task.Kind))
	}
	want := []string{"jpg/original", "jpg/640", "png/original", "png/640", "jpg/placeholder"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("Plan = %v, want %v", got, want)
	}
}

func TestEncodeSelectedOnlyRunsChosenTasks(t *testing.T) {
	enc := newTestEncoder(t, testsupport.WithWidths(640))
	img := testsupport.NewImage(800, 400, 2)

	result, err := enc.EncodeSelected(context.Background(), img, SourceInfo{Width: 800, Height: 400}, func(task Task) bool {
		return task.Format == PNG
	})
	if err != nil {
		t.Fatalf("EncodeSelected: %v", err)
	}
	if len(result.Variants) != 2 {
		t.Fatalf("expected png original and 640, got %d variants", len(result.Variants))
	}
	for _, v := range result.Variants {
		if v.Format != PNG {
			t.Fatalf("unexpected %s variant", v.Format)
		}
	}

	empty, err := enc.EncodeSelected(context.Background(), img, SourceInfo{Width: 800, Height: 400}, nil)
	if err != nil || len(empty.Variants) != 0 {
		t.Fatalf("nil selector: %d variants, err %v", len(empty.Variants), err)
	}
}
