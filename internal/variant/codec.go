package variant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"prism/internal/deps"
)

// ErrCodecUnavailable marks variants skipped because their encoder binary is missing.
var ErrCodecUnavailable = errors.New("codec unavailable")

// Codec encodes images into one format.
type Codec interface {
	Format() Format
	// Check reports whether the codec can run. Errors wrap ErrCodecUnavailable.
	Check() error
	Encode(ctx context.Context, img image.Image, settings Settings) ([]byte, error)
}

type jpegCodec struct{}

func (jpegCodec) Format() Format { return JPEG }

func (jpegCodec) Check() error { return nil }

func (jpegCodec) Encode(_ context.Context, img image.Image, settings Settings) ([]byte, error) {
	var buf bytes.Buffer
	flat := Flatten(img, color.White)
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: settings.Quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

type pngCodec struct{}

func (pngCodec) Format() Format { return PNG }

func (pngCodec) Check() error { return nil }

func (pngCodec) Encode(_ context.Context, img image.Image, _ Settings) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

// externalCodec feeds a temporary PNG to an encoder binary and reads back its output.
type externalCodec struct {
	format Format
	binary string
	args   func(settings Settings, input, output string) []string
}

func newCwebpCodec(binary string) Codec {
	return &externalCodec{
		format: WebP,
		binary: binary,
		args: func(s Settings, input, output string) []string {
			args := []string{"-quiet", "-metadata", "none", "-q", strconv.Itoa(s.Quality)}
			if s.NearLossless > 0 {
				args = append(args, "-near_lossless", strconv.Itoa(s.NearLossless))
			}
			return append(args, input, "-o", output)
		},
	}
}

func newAvifencCodec(binary string) Codec {
	return &externalCodec{
		format: AVIF,
		binary: binary,
		args: func(s Settings, input, output string) []string {
			return []string{"--jobs", "1", "--speed", "6", "-q", strconv.Itoa(s.Quality), input, output}
		},
	}
}

func (c *externalCodec) Format() Format { return c.format }

func (c *externalCodec) Check() error {
	if _, err := deps.Resolve(c.binary); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCodecUnavailable, c.format, err)
	}
	return nil
}

func (c *externalCodec) Encode(ctx context.Context, img image.Image, settings Settings) ([]byte, error) {
	binary, err := deps.Resolve(c.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCodecUnavailable, c.format, err)
	}

	dir, err := os.MkdirTemp("", "prism-"+string(c.format)+"-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.png")
	output := filepath.Join(dir, "output"+c.format.Extension())

	var staged bytes.Buffer
	if err := (&png.Encoder{CompressionLevel: png.NoCompression}).Encode(&staged, img); err != nil {
		return nil, fmt.Errorf("stage input: %w", err)
	}
	if err := os.WriteFile(input, staged.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("stage input: %w", err)
	}

	cmd := exec.CommandContext(ctx, binary, c.args(settings, input, output)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s: %w: %s", filepath.Base(binary), err, detail)
		}
		return nil, fmt.Errorf("%s: %w", filepath.Base(binary), err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("read %s output: %w", filepath.Base(binary), err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s produced empty output", filepath.Base(binary))
	}
	return data, nil
}
