package variant

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"prism/internal/config"
	"prism/internal/logging"
	"prism/internal/services"
)

// Options control which variants an Encoder produces.
type Options struct {
	Formats           []Format
	Widths            []int
	PlaceholderWidth  int
	PlaceholderFormat Format
	Workers           int
	CwebpBinary       string
	AvifencBinary     string
}

// OptionsFromConfig maps the [encoding] section onto encoder options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Formats:           ParseFormats(cfg.Encoding.Formats),
		Widths:            append([]int(nil), cfg.Encoding.Widths...),
		PlaceholderWidth:  cfg.Encoding.PlaceholderWidth,
		PlaceholderFormat: Format(config.NormalizeFormat(cfg.Encoding.PlaceholderFormat)),
		Workers:           cfg.Encoding.Workers,
		CwebpBinary:       cfg.Encoding.CwebpBinary,
		AvifencBinary:     cfg.Encoding.AvifencBinary,
	}
}

// Output is one encoded variant.
type Output struct {
	Format Format
	Kind   Kind
	Width  int
	Height int
	Data   []byte
}

// Failure records a variant that could not be produced.
type Failure struct {
	Format Format
	Kind   Kind
	Err    error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s/%s: %v", f.Format, f.Kind, f.Err)
}

// Result holds the successful variants in plan order plus per-variant failures.
type Result struct {
	Variants []Output
	Failures []Failure
}

// Lookup returns the variant for format and kind.
func (r Result) Lookup(format Format, kind Kind) (Output, bool) {
	for _, v := range r.Variants {
		if v.Format == format && v.Kind == kind {
			return v, true
		}
	}
	return Output{}, false
}

// EncodeError is returned when no variant at all could be produced.
type EncodeError struct {
	Failures []Failure
}

func (e *EncodeError) Error() string {
	if len(e.Failures) == 0 {
		return "encode: no variants planned"
	}
	return fmt.Sprintf("encode: all %d variants failed (first: %s)", len(e.Failures), e.Failures[0])
}

// Unwrap exposes the encode marker and every per-variant cause to errors.Is.
func (e *EncodeError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, services.ErrEncode)
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Task is one planned (format, kind) combination.
type Task struct {
	Format Format
	Kind   Kind
	Width  int
}

// Encoder produces the variant matrix for decoded images.
type Encoder struct {
	opts   Options
	codecs map[Format]Codec
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// EncoderOption customizes an Encoder.
type EncoderOption func(*Encoder)

// WithCodec replaces the codec used for its format.
func WithCodec(codec Codec) EncoderOption {
	return func(e *Encoder) {
		e.codecs[codec.Format()] = codec
	}
}

// NewEncoder constructs an Encoder. The worker bound is shared by every
// Encode call on the returned value.
func NewEncoder(opts Options, logger *slog.Logger, options ...EncoderOption) *Encoder {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.PlaceholderWidth <= 0 {
		opts.PlaceholderWidth = 20
	}
	widths := slices.Clone(opts.Widths)
	slices.Sort(widths)
	opts.Widths = slices.Compact(widths)

	e := &Encoder{
		opts: opts,
		codecs: map[Format]Codec{
			JPEG: jpegCodec{},
			PNG:  pngCodec{},
			WebP: newCwebpCodec(opts.CwebpBinary),
			AVIF: newAvifencCodec(opts.AvifencBinary),
		},
		sem:    semaphore.NewWeighted(int64(opts.Workers)),
		logger: logging.NewComponentLogger(logger, "encoder"),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Options returns the encoder's effective options.
func (e *Encoder) Options() Options { return e.opts }

// Available reports which configured formats currently have a runnable codec.
func (e *Encoder) Available() []Format {
	var out []Format
	for _, format := range e.opts.Formats {
		if codec, ok := e.codecs[format]; ok && codec.Check() == nil {
			out = append(out, format)
		}
	}
	return out
}

// Plan lists the combinations Encode attempts for a source of the given width:
// every format gets an original and each configured width strictly below the
// source width, then one placeholder in the first usable format.
func (e *Encoder) Plan(sourceWidth int, available []Format) []Task {
	var tasks []Task
	for _, format := range e.opts.Formats {
		tasks = append(tasks, Task{Format: format, Kind: KindOriginal, Width: sourceWidth})
		for _, width := range e.opts.Widths {
			if width >= sourceWidth {
				break
			}
			tasks = append(tasks, Task{Format: format, Kind: WidthKind(width), Width: width})
		}
	}
	if format, ok := e.placeholderFormat(available); ok {
		tasks = append(tasks, Task{Format: format, Kind: KindPlaceholder, Width: min(e.opts.PlaceholderWidth, sourceWidth)})
	}
	return tasks
}

// placeholderFormat picks the configured placeholder format when its codec
// runs, else the first available configured format.
func (e *Encoder) placeholderFormat(available []Format) (Format, bool) {
	if codec, ok := e.codecs[e.opts.PlaceholderFormat]; ok && codec.Check() == nil {
		return e.opts.PlaceholderFormat, true
	}
	if len(available) > 0 {
		return available[0], true
	}
	return "", false
}

// Encode produces every planned variant of img. Individual failures are
// collected in Result.Failures; an *EncodeError is returned only when nothing
// succeeded.
func (e *Encoder) Encode(ctx context.Context, img image.Image, info SourceInfo) (Result, error) {
	return e.encode(ctx, img, info, nil)
}

// EncodeSelected is Encode restricted to the planned tasks keep accepts.
// Selecting nothing returns an empty Result and no error.
func (e *Encoder) EncodeSelected(ctx context.Context, img image.Image, info SourceInfo, keep func(Task) bool) (Result, error) {
	if keep == nil {
		keep = func(Task) bool { return false }
	}
	return e.encode(ctx, img, info, keep)
}

func (e *Encoder) encode(ctx context.Context, img image.Image, info SourceInfo, keep func(Task) bool) (Result, error) {
	if img == nil {
		return Result{}, &EncodeError{Failures: []Failure{{Kind: KindOriginal, Err: errors.New("nil image")}}}
	}
	bounds := img.Bounds()
	sourceWidth := bounds.Dx()
	logger := logging.WithContext(ctx, e.logger)

	checks := make(map[Format]error, len(e.codecs))
	for format, codec := range e.codecs {
		checks[format] = codec.Check()
	}
	var available []Format
	for _, format := range e.opts.Formats {
		if err, ok := checks[format]; ok && err == nil {
			available = append(available, format)
		}
	}
	tasks := e.Plan(sourceWidth, available)
	if keep != nil {
		tasks = slices.DeleteFunc(tasks, func(task Task) bool { return !keep(task) })
		if len(tasks) == 0 {
			return Result{}, nil
		}
	}

	frames := make(map[Kind]func() image.Image)
	for _, task := range tasks {
		if _, ok := frames[task.Kind]; ok {
			continue
		}
		switch task.Kind {
		case KindOriginal:
			frames[task.Kind] = func() image.Image { return img }
		case KindPlaceholder:
			frames[task.Kind] = sync.OnceValue(func() image.Image { return Placeholder(img, e.opts.PlaceholderWidth) })
		default:
			width := task.Width
			frames[task.Kind] = sync.OnceValue(func() image.Image { return Resize(img, width) })
		}
	}

	outputs := make([]*Output, len(tasks))
	failures := make([]*Failure, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		codec, ok := e.codecs[task.Format]
		if !ok {
			failures[i] = &Failure{Format: task.Format, Kind: task.Kind, Err: fmt.Errorf("%w: no codec for %s", ErrCodecUnavailable, task.Format)}
			continue
		}
		if err := checks[task.Format]; err != nil {
			failures[i] = &Failure{Format: task.Format, Kind: task.Kind, Err: err}
			continue
		}
		if err := e.sem.Acquire(ctx, 1); err != nil {
			failures[i] = &Failure{Format: task.Format, Kind: task.Kind, Err: err}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer e.sem.Release(1)

			frame := frames[task.Kind]()
			settings := task.Format.Spec().Full
			if task.Kind == KindPlaceholder {
				settings = task.Format.Spec().Placeholder
			}
			data, err := codec.Encode(ctx, frame, settings)
			if err != nil {
				failures[i] = &Failure{Format: task.Format, Kind: task.Kind, Err: err}
				return
			}
			fb := frame.Bounds()
			outputs[i] = &Output{Format: task.Format, Kind: task.Kind, Width: fb.Dx(), Height: fb.Dy(), Data: data}
		}()
	}
	wg.Wait()

	var result Result
	for i := range tasks {
		if outputs[i] != nil {
			result.Variants = append(result.Variants, *outputs[i])
		}
		if failures[i] != nil {
			result.Failures = append(result.Failures, *failures[i])
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("encode cancelled: %w", err)
	}

	for _, failure := range result.Failures {
		logging.WarnWithContext(logger, "variant encode failed", "variant_failed",
			logging.String(logging.FieldFormat, string(failure.Format)),
			logging.String(logging.FieldVariant, string(failure.Kind)),
			logging.Error(failure.Err),
			logging.String(logging.FieldErrorHint, failureHint(failure.Err)),
			logging.String(logging.FieldImpact, "variant omitted from the asset"),
		)
	}

	if len(result.Variants) == 0 {
		return result, &EncodeError{Failures: result.Failures}
	}

	logger.Debug("variants encoded",
		logging.String("source_format", info.Format),
		logging.Int("variants", len(result.Variants)),
		logging.Int("failures", len(result.Failures)),
	)
	return result, nil
}

func failureHint(err error) string {
	if errors.Is(err, ErrCodecUnavailable) {
		msg := err.Error()
		switch {
		case strings.Contains(msg, string(WebP)):
			return "install cwebp (libwebp) or set encoding.cwebp_binary"
		case strings.Contains(msg, string(AVIF)):
			return "install avifenc (libavif) or set encoding.avifenc_binary"
		}
		return "install the encoder binary for this format"
	}
	return "check encoder output for details"
}
