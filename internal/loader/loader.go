package loader

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"prism/internal/catalog"
	"prism/internal/config"
	"prism/internal/logging"
	"prism/internal/services"
	"prism/internal/variant"
)

// Status is the terminal state of a resolution.
type Status string

const (
	StatusResolved Status = "resolved"
	StatusFallback Status = "fallback"
)

// Result is what a caller renders. Resolve always returns one.
type Result struct {
	Status Status `json:"status"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Prober loads one candidate and reports its natural dimensions.
type Prober interface {
	Probe(ctx context.Context, url string) (width, height int, err error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, url string) (int, int, error)

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, url string) (int, int, error) { return f(ctx, url) }

// Catalog is the read side of the asset catalog.
type Catalog interface {
	Get(id string) (catalog.Asset, bool)
}

// Stats counts loader activity since construction.
type Stats struct {
	Requests  int64 `json:"requests"`
	Chains    int64 `json:"chains"`
	Probes    int64 `json:"probes"`
	Timeouts  int64 `json:"timeouts"`
	Resolved  int64 `json:"resolved"`
	Fallbacks int64 `json:"fallbacks"`
	Abandoned int64 `json:"abandoned"`
}

type counters struct {
	requests, chains, probes, timeouts, resolved, fallbacks, abandoned atomic.Int64
}

// Loader resolves references to a confirmed-loadable URL.
type Loader struct {
	catalog      Catalog
	prober       Prober
	formats      []variant.Format
	baseURL      string
	defaultImage string
	timeout      time.Duration
	group        singleflight.Group
	stats        counters
	logger       *slog.Logger
}

// Option customizes a Loader.
type Option func(*Loader)

// WithProbeTimeout overrides the per-candidate timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// New builds a Loader from the [loader] and [encoding] settings.
func New(cfg *config.Config, cat Catalog, prober Prober, logger *slog.Logger, opts ...Option) *Loader {
	l := &Loader{
		catalog:      cat,
		prober:       prober,
		formats:      variant.ParseFormats(cfg.Encoding.Formats),
		baseURL:      strings.TrimRight(cfg.Loader.BaseURL, "/"),
		defaultImage: cfg.Loader.DefaultImage,
		timeout:      cfg.ProbeTimeout(),
		logger:       logging.NewComponentLogger(logger, "loader"),
	}
	if l.timeout <= 0 {
		l.timeout = 1500 * time.Millisecond
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultImage returns the hard fallback URL.
func (l *Loader) DefaultImage() string { return l.defaultImage }

// Timeout returns the per-candidate probe timeout.
func (l *Loader) Timeout() time.Duration { return l.timeout }

// Stats returns a snapshot of the counters.
func (l *Loader) Stats() Stats {
	return Stats{
		Requests:  l.stats.requests.Load(),
		Chains:    l.stats.chains.Load(),
		Probes:    l.stats.probes.Load(),
		Timeouts:  l.stats.timeouts.Load(),
		Resolved:  l.stats.resolved.Load(),
		Fallbacks: l.stats.fallbacks.Load(),
		Abandoned: l.stats.abandoned.Load(),
	}
}

// Resolve returns the first candidate of ref that loads with non-zero
// dimensions, or the default image. Concurrent calls with the same Ref.Key
// share one probe chain. When ctx ends first the caller gets the fallback at
// once and the shared chain keeps running for the other waiters.
func (l *Loader) Resolve(ctx context.Context, ref Ref) Result {
	l.stats.requests.Add(1)
	if ctx.Err() != nil {
		l.stats.abandoned.Add(1)
		return l.fallback()
	}
	chainCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(ref.Key(), func() (any, error) {
		l.stats.chains.Add(1)
		return l.run(chainCtx, ref), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Result)
	case <-ctx.Done():
		l.stats.abandoned.Add(1)
		return l.fallback()
	}
}

func (l *Loader) fallback() Result {
	return Result{Status: StatusFallback, URL: l.defaultImage}
}

func (l *Loader) run(ctx context.Context, ref Ref) Result {
	logger := logging.WithContext(ctx, l.logger).With(logging.String("ref", ref.Key()))
	candidates := l.Candidates(ref)
	for i, url := range candidates {
		width, height, err := l.probe(ctx, url)
		if err == nil {
			l.stats.resolved.Add(1)
			logger.Debug("reference resolved",
				logging.String("url", url),
				logging.Int("attempt", i+1),
				logging.Int("width", width),
				logging.Int("height", height))
			return Result{Status: StatusResolved, URL: url, Width: width, Height: height}
		}
		logger.Debug("candidate failed",
			logging.String("url", url),
			logging.Int("attempt", i+1),
			logging.Error(err))
	}

	l.stats.fallbacks.Add(1)
	logging.WarnWithContext(logger, "no candidate loaded", "loader_exhausted",
		logging.Int("candidates", len(candidates)),
		logging.String("fallback", l.defaultImage),
		logging.String(logging.FieldErrorHint, "run prism refresh for this asset or check the asset root"),
		logging.String(logging.FieldImpact, "default image rendered in place of the product image"))
	return l.fallback()
}

var errZeroDimensions = errors.New("loaded with zero dimensions")

// probe bounds one attempt by the candidate timeout. When the timer fires
// first the attempt is abandoned and its late result is dropped.
func (l *Loader) probe(ctx context.Context, url string) (int, int, error) {
	l.stats.probes.Add(1)
	probeCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type outcome struct {
		width, height int
		err           error
	}
	done := make(chan outcome, 1)
	go func() {
		w, h, err := l.prober.Probe(probeCtx, url)
		done <- outcome{width: w, height: h, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return 0, 0, res.err
		}
		if res.width <= 0 || res.height <= 0 {
			return 0, 0, services.Wrap(services.ErrProbe, "loader", "probe", url, errZeroDimensions)
		}
		return res.width, res.height, nil
	case <-probeCtx.Done():
		l.stats.timeouts.Add(1)
		return 0, 0, services.Wrap(services.ErrTimeout, "loader", "probe", url, probeCtx.Err())
	}
}
