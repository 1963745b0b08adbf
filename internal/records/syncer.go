package records

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"prism/internal/logging"
	"prism/internal/services"
)

// Syncer writes summaries to a Store, retrying with exponential backoff.
type Syncer struct {
	store   Store
	retries int
	backoff time.Duration
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

// NewSyncer wraps store. retries is the number of attempts after the first.
func NewSyncer(store Store, retries int, backoff time.Duration, logger *slog.Logger) *Syncer {
	if store == nil {
		store = None()
	}
	if retries < 0 {
		retries = 0
	}
	return &Syncer{
		store:   store,
		retries: retries,
		backoff: backoff,
		logger:  logging.NewComponentLogger(logger, "records"),
		sleep:   sleepWithContext,
	}
}

// Store returns the wrapped store.
func (s *Syncer) Store() Store { return s.store }

// Sync writes summary. A final failure is a *SyncError; the caller decides
// whether to log and continue. Rejected summaries and unknown product keys
// are not retried.
func (s *Syncer) Sync(ctx context.Context, summary Summary) error {
	if s == nil {
		return nil
	}
	delay := s.backoff
	attempts := 0
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		attempts++
		lastErr = s.store.WriteCanonical(ctx, summary)
		if lastErr == nil {
			if attempt > 0 {
				s.logger.Info("record sync recovered",
					logging.String(logging.FieldAssetID, summary.AssetID),
					logging.String("product_key", summary.ProductKey),
					logging.Int("attempts", attempts))
			}
			return nil
		}
		if ctx.Err() != nil || attempt == s.retries || permanent(lastErr) {
			break
		}
		s.logger.Debug("record sync attempt failed",
			logging.String(logging.FieldAssetID, summary.AssetID),
			logging.Int("attempt", attempts),
			logging.Duration("retry_in", delay),
			logging.Error(lastErr))
		if err := s.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
		delay *= 2
	}
	return &SyncError{
		ProductKey: summary.ProductKey,
		AssetID:    summary.AssetID,
		Attempts:   attempts,
		Err:        lastErr,
	}
}

func permanent(err error) bool {
	return errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrNotFound)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
