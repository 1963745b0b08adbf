package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"prism/internal/logging"
	"prism/internal/services"
)

// JobResult is the outcome of one batch entry.
type JobResult struct {
	Job     Job
	ID      string
	Outcome *Outcome
	Err     error
}

// Report aggregates a batch run.
type Report struct {
	CorrelationID string
	Processed     int
	Unchanged     int
	Failed        int
	Retryable     int
	SyncWarnings  int
	Duration      time.Duration
	Results       []JobResult
}

// Run processes jobs on a bounded worker pool. Jobs are independent: a
// failure is recorded in the report and the others continue.
func (p *Pipeline) Run(ctx context.Context, jobs []Job) Report {
	return p.runBatch(ctx, "batch", len(jobs), func(ctx context.Context, i int) JobResult {
		outcome, err := p.ProcessJob(ctx, jobs[i])
		return JobResult{Job: jobs[i], Outcome: outcome, Err: err}
	})
}

// RefreshAll runs Refresh for every id on the batch pool.
func (p *Pipeline) RefreshAll(ctx context.Context, ids []string) Report {
	return p.runBatch(ctx, "refresh", len(ids), func(ctx context.Context, i int) JobResult {
		outcome, err := p.Refresh(ctx, ids[i])
		return JobResult{ID: ids[i], Outcome: outcome, Err: err}
	})
}

func (p *Pipeline) runBatch(ctx context.Context, label string, n int, work func(context.Context, int) JobResult) Report {
	start := time.Now()
	correlationID := uuid.NewString()
	ctx = services.WithRequestID(ctx, correlationID)
	logger := logging.WithContext(ctx, p.logger)

	results := make([]JobResult, n)
	var group errgroup.Group
	group.SetLimit(p.batchWorkers)
	var mu sync.Mutex
	done := 0
	for i := range n {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = JobResult{Err: err}
			} else {
				results[i] = work(ctx, i)
			}
			mu.Lock()
			done++
			logger.Debug("batch progress", logging.Int("done", done), logging.Int("total", n))
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	report := Report{CorrelationID: correlationID, Results: results}
	for i := range results {
		result := &results[i]
		if result.Outcome != nil && result.ID == "" {
			result.ID = result.Outcome.Asset.ID
		}
		if result.Err != nil {
			report.Failed++
			if services.Retryable(result.Err) {
				report.Retryable++
			}
			var procErr *ProcessError
			id := result.ID
			if errors.As(result.Err, &procErr) && procErr.ID != "" {
				id = procErr.ID
				result.ID = id
			}
			logging.ErrorWithContext(logger, "batch entry failed", "batch_entry_failed",
				logging.String(logging.FieldSource, result.Job.Path),
				logging.String(logging.FieldAssetID, id),
				logging.Error(result.Err),
				logging.Kind(services.Kind(result.Err)),
				logging.String(logging.FieldErrorHint, failureHint(result.Err)))
			continue
		}
		report.Processed++
		if result.Outcome.Unchanged {
			report.Unchanged++
		}
		if result.Outcome.SyncErr != nil {
			report.SyncWarnings++
			logging.WarnWithContext(logger, "record sync failed", "record_sync_failed",
				logging.String(logging.FieldAssetID, result.ID),
				logging.Error(result.Outcome.SyncErr),
				logging.String(logging.FieldErrorHint, "check records.url and credentials, then run prism refresh"),
				logging.String(logging.FieldImpact, "record store shows a stale image for this product"))
		}
	}
	report.Duration = time.Since(start)

	logger.Info(label+" complete",
		logging.Int("processed", report.Processed),
		logging.Int("unchanged", report.Unchanged),
		logging.Int("failed", report.Failed),
		logging.Int("sync_warnings", report.SyncWarnings),
		logging.Duration("duration", report.Duration))
	return report
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrUnsupportedSource):
		return "convert the source to JPEG, PNG, or WebP"
	case errors.Is(err, services.ErrUnreadableSource):
		return "check that the file exists and is a valid image"
	case errors.Is(err, services.ErrEncode):
		return "run prism doctor to check encoder binaries"
	case errors.Is(err, services.ErrCatalog):
		return "retry; another prism process may hold the catalog lock"
	case errors.Is(err, services.ErrNotFound):
		return "run prism list to see cataloged ids"
	default:
		return "set logging.level = \"debug\" and re-run for details"
	}
}
