package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"prism/internal/pipeline"
)

type batchResultJSON struct {
	Path           string   `json:"path,omitempty"`
	ID             string   `json:"id,omitempty"`
	Status         string   `json:"status"`
	Variants       int      `json:"variants,omitempty"`
	Written        int      `json:"written,omitempty"`
	CanonicalURL   string   `json:"canonical_url,omitempty"`
	Failures       []string `json:"failures,omitempty"`
	NearDuplicates []string `json:"near_duplicates,omitempty"`
	SyncError      string   `json:"sync_error,omitempty"`
	Error          string   `json:"error,omitempty"`
}

type batchReportJSON struct {
	CorrelationID string            `json:"correlation_id"`
	Processed     int               `json:"processed"`
	Unchanged     int               `json:"unchanged"`
	Failed        int               `json:"failed"`
	Retryable     int               `json:"retryable"`
	SyncWarnings  int               `json:"sync_warnings"`
	DurationMS    int64             `json:"duration_ms"`
	Results       []batchResultJSON `json:"results"`
}

func resultStatus(result pipeline.JobResult) string {
	switch {
	case result.Err != nil:
		return "failed"
	case result.Outcome.Unchanged:
		return "unchanged"
	default:
		return "processed"
	}
}

func toBatchJSON(p *pipeline.Pipeline, report pipeline.Report) batchReportJSON {
	out := batchReportJSON{
		CorrelationID: report.CorrelationID,
		Processed:     report.Processed,
		Unchanged:     report.Unchanged,
		Failed:        report.Failed,
		Retryable:     report.Retryable,
		SyncWarnings:  report.SyncWarnings,
		DurationMS:    report.Duration.Milliseconds(),
		Results:       make([]batchResultJSON, 0, len(report.Results)),
	}
	for _, result := range report.Results {
		entry := batchResultJSON{Path: result.Job.Path, ID: result.ID, Status: resultStatus(result)}
		if result.Err != nil {
			entry.Error = result.Err.Error()
		} else {
			outcome := result.Outcome
			entry.ID = outcome.Asset.ID
			entry.Variants = outcome.Asset.VariantCount()
			entry.Written = outcome.Written
			entry.CanonicalURL = p.CanonicalURL(outcome.Asset)
			entry.NearDuplicates = outcome.NearDuplicates
			for _, failure := range outcome.Failures {
				entry.Failures = append(entry.Failures, failure.String())
			}
			if outcome.SyncErr != nil {
				entry.SyncError = outcome.SyncErr.Error()
			}
		}
		out.Results = append(out.Results, entry)
	}
	return out
}

// renderReport writes report as JSON or a table and returns an error when
// any entry failed.
func renderReport(cmd *cobra.Command, ctx *commandContext, p *pipeline.Pipeline, report pipeline.Report) error {
	if ctx.jsonOutput() {
		if err := writeJSON(cmd, toBatchJSON(p, report)); err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(report.Results))
		for _, result := range toBatchJSON(p, report).Results {
			notes := result.Error
			if notes == "" {
				var parts []string
				if len(result.Failures) > 0 {
					parts = append(parts, fmt.Sprintf("%d variant(s) failed", len(result.Failures)))
				}
				if len(result.NearDuplicates) > 0 {
					parts = append(parts, "near duplicate of "+shortIDs(result.NearDuplicates))
				}
				if result.SyncError != "" {
					parts = append(parts, "record sync failed")
				}
				notes = strings.Join(parts, "; ")
			}
			label := result.Path
			if label == "" {
				label = shortID(result.ID)
			}
			rows = append(rows, []string{label, shortID(result.ID), result.Status, strconv.Itoa(result.Variants), notes})
		}
		out := cmd.OutOrStdout()
		if len(rows) > 0 {
			fmt.Fprintln(out, renderTable([]string{"Source", "ID", "Status", "Variants", "Notes"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
		}
		fmt.Fprintf(out, "%d processed (%d unchanged), %d failed, %d sync warning(s) in %s [%s]\n",
			report.Processed, report.Unchanged, report.Failed, report.SyncWarnings,
			report.Duration.Round(time.Millisecond), report.CorrelationID)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d item(s) failed: %w", report.Failed, len(report.Results), errCommandFailed)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func shortIDs(ids []string) string {
	short := make([]string, len(ids))
	for i, id := range ids {
		short[i] = shortID(id)
	}
	return strings.Join(short, ", ")
}
