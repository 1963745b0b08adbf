package logging

import (
	"context"
	"log/slog"

	"prism/internal/services"
)

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldAssetID is the structured logging key for content-derived asset identifiers.
	FieldAssetID = "asset_id"
	// FieldCategory is the structured logging key for asset categories.
	FieldCategory = "category"
	// FieldFormat is the structured logging key for output formats (avif, webp, jpg, png).
	FieldFormat = "format"
	// FieldVariant is the structured logging key for variant kinds (original, 640w, placeholder).
	FieldVariant = "variant"
	// FieldStage is the structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldSource is the structured logging key for source file paths.
	FieldSource = "source"
	// FieldCorrelationID is the structured logging key for batch correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType names the kind of event for warnings and errors.
	FieldEventType = "event_type"
	// FieldErrorHint carries the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the failure classification from services.Kind.
	FieldErrorKind = "error_kind"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.AssetIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAssetID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if source, ok := services.SourceFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSource, source))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(toArgs(fields)...)
}
