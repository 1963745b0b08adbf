package services

import "context"

type contextKey int

const (
	assetIDKey contextKey = iota
	stageKey
	sourceKey
	requestIDKey
)

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueFrom(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithAssetID annotates ctx with the content id being processed.
func WithAssetID(ctx context.Context, id string) context.Context {
	return withValue(ctx, assetIDKey, id)
}

// AssetIDFromContext returns the content id, if set.
func AssetIDFromContext(ctx context.Context) (string, bool) { return valueFrom(ctx, assetIDKey) }

// WithStage annotates ctx with the pipeline stage: process, encode, commit,
// sync or refresh.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name, if set.
func StageFromContext(ctx context.Context) (string, bool) { return valueFrom(ctx, stageKey) }

// WithSource annotates ctx with the source file path.
func WithSource(ctx context.Context, path string) context.Context {
	return withValue(ctx, sourceKey, path)
}

// SourceFromContext returns the source path, if set.
func SourceFromContext(ctx context.Context) (string, bool) { return valueFrom(ctx, sourceKey) }

// WithRequestID annotates ctx with the batch correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation id, if set.
func RequestIDFromContext(ctx context.Context) (string, bool) { return valueFrom(ctx, requestIDKey) }
