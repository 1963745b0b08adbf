package services_test

import (
	"context"
	"testing"

	"prism/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithAssetID(ctx, "abc123")
	ctx = services.WithStage(ctx, "encode")
	ctx = services.WithSource(ctx, "/tmp/shoe.jpg")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.AssetIDFromContext(ctx); !ok || id != "abc123" {
		t.Fatalf("unexpected asset id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "encode" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if src, ok := services.SourceFromContext(ctx); !ok || src != "/tmp/shoe.jpg" {
		t.Fatalf("unexpected source: %v %v", src, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithAssetID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.AssetIDFromContext(ctx); ok {
		t.Fatal("expected no asset id value")
	}
}
