package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"prism/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckRecordsHTTP_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/categories" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckRecordsHTTP(context.Background(), srv.URL+"/", "good-key")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckRecordsHTTP_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	result := CheckRecordsHTTP(context.Background(), srv.URL, "bad-key")
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
}

func TestCheckRecordsHTTP_MissingURL(t *testing.T) {
	if CheckRecordsHTTP(context.Background(), " ", "key").Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckEncodersMissingBinaryIsOptionalWithNativeFormat(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cfg := config.Default()
	cfg.Encoding.Formats = []string{"webp", "jpg"}

	results := CheckEncoders(context.Background(), &cfg)
	if len(results) != 1 {
		t.Fatalf("expected only the webp encoder check, got %d", len(results))
	}
	if results[0].Passed {
		t.Fatal("cwebp should be missing on an empty PATH")
	}
	if !results[0].Optional {
		t.Fatal("missing encoder should be optional when jpg is still producible")
	}
	if Failed(results) {
		t.Fatal("optional failures must not fail the run")
	}
}

func TestCheckEncodersAllExternalMissingFails(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cfg := config.Default()
	cfg.Encoding.Formats = []string{"avif", "webp"}

	results := CheckEncoders(context.Background(), &cfg)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !Failed(results) {
		t.Fatal("expected failure when no configured format can be encoded")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.AssetRoot = t.TempDir()
	cfg.Encoding.Formats = []string{"jpg", "png"}

	results := RunAll(context.Background(), &cfg)
	if len(results) != 1 {
		t.Fatalf("expected only the asset root check, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

func TestRunAll_IncludesRecordsWhenConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.AssetRoot = t.TempDir()
	cfg.Paths.CatalogPath = filepath.Join(t.TempDir(), "catalog.json")
	cfg.Encoding.Formats = []string{"png"}
	cfg.Records.Driver = config.RecordsDriverHTTP
	cfg.Records.URL = srv.URL

	results := RunAll(context.Background(), &cfg)
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	for _, want := range []string{"Asset root", "Catalog directory", "Record store"} {
		if !names[want] {
			t.Fatalf("expected %s check in results, got %v", want, names)
		}
	}
}
