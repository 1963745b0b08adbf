package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"prism/internal/config"
	"prism/internal/records"
	"prism/internal/testsupport"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	cfg.Logging.Level = "error"
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(filepath.Dir(cfg.Paths.LogDir), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func processOne(t *testing.T, configPath string, args ...string) batchResultJSON {
	t.Helper()
	out, _, err := runCLI(t, append([]string{"--json", "process"}, args...), configPath)
	if err != nil {
		t.Fatalf("process: %v\n%s", err, out)
	}
	var report batchReportJSON
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(report.Results) != 1 {
		t.Fatalf("expected one result, got %+v", report)
	}
	return report.Results[0]
}

func TestCLIProcessListShowResolve(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	src := testsupport.WritePNG(t, filepath.Join(t.TempDir(), "runner.png"), 1200, 1200, 3)

	result := processOne(t, configPath, src, "--category", "Shoes")
	if result.Status != "processed" || result.ID == "" {
		t.Fatalf("unexpected result %+v", result)
	}
	if want := "/assets/shoes/" + result.ID + "/original.jpg"; result.CanonicalURL != want {
		t.Fatalf("canonical url = %q, want %q", result.CanonicalURL, want)
	}

	again := processOne(t, configPath, src, "--category", "shoes")
	if again.Status != "unchanged" || again.ID != result.ID {
		t.Fatalf("second run = %+v", again)
	}

	out, _, err := runCLI(t, []string{"list"}, configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, result.ID[:12])
	requireContains(t, out, "runner")

	out, _, err = runCLI(t, []string{"show", result.ID}, configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Canonical:  /assets/shoes/"+result.ID)
	requireContains(t, out, "placeholder")

	out, _, err = runCLI(t, []string{"resolve", "asset:" + result.ID, "--width", "700"}, configPath)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	requireContains(t, out, "resolved /assets/shoes/"+result.ID+"/768.jpg (768x768)")
}

func TestCLIProcessFailureExitsNonZero(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"process", filepath.Join(t.TempDir(), "missing.png"), "--category", "shoes"}, configPath)
	if err == nil {
		t.Fatal("expected process of a missing file to fail")
	}
	requireContains(t, out, "failed")
}

func TestCLIProcessRequiresCategory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	src := testsupport.WritePNG(t, filepath.Join(t.TempDir(), "a.png"), 100, 100, 1)

	if _, _, err := runCLI(t, []string{"process", src}, configPath); err == nil {
		t.Fatal("expected missing --category to fail")
	}
	if _, _, err := runCLI(t, []string{"process", src, src, "--category", "x", "--name", "n"}, configPath); err == nil {
		t.Fatal("expected --name with several paths to fail")
	}
}

func TestCLIProcessWritesCanonicalToSQLite(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRecordsDriver(config.RecordsDriverSQLite, ""))

	store, err := records.OpenSQLite(cfg.Records.SQLitePath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	ctx := context.Background()
	if err := store.PutCategory(ctx, records.Category{Key: "shoes", Name: "Running Shoes"}); err != nil {
		t.Fatalf("PutCategory: %v", err)
	}
	if err := store.PutProduct(ctx, records.AssetRef{ProductKey: "sku-1", Category: "shoes"}); err != nil {
		t.Fatalf("PutProduct: %v", err)
	}
	_ = store.Close()

	configPath := writeTestConfig(t, cfg)
	src := testsupport.WritePNG(t, filepath.Join(t.TempDir(), "trail.png"), 800, 600, 9)

	result := processOne(t, configPath, src, "--product", "sku-1")
	if result.Status != "processed" || result.SyncError != "" {
		t.Fatalf("unexpected result %+v", result)
	}

	store, err = records.OpenSQLite(cfg.Records.SQLitePath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	url, err := store.CanonicalURL(ctx, "sku-1")
	if err != nil {
		t.Fatalf("CanonicalURL: %v", err)
	}
	if url != result.CanonicalURL {
		t.Fatalf("record url = %q, want %q", url, result.CanonicalURL)
	}
}

func TestCLIRefreshAddsEnabledFormat(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFormats(config.FormatJPEG))
	configPath := writeTestConfig(t, cfg)
	src := testsupport.WritePNG(t, filepath.Join(t.TempDir(), "bag.png"), 900, 900, 5)
	result := processOne(t, configPath, src, "--category", "bags")

	cfg.Encoding.Formats = []string{config.FormatJPEG, config.FormatPNG}
	configPath = writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"refresh", "--dry-run"}, configPath)
	if err != nil {
		t.Fatalf("refresh --dry-run: %v", err)
	}
	requireContains(t, out, "1 of 1 asset(s) need refresh")

	if out, _, err = runCLI(t, []string{"refresh", result.ID}, configPath); err != nil {
		t.Fatalf("refresh: %v\n%s", err, out)
	}

	out, _, err = runCLI(t, []string{"refresh", "--dry-run"}, configPath)
	if err != nil {
		t.Fatalf("refresh --dry-run: %v", err)
	}
	requireContains(t, out, "0 of 1 asset(s) need refresh")
}

func TestCLIResolveUnknownAssetFallsBack(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"--json", "resolve", "asset:" + strings.Repeat("ab", 32)}, configPath)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var payload resolveJSON
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if payload.Result.Status != "fallback" || payload.Result.URL != cfg.Loader.DefaultImage {
		t.Fatalf("unexpected result %+v", payload.Result)
	}
}

func TestCLIConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "prism", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	for _, want := range []string{"avif", "avifenc", "webp", "cwebp", "built-in", "prism doctor"} {
		requireContains(t, out, want)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}

	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	out, _, err = runCLI(t, []string{"config", "validate"}, configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, cfg.Paths.AssetRoot)
	for _, format := range cfg.Encoding.Formats {
		requireContains(t, out, format)
	}
}

func TestCLIDoctorNativeFormats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"doctor"}, configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "[OK]")
}

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("cwebp", statusWarn, "not found", false)
	requireContains(t, plain, "cwebp:")
	requireContains(t, plain, "[WARN] not found")
	if strings.Contains(plain, "\x1b[") {
		t.Fatalf("uncolored line has escape codes: %q", plain)
	}
	colored := renderStatusLine("cwebp", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("colored line = %q", colored)
	}
}
