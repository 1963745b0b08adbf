package config_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"prism/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantRoot := filepath.Join(tempHome, ".local", "share", "prism", "assets")
	if cfg.Paths.AssetRoot != wantRoot {
		t.Fatalf("unexpected asset root: got %q want %q", cfg.Paths.AssetRoot, wantRoot)
	}
	if cfg.Paths.CatalogPath != filepath.Join(wantRoot, "catalog.json") {
		t.Fatalf("catalog path should default under asset root, got %q", cfg.Paths.CatalogPath)
	}
	if !slices.Equal(cfg.Encoding.Formats, []string{"avif", "webp", "jpg", "png"}) {
		t.Fatalf("unexpected default formats: %v", cfg.Encoding.Formats)
	}
	if cfg.Encoding.PlaceholderWidth != 20 {
		t.Fatalf("unexpected placeholder width: %d", cfg.Encoding.PlaceholderWidth)
	}
	if cfg.ProbeTimeout() != 1500*time.Millisecond {
		t.Fatalf("unexpected probe timeout: %s", cfg.ProbeTimeout())
	}
	if cfg.Records.Driver != config.RecordsDriverNone {
		t.Fatalf("expected records driver none, got %q", cfg.Records.Driver)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.AssetRoot, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPathNormalizesEncoding(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "prism.toml")

	type payload struct {
		Paths struct {
			AssetRoot string `toml:"asset_root"`
		} `toml:"paths"`
		Encoding struct {
			Formats           []string `toml:"formats"`
			Widths            []int    `toml:"widths"`
			PlaceholderFormat string   `toml:"placeholder_format"`
		} `toml:"encoding"`
		Records struct {
			Driver string `toml:"driver"`
			URL    string `toml:"url"`
		} `toml:"records"`
	}
	custom := payload{}
	custom.Paths.AssetRoot = filepath.Join(tempDir, "assets")
	custom.Encoding.Formats = []string{" WEBP", "jpeg", "webp"}
	custom.Encoding.Widths = []int{1024, 640, 0, 640, 768}
	custom.Encoding.PlaceholderFormat = "JPEG"
	custom.Records.Driver = "HTTP"
	custom.Records.URL = "https://records.example.com/api/"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if !slices.Equal(cfg.Encoding.Formats, []string{"webp", "jpg"}) {
		t.Fatalf("unexpected formats: %v", cfg.Encoding.Formats)
	}
	if !slices.Equal(cfg.Encoding.Widths, []int{640, 768, 1024}) {
		t.Fatalf("unexpected widths: %v", cfg.Encoding.Widths)
	}
	if cfg.Encoding.PlaceholderFormat != "jpg" {
		t.Fatalf("unexpected placeholder format: %q", cfg.Encoding.PlaceholderFormat)
	}
	if cfg.Records.Driver != "http" || cfg.Records.URL != "https://records.example.com/api" {
		t.Fatalf("unexpected records config: %+v", cfg.Records)
	}
	if cfg.Paths.CatalogPath != filepath.Join(tempDir, "assets", "catalog.json") {
		t.Fatalf("unexpected catalog path %q", cfg.Paths.CatalogPath)
	}
}

func TestRecordsAPIKeyFallsBackToEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "prism.toml")
	if err := os.WriteFile(configPath, []byte("[records]\ndriver = \"none\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PRISM_RECORDS_API_KEY", " env-key ")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Records.APIKey != "env-key" {
		t.Fatalf("expected key from env, got %q", cfg.Records.APIKey)
	}

	if err := os.WriteFile(configPath, []byte("[records]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err = config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Records.APIKey != "file-key" {
		t.Fatalf("file value should win over env, got %q", cfg.Records.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.AssetRoot, "prism") {
		t.Fatalf("expected asset root to contain prism, got %q", cfg.Paths.AssetRoot)
	}
	defaults := config.Default()
	if !slices.Equal(cfg.Encoding.Formats, defaults.Encoding.Formats) {
		t.Fatalf("sample formats %v drift from defaults %v", cfg.Encoding.Formats, defaults.Encoding.Formats)
	}
	if !slices.Equal(cfg.Encoding.Widths, defaults.Encoding.Widths) {
		t.Fatalf("sample widths %v drift from defaults %v", cfg.Encoding.Widths, defaults.Encoding.Widths)
	}
	if cfg.Loader.ProbeTimeoutMS != defaults.Loader.ProbeTimeoutMS {
		t.Fatalf("sample probe timeout %d drifts from default", cfg.Loader.ProbeTimeoutMS)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"no formats", func(c *config.Config) { c.Encoding.Formats = nil }},
		{"unknown format", func(c *config.Config) { c.Encoding.Formats = []string{"gif"} }},
		{"unknown placeholder format", func(c *config.Config) { c.Encoding.PlaceholderFormat = "bmp" }},
		{"oversized placeholder", func(c *config.Config) { c.Encoding.PlaceholderWidth = 200 }},
		{"zero workers", func(c *config.Config) { c.Encoding.Workers = 0 }},
		{"zero batch workers", func(c *config.Config) { c.Encoding.BatchWorkers = 0 }},
		{"zero lock timeout", func(c *config.Config) { c.Catalog.LockTimeoutSeconds = 0 }},
		{"zero probe timeout", func(c *config.Config) { c.Loader.ProbeTimeoutMS = 0 }},
		{"unknown records driver", func(c *config.Config) { c.Records.Driver = "mongo" }},
		{"http without url", func(c *config.Config) { c.Records.Driver = "http" }},
		{"http relative url", func(c *config.Config) {
			c.Records.Driver = "http"
			c.Records.URL = "/api"
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestNormalizeFormat(t *testing.T) {
	for input, want := range map[string]string{
		"JPEG":  "jpg",
		".webp": "webp",
		" Avif": "avif",
		"png":   "png",
	} {
		if got := config.NormalizeFormat(input); got != want {
			t.Fatalf("NormalizeFormat(%q) = %q, want %q", input, got, want)
		}
	}
}
