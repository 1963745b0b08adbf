package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains asset tree, catalog, and log locations.
type Paths struct {
	AssetRoot   string `toml:"asset_root"`
	CatalogPath string `toml:"catalog_path"`
	LogDir      string `toml:"log_dir"`
}

// Encoding controls which variants are produced for every source image.
type Encoding struct {
	Formats           []string `toml:"formats"`
	Widths            []int    `toml:"widths"`
	PlaceholderWidth  int      `toml:"placeholder_width"`
	PlaceholderFormat string   `toml:"placeholder_format"`
	// Workers bounds concurrent variant encodes for one source file.
	Workers int `toml:"workers"`
	// BatchWorkers bounds how many source files a batch run processes at once.
	BatchWorkers  int    `toml:"batch_workers"`
	CwebpBinary   string `toml:"cwebp_binary"`
	AvifencBinary string `toml:"avifenc_binary"`
}

// Catalog contains catalog document settings.
type Catalog struct {
	LockTimeoutSeconds int `toml:"lock_timeout_seconds"`
}

// Loader contains adaptive loader settings.
type Loader struct {
	BaseURL        string `toml:"base_url"`
	DefaultImage   string `toml:"default_image"`
	ProbeTimeoutMS int    `toml:"probe_timeout_ms"`
}

// Records configures the external product record store.
type Records struct {
	Driver         string `toml:"driver"` // none, sqlite, http
	SQLitePath     string `toml:"sqlite_path"`
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Retries        int    `toml:"retries"`
	BackoffMS      int    `toml:"backoff_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for prism.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Encoding Encoding `toml:"encoding"`
	Catalog  Catalog  `toml:"catalog"`
	Loader   Loader   `toml:"loader"`
	Records  Records  `toml:"records"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("prism.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the asset root, the catalog directory, and the log
// directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.AssetRoot, filepath.Dir(c.CatalogFile()), c.Paths.LogDir}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogFile returns the catalog document path, defaulting to catalog.json
// under the asset root.
func (c *Config) CatalogFile() string {
	if strings.TrimSpace(c.Paths.CatalogPath) != "" {
		return c.Paths.CatalogPath
	}
	return filepath.Join(c.Paths.AssetRoot, defaultCatalogFile)
}

// LockTimeout returns the bounded wait for the catalog file lock.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Catalog.LockTimeoutSeconds) * time.Second
}

// ProbeTimeout returns the per-candidate loader probe timeout.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Loader.ProbeTimeoutMS) * time.Millisecond
}

// RecordsTimeout returns the per-request timeout for the record store.
func (c *Config) RecordsTimeout() time.Duration {
	return time.Duration(c.Records.TimeoutSeconds) * time.Second
}

// RecordsBackoff returns the initial retry delay for record store writes.
func (c *Config) RecordsBackoff() time.Duration {
	return time.Duration(c.Records.BackoffMS) * time.Millisecond
}

// HasFormat reports whether name is one of the configured output formats.
func (c *Config) HasFormat(name string) bool {
	for _, format := range c.Encoding.Formats {
		if format == name {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
