package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoding()
	c.normalizeLoader()
	if err := c.normalizeRecords(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.AssetRoot) == "" {
		c.Paths.AssetRoot = defaultAssetRoot
	}
	if c.Paths.AssetRoot, err = expandPath(c.Paths.AssetRoot); err != nil {
		return fmt.Errorf("paths.asset_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.CatalogPath) == "" {
		c.Paths.CatalogPath = filepath.Join(c.Paths.AssetRoot, defaultCatalogFile)
	}
	if c.Paths.CatalogPath, err = expandPath(c.Paths.CatalogPath); err != nil {
		return fmt.Errorf("paths.catalog_path: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

// NormalizeFormat maps user spellings onto the canonical format names.
func NormalizeFormat(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.TrimPrefix(normalized, ".")
	if normalized == "jpeg" {
		return FormatJPEG
	}
	return normalized
}

func (c *Config) normalizeEncoding() {
	formats := make([]string, 0, len(c.Encoding.Formats))
	for _, format := range c.Encoding.Formats {
		normalized := NormalizeFormat(format)
		if normalized == "" || slices.Contains(formats, normalized) {
			continue
		}
		formats = append(formats, normalized)
	}
	c.Encoding.Formats = formats

	widths := make([]int, 0, len(c.Encoding.Widths))
	for _, width := range c.Encoding.Widths {
		if width <= 0 || slices.Contains(widths, width) {
			continue
		}
		widths = append(widths, width)
	}
	slices.Sort(widths)
	c.Encoding.Widths = widths

	if c.Encoding.PlaceholderWidth <= 0 {
		c.Encoding.PlaceholderWidth = defaultPlaceholderWidth
	}
	c.Encoding.PlaceholderFormat = NormalizeFormat(c.Encoding.PlaceholderFormat)
	if c.Encoding.PlaceholderFormat == "" {
		c.Encoding.PlaceholderFormat = defaultPlaceholderFormat
	}
	if c.Encoding.Workers <= 0 {
		c.Encoding.Workers = defaultEncodeWorkers
	}
	if c.Encoding.BatchWorkers <= 0 {
		c.Encoding.BatchWorkers = defaultBatchWorkers
	}
	c.Encoding.CwebpBinary = strings.TrimSpace(c.Encoding.CwebpBinary)
	if c.Encoding.CwebpBinary == "" {
		c.Encoding.CwebpBinary = defaultCwebpBinary
	}
	c.Encoding.AvifencBinary = strings.TrimSpace(c.Encoding.AvifencBinary)
	if c.Encoding.AvifencBinary == "" {
		c.Encoding.AvifencBinary = defaultAvifencBinary
	}
}

func (c *Config) normalizeLoader() {
	c.Loader.BaseURL = strings.TrimRight(strings.TrimSpace(c.Loader.BaseURL), "/")
	c.Loader.DefaultImage = strings.TrimSpace(c.Loader.DefaultImage)
	if c.Loader.DefaultImage == "" {
		c.Loader.DefaultImage = defaultLoaderImage
	}
	if c.Loader.ProbeTimeoutMS <= 0 {
		c.Loader.ProbeTimeoutMS = defaultProbeTimeoutMS
	}
}

func (c *Config) normalizeRecords() error {
	c.Records.Driver = strings.ToLower(strings.TrimSpace(c.Records.Driver))
	if c.Records.Driver == "" {
		c.Records.Driver = defaultRecordsDriver
	}
	c.Records.APIKey = strings.TrimSpace(c.Records.APIKey)
	if c.Records.APIKey == "" {
		if value, ok := os.LookupEnv("PRISM_RECORDS_API_KEY"); ok {
			c.Records.APIKey = strings.TrimSpace(value)
		}
	}
	c.Records.URL = strings.TrimRight(strings.TrimSpace(c.Records.URL), "/")
	if strings.TrimSpace(c.Records.SQLitePath) == "" {
		c.Records.SQLitePath = defaultRecordsSQLitePath
	}
	var err error
	if c.Records.SQLitePath, err = expandPath(c.Records.SQLitePath); err != nil {
		return fmt.Errorf("records.sqlite_path: %w", err)
	}
	if c.Records.TimeoutSeconds <= 0 {
		c.Records.TimeoutSeconds = defaultRecordsTimeout
	}
	if c.Records.Retries < 0 {
		c.Records.Retries = 0
	}
	if c.Records.BackoffMS <= 0 {
		c.Records.BackoffMS = defaultRecordsBackoffMS
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
