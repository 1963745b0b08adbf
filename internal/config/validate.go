package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateLoader(); err != nil {
		return err
	}
	if err := c.validateRecords(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.AssetRoot) == "" {
		return errors.New("paths.asset_root must be set")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if len(c.Encoding.Formats) == 0 {
		return errors.New("encoding.formats must include at least one format")
	}
	for _, format := range c.Encoding.Formats {
		if !slices.Contains(defaultFormats(), format) {
			return fmt.Errorf("encoding.formats: unsupported format %q (expected avif, webp, jpg, or png)", format)
		}
	}
	if !slices.Contains(defaultFormats(), c.Encoding.PlaceholderFormat) {
		return fmt.Errorf("encoding.placeholder_format: unsupported format %q", c.Encoding.PlaceholderFormat)
	}
	if c.Encoding.PlaceholderWidth > 64 {
		return errors.New("encoding.placeholder_width must be 64 or less")
	}
	return ensurePositiveMap(map[string]int{
		"encoding.workers":       c.Encoding.Workers,
		"encoding.batch_workers": c.Encoding.BatchWorkers,
	})
}

func (c *Config) validateCatalog() error {
	if c.Catalog.LockTimeoutSeconds <= 0 {
		return errors.New("catalog.lock_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLoader() error {
	if c.Loader.ProbeTimeoutMS <= 0 {
		return errors.New("loader.probe_timeout_ms must be positive")
	}
	if strings.TrimSpace(c.Loader.DefaultImage) == "" {
		return errors.New("loader.default_image must be set")
	}
	return nil
}

func (c *Config) validateRecords() error {
	switch c.Records.Driver {
	case RecordsDriverNone:
		return nil
	case RecordsDriverSQLite:
		if strings.TrimSpace(c.Records.SQLitePath) == "" {
			return errors.New("records.sqlite_path must be set when records.driver is sqlite")
		}
	case RecordsDriverHTTP:
		if strings.TrimSpace(c.Records.URL) == "" {
			return errors.New("records.url must be set when records.driver is http")
		}
		parsed, err := url.Parse(c.Records.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("records.url: invalid base url %q", c.Records.URL)
		}
	default:
		return fmt.Errorf("records.driver: unsupported value %q (expected none, sqlite, or http)", c.Records.Driver)
	}
	return ensurePositiveMap(map[string]int{
		"records.timeout_seconds": c.Records.TimeoutSeconds,
		"records.backoff_ms":      c.Records.BackoffMS,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
