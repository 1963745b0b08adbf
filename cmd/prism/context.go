package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"prism/internal/catalog"
	"prism/internal/config"
	"prism/internal/logging"
	"prism/internal/pipeline"
	"prism/internal/records"
	"prism/internal/variant"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	records records.Store
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openCatalog() (*catalog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(cfg.CatalogFile(), logger, catalog.WithLockTimeout(cfg.LockTimeout()))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return store, nil
}

func (c *commandContext) openRecords() (records.Store, error) {
	if c.records != nil {
		return c.records, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := records.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	c.records = store
	return store, nil
}

// newPipeline wires the encoder, catalog and record store sync.
func (c *commandContext) newPipeline() (*pipeline.Pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	store, err := c.openCatalog()
	if err != nil {
		return nil, err
	}
	encoder := variant.NewEncoder(variant.OptionsFromConfig(cfg), logger)

	var opts []pipeline.Option
	if cfg.Records.Driver != config.RecordsDriverNone {
		recordStore, err := c.openRecords()
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithSyncer(records.NewSyncer(recordStore, cfg.Records.Retries, cfg.RecordsBackoff(), logger)))
	}
	return pipeline.New(cfg, encoder, store, logger, opts...), nil
}

func (c *commandContext) close() error {
	if c.records == nil {
		return nil
	}
	err := c.records.Close()
	c.records = nil
	if err != nil {
		return fmt.Errorf("close record store: %w", err)
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

var errCommandFailed = errors.New("command failed")
