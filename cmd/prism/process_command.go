package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"prism/internal/config"
	"prism/internal/pipeline"
	"prism/internal/records"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var category string
	var name string
	var product string

	cmd := &cobra.Command{
		Use:   "process <path>...",
		Short: "Encode source images into cataloged variant sets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && (strings.TrimSpace(name) != "" || strings.TrimSpace(product) != "") {
				return errors.New("--name and --product apply to a single path")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Records.Driver != config.RecordsDriverNone {
				resolved, err := ctx.resolveCategory(cmd, category, product)
				if err != nil {
					return err
				}
				category = resolved
			}
			if strings.TrimSpace(category) == "" {
				return errors.New("--category is required")
			}

			p, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			jobs := make([]pipeline.Job, 0, len(args))
			for _, path := range args {
				jobs = append(jobs, pipeline.Job{Path: path, Category: category, LogicalName: name, ProductKey: product})
			}
			report := p.Run(cmd.Context(), jobs)
			return renderReport(cmd, ctx, p, report)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Category path segment for the asset")
	cmd.Flags().StringVar(&name, "name", "", "Logical name (defaults to the file name)")
	cmd.Flags().StringVar(&product, "product", "", "Record store product key (defaults to the logical name)")
	return cmd
}

// resolveCategory checks category against the record store, filling it from
// the product record when empty. Lookup failures and unknown categories
// are warnings only.
func (c *commandContext) resolveCategory(cmd *cobra.Command, category, product string) (string, error) {
	store, err := c.openRecords()
	if err != nil {
		return "", err
	}
	cache := records.NewLookupCache()
	var keys []string
	if strings.TrimSpace(product) != "" {
		keys = append(keys, product)
	}
	if err := cache.Preload(cmd.Context(), store, keys...); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: record store lookup failed: %v\n", err)
		return category, nil
	}
	if strings.TrimSpace(category) == "" {
		if ref, ok := cache.Product(product); ok {
			category = ref.Category
		}
	}
	if category == "" || cache.CategoryCount() == 0 {
		return category, nil
	}
	if match, ok := cache.Category(category); ok {
		return match.Key, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: category %q is not known to the record store\n", category)
	return category, nil
}
