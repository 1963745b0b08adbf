package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"prism/internal/catalog"
	"prism/internal/textutil"
)

type listEntryJSON struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	LogicalName string    `json:"logical_name"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Formats     []string  `json:"formats"`
	Variants    int       `json:"variants"`
	CreatedAt   time.Time `json:"created_at"`
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged assets, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			var assets []catalog.Asset
			filter := textutil.SanitizeToken(category)
			for _, asset := range store.List() {
				if strings.TrimSpace(category) != "" && asset.Category != filter {
					continue
				}
				assets = append(assets, asset)
			}

			if ctx.jsonOutput() {
				entries := make([]listEntryJSON, 0, len(assets))
				for _, asset := range assets {
					entries = append(entries, listEntryJSON{
						ID:          asset.ID,
						Category:    asset.Category,
						LogicalName: asset.LogicalName,
						Width:       asset.OriginalWidth,
						Height:      asset.OriginalHeight,
						Formats:     formatNames(asset),
						Variants:    asset.VariantCount(),
						CreatedAt:   asset.CreatedAt,
					})
				}
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(assets) == 0 {
				fmt.Fprintln(out, "No assets cataloged")
				return nil
			}
			rows := make([][]string, 0, len(assets))
			for _, asset := range assets {
				rows = append(rows, []string{
					shortID(asset.ID),
					asset.Category,
					asset.LogicalName,
					fmt.Sprintf("%dx%d", asset.OriginalWidth, asset.OriginalHeight),
					strings.Join(formatNames(asset), ","),
					strconv.Itoa(asset.VariantCount()),
					asset.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Category", "Name", "Size", "Formats", "Variants", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list assets in this category")
	return cmd
}

func formatNames(asset catalog.Asset) []string {
	formats := asset.Formats()
	names := make([]string, len(formats))
	for i, format := range formats {
		names[i] = string(format)
	}
	return names
}
