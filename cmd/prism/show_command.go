package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"prism/internal/catalog"
	"prism/internal/services"
	"prism/internal/variant"
)

type showJSON struct {
	catalog.Asset
	CanonicalURL string   `json:"canonical_url,omitempty"`
	Missing      []string `json:"missing,omitempty"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a cataloged asset and its variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			asset, ok := p.Catalog().Get(args[0])
			if !ok {
				return fmt.Errorf("asset %s: %w", args[0], services.ErrNotFound)
			}
			missing := p.MissingVariants(asset)

			if ctx.jsonOutput() {
				return writeJSON(cmd, showJSON{Asset: asset, CanonicalURL: p.CanonicalURL(asset), Missing: missing})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:         %s\n", asset.ID)
			fmt.Fprintf(out, "Category:   %s\n", asset.Category)
			fmt.Fprintf(out, "Name:       %s\n", asset.LogicalName)
			fmt.Fprintf(out, "Original:   %s %dx%d (%d bytes)\n", asset.OriginalFormat, asset.OriginalWidth, asset.OriginalHeight, asset.OriginalSizeBytes)
			if url := p.CanonicalURL(asset); url != "" {
				fmt.Fprintf(out, "Canonical:  %s\n", url)
			}
			fmt.Fprintf(out, "Created:    %s\n", asset.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "Updated:    %s\n", asset.UpdatedAt.Format(time.RFC3339))

			var rows [][]string
			for _, format := range asset.Formats() {
				for _, kind := range displayKinds(asset, format) {
					file, _ := asset.Variant(format, kind)
					rows = append(rows, []string{string(format), string(kind), file.RelativePath, strconv.FormatInt(file.SizeBytes, 10)})
				}
			}
			fmt.Fprintln(out, renderTable([]string{"Format", "Kind", "Path", "Bytes"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
			if len(missing) > 0 {
				fmt.Fprintf(out, "Missing:    %v (run prism refresh %s)\n", missing, asset.ID)
			}
			return nil
		},
	}
}

// displayKinds orders the kinds present for format: placeholder, widths
// ascending, then original.
func displayKinds(asset catalog.Asset, format variant.Format) []variant.Kind {
	var kinds []variant.Kind
	if _, ok := asset.Variant(format, variant.KindPlaceholder); ok {
		kinds = append(kinds, variant.KindPlaceholder)
	}
	for _, width := range asset.Widths(format) {
		kinds = append(kinds, variant.WidthKind(width))
	}
	if _, ok := asset.Variant(format, variant.KindOriginal); ok {
		kinds = append(kinds, variant.KindOriginal)
	}
	return kinds
}
