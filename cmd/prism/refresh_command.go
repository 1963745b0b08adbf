package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "refresh [id...]",
		Short: "Encode variants missing from cataloged assets",
		Long:  "Refresh re-encodes only the variants an asset lacks, such as a format enabled after it was processed. With no ids every cataloged asset is checked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			ids := args
			if len(ids) == 0 {
				for _, asset := range p.Catalog().List() {
					ids = append(ids, asset.ID)
				}
			}

			if dryRun {
				out := cmd.OutOrStdout()
				pending := 0
				for _, id := range ids {
					asset, ok := p.Catalog().Get(id)
					if !ok {
						fmt.Fprintf(out, "%s: not cataloged\n", id)
						continue
					}
					if missing := p.MissingVariants(asset); len(missing) > 0 {
						pending++
						fmt.Fprintf(out, "%s: %d missing (%v)\n", shortID(asset.ID), len(missing), missing)
					}
				}
				fmt.Fprintf(out, "%d of %d asset(s) need refresh\n", pending, len(ids))
				return nil
			}

			report := p.RefreshAll(cmd.Context(), ids)
			return renderReport(cmd, ctx, p, report)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List missing variants without encoding")
	return cmd
}
