package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"prism/internal/loader"
)

type resolveJSON struct {
	Ref        loader.Ref    `json:"ref"`
	Candidates []string      `json:"candidates"`
	Result     loader.Result `json:"result"`
	Stats      loader.Stats  `json:"stats"`
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var width int
	var placeholderShown bool
	var origin string

	cmd := &cobra.Command{
		Use:   "resolve <ref>",
		Short: "Resolve an image reference through the fallback chain",
		Long:  "Resolve accepts asset:<id>[@<width>] or a direct URL and reports the first candidate that loads. Candidates are read from the asset root unless --origin is set.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}

			ref, err := loader.ParseRef(args[0])
			if err != nil {
				return err
			}
			if width > 0 {
				ref.WidthHint = width
			}
			ref.PlaceholderShown = placeholderShown

			var prober loader.Prober = loader.NewFileProber(cfg.Paths.AssetRoot, cfg.Loader.BaseURL)
			if strings.TrimSpace(origin) != "" {
				httpProber, err := loader.NewHTTPProber(origin, &http.Client{Timeout: cfg.ProbeTimeout()})
				if err != nil {
					return err
				}
				prober = httpProber
			}

			l := loader.New(cfg, store, prober, logger)
			candidates := l.Candidates(ref)
			result := l.Resolve(cmd.Context(), ref)

			if ctx.jsonOutput() {
				return writeJSON(cmd, resolveJSON{Ref: ref, Candidates: candidates, Result: result, Stats: l.Stats()})
			}
			out := cmd.OutOrStdout()
			for i, candidate := range candidates {
				fmt.Fprintf(out, "  %d. %s\n", i+1, candidate)
			}
			if result.Status == loader.StatusResolved {
				fmt.Fprintf(out, "%s %s (%dx%d)\n", result.Status, result.URL, result.Width, result.Height)
			} else {
				fmt.Fprintf(out, "%s %s\n", result.Status, result.URL)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Width hint in pixels")
	cmd.Flags().BoolVar(&placeholderShown, "placeholder-shown", false, "Allow the placeholder as the last candidate")
	cmd.Flags().StringVar(&origin, "origin", "", "Probe candidates over HTTP against this origin")
	return cmd
}
