package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"prism/internal/config"
	"prism/internal/preflight"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create and check the prism configuration",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration and list the encoders it needs",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			sample, _, _, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("read back sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n\n", target)
			writeEncodingPlan(out, sample)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next: set paths.asset_root and loader.base_url, then run `prism doctor` to confirm the encoders.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func initTarget(flagValue string) (string, error) {
	if target := strings.TrimSpace(flagValue); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and show the encoding plan",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Asset root:  %s\n", cfg.Paths.AssetRoot)
			fmt.Fprintf(out, "Catalog:     %s\n", cfg.CatalogFile())
			fmt.Fprintf(out, "Records:     %s\n", cfg.Records.Driver)
			fmt.Fprintln(out)
			writeEncodingPlan(out, cfg)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// writeEncodingPlan shows the configured widths and, per output format, which
// encoder produces it.
func writeEncodingPlan(out io.Writer, cfg *config.Config) {
	widths := make([]string, len(cfg.Encoding.Widths))
	for i, w := range cfg.Encoding.Widths {
		widths[i] = strconv.Itoa(w)
	}
	fmt.Fprintf(out, "Widths: %s (placeholder %dpx %s)\n",
		strings.Join(widths, ", "), cfg.Encoding.PlaceholderWidth, cfg.Encoding.PlaceholderFormat)

	binaries := make(map[string]string)
	for _, req := range preflight.EncoderRequirements(cfg) {
		binaries[req.Name] = req.Command
	}
	rows := make([][]string, 0, len(cfg.Encoding.Formats))
	for _, format := range cfg.Encoding.Formats {
		encoder, binary := "built-in", "-"
		switch format {
		case config.FormatAVIF:
			encoder, binary = "avifenc", binaries["avifenc"]
		case config.FormatWebP:
			encoder, binary = "cwebp", binaries["cwebp"]
		}
		rows = append(rows, []string{format, encoder, binary})
	}
	fmt.Fprintln(out, renderTable([]string{"Format", "Encoder", "Binary"}, rows, nil))
}
