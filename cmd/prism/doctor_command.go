package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prism/internal/preflight"
)

type doctorCheck struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional"`
	Detail   string `json:"detail,omitempty"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, encoders, and the record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)

			if ctx.jsonOutput() {
				checks := make([]doctorCheck, 0, len(results))
				for _, r := range results {
					checks = append(checks, doctorCheck(r))
				}
				if err := writeJSON(cmd, checks); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, r := range results {
					kind := statusOK
					switch {
					case !r.Passed && r.Optional:
						kind = statusWarn
					case !r.Passed:
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}

			if preflight.Failed(results) {
				return fmt.Errorf("doctor: %w", errCommandFailed)
			}
			return nil
		},
	}
}
