package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shotscribe/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories and API access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var results []preflight.Result
			if offline {
				results = preflight.RunLocal(cmd.Context(), cfg)
			} else {
				results = preflight.RunAll(cmd.Context(), cfg)
			}

			if jsonOut {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("shotscribe doctor", colorize) {
					fmt.Fprintln(out, line)
				}
				if ctx.configPath != "" {
					fmt.Fprintln(out, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
				}
				for _, line := range checkLines(results, colorize) {
					fmt.Fprintln(out, line)
				}
			}
			if preflight.Failed(results) {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the API reachability check")
	return cmd
}
