package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shotscribe/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					status := string(run.Status)
					if run.FailureKind != "" {
						status += " (" + run.FailureKind + ")"
					}
					rows = append(rows, []string{
						formatStamp(run.StartedAt),
						string(run.Command),
						status,
						formatElapsed(run.Duration()),
						strconv.Itoa(run.Warnings),
						preview(run.URL, 48),
						preview(run.MarkdownPath, 48),
					})
				}
				fmt.Fprintln(out, listing{
					Title: "Recent runs",
					Columns: []column{
						{Header: "Started"},
						{Header: "Command"},
						{Header: "Status", MaxWidth: 28},
						{Header: "Elapsed", Right: true},
						{Header: "Warnings", Right: true},
						{Header: "URL"},
						{Header: "Report"},
					},
					Rows: rows,
				}.render())
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().BoolVar(&jsonOut, "json", false, "Print runs as JSON")

	historyCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
				return nil
			})
		},
	})
	return historyCmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
