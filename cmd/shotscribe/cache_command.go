package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shotscribe/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the content cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage per video",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.cacheStore()
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache:   %s\n", stats.Root)
			fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
			fmt.Fprintf(out, "Size:    %s\n", humanBytes(stats.TotalBytes))
			fmt.Fprintf(out, "Disk:    %s free of %s\n", humanBytes(int64(stats.FreeBytes)), humanBytes(int64(stats.TotalFSBytes)))
			printCacheEntries(out, stats.EntrySummaries)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print stats as JSON")
	return cmd
}

func printCacheEntries(out io.Writer, entries []cache.EntrySummary) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Cached videos: none")
		return
	}
	rows := make([][]string, 0, len(entries))
	var total int64
	frames := 0
	for _, entry := range entries {
		total += entry.SizeBytes
		frames += entry.Frames
		categories := make([]string, 0, len(entry.Categories))
		for _, c := range entry.Categories {
			categories = append(categories, string(c))
		}
		rows = append(rows, []string{
			entry.Key.String(),
			humanBytes(entry.SizeBytes),
			yesNo(entry.Complete),
			strconv.Itoa(entry.Frames),
			strings.Join(categories, ","),
			formatStamp(entry.ModifiedAt),
		})
	}
	fmt.Fprintln(out, listing{
		Title: "Cached videos",
		Columns: []column{
			{Header: "Key"},
			{Header: "Size", Right: true},
			{Header: "Complete"},
			{Header: "Frames", Right: true},
			{Header: "Artifacts", MaxWidth: 24},
			{Header: "Modified"},
		},
		Rows:   rows,
		Footer: []string{fmt.Sprintf("%d entries", len(entries)), humanBytes(total), "", strconv.Itoa(frames)},
	}.render())
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear [url]",
		Short: "Remove cached artifacts for one video URL, or everything with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("specify a video URL or pass --all")
			}
			if all && len(args) > 0 {
				return errors.New("--all cannot be combined with a URL")
			}
			store, err := ctx.cacheStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if all {
				if err := store.ClearAll(); err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared cache at %s\n", store.Root())
				return nil
			}
			url := strings.TrimSpace(args[0])
			if url == "" {
				return errors.New("video URL is required")
			}
			key := cache.KeyFor(url)
			if err := store.Clear(key); err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleared cache entry %s\n", key)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Remove every cached artifact")
	return cmd
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove cache entries not touched within --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			store, err := ctx.cacheStore()
			if err != nil {
				return err
			}
			result, pruneErr := store.Prune(cmd.Context(), olderThan)
			if jsonOut {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
				return pruneErr
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d entries (%s)\n", len(result.Removed), humanBytes(result.ReclaimedBytes))
			if len(result.Skipped) > 0 {
				fmt.Fprintf(out, "Skipped %d entries in use\n", len(result.Skipped))
			}
			for _, failure := range result.Errors {
				fmt.Fprintf(out, "  %s: %s\n", failure.Key, failure.Error)
			}
			return pruneErr
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Minimum age of entries to remove")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	return cmd
}
