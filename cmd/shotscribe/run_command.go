package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"shotscribe/internal/workflow"
)

const (
	commandBreakdown = "breakdown"
	commandRewrite   = "rewrite"
	// commandAnalyze is accepted as an alias for breakdown.
	commandAnalyze = "analyze"
)

type runFlags struct {
	force       bool
	template    string
	instruction string
	script      string
	json        bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <url> [breakdown|rewrite]",
		Short: "Analyze a video URL and write a breakdown (or rewrite) script",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
				return errors.New("video URL is required (usage: shotscribe run <url> [breakdown|rewrite])")
			}
			if len(args) > 2 {
				return fmt.Errorf("expected at most 2 arguments, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			command := commandBreakdown
			if len(args) == 2 {
				command = strings.ToLower(strings.TrimSpace(args[1]))
			}
			switch command {
			case commandBreakdown, commandAnalyze:
				return ctx.withWorkflow(cmd, func(runCtx context.Context, wf *workflow.Workflow) error {
					result, err := wf.Breakdown(runCtx, url, workflow.BreakdownOptions{
						ForceRefresh: flags.force,
						Template:     flags.template,
					})
					if err != nil {
						return err
					}
					if flags.json {
						return writeJSON(cmd, breakdownSummary(result))
					}
					printBreakdown(cmd.OutOrStdout(), result, shouldColorize(cmd.OutOrStdout()))
					return nil
				})
			case commandRewrite:
				return runRewrite(cmd, ctx, flags, url)
			default:
				return fmt.Errorf("unknown command %q (expected %s or %s)", command, commandBreakdown, commandRewrite)
			}
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Ignore cached media and analysis for this URL")
	cmd.Flags().StringVarP(&flags.template, "template", "t", "", "Template name (defaults to script.breakdown_template or script.rewrite_template)")
	cmd.Flags().StringVarP(&flags.instruction, "instruction", "i", "", "Rewrite instruction (rewrite only)")
	cmd.Flags().StringVarP(&flags.script, "script", "s", "", "Existing script to rewrite instead of breaking the URL down first")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the result as JSON")
	return cmd
}

func newRewriteCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "rewrite --script <file> --instruction <text>",
		Short: "Rewrite an existing script file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(flags.script) == "" {
				return errors.New("--script is required")
			}
			return runRewrite(cmd, ctx, flags, "")
		},
	}
	cmd.Flags().StringVarP(&flags.script, "script", "s", "", "Script file to rewrite")
	cmd.Flags().StringVarP(&flags.instruction, "instruction", "i", "", "Rewrite instruction")
	cmd.Flags().StringVarP(&flags.template, "template", "t", "", "Rewrite template name")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the result as JSON")
	return cmd
}

func runRewrite(cmd *cobra.Command, ctx *commandContext, flags runFlags, url string) error {
	if strings.TrimSpace(flags.instruction) == "" {
		return errors.New("--instruction is required for rewrite")
	}
	return ctx.withWorkflow(cmd, func(runCtx context.Context, wf *workflow.Workflow) error {
		result, err := wf.Rewrite(runCtx, workflow.RewriteOptions{
			URL:          url,
			ScriptPath:   flags.script,
			Instruction:  flags.instruction,
			Template:     flags.template,
			ForceRefresh: flags.force,
		})
		if err != nil {
			return err
		}
		if flags.json {
			return writeJSON(cmd, rewriteSummary(result))
		}
		printRewrite(cmd.OutOrStdout(), result, shouldColorize(cmd.OutOrStdout()))
		return nil
	})
}

type breakdownJSON struct {
	RunID        string   `json:"run_id"`
	URL          string   `json:"url"`
	CacheKey     string   `json:"cache_key"`
	Title        string   `json:"title,omitempty"`
	Duration     float64  `json:"duration"`
	Frames       int      `json:"frames"`
	Transcribed  bool     `json:"transcribed"`
	Warnings     []string `json:"warnings"`
	MarkdownPath string   `json:"markdown_path"`
	HTMLPath     string   `json:"html_path"`
	MediaCached  bool     `json:"media_cached"`
}

func breakdownSummary(result *workflow.BreakdownResult) breakdownJSON {
	a := result.Analysis
	warnings := a.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return breakdownJSON{
		RunID:        result.RunID,
		URL:          a.URL,
		CacheKey:     a.Key.String(),
		Title:        a.Metadata.Title,
		Duration:     a.Metadata.Duration,
		Frames:       a.Visual.FrameCount,
		Transcribed:  a.Transcription.Available(),
		Warnings:     warnings,
		MarkdownPath: result.Paths.Markdown,
		HTMLPath:     result.Paths.HTML,
		MediaCached:  a.MediaCached,
	}
}

type rewriteJSON struct {
	RunID         string         `json:"run_id"`
	OriginalTitle string         `json:"original_title"`
	MarkdownPath  string         `json:"markdown_path"`
	HTMLPath      string         `json:"html_path"`
	Breakdown     *breakdownJSON `json:"breakdown,omitempty"`
}

func rewriteSummary(result *workflow.RewriteResult) rewriteJSON {
	out := rewriteJSON{
		RunID:         result.RunID,
		OriginalTitle: result.OriginalTitle,
		MarkdownPath:  result.Paths.Markdown,
		HTMLPath:      result.Paths.HTML,
	}
	if result.Breakdown != nil {
		b := breakdownSummary(result.Breakdown)
		out.Breakdown = &b
	}
	return out
}

func printBreakdown(out io.Writer, result *workflow.BreakdownResult, colorize bool) {
	a := result.Analysis
	for _, line := range renderSectionHeader("Breakdown", colorize) {
		fmt.Fprintln(out, line)
	}
	title := a.Metadata.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintln(out, renderStatusLine("Video", statusInfo,
		fmt.Sprintf("%s, %.1fs, %s", title, a.Metadata.Duration, a.Metadata.Resolution()), colorize))
	media := "downloaded"
	if a.MediaCached {
		media = "from cache"
	}
	fmt.Fprintln(out, renderStatusLine("Media", statusOK, media, colorize))
	fmt.Fprintln(out, renderStatusLine("Keyframes", statusOK,
		fmt.Sprintf("%d analyzed every %s", a.Visual.FrameCount, a.Keyframes.Interval), colorize))
	if a.Transcription.Available() {
		fmt.Fprintln(out, renderStatusLine("Transcript", statusOK, "available", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Transcript", statusWarn, "unavailable: "+a.Transcription.Reason(), colorize))
	}
	for _, warning := range a.Warnings {
		fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, warning, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Markdown", statusOK, result.Paths.Markdown, colorize))
	fmt.Fprintln(out, renderStatusLine("HTML", statusOK, result.Paths.HTML, colorize))
}

func printRewrite(out io.Writer, result *workflow.RewriteResult, colorize bool) {
	if result.Breakdown != nil {
		printBreakdown(out, result.Breakdown, colorize)
	}
	for _, line := range renderSectionHeader("Rewrite", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Original", statusInfo, result.OriginalTitle, colorize))
	fmt.Fprintln(out, renderStatusLine("Markdown", statusOK, result.Paths.Markdown, colorize))
	fmt.Fprintln(out, renderStatusLine("HTML", statusOK, result.Paths.HTML, colorize))
}
