package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"shotscribe/internal/acquire"
	"shotscribe/internal/cache"
	"shotscribe/internal/compose"
	"shotscribe/internal/history"
	"shotscribe/internal/logging"
	"shotscribe/internal/media/ffprobe"
	"shotscribe/internal/notifications"
	"shotscribe/internal/pipeline"
	"shotscribe/internal/report"
	"shotscribe/internal/services"
)

// BreakdownOptions tune a breakdown run.
type BreakdownOptions struct {
	ForceRefresh bool
	// Template names a breakdown template; empty uses the configured default.
	Template string
}

// BreakdownResult is what a breakdown run produced.
type BreakdownResult struct {
	RunID    string
	Analysis *pipeline.AnalysisContext
	Script   string
	Paths    report.Paths
}

// Breakdown analyzes url and writes the shot script reports.
func (w *Workflow) Breakdown(ctx context.Context, url string, opts BreakdownOptions) (*BreakdownResult, error) {
	url = strings.TrimSpace(url)
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, w.logger)

	w.startRun(ctx, history.Run{
		ID:       runID,
		Command:  history.CommandBreakdown,
		URL:      url,
		CacheKey: keyOf(url),
		Template: opts.Template,
	})

	result, err := w.breakdown(ctx, url, opts)
	outcome := history.Outcome{Err: err}
	if result != nil {
		result.RunID = runID
		outcome.Warnings = len(result.Analysis.Warnings)
		outcome.MarkdownPath = result.Paths.Markdown
		outcome.HTMLPath = result.Paths.HTML
	}
	w.finishRun(ctx, runID, outcome)
	if err != nil {
		logger.Error("breakdown failed",
			logging.String("failure", describeFailure(err)),
			logging.Error(err),
		)
		w.notify(ctx, func(ctx context.Context, n notifications.Service) error {
			return n.NotifyError(ctx, err, url)
		})
		return nil, err
	}
	w.notify(ctx, func(ctx context.Context, n notifications.Service) error {
		return n.NotifyBreakdownCompleted(ctx, result.Analysis.Metadata.Title, result.Paths.Markdown, len(result.Analysis.Warnings))
	})
	return result, nil
}

func (w *Workflow) breakdown(ctx context.Context, url string, opts BreakdownOptions) (*BreakdownResult, error) {
	logger := logging.WithContext(ctx, w.logger)
	started := time.Now()

	analysis, err := w.pipeline.Analyze(ctx, url, pipeline.Options{ForceRefresh: opts.ForceRefresh})
	if err != nil {
		return nil, err
	}
	script, err := w.composer.Breakdown(ctx, analysis, opts.Template)
	if err != nil {
		return nil, err
	}
	paths, err := w.reports.WriteBreakdown(report.Breakdown{
		URL:      analysis.URL,
		Metadata: analysis.Metadata,
		Script:   script,
		Warnings: analysis.Warnings,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("breakdown written",
		logging.String("markdown", paths.Markdown),
		logging.String("html", paths.HTML),
		logging.Int("warnings", len(analysis.Warnings)),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return &BreakdownResult{Analysis: analysis, Script: script, Paths: paths}, nil
}

// RewriteOptions describe a rewrite run. The source script is taken from
// Script, else read from ScriptPath, else produced by a breakdown of URL.
type RewriteOptions struct {
	URL          string
	Script       string
	ScriptPath   string
	Instruction  string
	Template     string
	ForceRefresh bool
}

// RewriteResult is what a rewrite run produced.
type RewriteResult struct {
	RunID         string
	OriginalTitle string
	Script        string
	Paths         report.Paths
	// Breakdown is set when the source script was generated in this run.
	Breakdown *BreakdownResult
}

// Rewrite adapts an existing script according to the instruction and writes
// the rewrite reports.
func (w *Workflow) Rewrite(ctx context.Context, opts RewriteOptions) (*RewriteResult, error) {
	opts.URL = strings.TrimSpace(opts.URL)
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, w.logger)

	w.startRun(ctx, history.Run{
		ID:       runID,
		Command:  history.CommandRewrite,
		URL:      opts.URL,
		CacheKey: keyOf(opts.URL),
		Template: opts.Template,
	})

	result, err := w.rewrite(ctx, opts)
	outcome := history.Outcome{Err: err}
	if result != nil {
		result.RunID = runID
		outcome.MarkdownPath = result.Paths.Markdown
		outcome.HTMLPath = result.Paths.HTML
	}
	w.finishRun(ctx, runID, outcome)
	if err != nil {
		logger.Error("rewrite failed",
			logging.String("failure", describeFailure(err)),
			logging.Error(err),
		)
		w.notify(ctx, func(ctx context.Context, n notifications.Service) error {
			return n.NotifyError(ctx, err, "rewrite")
		})
		return nil, err
	}
	w.notify(ctx, func(ctx context.Context, n notifications.Service) error {
		return n.NotifyRewriteCompleted(ctx, result.OriginalTitle, result.Paths.Markdown)
	})
	return result, nil
}

func (w *Workflow) rewrite(ctx context.Context, opts RewriteOptions) (*RewriteResult, error) {
	if strings.TrimSpace(opts.Instruction) == "" {
		return nil, services.Wrap(services.ErrValidation, "rewrite", "check instruction", "rewrite instruction is required", nil)
	}
	logger := logging.WithContext(ctx, w.logger)
	result := &RewriteResult{}

	script := opts.Script
	var meta *ffprobe.VideoMetadata
	switch {
	case strings.TrimSpace(script) != "":
		result.OriginalTitle = "inline script"
	case strings.TrimSpace(opts.ScriptPath) != "":
		data, err := os.ReadFile(opts.ScriptPath)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "rewrite", "read script", opts.ScriptPath, err)
		}
		script = string(data)
		result.OriginalTitle = strings.TrimSuffix(filepath.Base(opts.ScriptPath), filepath.Ext(opts.ScriptPath))
	case opts.URL != "":
		// Rewriting a URL means breaking it down first; the breakdown gets
		// its own reports so the source script is kept.
		breakdown, err := w.breakdown(ctx, opts.URL, BreakdownOptions{ForceRefresh: opts.ForceRefresh})
		if err != nil {
			return nil, err
		}
		result.Breakdown = breakdown
		script = breakdown.Script
		meta = &breakdown.Analysis.Metadata
		result.OriginalTitle = breakdown.Analysis.Metadata.Title
	default:
		return nil, services.Wrap(services.ErrValidation, "rewrite", "check source", "a script, script path or URL is required", nil)
	}

	if meta == nil && opts.URL != "" {
		meta = w.cachedMetadata(opts.URL)
	}
	if meta != nil && meta.Title != "" && result.OriginalTitle == "" {
		result.OriginalTitle = meta.Title
	}

	rewritten, err := w.composer.Rewrite(ctx, compose.RewriteRequest{
		Script:      script,
		Instruction: opts.Instruction,
		Template:    opts.Template,
		Metadata:    meta,
	})
	if err != nil {
		return nil, err
	}
	paths, err := w.reports.WriteRewrite(report.Rewrite{
		OriginalTitle: result.OriginalTitle,
		Instruction:   opts.Instruction,
		Script:        rewritten,
	})
	if err != nil {
		return nil, err
	}
	result.Script = rewritten
	result.Paths = paths

	logger.Info("rewrite written",
		logging.String("markdown", paths.Markdown),
		logging.String("html", paths.HTML),
	)
	return result, nil
}

// cachedMetadata returns the stored probe metadata for url, if any.
func (w *Workflow) cachedMetadata(url string) *ffprobe.VideoMetadata {
	var record acquire.Record
	if err := w.store.ReadJSON(cache.KeyFor(url), cache.CategoryMetadata, &record); err != nil {
		return nil
	}
	return &record.VideoMetadata
}

func keyOf(url string) string {
	if url == "" {
		return ""
	}
	return cache.KeyFor(url).String()
}
