package compose

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"shotscribe/internal/config"
	"shotscribe/internal/logging"
	"shotscribe/internal/media/ffprobe"
	"shotscribe/internal/pipeline"
	"shotscribe/internal/services"
	"shotscribe/internal/services/llm"
)

// UnavailableTranscript stands in for the transcript when none exists.
const UnavailableTranscript = "[Speech transcription unavailable; analysis based on visuals only]"

// TextCompleter is the text model used for composition.
type TextCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (string, error)
}

// RewriteRequest describes one rewrite job.
type RewriteRequest struct {
	Script      string
	Instruction string
	Template    string
	// Metadata is optional context about the original video.
	Metadata *ffprobe.VideoMetadata
}

// Composer renders templates and asks the text model for scripts.
type Composer struct {
	library            *Library
	completer          TextCompleter
	fields             []config.Field
	temperature        float64
	rewriteTemperature float64
	maxTokens          int
	defaultBreakdown   string
	defaultRewrite     string
	logger             *slog.Logger
}

// NewComposer builds a composer from configuration.
func NewComposer(cfg *config.Config, library *Library, completer TextCompleter, logger *slog.Logger) *Composer {
	fields := cfg.Script.Fields
	if len(fields) == 0 {
		fields = config.DefaultFields()
	}
	return &Composer{
		library:            library,
		completer:          completer,
		fields:             fields,
		temperature:        cfg.Script.Temperature,
		rewriteTemperature: cfg.Script.RewriteTemperature,
		maxTokens:          cfg.Script.MaxTokens,
		defaultBreakdown:   cfg.Script.BreakdownTemplate,
		defaultRewrite:     cfg.Script.RewriteTemplate,
		logger:             logging.NewComponentLogger(logger, "compose"),
	}
}

// BreakdownPrompts renders the breakdown template for an analysis.
func (c *Composer) BreakdownPrompts(analysis *pipeline.AnalysisContext, template string) (string, string, error) {
	text, err := c.library.Load(CategoryBreakdown, c.pick(template, c.defaultBreakdown))
	if err != nil {
		return "", "", err
	}
	transcript := UnavailableTranscript
	if analysis.Transcription.Available() {
		transcript = analysis.Transcription.Text()
	}
	system, user := SplitPrompt(Render(text, map[string]string{
		"video_metadata":    metadataJSON(&analysis.Metadata),
		"visual_context":    analysis.Visual.Text,
		"asr_result":        transcript,
		"fields_definition": RenderFields(c.fields),
	}))
	return system, user, nil
}

// Breakdown produces the shot script for an analysis.
func (c *Composer) Breakdown(ctx context.Context, analysis *pipeline.AnalysisContext, template string) (string, error) {
	ctx = services.WithStage(ctx, "compose")
	logger := logging.WithContext(ctx, c.logger)

	system, user, err := c.BreakdownPrompts(analysis, template)
	if err != nil {
		return "", err
	}
	logger.Info("composing breakdown", logging.String("template", c.pick(template, c.defaultBreakdown)))
	script, err := c.completer.Complete(ctx, system, user, llm.Options{Temperature: c.temperature, MaxTokens: c.maxTokens})
	if err != nil {
		return "", services.Wrap(services.ErrRemoteService, "compose", "breakdown", "", err)
	}
	return script, nil
}

// RewritePrompts renders the rewrite template for a request.
func (c *Composer) RewritePrompts(req RewriteRequest) (string, string, error) {
	if strings.TrimSpace(req.Script) == "" {
		return "", "", services.Wrap(services.ErrValidation, "compose", "rewrite", "original script is empty", nil)
	}
	if strings.TrimSpace(req.Instruction) == "" {
		return "", "", services.Wrap(services.ErrValidation, "compose", "rewrite", "rewrite instruction is required", nil)
	}
	text, err := c.library.Load(CategoryRewrite, c.pick(req.Template, c.defaultRewrite))
	if err != nil {
		return "", "", err
	}
	system, user := SplitPrompt(Render(text, map[string]string{
		"original_script":   req.Script,
		"user_instruction":  req.Instruction,
		"video_metadata":    metadataJSON(req.Metadata),
		"fields_definition": RenderFields(c.fields),
	}))
	return system, user, nil
}

// Rewrite adapts an existing script according to the instruction.
func (c *Composer) Rewrite(ctx context.Context, req RewriteRequest) (string, error) {
	ctx = services.WithStage(ctx, "compose")
	logger := logging.WithContext(ctx, c.logger)

	system, user, err := c.RewritePrompts(req)
	if err != nil {
		return "", err
	}
	logger.Info("composing rewrite", logging.String("template", c.pick(req.Template, c.defaultRewrite)))
	script, err := c.completer.Complete(ctx, system, user, llm.Options{Temperature: c.rewriteTemperature, MaxTokens: c.maxTokens})
	if err != nil {
		return "", services.Wrap(services.ErrRemoteService, "compose", "rewrite", "", err)
	}
	return script, nil
}

func (c *Composer) pick(name, fallback string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return fallback
	}
	return "default"
}

func metadataJSON(meta *ffprobe.VideoMetadata) string {
	if meta == nil {
		return "{}"
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
