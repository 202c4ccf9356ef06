package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"shotscribe/internal/acquire"
	"shotscribe/internal/cache"
	"shotscribe/internal/compose"
	"shotscribe/internal/config"
	"shotscribe/internal/history"
	"shotscribe/internal/keyframes"
	"shotscribe/internal/logging"
	"shotscribe/internal/notifications"
	"shotscribe/internal/pipeline"
	"shotscribe/internal/report"
	"shotscribe/internal/services"
	"shotscribe/internal/services/dashscope"
	"shotscribe/internal/services/gemini"
	"shotscribe/internal/services/llm"
)

// CommandRunner executes an external tool.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Option customizes how New wires components.
type Option func(*options)

type options struct {
	httpClient    *http.Client
	commandRunner CommandRunner
	skipHistory   bool
}

// WithHTTPClient routes every remote AI call through client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithCommandRunner replaces the yt-dlp and ffmpeg runner (tests).
func WithCommandRunner(runner CommandRunner) Option {
	return func(o *options) { o.commandRunner = runner }
}

// WithoutHistory disables the run history database.
func WithoutHistory() Option {
	return func(o *options) { o.skipHistory = true }
}

// Workflow owns every component needed to analyze a URL and write reports.
type Workflow struct {
	cfg      *config.Config
	store    *cache.Store
	pipeline *pipeline.Pipeline
	library  *compose.Library
	composer *compose.Composer
	reports  *report.Writer
	history  *history.Store
	notifier notifications.Service
	chat     *llm.Client
	logger   *slog.Logger
}

// New validates credentials and builds the component graph from cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Workflow, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "init", "config is nil", nil)
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "check credentials", "", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "prepare directories", "", err)
	}
	store, err := cache.New(cfg.Paths.CacheDir, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "open cache", "", err)
	}

	acquirer := acquire.New(cfg, store, logger)
	extractor := keyframes.New(cfg, store, logger)
	if o.commandRunner != nil {
		acquirer.WithCommandRunner(o.commandRunner)
		extractor.WithCommandRunner(o.commandRunner)
	}

	var llmOpts []llm.Option
	var asrOpts []dashscope.Option
	if o.httpClient != nil {
		llmOpts = append(llmOpts, llm.WithHTTPClient(o.httpClient))
		asrOpts = append(asrOpts, dashscope.WithHTTPClient(o.httpClient))
	}
	chat := llm.NewClient(llm.Config{
		APIKey:         cfg.API.APIKey,
		BaseURL:        cfg.API.BaseURL,
		VisionModel:    cfg.Model(config.ModelVision),
		TextModel:      cfg.Model(config.ModelLLM),
		TimeoutSeconds: cfg.API.TimeoutSeconds,
	}, llmOpts...)
	transcriber := dashscope.NewClient(dashscope.Config{
		APIKey:         cfg.API.APIKey,
		BaseURL:        cfg.API.BaseURL,
		Model:          cfg.Model(config.ModelTranscription),
		TimeoutSeconds: cfg.API.TimeoutSeconds,
	}, asrOpts...)

	var vision pipeline.VisionAnalyzer = chat
	if cfg.API.VisionProvider == "gemini" {
		gc, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:         cfg.Gemini.APIKey,
			Model:          cfg.Gemini.Model,
			TimeoutSeconds: cfg.API.TimeoutSeconds,
		})
		if err != nil {
			return nil, err
		}
		vision = gc
	}

	analyzer := pipeline.New(cfg, store, pipeline.Dependencies{
		Acquirer:    acquirer,
		Extractor:   extractor,
		Vision:      vision,
		Transcriber: transcriber,
	}, logger)

	library := compose.NewLibrary(cfg.Paths.TemplatesDir)
	w := &Workflow{
		cfg:      cfg,
		store:    store,
		pipeline: analyzer,
		library:  library,
		composer: compose.NewComposer(cfg, library, chat, logger),
		reports:  report.NewWriter(cfg.Paths.OutputDir),
		notifier: notifications.NewService(cfg),
		chat:     chat,
		logger:   logging.NewComponentLogger(logger, "workflow"),
	}

	if !o.skipHistory {
		runs, err := history.Open(cfg)
		if err != nil {
			logging.WarnWithContext(w.logger, "run history unavailable", "history_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete "+cfg.HistoryPath()+" if the schema changed"),
				logging.String(logging.FieldImpact, "this run is not recorded"),
			)
		} else {
			w.history = runs
		}
	}

	w.logger.Debug("workflow ready",
		logging.String("vision_provider", cfg.API.VisionProvider),
		logging.String("vision_model", vision.VisionModel()),
		logging.String("text_model", chat.TextModel()),
		logging.String("transcription_model", transcriber.Model()),
	)
	return w, nil
}

// Close releases the history database.
func (w *Workflow) Close() error {
	if w == nil || w.history == nil {
		return nil
	}
	return w.history.Close()
}

// Cache returns the content cache.
func (w *Workflow) Cache() *cache.Store { return w.store }

// Templates returns the template library.
func (w *Workflow) Templates() *compose.Library { return w.library }

// History returns the run history, or nil when it could not be opened.
func (w *Workflow) History() *history.Store { return w.history }

// HealthCheck verifies the chat endpoint accepts the configured credentials.
func (w *Workflow) HealthCheck(ctx context.Context) error {
	return w.chat.HealthCheck(ctx)
}

func (w *Workflow) startRun(ctx context.Context, run history.Run) string {
	if w.history == nil {
		return run.ID
	}
	started, err := w.history.Start(ctx, run)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, w.logger), "failed to record run start", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from history"),
		)
		return run.ID
	}
	return started.ID
}

func (w *Workflow) finishRun(ctx context.Context, id string, outcome history.Outcome) {
	if w.history == nil || id == "" {
		return
	}
	// Record the outcome even when ctx was cancelled mid-run.
	ctx = context.WithoutCancel(ctx)
	if err := w.history.Finish(ctx, id, outcome); err != nil && !errors.Is(err, services.ErrNotFound) {
		logging.WarnWithContext(logging.WithContext(ctx, w.logger), "failed to record run outcome", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history row stays in running state"),
		)
	}
}

// notify runs send and logs delivery failures; a lost notification never
// fails the run.
func (w *Workflow) notify(ctx context.Context, send func(context.Context, notifications.Service) error) {
	if !w.notifier.Enabled() || errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	if err := send(ctx, w.notifier); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, w.logger), "notification not delivered", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func describeFailure(err error) string {
	if kind := services.FailureKind(err); kind != "" {
		return fmt.Sprintf("%s failure", kind)
	}
	return "failure"
}
