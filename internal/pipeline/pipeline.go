package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"shotscribe/internal/acquire"
	"shotscribe/internal/cache"
	"shotscribe/internal/config"
	"shotscribe/internal/keyframes"
	"shotscribe/internal/logging"
	"shotscribe/internal/sampling"
	"shotscribe/internal/services"
	"shotscribe/internal/services/dashscope"
	"shotscribe/internal/services/llm"
)

// Acquirer downloads and probes a video.
type Acquirer interface {
	Acquire(ctx context.Context, url string, opts acquire.Options) (acquire.Result, error)
}

// FrameExtractor samples keyframes from a video.
type FrameExtractor interface {
	Extract(ctx context.Context, key cache.Key, videoPath string, interval time.Duration, opts keyframes.Options) (keyframes.Set, error)
}

// VisionAnalyzer describes keyframes with a multimodal model.
type VisionAnalyzer interface {
	AnalyzeFrames(ctx context.Context, prompt string, images []llm.Image) (string, error)
	VisionModel() string
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (dashscope.Transcript, error)
}

// Dependencies are the stage implementations a Pipeline drives.
type Dependencies struct {
	Acquirer    Acquirer
	Extractor   FrameExtractor
	Vision      VisionAnalyzer
	Transcriber Transcriber
}

// Options tune one analysis.
type Options struct {
	// ForceRefresh ignores every cached artifact for the URL.
	ForceRefresh bool
}

// Pipeline runs the analysis stages for one URL at a time.
type Pipeline struct {
	store       *cache.Store
	deps        Dependencies
	validator   DurationValidator
	planner     sampling.Planner
	maxFrames   int
	reuseAI     bool
	lock        bool
	lockTimeout time.Duration
	logger      *slog.Logger
}

// New assembles a pipeline from the explicit configuration.
func New(cfg *config.Config, store *cache.Store, deps Dependencies, logger *slog.Logger) *Pipeline {
	maxFrames := cfg.Sampling.MaxFrames
	if maxFrames <= 0 || maxFrames > llm.MaxImages {
		maxFrames = llm.MaxImages
	}
	return &Pipeline{
		store:       store,
		deps:        deps,
		validator:   DurationValidator{Min: cfg.Video.MinDuration, Max: cfg.Video.MaxDuration},
		planner:     sampling.FromConfig(cfg),
		maxFrames:   maxFrames,
		reuseAI:     cfg.Analysis.ReuseCachedResults,
		lock:        cfg.Cache.Lock,
		lockTimeout: time.Duration(cfg.Cache.LockTimeoutSeconds) * time.Second,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Analyze runs every stage for rawURL and returns the combined context.
func (p *Pipeline) Analyze(ctx context.Context, rawURL string, opts Options) (*AnalysisContext, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, services.Wrap(services.ErrValidation, "analyze", "check url", "video URL is required", nil)
	}
	key := cache.KeyFor(rawURL)
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	ctx = services.WithCacheKey(ctx, string(key))
	logger := logging.WithContext(ctx, p.logger)

	if p.lock {
		unlock, err := p.lockKey(ctx, key)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := unlock(); err != nil {
				logger.Warn("release cache lock", logging.Error(err))
			}
		}()
	}

	result := &AnalysisContext{RunID: runID, URL: rawURL, Key: key}
	started := time.Now()

	media, err := p.deps.Acquirer.Acquire(ctx, rawURL, acquire.Options{ForceRefresh: opts.ForceRefresh})
	if err != nil {
		return nil, err
	}
	result.Metadata = media.Metadata
	result.MediaCached = media.Cached

	warning, err := p.validator.Check(media.Metadata.Duration)
	if err != nil {
		return nil, err
	}
	if warning != "" {
		result.Warnings = append(result.Warnings, warning)
		logging.WarnWithContext(logger, "video longer than recommended", "duration_over_limit",
			logging.Float64("duration_seconds", media.Metadata.Duration),
			logging.Float64("max_duration_seconds", p.validator.Max),
			logging.String(logging.FieldImpact, "fewer details per shot"),
		)
	}

	interval := p.planner.Interval(media.Metadata.Duration)
	logger.Info("sampling planned",
		logging.String("planner", p.planner.Describe()),
		logging.Duration("interval", interval),
	)

	set, err := p.deps.Extractor.Extract(ctx, key, media.VideoPath, interval, keyframes.Options{ForceRefresh: opts.ForceRefresh})
	if err != nil {
		return nil, err
	}
	result.Keyframes = set

	visual, err := p.analyzeVisual(ctx, key, set, opts)
	if err != nil {
		return nil, err
	}
	result.Visual = visual
	if visual.FrameCount < set.Len() {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("only the first %d of %d keyframes were analyzed", visual.FrameCount, set.Len()))
	}

	result.Transcription = p.analyzeAudio(ctx, key, media.AudioPath, opts)
	if !result.Transcription.Available() {
		result.Warnings = append(result.Warnings, "speech transcription unavailable: "+result.Transcription.Reason())
	}

	logger.Info("analysis complete",
		logging.Int("frame_count", visual.FrameCount),
		logging.Bool("transcript", result.Transcription.Available()),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return result, nil
}

func (p *Pipeline) lockKey(ctx context.Context, key cache.Key) (cache.Unlock, error) {
	lockCtx := ctx
	if p.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, p.lockTimeout)
		defer cancel()
	}
	unlock, err := p.store.Lock(lockCtx, key)
	if err != nil {
		return nil, services.Wrap(services.ErrAcquisition, "lock", "wait for cache lock",
			"another run on the same video is still active", err)
	}
	return unlock, nil
}

func (p *Pipeline) analyzeVisual(ctx context.Context, key cache.Key, set keyframes.Set, opts Options) (VisualResult, error) {
	ctx = services.WithStage(ctx, "vision")
	logger := logging.WithContext(ctx, p.logger)

	frames := set.Limit(p.maxFrames)
	if frames.Len() < set.Len() {
		logging.WarnWithContext(logger, "keyframes truncated for vision request", "frames_truncated",
			logging.Int("frame_count", set.Len()),
			logging.Int("max_frames", p.maxFrames),
			logging.String(logging.FieldImpact, "later shots are not analyzed"),
			logging.String(logging.FieldErrorHint, "raise sampling.default_interval or lower sampling.target_frames"),
		)
	}

	if p.reuseAI && !opts.ForceRefresh {
		var cached VisualResult
		err := p.store.ReadJSON(key, cache.CategoryVisual, &cached)
		switch {
		case err == nil && cached.FrameCount == frames.Len() && sameInterval(cached.IntervalSeconds, frames.Interval):
			cached.Cached = true
			logger.Info("using cached visual analysis", logging.String("model", cached.Model))
			return cached, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			logger.Debug("cached visual analysis unreadable", logging.Error(err))
		}
	}

	images, err := loadImages(frames.Frames)
	if err != nil {
		return VisualResult{}, services.Wrap(services.ErrExtraction, "vision", "read keyframes", "", err)
	}

	model := p.deps.Vision.VisionModel()
	logger.Info("requesting visual analysis", logging.Int("frame_count", len(images)), logging.String("model", model))
	text, err := p.deps.Vision.AnalyzeFrames(ctx, VisualPrompt(frames.Frames, frames.Interval), images)
	if err != nil {
		return VisualResult{}, services.Wrap(services.ErrRemoteService, "vision", "analyze frames", model, err)
	}

	result := VisualResult{
		Text:            text,
		Model:           model,
		FrameCount:      len(images),
		IntervalSeconds: frames.Interval.Seconds(),
		CreatedAt:       time.Now().UTC(),
	}
	if err := p.store.WriteJSON(key, cache.CategoryVisual, result); err != nil {
		logging.WarnWithContext(logger, "visual analysis not cached", "cache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next run repeats the vision request"),
		)
	}
	return result, nil
}

func (p *Pipeline) analyzeAudio(ctx context.Context, key cache.Key, audioPath string, opts Options) TranscriptionOutcome {
	ctx = services.WithStage(ctx, "transcribe")
	logger := logging.WithContext(ctx, p.logger)

	if strings.TrimSpace(audioPath) == "" {
		return Unavailable("audio track was not extracted")
	}
	if p.deps.Transcriber == nil {
		return Unavailable("no transcription service configured")
	}

	if p.reuseAI && !opts.ForceRefresh {
		var cached dashscope.Transcript
		if err := p.store.ReadJSON(key, cache.CategoryTranscript, &cached); err == nil {
			logger.Info("using cached transcript")
			return Transcribed(cached.Text, cached.AudioFile)
		}
	}

	logger.Info("transcribing audio", logging.String("audio_path", audioPath))
	transcript, err := p.deps.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		logging.WarnWithContext(logger, "speech transcription failed; continuing with visuals only", "transcription_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api.models.transcription and the audio length"),
			logging.String(logging.FieldImpact, "dialogue column is inferred from visuals"),
		)
		return Unavailable(err.Error())
	}
	if err := p.store.WriteJSON(key, cache.CategoryTranscript, transcript); err != nil {
		logging.WarnWithContext(logger, "transcript not cached", "cache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next run repeats the transcription request"),
		)
	}
	return Transcribed(transcript.Text, transcript.AudioFile)
}

func loadImages(frames []keyframes.Keyframe) ([]llm.Image, error) {
	images := make([]llm.Image, 0, len(frames))
	for _, frame := range frames {
		data, err := os.ReadFile(frame.Path)
		if err != nil {
			return nil, err
		}
		images = append(images, llm.Image{MIMEType: imageMIME(data), Data: data})
	}
	return images, nil
}

func imageMIME(data []byte) string {
	if filetype.IsImage(data) {
		if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
			return kind.MIME.Value
		}
	}
	return "image/jpeg"
}

func sameInterval(seconds float64, interval time.Duration) bool {
	return math.Abs(seconds-interval.Seconds()) < 0.001
}
