package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"shotscribe/internal/cache"
	"shotscribe/internal/config"
	"shotscribe/internal/fileutil"
	"shotscribe/internal/logging"
	"shotscribe/internal/media/ffprobe"
	"shotscribe/internal/services"
)

const stageName = "acquire"

// probeVideo is swapped by tests.
var probeVideo = ffprobe.Probe

// Options tune a single acquisition.
type Options struct {
	ForceRefresh bool
}

// Result describes the media available for a URL after acquisition.
type Result struct {
	Key       cache.Key
	VideoPath string
	// AudioPath is empty when the audio track could not be extracted.
	AudioPath string
	Metadata  ffprobe.VideoMetadata
	// Cached reports that no download happened.
	Cached bool
}

// Record is the metadata artifact persisted for each key.
type Record struct {
	ffprobe.VideoMetadata
	URL        string    `json:"url"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

// Stage downloads a video and its audio track into the content cache.
type Stage struct {
	store         *cache.Store
	binary        string
	format        string
	ffprobeBinary string
	platforms     []string
	cookiesFor    func(host string) string
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// New builds an acquisition stage backed by store.
func New(cfg *config.Config, store *cache.Store, logger *slog.Logger) *Stage {
	return &Stage{
		store:         store,
		binary:        cfg.DownloaderBinary(),
		format:        cfg.Downloader.Format,
		ffprobeBinary: cfg.FFprobeBinary(),
		platforms:     append([]string(nil), cfg.Video.SupportedPlatforms...),
		cookiesFor:    cfg.CookiesFor,
		logger:        logging.NewComponentLogger(logger, "acquire"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Stage) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Acquire returns the video, audio and metadata for rawURL, downloading them
// unless a complete cache entry exists and ForceRefresh is unset. Metadata is
// persisted before Acquire returns.
func (s *Stage) Acquire(ctx context.Context, rawURL string, opts Options) (Result, error) {
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, s.logger)

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "check url", "video URL is required", nil)
	}
	key := cache.KeyFor(rawURL)
	result := Result{
		Key:       key,
		VideoPath: s.store.Path(key, cache.CategoryVideo),
		AudioPath: s.store.Path(key, cache.CategoryAudio),
	}

	if !opts.ForceRefresh && s.store.HasComplete(key) {
		var record Record
		err := s.store.ReadJSON(key, cache.CategoryMetadata, &record)
		if err == nil {
			result.Metadata = record.VideoMetadata
			result.Cached = true
			logger.Info("using cached video",
				logging.String(logging.FieldCacheKey, string(key)),
				logging.String("video_path", result.VideoPath),
			)
			return result, nil
		}
		logging.WarnWithContext(logger, "cached metadata unreadable; downloading again", "cache_metadata_invalid",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'shotscribe cache clear <url>' if this repeats"),
			logging.String(logging.FieldImpact, "video is downloaded again"),
		)
	}

	host := hostOf(rawURL)
	if !s.supported(host) {
		logging.WarnWithContext(logger, "platform not in supported list; attempting download anyway", "platform_unrecognized",
			logging.String("host", host),
			logging.String(logging.FieldErrorHint, "add the host to video.supported_platforms if it works"),
			logging.String(logging.FieldImpact, "download may fail"),
		)
	}

	logger.Info("downloading video", logging.String("url", rawURL), logging.String("host", host))
	if err := s.run(ctx, s.binary, s.videoArgs(rawURL, host, result.VideoPath)...); err != nil {
		return Result{}, services.Wrap(services.ErrAcquisition, stageName, "download video", "yt-dlp failed", err)
	}
	if !fileutil.NonEmptyFile(result.VideoPath) {
		return Result{}, services.Wrap(services.ErrAcquisition, stageName, "download video",
			fmt.Sprintf("downloader finished but %s is missing", filepath.Base(result.VideoPath)), nil)
	}

	logger.Info("extracting audio track")
	if err := s.downloadAudio(ctx, rawURL, host, key, result.AudioPath); err != nil {
		logging.WarnWithContext(logger, "audio extraction failed", "audio_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that ffmpeg is installed for yt-dlp post-processing"),
			logging.String(logging.FieldImpact, "transcription will be skipped"),
		)
		result.AudioPath = ""
	}

	meta, err := probeVideo(ctx, s.ffprobeBinary, result.VideoPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrProbe, "probe", "inspect video", filepath.Base(result.VideoPath), err)
	}
	result.Metadata = meta
	record := Record{VideoMetadata: meta, URL: rawURL, AcquiredAt: time.Now().UTC()}
	if err := s.store.WriteJSON(key, cache.CategoryMetadata, record); err != nil {
		return Result{}, services.Wrap(services.ErrAcquisition, stageName, "persist metadata", "", err)
	}

	logger.Info("video acquired",
		logging.Float64("duration_seconds", meta.Duration),
		logging.String("resolution", meta.Resolution()),
		logging.Int64("size_bytes", meta.Size),
		logging.Bool("audio", result.AudioPath != ""),
	)
	return result, nil
}

func (s *Stage) videoArgs(rawURL, host, dest string) []string {
	args := []string{
		"-f", s.format,
		"-o", dest,
		"--no-playlist",
		"--force-overwrites",
		"--embed-metadata",
	}
	args = append(args, s.cookieArgs(host)...)
	return append(args, rawURL)
}

func (s *Stage) audioArgs(rawURL, host, outputTemplate string) []string {
	args := []string{
		"-x",
		"--audio-format", "mp3",
		"-o", outputTemplate,
		"--no-playlist",
		"--force-overwrites",
	}
	args = append(args, s.cookieArgs(host)...)
	return append(args, rawURL)
}

func (s *Stage) cookieArgs(host string) []string {
	if s.cookiesFor == nil {
		return nil
	}
	if file := s.cookiesFor(host); file != "" {
		return []string{"--cookies", file}
	}
	return nil
}

// downloadAudio extracts the audio track to dest. yt-dlp decides the final
// file name after post-processing, so a stray <key>*.mp3 is renamed into place.
func (s *Stage) downloadAudio(ctx context.Context, rawURL, host string, key cache.Key, dest string) error {
	template := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".%(ext)s"
	if err := s.run(ctx, s.binary, s.audioArgs(rawURL, host, template)...); err != nil {
		return err
	}
	if fileutil.NonEmptyFile(dest) {
		return nil
	}
	candidate, err := findAudio(filepath.Dir(dest), string(key), dest)
	if err != nil {
		return err
	}
	if err := fileutil.MoveFile(candidate, dest); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(candidate), err)
	}
	return nil
}

func findAudio(dir, prefix, dest string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list audio directory: %w", err)
	}
	var matches []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(strings.ToLower(name), ".mp3") {
			continue
		}
		path := filepath.Join(dir, name)
		if path == dest {
			continue
		}
		matches = append(matches, path)
	}
	if len(matches) == 0 {
		return "", errors.New("audio file not produced")
	}
	sort.Strings(matches)
	return matches[0], nil
}

func (s *Stage) supported(host string) bool {
	if host == "" {
		return false
	}
	for _, platform := range s.platforms {
		if host == platform || strings.HasSuffix(host, "."+platform) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func (s *Stage) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, lastLines(string(output), 5))
	}
	return nil
}

// lastLines keeps the tail of noisy downloader output for error messages.
func lastLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
