package keyframes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"shotscribe/internal/cache"
	"shotscribe/internal/config"
	"shotscribe/internal/fileutil"
	"shotscribe/internal/logging"
	"shotscribe/internal/sampling"
	"shotscribe/internal/services"
)

const (
	stageName    = "extract"
	manifestName = "frames.json"
	framePattern = "frame_%04d.jpg"
)

// Keyframe is one sampled still.
type Keyframe struct {
	Index     int           `json:"index"`
	Timestamp time.Duration `json:"timestamp"`
	Path      string        `json:"path"`
}

// Clock renders the frame timestamp as MM:SS.
func (k Keyframe) Clock() string {
	return sampling.FormatClock(k.Timestamp)
}

// Set is an ordered, index-stamped keyframe sequence.
type Set struct {
	Interval time.Duration `json:"interval"`
	Frames   []Keyframe    `json:"frames"`
	// Cached reports that ffmpeg was not invoked.
	Cached bool `json:"-"`
}

// Len returns the number of frames.
func (s Set) Len() int { return len(s.Frames) }

// Limit returns a copy of the set holding at most n frames, keeping the
// earliest ones.
func (s Set) Limit(n int) Set {
	if n <= 0 || len(s.Frames) <= n {
		return s
	}
	out := s
	out.Frames = append([]Keyframe(nil), s.Frames[:n]...)
	return out
}

// Paths lists the frame file paths in order.
func (s Set) Paths() []string {
	paths := make([]string, len(s.Frames))
	for i, frame := range s.Frames {
		paths[i] = frame.Path
	}
	return paths
}

// Options tune a single extraction.
type Options struct {
	ForceRefresh bool
}

// Extractor runs ffmpeg against cached videos.
type Extractor struct {
	store         *cache.Store
	binary        string
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// New builds an extractor writing into store.
func New(cfg *config.Config, store *cache.Store, logger *slog.Logger) *Extractor {
	return &Extractor{
		store:  store,
		binary: cfg.FFmpegBinary(),
		logger: logging.NewComponentLogger(logger, "keyframes"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Extractor) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	e.commandRunner = runner
}

// Extract samples one frame every interval from videoPath. A non-empty cached
// directory is reused unless ForceRefresh is set.
func (e *Extractor) Extract(ctx context.Context, key cache.Key, videoPath string, interval time.Duration, opts Options) (Set, error) {
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, e.logger)
	dir := e.store.Path(key, cache.CategoryKeyframes)

	if interval <= 0 {
		return Set{}, services.Wrap(services.ErrExtraction, stageName, "plan", fmt.Sprintf("invalid interval %s", interval), nil)
	}

	if !opts.ForceRefresh && e.store.Exists(key, cache.CategoryKeyframes) {
		set, err := loadSet(dir, interval)
		if err == nil && set.Len() > 0 {
			set.Cached = true
			logger.Info("using cached keyframes",
				logging.Int("frame_count", set.Len()),
				logging.Duration("interval", set.Interval),
			)
			return set, nil
		}
		logging.WarnWithContext(logger, "cached keyframes unusable; extracting again", "keyframes_cache_invalid",
			logging.String("keyframes_dir", dir),
			logging.String(logging.FieldImpact, "frames are re-extracted"),
		)
	}

	if err := os.RemoveAll(dir); err != nil {
		return Set{}, services.Wrap(services.ErrExtraction, stageName, "reset directory", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Set{}, services.Wrap(services.ErrExtraction, stageName, "create directory", dir, err)
	}

	logger.Info("extracting keyframes",
		logging.String("video_path", videoPath),
		logging.Duration("interval", interval),
	)
	if err := e.run(ctx, e.binary, ffmpegArgs(videoPath, dir, interval)...); err != nil {
		return Set{}, services.Wrap(services.ErrExtraction, stageName, "run ffmpeg", "frame extraction failed", err)
	}

	names, err := listFrames(dir)
	if err != nil {
		return Set{}, services.Wrap(services.ErrExtraction, stageName, "list frames", dir, err)
	}
	if len(names) == 0 {
		return Set{}, services.Wrap(services.ErrExtraction, stageName, "list frames", "ffmpeg produced no frames", nil)
	}
	set := stamp(dir, names, interval)

	m := manifest{IntervalSeconds: interval.Seconds(), Frames: names, CreatedAt: time.Now().UTC()}
	if err := fileutil.WriteJSONAtomic(filepath.Join(dir, manifestName), m); err != nil {
		return Set{}, services.Wrap(services.ErrExtraction, stageName, "write manifest", "", err)
	}

	logger.Info("keyframes extracted", logging.Int("frame_count", set.Len()))
	return set, nil
}

func ffmpegArgs(videoPath, dir string, interval time.Duration) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", "fps=1/" + strconv.FormatFloat(interval.Seconds(), 'f', -1, 64),
		"-q:v", "2",
		filepath.Join(dir, framePattern),
	}
}

// loadSet rebuilds a set from a cached directory. The manifest interval wins
// over the requested one so timestamps match the frames on disk.
func loadSet(dir string, fallback time.Duration) (Set, error) {
	names, err := listFrames(dir)
	if err != nil {
		return Set{}, err
	}
	interval := fallback
	var m manifest
	if err := readManifest(filepath.Join(dir, manifestName), &m); err == nil && m.IntervalSeconds > 0 {
		interval = time.Duration(m.IntervalSeconds * float64(time.Second))
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Set{}, err
	}
	return stamp(dir, names, interval), nil
}

func stamp(dir string, names []string, interval time.Duration) Set {
	set := Set{Interval: interval, Frames: make([]Keyframe, len(names))}
	for i, name := range names {
		set.Frames[i] = Keyframe{
			Index:     i,
			Timestamp: sampling.Timestamp(i, interval),
			Path:      filepath.Join(dir, name),
		}
	}
	return set
}

func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".jpg") {
			names = append(names, entry.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		ni, okI := frameNumber(names[i])
		nj, okJ := frameNumber(names[j])
		switch {
		case okI && okJ && ni != nj:
			return ni < nj
		case okI != okJ:
			return okI
		default:
			return names[i] < names[j]
		}
	})
	return names, nil
}

// frameNumber parses the sequence number ffmpeg wrote into name. The %04d
// pattern only pads, so frame_10000.jpg must sort after frame_9999.jpg.
func frameNumber(name string) (int, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	digits := base[strings.LastIndexByte(base, '_')+1:]
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (e *Extractor) run(ctx context.Context, name string, args ...string) error {
	if e.commandRunner != nil {
		return e.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
