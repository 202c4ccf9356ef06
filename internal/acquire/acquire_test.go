package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shotscribe/internal/cache"
	"shotscribe/internal/logging"
	"shotscribe/internal/media/ffprobe"
	"shotscribe/internal/services"
	"shotscribe/internal/testsupport"
)

const testURL = "https://www.douyin.com/video/123"

type fixture struct {
	stage    *Stage
	store    *cache.Store
	recorder *testsupport.CommandRecorder
	probes   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Downloader.Cookies = map[string]string{"douyin.com": "/tmp/douyin-cookies.txt"}
	store, err := cache.New(cfg.Paths.CacheDir, logging.NewNop())
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	f := &fixture{store: store}
	f.recorder = &testsupport.CommandRecorder{Handler: func(_ string, args []string) error {
		out := testsupport.ArgAfter(args, "-o")
		if testsupport.HasArg(args, "-x") {
			testsupport.WriteMP3(t, strings.Replace(out, "%(ext)s", "mp3", 1))
			return nil
		}
		testsupport.WriteFile(t, out, 128)
		return nil
	}}
	f.stage = New(cfg, store, logging.NewNop())
	f.stage.WithCommandRunner(f.recorder.Run)
	restore := SetProbeForTests(func(context.Context, string, string) (ffprobe.VideoMetadata, error) {
		f.probes++
		return ffprobe.VideoMetadata{Duration: 42, Width: 1080, Height: 1920, HasAudio: true, Size: 128}, nil
	})
	t.Cleanup(restore)
	return f
}

func TestAcquireDownloadsAndPersistsMetadata(t *testing.T) {
	f := newFixture(t)

	result, err := f.stage.Acquire(context.Background(), testURL, Options{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if result.Cached {
		t.Fatal("expected fresh download")
	}
	if result.Key != cache.KeyFor(testURL) {
		t.Fatalf("unexpected key %s", result.Key)
	}
	if result.Metadata.Duration != 42 {
		t.Fatalf("unexpected metadata %+v", result.Metadata)
	}
	if !f.store.HasComplete(result.Key) {
		t.Fatal("expected complete cache entry after acquisition")
	}
	var record Record
	if err := f.store.ReadJSON(result.Key, cache.CategoryMetadata, &record); err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if record.URL != testURL || record.Duration != 42 {
		t.Fatalf("unexpected record %+v", record)
	}

	calls := f.recorder.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected video and audio downloads, got %d calls", len(calls))
	}
	video := calls[0][1:]
	if testsupport.ArgAfter(video, "-f") != "best[ext=mp4]/best" || !testsupport.HasArg(video, "--no-playlist") {
		t.Fatalf("unexpected video args %v", video)
	}
	if testsupport.ArgAfter(video, "--cookies") != "/tmp/douyin-cookies.txt" {
		t.Fatalf("expected douyin cookies, got %v", video)
	}
	if video[len(video)-1] != testURL {
		t.Fatalf("expected url last, got %v", video)
	}
	audio := calls[1][1:]
	if testsupport.ArgAfter(audio, "--audio-format") != "mp3" {
		t.Fatalf("unexpected audio args %v", audio)
	}
}

func TestAcquireUsesCompleteCacheEntry(t *testing.T) {
	f := newFixture(t)
	if _, err := f.stage.Acquire(context.Background(), testURL, Options{}); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	result, err := f.stage.Acquire(context.Background(), testURL, Options{})
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if !result.Cached {
		t.Fatal("expected cache hit")
	}
	if got := f.recorder.Count("yt-dlp"); got != 2 {
		t.Fatalf("expected no additional downloader calls, got %d total", got)
	}
	if f.probes != 1 {
		t.Fatalf("expected probe to run once, got %d", f.probes)
	}
	if result.Metadata.Width != 1080 {
		t.Fatalf("expected metadata from cache, got %+v", result.Metadata)
	}
}

func TestAcquireForceRefreshDownloadsAgain(t *testing.T) {
	f := newFixture(t)
	if _, err := f.stage.Acquire(context.Background(), testURL, Options{}); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	result, err := f.stage.Acquire(context.Background(), testURL, Options{ForceRefresh: true})
	if err != nil {
		t.Fatalf("forced Acquire: %v", err)
	}
	if result.Cached {
		t.Fatal("expected forced download")
	}
	if got := f.recorder.Count("yt-dlp"); got != 4 {
		t.Fatalf("expected four downloader calls, got %d", got)
	}
}

func TestAcquireAfterClearDownloadsAgain(t *testing.T) {
	f := newFixture(t)
	first, err := f.stage.Acquire(context.Background(), testURL, Options{})
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := f.store.Clear(first.Key); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if f.store.HasComplete(first.Key) {
		t.Fatal("expected cleared entry to be incomplete")
	}

	result, err := f.stage.Acquire(context.Background(), testURL, Options{})
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if result.Cached {
		t.Fatal("expected a fresh download after clear")
	}
	if got := f.recorder.Count("yt-dlp"); got != 4 {
		t.Fatalf("expected four downloader calls, got %d", got)
	}
	if f.probes != 2 {
		t.Fatalf("expected probe to run twice, got %d", f.probes)
	}
	if !f.store.HasComplete(result.Key) {
		t.Fatal("expected complete cache entry after reacquisition")
	}
}

func TestAcquireRenamesStrayAudioFile(t *testing.T) {
	f := newFixture(t)
	f.recorder.Handler = func(_ string, args []string) error {
		out := testsupport.ArgAfter(args, "-o")
		if testsupport.HasArg(args, "-x") {
			base := strings.TrimSuffix(out, ".%(ext)s")
			testsupport.WriteMP3(t, base+".f140.mp3")
			return nil
		}
		testsupport.WriteFile(t, out, 64)
		return nil
	}

	result, err := f.stage.Acquire(context.Background(), testURL, Options{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if result.AudioPath != f.store.Path(result.Key, cache.CategoryAudio) {
		t.Fatalf("unexpected audio path %q", result.AudioPath)
	}
	if _, err := os.Stat(result.AudioPath); err != nil {
		t.Fatalf("expected audio renamed into place: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(f.store.Dir(cache.CategoryAudio), "*.f140.mp3"))
	if len(matches) != 0 {
		t.Fatalf("expected stray file moved, found %v", matches)
	}
}

func TestAcquireMissingAudioDegrades(t *testing.T) {
	f := newFixture(t)
	f.recorder.Handler = func(_ string, args []string) error {
		if testsupport.HasArg(args, "-x") {
			return errors.New("ffmpeg not found")
		}
		testsupport.WriteFile(t, testsupport.ArgAfter(args, "-o"), 64)
		return nil
	}

	result, err := f.stage.Acquire(context.Background(), testURL, Options{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if result.AudioPath != "" {
		t.Fatalf("expected empty audio path, got %q", result.AudioPath)
	}
	if f.store.HasComplete(result.Key) {
		t.Fatal("entry without audio must not count as complete")
	}
}

func TestAcquireDownloaderFailure(t *testing.T) {
	f := newFixture(t)
	f.recorder.Handler = func(string, []string) error {
		return errors.New("Unable to resolve host")
	}

	_, err := f.stage.Acquire(context.Background(), "https://nonexistent.invalid/v", Options{})
	if !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected acquisition error, got %v", err)
	}
	if !strings.Contains(err.Error(), "acquire") {
		t.Fatalf("expected stage in message, got %q", err.Error())
	}
	if f.probes != 0 {
		t.Fatal("probe must not run after a failed download")
	}
}

func TestAcquireMissingVideoAfterSuccess(t *testing.T) {
	f := newFixture(t)
	f.recorder.Handler = func(string, []string) error { return nil }

	_, err := f.stage.Acquire(context.Background(), testURL, Options{})
	if !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected acquisition error, got %v", err)
	}
}

func TestAcquireProbeFailure(t *testing.T) {
	f := newFixture(t)
	restore := SetProbeForTests(func(context.Context, string, string) (ffprobe.VideoMetadata, error) {
		return ffprobe.VideoMetadata{}, ffprobe.ErrNoFormat
	})
	defer restore()

	_, err := f.stage.Acquire(context.Background(), testURL, Options{})
	if !errors.Is(err, services.ErrProbe) || !errors.Is(err, ffprobe.ErrNoFormat) {
		t.Fatalf("expected probe error, got %v", err)
	}
	if f.store.Exists(cache.KeyFor(testURL), cache.CategoryMetadata) {
		t.Fatal("metadata must not be persisted when probing fails")
	}
}

func TestAcquireRejectsEmptyURL(t *testing.T) {
	f := newFixture(t)
	if _, err := f.stage.Acquire(context.Background(), "  ", Options{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSupportedPlatforms(t *testing.T) {
	f := newFixture(t)
	for host, want := range map[string]bool{
		"www.douyin.com": true,
		"v.douyin.com":   true,
		"youtu.be":       true,
		"example.com":    false,
		"":               false,
	} {
		if got := f.stage.supported(host); got != want {
			t.Fatalf("supported(%q) = %v, want %v", host, got, want)
		}
	}
}
