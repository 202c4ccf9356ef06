package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"shotscribe/internal/config"
)

// ConfigOption adjusts the config built by NewConfig.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig returns defaults rooted in a per-test temp directory with a dummy
// API key, logging to stderr only.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.API.APIKey = "test"
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = ""
	cfgVal.Cache.LockTimeoutSeconds = 5

	b := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(b)
	}
	return b.cfg
}

// WithAPIBaseURL points the chat and transcription clients at baseURL
// (typically an httptest server).
func WithAPIBaseURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = baseURL
	}
}

// WithFixedInterval switches sampling to a fixed interval in seconds.
func WithFixedInterval(seconds float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sampling.UseFixedInterval = true
		b.cfg.Sampling.DefaultInterval = seconds
	}
}

// WithStubbedBinaries puts no-op executables named names (default yt-dlp,
// ffmpeg and ffprobe) first on PATH for the rest of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg", "ffprobe"}
		}
		dir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteText(b.t, filepath.Join(dir, name), "#!/bin/sh\nexit 0\n")
			if err := os.Chmod(filepath.Join(dir, name), 0o755); err != nil {
				b.t.Fatalf("chmod stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
