package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"shotscribe/internal/config"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"SHOTSCRIBE_API_KEY", "DASHSCOPE_API_KEY", "QWEN_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("QWEN_API_KEY", "test-key")
	t.Setenv("XDG_CACHE_HOME", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, ".cache", "shotscribe"); cfg.Paths.CacheDir != want {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Paths.CacheDir, want)
	}
	if want := filepath.Join(tempHome, "shotscribe"); cfg.Paths.OutputDir != want {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, want)
	}
	if cfg.API.APIKey != "test-key" {
		t.Fatalf("expected API key from env, got %q", cfg.API.APIKey)
	}
	if err := cfg.ValidateCredentials(); err != nil {
		t.Fatalf("ValidateCredentials: %v", err)
	}
	if cfg.Sampling.TargetFrames != 20 || cfg.Sampling.DefaultInterval != 3 || cfg.Sampling.MaxFrames != 20 {
		t.Fatalf("unexpected sampling defaults: %+v", cfg.Sampling)
	}
	if cfg.Video.MinDuration != 5 || cfg.Video.MaxDuration != 300 {
		t.Fatalf("unexpected duration bounds: %+v", cfg.Video)
	}
	if !cfg.Cache.Lock {
		t.Fatal("expected cache locking enabled by default")
	}
	if cfg.Analysis.ReuseCachedResults {
		t.Fatal("expected AI result reuse disabled by default")
	}
	if got := cfg.HistoryPath(); got != filepath.Join(tempHome, ".local", "share", "shotscribe", "history.db") {
		t.Fatalf("unexpected history path %q", got)
	}
}

func TestLoadHonoursXDGCacheHome(t *testing.T) {
	clearKeyEnv(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if want := filepath.Join(xdg, "shotscribe"); cfg.Paths.CacheDir != want {
		t.Fatalf("cache dir = %q, want %q", cfg.Paths.CacheDir, want)
	}
}

func TestMissingCredentialsFailFast(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load should not require credentials: %v", err)
	}
	err = cfg.ValidateCredentials()
	if err == nil || !strings.Contains(err.Error(), "api.api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestLoadCustomFile(t *testing.T) {
	clearKeyEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "custom.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"cache_dir": "~/media-cache",
		},
		"api": map[string]any{
			"api_key":   "file-key",
			"base_url":  "https://example.test/compatible-mode/v1/",
			"use_flash": true,
			"flash_models": map[string]any{
				"vision": "vision-flash",
			},
		},
		"sampling": map[string]any{
			"use_fixed_interval": true,
			"default_interval":   1.5,
		},
		"downloader": map[string]any{
			"cookies": map[string]any{"Douyin.com": "~/cookies.txt"},
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected custom path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.CacheDir != filepath.Join(home, "media-cache") {
		t.Fatalf("unexpected cache dir %q", cfg.Paths.CacheDir)
	}
	if cfg.API.BaseURL != "https://example.test/compatible-mode/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.API.BaseURL)
	}
	if got := cfg.Model(config.ModelVision); got != "vision-flash" {
		t.Fatalf("expected flash vision model, got %q", got)
	}
	if got := cfg.Model(config.ModelLLM); got != "qwen-plus" {
		t.Fatalf("expected default flash llm model, got %q", got)
	}
	if got := cfg.Model(config.ModelTranscription); got != "fun-asr-2025-11-07" {
		t.Fatalf("expected transcription model without flash variant, got %q", got)
	}
	if !cfg.Sampling.UseFixedInterval || cfg.Sampling.DefaultInterval != 1.5 {
		t.Fatalf("unexpected sampling config %+v", cfg.Sampling)
	}
	if got := cfg.CookiesFor("www.douyin.com"); got != filepath.Join(home, "cookies.txt") {
		t.Fatalf("unexpected cookies path %q", got)
	}
	if got := cfg.CookiesFor("notdouyin.com"); got != "" {
		t.Fatalf("expected no cookies for lookalike host, got %q", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"provider", func(c *config.Config) { c.API.VisionProvider = "claude" }, "vision_provider"},
		{"base url", func(c *config.Config) { c.API.BaseURL = "ftp://x" }, "base_url"},
		{"durations", func(c *config.Config) { c.Video.MinDuration = 10; c.Video.MaxDuration = 5 }, "max_duration"},
		{"enum field", func(c *config.Config) {
			c.Script.Fields = []config.Field{{Key: "framing", Type: "enum"}}
		}, "enum"},
		{"duplicate field", func(c *config.Config) {
			c.Script.Fields = []config.Field{{Key: "shot"}, {Key: "shot"}}
		}, "duplicate"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestGeminiProviderNeedsKey(t *testing.T) {
	cfg := config.Default()
	cfg.API.APIKey = "k"
	cfg.API.VisionProvider = "gemini"
	if err := cfg.ValidateCredentials(); err == nil || !strings.Contains(err.Error(), "gemini") {
		t.Fatalf("expected gemini key error, got %v", err)
	}
	cfg.Gemini.APIKey = "g"
	if err := cfg.ValidateCredentials(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.API.VisionProvider != "openai" || len(cfg.Script.Fields) == 0 {
		t.Fatalf("unexpected sample config: %+v", cfg.API)
	}
}

func TestLoadFallsBackToProjectFile(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, "shotscribe.toml"), []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "shotscribe.toml" {
		t.Fatalf("expected project config, got %q exists=%v", resolved, exists)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected level from project file, got %q", cfg.Logging.Level)
	}
}
