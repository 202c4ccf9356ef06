package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir     string `toml:"cache_dir"`
	OutputDir    string `toml:"output_dir"`
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`
	TemplatesDir string `toml:"templates_dir"`
}

// ModelSet names the models used for each kind of remote call.
type ModelSet struct {
	Vision        string `toml:"vision"`
	LLM           string `toml:"llm"`
	Transcription string `toml:"transcription"`
}

// API contains connection settings for the OpenAI-compatible endpoint and the
// DashScope native transcription endpoint derived from it.
type API struct {
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url"`
	Models         ModelSet `toml:"models"`
	FlashModels    ModelSet `toml:"flash_models"`
	UseFlash       bool     `toml:"use_flash"`
	VisionProvider string   `toml:"vision_provider"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Gemini contains settings for the optional Gemini vision provider.
type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Video contains acceptance rules for source videos.
type Video struct {
	MinDuration        float64  `toml:"min_duration"`
	MaxDuration        float64  `toml:"max_duration"`
	SupportedPlatforms []string `toml:"supported_platforms"`
}

// Sampling controls how keyframes are spaced.
type Sampling struct {
	UseFixedInterval bool    `toml:"use_fixed_interval"`
	DefaultInterval  float64 `toml:"default_interval"`
	TargetFrames     int     `toml:"target_frames"`
	MaxFrames        int     `toml:"max_frames"`
}

// Downloader configures the yt-dlp invocation.
type Downloader struct {
	Binary string `toml:"binary"`
	Format string `toml:"format"`
	// Cookies maps a host suffix (e.g. "douyin.com") to a Netscape cookie file.
	Cookies map[string]string `toml:"cookies"`
}

// Tools names the ffmpeg binaries.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Cache controls content cache behaviour.
type Cache struct {
	Lock               bool `toml:"lock"`
	LockTimeoutSeconds int  `toml:"lock_timeout_seconds"`
}

// Analysis controls reuse of cached AI results.
type Analysis struct {
	ReuseCachedResults bool `toml:"reuse_cached_results"`
}

// Field describes one column of the generated shot table.
type Field struct {
	Key         string   `toml:"key"`
	Description string   `toml:"description"`
	Type        string   `toml:"type"`
	Options     []string `toml:"options"`
	MinLength   int      `toml:"min_length"`
	MaxLength   int      `toml:"max_length"`
	Required    bool     `toml:"required"`
}

// Script controls script composition.
type Script struct {
	BreakdownTemplate  string  `toml:"breakdown_template"`
	RewriteTemplate    string  `toml:"rewrite_template"`
	Temperature        float64 `toml:"temperature"`
	RewriteTemperature float64 `toml:"rewrite_temperature"`
	MaxTokens          int     `toml:"max_tokens"`
	Fields             []Field `toml:"fields"`
}

// Notifications configures ntfy delivery of run outcomes.
type Notifications struct {
	// NtfyTopic is the full topic URL, e.g. https://ntfy.sh/my-topic.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shotscribe.
//
// Configuration sections by subsystem:
//   - Paths: cache, output, state, log and template directories
//   - API: OpenAI-compatible chat endpoint, models and timeouts
//   - Gemini: optional alternate vision provider
//   - Video: duration bounds and known platforms
//   - Sampling: keyframe spacing
//   - Downloader: yt-dlp format and per-host cookies
//   - Tools: ffmpeg and ffprobe binaries
//   - Cache: per-key locking
//   - Analysis: AI result reuse
//   - Script: templates, temperatures and shot table fields
//   - Notifications: ntfy topic for run outcomes
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Gemini        Gemini        `toml:"gemini"`
	Video         Video         `toml:"video"`
	Sampling      Sampling      `toml:"sampling"`
	Downloader    Downloader    `toml:"downloader"`
	Tools         Tools         `toml:"tools"`
	Cache         Cache         `toml:"cache"`
	Analysis      Analysis      `toml:"analysis"`
	Script        Script        `toml:"script"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the config at path, or the first of the default location and
// ./shotscribe.toml that exists when path is empty. It returns the
// normalized, validated config, the resolved path and whether that file
// existed; a missing file yields the defaults.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func locate(path string) (string, bool, error) {
	var candidates []string
	if path != "" {
		candidates = []string{path}
	} else {
		candidates = []string{defaultConfigPath, "shotscribe.toml"}
	}

	first := ""
	for _, candidate := range candidates {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if first == "" {
			first = expanded
		}
		info, err := os.Stat(expanded)
		switch {
		case err == nil && !info.IsDir():
			return expanded, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist) && path != "":
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return first, false, nil
}

// EnsureDirectories creates the output, state and log directories. The cache
// directory is owned by the cache package, which creates its own layout.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if v := strings.TrimSpace(c.Tools.FFmpeg); v != "" {
		return v
	}
	return defaultFFmpegBinary
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	if v := strings.TrimSpace(c.Tools.FFprobe); v != "" {
		return v
	}
	return defaultFFprobeBinary
}

// DownloaderBinary returns the yt-dlp executable name.
func (c *Config) DownloaderBinary() string {
	if v := strings.TrimSpace(c.Downloader.Binary); v != "" {
		return v
	}
	return defaultDownloaderBinary
}

// HistoryPath returns the run history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// expandPath resolves a leading "~" and returns an absolute, cleaned path.
// The empty string stays empty.
func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}

// ExpandPath applies the same "~" and absolute-path rules as config paths.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "shotscribe")
	}
	return "~/.cache/shotscribe"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ModelKind selects one of the configured model slots.
type ModelKind int

const (
	ModelVision ModelKind = iota
	ModelLLM
	ModelTranscription
)

// Model returns the model for kind, preferring the flash variant when
// api.use_flash is set and a flash model is configured for that slot.
func (c *Config) Model(kind ModelKind) string {
	pick := func(set ModelSet) string {
		switch kind {
		case ModelVision:
			return strings.TrimSpace(set.Vision)
		case ModelLLM:
			return strings.TrimSpace(set.LLM)
		case ModelTranscription:
			return strings.TrimSpace(set.Transcription)
		}
		return ""
	}
	if c.API.UseFlash {
		if flash := pick(c.API.FlashModels); flash != "" {
			return flash
		}
	}
	return pick(c.API.Models)
}

// CookiesFor returns the cookie file configured for the URL host, if any.
func (c *Config) CookiesFor(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}
	for suffix, file := range c.Downloader.Cookies {
		suffix = strings.ToLower(strings.TrimSpace(suffix))
		if suffix == "" {
			continue
		}
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return file
		}
	}
	return ""
}
