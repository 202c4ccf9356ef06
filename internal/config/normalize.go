package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeGemini()
	c.normalizeVideo()
	c.normalizeSampling()
	if err := c.normalizeDownloader(); err != nil {
		return err
	}
	c.normalizeScript()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SHOTSCRIBE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeout
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.TemplatesDir, err = expandPath(strings.TrimSpace(c.Paths.TemplatesDir)); err != nil {
		return fmt.Errorf("paths.templates_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.APIKey = strings.TrimSpace(c.API.APIKey)
	if c.API.APIKey == "" {
		for _, name := range []string{"SHOTSCRIBE_API_KEY", "DASHSCOPE_API_KEY", "QWEN_API_KEY"} {
			if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
				c.API.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(c.API.Models.Vision) == "" {
		c.API.Models.Vision = defaultVisionModel
	}
	if strings.TrimSpace(c.API.Models.LLM) == "" {
		c.API.Models.LLM = defaultLLMModel
	}
	if strings.TrimSpace(c.API.Models.Transcription) == "" {
		c.API.Models.Transcription = defaultTranscriptionModel
	}
	c.API.VisionProvider = strings.ToLower(strings.TrimSpace(c.API.VisionProvider))
	if c.API.VisionProvider == "" {
		c.API.VisionProvider = defaultVisionProvider
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
			if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
				c.Gemini.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
}

func (c *Config) normalizeVideo() {
	platforms := make([]string, 0, len(c.Video.SupportedPlatforms))
	for _, p := range c.Video.SupportedPlatforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			platforms = append(platforms, p)
		}
	}
	c.Video.SupportedPlatforms = platforms
}

func (c *Config) normalizeSampling() {
	if c.Sampling.DefaultInterval <= 0 {
		c.Sampling.DefaultInterval = defaultSamplingInterval
	}
	if c.Sampling.TargetFrames <= 0 {
		c.Sampling.TargetFrames = defaultTargetFrames
	}
	if c.Sampling.MaxFrames <= 0 {
		c.Sampling.MaxFrames = defaultMaxFrames
	}
}

func (c *Config) normalizeDownloader() error {
	c.Downloader.Format = strings.TrimSpace(c.Downloader.Format)
	if c.Downloader.Format == "" {
		c.Downloader.Format = defaultDownloaderFormat
	}
	if len(c.Downloader.Cookies) == 0 {
		return nil
	}
	cookies := make(map[string]string, len(c.Downloader.Cookies))
	for host, file := range c.Downloader.Cookies {
		expanded, err := expandPath(strings.TrimSpace(file))
		if err != nil {
			return fmt.Errorf("downloader.cookies.%s: %w", host, err)
		}
		cookies[strings.ToLower(strings.TrimSpace(host))] = expanded
	}
	c.Downloader.Cookies = cookies
	return nil
}

func (c *Config) normalizeScript() {
	if strings.TrimSpace(c.Script.BreakdownTemplate) == "" {
		c.Script.BreakdownTemplate = defaultTemplateName
	}
	if strings.TrimSpace(c.Script.RewriteTemplate) == "" {
		c.Script.RewriteTemplate = defaultTemplateName
	}
	if c.Script.Temperature == 0 {
		c.Script.Temperature = defaultTemperature
	}
	if c.Script.RewriteTemperature == 0 {
		c.Script.RewriteTemperature = defaultRewriteTemperature
	}
	if c.Script.MaxTokens <= 0 {
		c.Script.MaxTokens = defaultMaxTokens
	}
	if len(c.Script.Fields) == 0 {
		c.Script.Fields = DefaultFields()
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
