package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are checked
// separately by ValidateCredentials so that cache and config commands work
// without an API key.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateSampling(); err != nil {
		return err
	}
	if err := c.validateScript(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateCredentials reports a missing API key for the configured providers.
func (c *Config) ValidateCredentials() error {
	if c.API.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("api.api_key is required. Set QWEN_API_KEY env var or edit %s (create with 'shotscribe config init')", defaultPath)
	}
	if c.API.VisionProvider == "gemini" && c.Gemini.APIKey == "" {
		return errors.New("gemini.api_key is required when api.vision_provider is \"gemini\". Set GEMINI_API_KEY env var")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	switch c.API.VisionProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("api.vision_provider must be \"openai\" or \"gemini\", got %q", c.API.VisionProvider)
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.MinDuration < 0 {
		return errors.New("video.min_duration must be >= 0")
	}
	if c.Video.MaxDuration > 0 && c.Video.MaxDuration < c.Video.MinDuration {
		return errors.New("video.max_duration must be >= video.min_duration")
	}
	return nil
}

func (c *Config) validateSampling() error {
	if c.Sampling.MaxFrames > 20 {
		return errors.New("sampling.max_frames must be <= 20 (one vision request carries at most 20 images)")
	}
	return nil
}

func (c *Config) validateScript() error {
	if c.Script.Temperature < 0 || c.Script.Temperature > 2 {
		return errors.New("script.temperature must be between 0 and 2")
	}
	if c.Script.RewriteTemperature < 0 || c.Script.RewriteTemperature > 2 {
		return errors.New("script.rewrite_temperature must be between 0 and 2")
	}
	seen := make(map[string]struct{}, len(c.Script.Fields))
	for i, field := range c.Script.Fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			return fmt.Errorf("script.fields[%d].key must be set", i)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("script.fields: duplicate key %q", key)
		}
		seen[key] = struct{}{}
		if field.Type == "enum" && len(field.Options) == 0 {
			return fmt.Errorf("script.fields.%s: enum fields need options", key)
		}
		if field.MaxLength > 0 && field.MinLength > field.MaxLength {
			return fmt.Errorf("script.fields.%s: min_length exceeds max_length", key)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
