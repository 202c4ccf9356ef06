package config

const (
	defaultConfigPath         = "~/.config/shotscribe/config.toml"
	defaultOutputDir          = "~/shotscribe"
	defaultStateDir           = "~/.local/share/shotscribe"
	defaultLogDir             = "~/.local/share/shotscribe/logs"
	defaultBaseURL            = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultVisionModel        = "qwen-vl-max"
	defaultLLMModel           = "qwen-max"
	defaultTranscriptionModel = "fun-asr-2025-11-07"
	defaultFlashVisionModel   = "qwen-vl-plus"
	defaultFlashLLMModel      = "qwen-plus"
	defaultVisionProvider     = "openai"
	defaultTimeoutSeconds     = 120
	defaultGeminiModel        = "gemini-2.5-flash"
	defaultMinDuration        = 5
	defaultMaxDuration        = 300
	defaultSamplingInterval   = 3
	defaultTargetFrames       = 20
	defaultMaxFrames          = 20
	defaultDownloaderBinary   = "yt-dlp"
	defaultDownloaderFormat   = "best[ext=mp4]/best"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultLockTimeoutSeconds = 600
	defaultTemplateName       = "default"
	defaultTemperature        = 0.7
	defaultRewriteTemperature = 0.8
	defaultMaxTokens          = 4000
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

var defaultPlatforms = []string{
	"douyin.com",
	"tiktok.com",
	"kuaishou.com",
	"xiaohongshu.com",
	"bilibili.com",
	"youtube.com",
	"youtu.be",
	"instagram.com",
}

// DefaultFields returns the shot table columns used when none are configured.
func DefaultFields() []Field {
	return []Field{
		{Key: "shot", Description: "Shot number, starting at 1", Required: true},
		{Key: "time_range", Description: "Start and end of the shot as MM:SS-MM:SS", Required: true},
		{Key: "visual", Description: "What the viewer sees: setting, people, action, on-screen text", MinLength: 20, MaxLength: 120, Required: true},
		{Key: "framing", Description: "Shot size and camera movement", Type: "enum", Options: []string{"close-up", "medium close-up", "medium", "full", "wide", "handheld", "push in", "pull out", "pan", "tracking"}},
		{Key: "dialogue", Description: "Spoken lines or captions during the shot"},
		{Key: "notes", Description: "Shooting and editing notes that make the shot work", MaxLength: 80},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	platforms := make([]string, len(defaultPlatforms))
	copy(platforms, defaultPlatforms)
	return Config{
		Paths: Paths{
			CacheDir:  defaultCacheDir(),
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		API: API{
			BaseURL: defaultBaseURL,
			Models: ModelSet{
				Vision:        defaultVisionModel,
				LLM:           defaultLLMModel,
				Transcription: defaultTranscriptionModel,
			},
			FlashModels: ModelSet{
				Vision: defaultFlashVisionModel,
				LLM:    defaultFlashLLMModel,
			},
			VisionProvider: defaultVisionProvider,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Gemini: Gemini{
			Model: defaultGeminiModel,
		},
		Video: Video{
			MinDuration:        defaultMinDuration,
			MaxDuration:        defaultMaxDuration,
			SupportedPlatforms: platforms,
		},
		Sampling: Sampling{
			DefaultInterval: defaultSamplingInterval,
			TargetFrames:    defaultTargetFrames,
			MaxFrames:       defaultMaxFrames,
		},
		Downloader: Downloader{
			Binary: defaultDownloaderBinary,
			Format: defaultDownloaderFormat,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Cache: Cache{
			Lock:               true,
			LockTimeoutSeconds: defaultLockTimeoutSeconds,
		},
		Script: Script{
			BreakdownTemplate:  defaultTemplateName,
			RewriteTemplate:    defaultTemplateName,
			Temperature:        defaultTemperature,
			RewriteTemperature: defaultRewriteTemperature,
			MaxTokens:          defaultMaxTokens,
			Fields:             DefaultFields(),
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
