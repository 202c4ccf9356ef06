package pipeline

import (
	"time"

	"shotscribe/internal/cache"
	"shotscribe/internal/keyframes"
	"shotscribe/internal/media/ffprobe"
)

// VisualResult is the cached vision model answer for a keyframe set.
type VisualResult struct {
	Text            string    `json:"text"`
	Model           string    `json:"model"`
	FrameCount      int       `json:"frame_count"`
	IntervalSeconds float64   `json:"interval_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	// Cached reports that the result came from the content cache.
	Cached bool `json:"-"`
}

// AnalysisContext carries everything the composition step needs.
type AnalysisContext struct {
	RunID         string
	URL           string
	Key           cache.Key
	Metadata      ffprobe.VideoMetadata
	Keyframes     keyframes.Set
	Visual        VisualResult
	Transcription TranscriptionOutcome
	Warnings      []string
	// MediaCached reports that no download happened.
	MediaCached bool
}
