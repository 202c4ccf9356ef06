package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrNoFormat reports ffprobe output without a container record.
	ErrNoFormat = errors.New("ffprobe: no format information")
	// ErrNoDuration reports a container whose duration cannot be determined.
	ErrNoDuration = errors.New("ffprobe: duration unavailable")
)

const defaultFrameRate = "30/1"

// VideoMetadata is the technical description of a downloaded video that the
// pipeline persists alongside the media. Stream fields are zero when the
// corresponding stream is absent.
type VideoMetadata struct {
	Duration  float64 `json:"duration"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	FrameRate float64 `json:"fps,omitempty"`
	HasAudio  bool    `json:"hasAudio"`
	Codec     string  `json:"codec,omitempty"`
	Size      int64   `json:"size"`
	BitRate   int64   `json:"bitrate"`
	Title     string  `json:"title,omitempty"`
}

// Resolution renders WIDTHxHEIGHT, or "unknown" without a video stream.
func (m VideoMetadata) Resolution() string {
	if m.Width == 0 || m.Height == 0 {
		return "unknown"
	}
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// VideoMetadata converts the probe result into the pipeline's metadata
// record. It fails when the container record is missing or its duration is
// not a positive number.
func (r Result) VideoMetadata() (VideoMetadata, error) {
	if r.Format == nil {
		return VideoMetadata{}, ErrNoFormat
	}
	duration := r.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		return VideoMetadata{}, fmt.Errorf("%w: %q", ErrNoDuration, r.Format.Duration)
	}
	meta := VideoMetadata{
		Duration: duration,
		Size:     r.SizeBytes(),
		BitRate:  r.BitRate(),
		Title:    strings.TrimSpace(r.Format.Tags["title"]),
	}
	if video, ok := r.FirstStream("video"); ok {
		meta.Width = video.Width
		meta.Height = video.Height
		meta.Codec = video.CodecName
		rate := video.RFrameRate
		if strings.TrimSpace(rate) == "" || rate == "0/0" {
			rate = defaultFrameRate
		}
		if fps, err := ParseFrameRate(rate); err == nil {
			meta.FrameRate = fps
		}
	}
	_, meta.HasAudio = r.FirstStream("audio")
	return meta, nil
}

// ParseFrameRate evaluates an ffprobe rate such as "30000/1001" or "25".
func ParseFrameRate(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("empty frame rate")
	}
	num, den, found := strings.Cut(value, "/")
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", value, err)
	}
	if !found {
		return n, nil
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", value, err)
	}
	if d == 0 {
		return 0, fmt.Errorf("parse frame rate %q: zero denominator", value)
	}
	return n / d, nil
}

// Probe inspects path and returns its metadata in one step.
func Probe(ctx context.Context, binary, path string) (VideoMetadata, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return VideoMetadata{}, err
	}
	return result.VideoMetadata()
}
