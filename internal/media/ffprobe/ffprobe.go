package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// showEntries limits ffprobe output to the fields VideoMetadata reads.
const showEntries = "format=duration,size,bit_rate:format_tags=title:" +
	"stream=codec_type,codec_name,width,height,r_frame_rate"

// Result is the subset of ffprobe JSON output the pipeline consumes.
type Result struct {
	Streams []Stream `json:"streams"`
	// Format is nil when ffprobe produced no container record.
	Format *Format `json:"format"`
}

// Stream is one audio or video stream.
type Stream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

// Format is the container record. ffprobe reports numbers as strings.
type Format struct {
	Duration string            `json:"duration"`
	Size     string            `json:"size"`
	BitRate  string            `json:"bit_rate"`
	Tags     map[string]string `json:"tags"`
}

// Inspect runs ffprobe on path and decodes its JSON report.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if path = strings.TrimSpace(path); path == "" {
		return Result{}, errors.New("ffprobe: empty path")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-show_entries", showEntries, "-of", "json", "--", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Result{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, msg)
		}
		return Result{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var result Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe: decode output: %w", err)
	}
	return result, nil
}

// FirstStream returns the first stream whose codec_type is kind.
func (r Result) FirstStream(kind string) (Stream, bool) {
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, kind) {
			return s, true
		}
	}
	return Stream{}, false
}

// DurationSeconds is the container duration; 0 when absent and NaN when
// ffprobe printed something unparsable such as "N/A".
func (r Result) DurationSeconds() float64 {
	if r.Format == nil {
		return 0
	}
	return number(r.Format.Duration)
}

// SizeBytes is the container size, 0 when absent or invalid.
func (r Result) SizeBytes() int64 {
	if r.Format == nil {
		return 0
	}
	return nonNegative(number(r.Format.Size))
}

// BitRate is the container bitrate in bits per second, 0 when absent or invalid.
func (r Result) BitRate() int64 {
	if r.Format == nil {
		return 0
	}
	return nonNegative(number(r.Format.BitRate))
}

func number(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func nonNegative(v float64) int64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return int64(v)
}
