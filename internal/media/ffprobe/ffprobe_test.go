package ffprobe

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestResultNumbers(t *testing.T) {
	cases := []struct {
		name     string
		format   *Format
		duration float64
		size     int64
		bitrate  int64
	}{
		{"valid", &Format{Duration: "123.45", Size: "1000", BitRate: "32000"}, 123.45, 1000, 32000},
		{"missing format", nil, 0, 0, 0},
		{"empty fields", &Format{}, 0, 0, 0},
		{"negative size", &Format{Duration: "1", Size: "-1", BitRate: "nope"}, 1, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Result{Format: tc.format}
			if got := r.DurationSeconds(); got != tc.duration {
				t.Fatalf("duration = %v, want %v", got, tc.duration)
			}
			if got := r.SizeBytes(); got != tc.size {
				t.Fatalf("size = %d, want %d", got, tc.size)
			}
			if got := r.BitRate(); got != tc.bitrate {
				t.Fatalf("bitrate = %d, want %d", got, tc.bitrate)
			}
		})
	}
	if d := (Result{Format: &Format{Duration: "N/A"}}).DurationSeconds(); !math.IsNaN(d) {
		t.Fatalf("expected NaN for unparsable duration, got %v", d)
	}
}

func TestFirstStreamPicksEarliestMatch(t *testing.T) {
	r := Result{Streams: []Stream{
		{CodecType: "video", CodecName: "h264"},
		{CodecType: "audio", CodecName: "aac"},
		{CodecType: "audio", CodecName: "opus"},
	}}
	if s, ok := r.FirstStream("AUDIO"); !ok || s.CodecName != "aac" {
		t.Fatalf("expected first audio stream, got %+v %v", s, ok)
	}
	if _, ok := r.FirstStream("subtitle"); ok {
		t.Fatal("expected no subtitle stream")
	}
}

const sampleProbe = `{
  "streams": [
    {"codec_name": "h264", "codec_type": "video", "width": 1080, "height": 1920, "r_frame_rate": "30000/1001"},
    {"codec_name": "aac", "codec_type": "audio"}
  ],
  "format": {"duration": "42.500000", "size": "5242880", "bit_rate": "986895", "tags": {"title": "Morning routine"}}
}`

func TestVideoMetadataFromProbeJSON(t *testing.T) {
	var result Result
	if err := json.Unmarshal([]byte(sampleProbe), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	meta, err := result.VideoMetadata()
	if err != nil {
		t.Fatalf("VideoMetadata: %v", err)
	}
	if meta.Duration != 42.5 || meta.Width != 1080 || meta.Height != 1920 {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if math.Abs(meta.FrameRate-29.97) > 0.01 {
		t.Fatalf("unexpected frame rate %v", meta.FrameRate)
	}
	if !meta.HasAudio || meta.Codec != "h264" || meta.Size != 5242880 || meta.BitRate != 986895 {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if meta.Title != "Morning routine" {
		t.Fatalf("unexpected title %q", meta.Title)
	}
	if meta.Resolution() != "1080x1920" {
		t.Fatalf("unexpected resolution %q", meta.Resolution())
	}
}

func TestVideoMetadataAudioOnly(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "audio"}},
		Format:  &Format{Duration: "12"},
	}
	meta, err := result.VideoMetadata()
	if err != nil {
		t.Fatalf("VideoMetadata: %v", err)
	}
	if meta.Width != 0 || meta.Height != 0 || meta.FrameRate != 0 || meta.Codec != "" {
		t.Fatalf("expected empty video fields, got %+v", meta)
	}
	if meta.Resolution() != "unknown" {
		t.Fatalf("unexpected resolution %q", meta.Resolution())
	}
}

func TestVideoMetadataDefaultsMissingFrameRate(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video", Width: 640, Height: 360}},
		Format:  &Format{Duration: "8"},
	}
	meta, err := result.VideoMetadata()
	if err != nil {
		t.Fatalf("VideoMetadata: %v", err)
	}
	if meta.FrameRate != 30 {
		t.Fatalf("expected default 30 fps, got %v", meta.FrameRate)
	}
	if meta.HasAudio {
		t.Fatal("expected no audio")
	}
}

func TestVideoMetadataErrors(t *testing.T) {
	if _, err := (Result{}).VideoMetadata(); !errors.Is(err, ErrNoFormat) {
		t.Fatalf("expected ErrNoFormat, got %v", err)
	}
	bad := Result{Format: &Format{Duration: "N/A"}}
	if _, err := bad.VideoMetadata(); !errors.Is(err, ErrNoDuration) {
		t.Fatalf("expected ErrNoDuration, got %v", err)
	}
}

func TestParseFrameRate(t *testing.T) {
	cases := map[string]float64{"25": 25, "30/1": 30, "24000/1001": 24000.0 / 1001.0}
	for in, want := range cases {
		got, err := ParseFrameRate(in)
		if err != nil || math.Abs(got-want) > 1e-9 {
			t.Fatalf("ParseFrameRate(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", "x/1", "1/0", "1/y"} {
		if _, err := ParseFrameRate(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
