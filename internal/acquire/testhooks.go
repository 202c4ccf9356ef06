package acquire

import (
	"context"

	"shotscribe/internal/media/ffprobe"
)

// SetProbeForTests overrides the ffprobe runner during tests.
func SetProbeForTests(fn func(context.Context, string, string) (ffprobe.VideoMetadata, error)) func() {
	previous := probeVideo
	probeVideo = fn
	return func() {
		probeVideo = previous
	}
}
