package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"shotscribe/internal/keyframes"
)

// VisualPrompt renders the vision request for frames sampled every interval.
func VisualPrompt(frames []keyframes.Keyframe, interval time.Duration) string {
	seconds := strconv.FormatFloat(interval.Seconds(), 'f', -1, 64)
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these %d video keyframes. They are in chronological order, one frame every %s seconds. Identify and describe every shot change.\n\n", len(frames), seconds)
	b.WriteString("Frame timestamps:\n")
	for _, frame := range frames {
		fmt.Fprintf(&b, "- Frame %d: %s\n", frame.Index+1, frame.Clock())
	}
	b.WriteString(`
For every shot describe:
1. Shot number: start at 1; every change of scene, action or angle starts a new shot.
2. Time range: MM:SS-MM:SS derived from the frame timestamps above.
3. Scene: indoor or outdoor, the location and its features.
4. People: how many, where they are, what they do, expressions and gestures.
5. Camera: shot size (close-up, medium, wide), movement (static, push, pull, pan, tracking, handheld) and angle.
6. On-screen elements: objects, text, icons and captions.

Important:
- Compare neighbouring frames carefully; small differences can be a cut.
- The video may contain many shots; list all of them in order.
`)
	fmt.Fprintf(&b, "- Every shot must carry an accurate time range based on the %s second sampling interval.\n\n", seconds)
	b.WriteString("Answer in a structured form so a complete shot script with time ranges can be derived from it.")
	return b.String()
}
