package pipeline

import (
	"fmt"

	"shotscribe/internal/services"
)

// DurationValidator enforces the accepted video length range.
type DurationValidator struct {
	Min float64
	Max float64
}

// Check rejects videos shorter than Min. Videos longer than Max are accepted
// with a warning message.
func (v DurationValidator) Check(duration float64) (string, error) {
	if duration < v.Min {
		return "", services.Wrap(services.ErrValidation, "validate", "check duration",
			fmt.Sprintf("video is %.1fs, shorter than the %.0fs minimum", duration, v.Min), nil)
	}
	if v.Max > 0 && duration > v.Max {
		return fmt.Sprintf("video is %.1fs, longer than the recommended %.0fs; analysis may lose detail", duration, v.Max), nil
	}
	return "", nil
}
