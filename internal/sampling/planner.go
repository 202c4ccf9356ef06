package sampling

import (
	"fmt"
	"math"
	"time"

	"shotscribe/internal/config"
)

const (
	// DefaultTargetFrames is used when a non-positive target is requested.
	DefaultTargetFrames = 20
	// MinInterval is the floor applied to proportional intervals.
	MinInterval = 2 * time.Second
)

// Planner picks the spacing between sampled keyframes for a video.
type Planner interface {
	Interval(duration float64) time.Duration
	Describe() string
}

// PlanInterval spreads targetFrames samples across duration seconds. The
// result is ceil(duration/targetFrames) whole seconds and never below
// MinInterval.
func PlanInterval(duration float64, targetFrames int) time.Duration {
	if targetFrames <= 0 {
		targetFrames = DefaultTargetFrames
	}
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return MinInterval
	}
	seconds := math.Ceil(duration / float64(targetFrames))
	interval := time.Duration(seconds) * time.Second
	if interval < MinInterval {
		return MinInterval
	}
	return interval
}

// Proportional targets a fixed number of frames regardless of duration.
type Proportional struct {
	TargetFrames int
}

func (p Proportional) Interval(duration float64) time.Duration {
	return PlanInterval(duration, p.TargetFrames)
}

func (p Proportional) Describe() string {
	return "proportional"
}

// Fixed samples every Every regardless of duration.
type Fixed struct {
	Every time.Duration
}

func (f Fixed) Interval(float64) time.Duration {
	if f.Every <= 0 {
		return MinInterval
	}
	return f.Every
}

func (f Fixed) Describe() string {
	return "fixed"
}

// FromConfig returns the planner selected by the sampling section.
func FromConfig(cfg *config.Config) Planner {
	if cfg == nil {
		return Proportional{TargetFrames: DefaultTargetFrames}
	}
	if cfg.Sampling.UseFixedInterval {
		return Fixed{Every: time.Duration(cfg.Sampling.DefaultInterval * float64(time.Second))}
	}
	return Proportional{TargetFrames: cfg.Sampling.TargetFrames}
}

// Timestamp returns the offset of the frame at index for interval.
func Timestamp(index int, interval time.Duration) time.Duration {
	return time.Duration(index) * interval
}

// FormatClock renders d as MM:SS, rounding down to whole seconds.
func FormatClock(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
