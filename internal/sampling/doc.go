// Package sampling decides how densely keyframes are taken from a video.
//
// Proportional spacing aims for a target frame count (ceil(duration/target)
// seconds, floored at two seconds); Fixed spacing uses a configured interval.
// Both satisfy Planner so the pipeline does not care which is active.
package sampling
