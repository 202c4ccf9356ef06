// Package keyframes samples still frames from a cached video at a fixed
// interval using ffmpeg.
//
// Extracted frames live under the content cache's keyframes directory for a
// key alongside a frames.json manifest. The manifest records the interval so a
// later cache hit can reproduce the exact timestamps without re-running
// ffmpeg. Every Set is index-stamped: Frames[i].Index is i and its timestamp is
// i times the interval, independent of file naming.
package keyframes
