// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no parallax-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - VideoInfo: the first video stream's properties with parsed rationals
//   - Rational: exact num/den pairs for frame rates and timebases
//
// Entry points:
//   - Inspect: executes ffprobe and returns a parsed Result
//   - CountFrames: exact decoded frame count (-count_frames)
//   - FramePTS: per-frame integer presentation ticks plus the stream timebase
//
// All functions are pure queries; nothing here mutates media files.
package ffprobe
