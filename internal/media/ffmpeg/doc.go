// Package ffmpeg wraps the external codec tool behind a small typed client.
//
// Every operation builds an explicit argument list, runs the binary through
// an injectable Executor, and folds the tool's combined output into returned
// errors. Operations that matter to stream alignment (ConformCFR) force
// constant frame rate and PTS regeneration rather than trusting filter-graph
// timing.
package ffmpeg
