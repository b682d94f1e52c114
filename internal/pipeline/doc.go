// Package pipeline is the run controller: it drives a source video through
// planning, scene splitting, depth inference, stitching, verification, and
// export inside a persistent run directory.
//
// The state machine is artifact-driven. No stage records "done" anywhere;
// instead each stage checks for its own output artifact and runs only when
// the artifact is absent. Interrupt a run at any point and invoking it again
// on the run directory resumes exactly where work stopped. A per-directory
// file lock keeps concurrent invocations from interleaving.
package pipeline
