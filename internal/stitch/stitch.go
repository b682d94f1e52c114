// Package stitch assembles per-scene units into one continuous stream with
// an enforced frame count. Concatenation alone cannot be trusted: unit
// boundaries can gain or lose frames silently, so the stitcher recounts at
// every step and refuses to hand over a stream whose count it has not proved.
package stitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"parallax/internal/logging"
	"parallax/internal/media/ffmpeg"
	"parallax/internal/media/ffprobe"
)

// ErrFrameCountMismatch reports a stitched stream whose frame count disagrees
// with its reference. Never auto-corrected: a mismatch means a unit was
// corrupted upstream.
var ErrFrameCountMismatch = errors.New("stitch: frame count mismatch")

// Counter obtains a decoded frame count for a stream.
type Counter interface {
	Count(ctx context.Context, path string) (int64, error)
}

// FFprobeCounter counts frames via the probe adapter.
type FFprobeCounter struct {
	Binary string
}

func (c FFprobeCounter) Count(ctx context.Context, path string) (int64, error) {
	return ffprobe.CountFrames(ctx, c.Binary, path)
}

// Spec describes one stitch job.
type Spec struct {
	// Inputs are the scene units in playback order.
	Inputs []string
	// Output is the final stitched stream.
	Output string
	// FPS is the exact constant frame rate of the output.
	FPS float64
	// ReferenceFrames is the frame count the output must carry. For the RGB
	// stream this is the processed source's count; for the depth stream it
	// is the stitched RGB stream's count.
	ReferenceFrames int64
	// Gray encodes the conform pass as a single-channel stream.
	Gray bool
}

// Stitcher concatenates and conforms scene units.
type Stitcher struct {
	ffmpeg  *ffmpeg.Client
	counter Counter
	logger  *slog.Logger
}

// New constructs a stitcher.
func New(client *ffmpeg.Client, counter Counter, logger *slog.Logger) (*Stitcher, error) {
	if client == nil {
		return nil, errors.New("stitch: ffmpeg client required")
	}
	if counter == nil {
		return nil, errors.New("stitch: frame counter required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stitcher{ffmpeg: client, counter: counter, logger: logger}, nil
}

// Stitch runs the three-step assembly: lossless concat, a frame-count
// assertion against the reference, then a conform encode that both smooths
// concat-boundary timing and hard-caps the output at the reference count.
// A concat count that disagrees with the reference means scene processing
// corrupted a unit, and continuing would bake the desync into the output.
func (s *Stitcher) Stitch(ctx context.Context, spec Spec) error {
	if len(spec.Inputs) == 0 {
		return errors.New("stitch: no inputs")
	}
	if spec.Output == "" {
		return errors.New("stitch: output required")
	}
	if spec.ReferenceFrames <= 0 {
		return fmt.Errorf("stitch: invalid reference frame count %d", spec.ReferenceFrames)
	}

	concatPath := spec.Output + ".concat.mp4"
	if err := s.ffmpeg.ConcatCopy(ctx, spec.Inputs, concatPath); err != nil {
		return fmt.Errorf("stitch: concat %d units: %w", len(spec.Inputs), err)
	}
	defer os.Remove(concatPath)

	concatFrames, err := s.counter.Count(ctx, concatPath)
	if err != nil {
		return fmt.Errorf("stitch: count concat frames: %w", err)
	}
	if concatFrames != spec.ReferenceFrames {
		return fmt.Errorf("%w: concat carries %d frames, reference has %d", ErrFrameCountMismatch, concatFrames, spec.ReferenceFrames)
	}
	s.logger.Info("concat frame count matches reference",
		logging.Int64("frames", concatFrames),
		logging.Int("units", len(spec.Inputs)))

	err = s.ffmpeg.ConformCFR(ctx, ffmpeg.ConformSpec{
		Input:      concatPath,
		Output:     spec.Output,
		FPS:        spec.FPS,
		FrameLimit: spec.ReferenceFrames,
		Gray:       spec.Gray,
	})
	if err != nil {
		return fmt.Errorf("stitch: conform: %w", err)
	}

	finalFrames, err := s.counter.Count(ctx, spec.Output)
	if err != nil {
		return fmt.Errorf("stitch: count final frames: %w", err)
	}
	if finalFrames != spec.ReferenceFrames {
		return fmt.Errorf("%w: final stream carries %d frames, reference has %d", ErrFrameCountMismatch, finalFrames, spec.ReferenceFrames)
	}
	return nil
}
