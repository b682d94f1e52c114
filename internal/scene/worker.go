package scene

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"parallax/internal/depthbackend"
	"parallax/internal/logging"
	"parallax/internal/media/ffmpeg"
	"parallax/internal/scenesplit"
	"parallax/internal/verify"
)

// FlatDepthValue is the constant gray level of a placeholder depth unit.
const FlatDepthValue = 100

// Placeholder stats recorded for flat units, distinguishable from any real
// measurement.
const (
	FlatMinDepth   = 1.0
	FlatMaxDepth   = 10.0
	FlatScreenDist = 3.0
)

// Unit is the finished depth unit for one scene.
type Unit struct {
	Index     int
	RGBPath   string
	DepthPath string
	Stats     Stats
	// Fallback is set when the unit is a flat placeholder rather than real
	// inference output.
	Fallback bool
	// FallbackReason names why the placeholder was used.
	FallbackReason string
}

// Options configure a worker.
type Options struct {
	FFmpeg     *ffmpeg.Client
	Prober     verify.Prober
	Backend    depthbackend.Client
	Classifier *depthbackend.Classifier
	// Resolution is the model processing width handed to the backend.
	Resolution int
	ModelDir   string
	// MaxSceneSeconds caps inference eligibility; longer scenes go straight
	// to the flat placeholder. Zero disables the cap.
	MaxSceneSeconds float64
	Logger          *slog.Logger
}

// Worker turns RGB scene units into matching depth units.
type Worker struct {
	opts     Options
	verifier *verify.Verifier
	logger   *slog.Logger
}

// NewWorker constructs a scene worker.
func NewWorker(opts Options) (*Worker, error) {
	if opts.FFmpeg == nil {
		return nil, errors.New("scene worker: ffmpeg client required")
	}
	if opts.Prober == nil {
		return nil, errors.New("scene worker: prober required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Classifier == nil {
		opts.Classifier = depthbackend.NewClassifier()
	}
	return &Worker{
		opts:     opts,
		verifier: verify.New(opts.Prober),
		logger:   logger,
	}, nil
}

// DepthFileName returns the depth unit name for a 1-based scene index.
func DepthFileName(index int) string {
	return fmt.Sprintf("scene_%03d_depth.mp4", index)
}

// DepthNPZName returns the raw inference artifact name for a scene.
func DepthNPZName(index int) string {
	return fmt.Sprintf("scene_%03d_depth.npz", index)
}

// Process produces the depth unit for one scene inside workDir. The returned
// unit always exists on disk with the RGB unit's exact frame count; backend
// failures degrade to the flat placeholder instead of failing the scene.
func (w *Worker) Process(ctx context.Context, sc scenesplit.Scene, workDir string) (Unit, error) {
	logger := w.logger.With(logging.Int(logging.FieldScene, sc.Index))

	rgb, err := w.opts.Prober.Probe(ctx, sc.VideoPath)
	if err != nil {
		return Unit{}, fmt.Errorf("scene %d: probe rgb unit: %w", sc.Index, err)
	}
	if !rgb.CountObtained {
		return Unit{}, fmt.Errorf("scene %d: rgb unit %s has no decodable frame count", sc.Index, sc.VideoPath)
	}
	if rgb.Width <= 0 || rgb.Height <= 0 || rgb.FrameRate <= 0 {
		return Unit{}, fmt.Errorf("scene %d: rgb unit %s has unusable geometry", sc.Index, sc.VideoPath)
	}

	unit := Unit{
		Index:     sc.Index,
		RGBPath:   sc.VideoPath,
		DepthPath: filepath.Join(workDir, DepthFileName(sc.Index)),
	}

	if reason := w.fallbackReason(ctx, rgb.Duration); reason != "" {
		logger.Warn("using flat depth placeholder",
			logging.String("reason", reason),
			logging.Float64("duration_s", rgb.Duration))
		if err := w.synthesizeFlat(ctx, rgb, unit.DepthPath); err != nil {
			return Unit{}, fmt.Errorf("scene %d: flat placeholder: %w", sc.Index, err)
		}
		unit.Fallback = true
		unit.FallbackReason = reason
		unit.Stats = Stats{MinDepth: FlatMinDepth, MaxDepth: FlatMaxDepth, ScreenDist: FlatScreenDist}
	} else if err := w.infer(ctx, sc, rgb, &unit, workDir, logger); err != nil {
		return Unit{}, err
	}

	w.checkPair(ctx, unit, logger)
	return unit, nil
}

// fallbackReason decides up front whether inference should be skipped.
func (w *Worker) fallbackReason(ctx context.Context, duration float64) string {
	if w.opts.Backend == nil {
		return "no depth backend configured"
	}
	if w.opts.MaxSceneSeconds > 0 && duration > w.opts.MaxSceneSeconds {
		return fmt.Sprintf("scene exceeds %.1fs inference ceiling", w.opts.MaxSceneSeconds)
	}
	if err := ctx.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// infer runs the backend and converts its depth volume into the final depth
// unit. Backend process failures are classified and downgraded to the flat
// placeholder; a corrupt or absent depth volume after a reported success is a
// hard error.
func (w *Worker) infer(ctx context.Context, sc scenesplit.Scene, rgb verify.StreamProbe, unit *Unit, workDir string, logger *slog.Logger) error {
	npzPath := filepath.Join(workDir, DepthNPZName(sc.Index))
	result, err := w.opts.Backend.Infer(ctx, depthbackend.Request{
		SceneVideo: sc.VideoPath,
		ModelDir:   w.opts.ModelDir,
		Resolution: w.opts.Resolution,
		FPS:        rgb.FrameRate,
		OutputNPZ:  npzPath,
	})
	if err != nil {
		kind := w.opts.Classifier.Classify(err, result.Output)
		logger.Warn("depth inference failed, degrading to flat placeholder",
			logging.String("failure_kind", kind.String()),
			logging.Error(err))
		if err := w.synthesizeFlat(ctx, rgb, unit.DepthPath); err != nil {
			return fmt.Errorf("scene %d: flat placeholder after backend failure: %w", sc.Index, err)
		}
		unit.Fallback = true
		unit.FallbackReason = "backend failure: " + kind.String()
		unit.Stats = Stats{MinDepth: FlatMinDepth, MaxDepth: FlatMaxDepth, ScreenDist: FlatScreenDist}
		return nil
	}

	volume, stats, err := LoadVolume(npzPath, rgb.FrameCount)
	if err != nil {
		return fmt.Errorf("scene %d: %w", sc.Index, err)
	}
	unit.Stats = stats

	if err := w.encodeDepth(ctx, volume, rgb, unit.DepthPath); err != nil {
		return fmt.Errorf("scene %d: encode depth unit: %w", sc.Index, err)
	}
	return nil
}

// synthesizeFlat writes the constant-value placeholder matching the RGB
// unit's geometry and timing.
func (w *Worker) synthesizeFlat(ctx context.Context, rgb verify.StreamProbe, output string) error {
	return w.opts.FFmpeg.SynthesizeFlat(ctx, ffmpeg.FlatSpec{
		Output:     output,
		Width:      rgb.Width,
		Height:     rgb.Height,
		FPS:        rgb.FrameRate,
		FrameCount: rgb.FrameCount,
		Value:      FlatDepthValue,
	})
}

// encodeDepth runs the two-pass depth encode: raw gray frames at the
// volume's native geometry first, then a conform pass onto the RGB unit's
// exact dimensions, rate, and frame count.
func (w *Worker) encodeDepth(ctx context.Context, volume DepthVolume, rgb verify.StreamProbe, output string) error {
	rawPath := output + ".raw.mp4"
	frames := NormalizeGray8(volume)
	err := w.opts.FFmpeg.EncodeGrayFrames(ctx, ffmpeg.GrayFramesSpec{
		Output: rawPath,
		Width:  volume.Width,
		Height: volume.Height,
		FPS:    rgb.FrameRate,
	}, bytes.NewReader(frames))
	if err != nil {
		return err
	}
	defer os.Remove(rawPath)

	return w.opts.FFmpeg.ConformCFR(ctx, ffmpeg.ConformSpec{
		Input:      rawPath,
		Output:     output,
		FPS:        rgb.FrameRate,
		Width:      rgb.Width,
		Height:     rgb.Height,
		FrameLimit: rgb.FrameCount,
		Gray:       true,
	})
}

// checkPair runs scene-scope verification. Findings here are advisory: the
// run-level verifier over the stitched streams is the authoritative gate.
func (w *Worker) checkPair(ctx context.Context, unit Unit, logger *slog.Logger) {
	report, err := w.verifier.Verify(ctx, unit.RGBPath, unit.DepthPath)
	if err != nil {
		logger.Warn("scene pair verification unavailable", logging.Error(err))
		return
	}
	for _, finding := range report.Critical() {
		logger.Warn("scene pair deviation",
			logging.String("check", string(finding.Check)),
			logging.String("detail", finding.Detail))
	}
}
