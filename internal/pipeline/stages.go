package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"parallax/internal/fileutil"
	"parallax/internal/geometry"
	"parallax/internal/logging"
	"parallax/internal/media/ffmpeg"
	"parallax/internal/metadata"
	"parallax/internal/scenesplit"
	"parallax/internal/stitch"
)

// stagePlan computes the geometry plan and produces the processed reference
// stream: source cropped and scaled to the RGB target, conformed to the
// frame-rate ceiling, optionally duration-capped.
func (c *Controller) stagePlan(ctx context.Context, rs *runState, logger *slog.Logger) (bool, error) {
	if rs.doc.Geometry != nil && fileutil.Exists(processedPath(rs.dir)) {
		return true, nil
	}

	source, err := c.prober.Probe(ctx, rs.doc.SourceMP4)
	if err != nil {
		return false, Wrap(ErrExternalTool, "plan", "probe source", rs.doc.SourceMP4, err)
	}

	planner := geometry.NewPlanner(logger)
	plan, err := planner.Compute(geometry.Input{
		SourceWidth:       source.Width,
		SourceHeight:      source.Height,
		ResolutionCeiling: rs.doc.ResolutionCeiling,
		Divisor:           c.cfg.Pipeline.Divisor,
	})
	if err != nil {
		return false, Wrap(ErrPlanning, "plan", "compute", "", err)
	}

	fps := source.FrameRate
	if rs.doc.FPSCeiling > 0 && fps > rs.doc.FPSCeiling {
		fps = rs.doc.FPSCeiling
	}

	err = c.ffmpeg.CropScale(ctx, ffmpeg.CropScaleSpec{
		Input:       rs.doc.SourceMP4,
		Output:      processedPath(rs.dir),
		CropWidth:   plan.RGBWidth,
		CropHeight:  plan.SourceHeight,
		CropX:       plan.CropLeft,
		CropY:       0,
		ScaleW:      plan.RGBWidth,
		ScaleH:      plan.RGBHeight,
		FPS:         fps,
		DurationCap: rs.doc.DurationCeiling,
	})
	if err != nil {
		return false, Wrap(ErrExternalTool, "plan", "process source", "", err)
	}

	rs.doc.Geometry = &plan
	if err := rs.store.Save(rs.doc); err != nil {
		return false, Wrap(ErrConfiguration, "plan", "save metadata", "", err)
	}
	return false, nil
}

// stageScenes splits the processed stream into scene units. On resume the
// split output directory is reread rather than regenerated.
func (c *Controller) stageScenes(ctx context.Context, rs *runState, logger *slog.Logger) (bool, error) {
	dir := scenesDir(rs.dir)
	if fileutil.Exists(scenesplit.TimestampsPath(dir)) {
		scenes, err := scenesplit.Load(dir)
		if err != nil {
			return false, Wrap(ErrInvariant, "scenes", "reload split output", "", err)
		}
		if rs.doc.SceneCount != len(scenes) {
			if err := c.recordScenes(rs, scenes); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	scenes, err := c.splitter.Split(ctx, processedPath(rs.dir), dir,
		c.cfg.Pipeline.SceneThreshold, rs.doc.MaxSceneSeconds)
	if err != nil {
		return false, Wrap(ErrExternalTool, "scenes", "split", "", err)
	}
	logger.Info("scenes detected", logging.Int("count", len(scenes)))
	return false, c.recordScenes(rs, scenes)
}

func (c *Controller) recordScenes(rs *runState, scenes []scenesplit.Scene) error {
	starts := make([]float64, len(scenes))
	for i, sc := range scenes {
		starts[i] = sc.Start
	}
	rs.doc.SceneCount = len(scenes)
	rs.doc.SceneTimestamps = starts
	if err := rs.store.Save(rs.doc); err != nil {
		return Wrap(ErrConfiguration, "scenes", "save metadata", "", err)
	}
	return nil
}

// stageRGB stitches the scene units back into the final RGB stream, with the
// processed reference stream supplying the enforced frame count. Round-
// tripping through the same unit boundaries as the depth stream keeps the
// two segmentations identical.
func (c *Controller) stageRGB(ctx context.Context, rs *runState, logger *slog.Logger) (bool, error) {
	if fileutil.Exists(rgbPath(rs.dir)) {
		return true, nil
	}

	scenes, err := scenesplit.Load(scenesDir(rs.dir))
	if err != nil {
		return false, Wrap(ErrInvariant, "rgb", "load scenes", "", err)
	}
	reference, err := c.counter.Count(ctx, processedPath(rs.dir))
	if err != nil {
		return false, Wrap(ErrExternalTool, "rgb", "count reference frames", "", err)
	}
	processed, err := c.prober.Probe(ctx, processedPath(rs.dir))
	if err != nil {
		return false, Wrap(ErrExternalTool, "rgb", "probe processed stream", "", err)
	}

	inputs := make([]string, len(scenes))
	for i, sc := range scenes {
		inputs[i] = sc.VideoPath
	}
	stitcher, err := stitch.New(c.ffmpeg, c.counter, logger)
	if err != nil {
		return false, Wrap(ErrConfiguration, "rgb", "stitcher", "", err)
	}
	err = stitcher.Stitch(ctx, stitch.Spec{
		Inputs:          inputs,
		Output:          rgbPath(rs.dir),
		FPS:             processed.FrameRate,
		ReferenceFrames: reference,
	})
	if err != nil {
		return false, wrapStitchErr("rgb", err)
	}
	return false, nil
}

func wrapStitchErr(stage string, err error) error {
	if errors.Is(err, stitch.ErrFrameCountMismatch) {
		return Wrap(ErrInvariant, stage, "stitch", "", err)
	}
	return Wrap(ErrExternalTool, stage, "stitch", "", err)
}

// ensureSceneStats grows the per-scene stat arrays to cover count scenes.
func ensureSceneStats(doc *metadata.Document, count int) {
	grow := func(values []float64) []float64 {
		for len(values) < count {
			values = append(values, 0)
		}
		return values
	}
	doc.SceneMinDepths = grow(doc.SceneMinDepths)
	doc.SceneMaxDepths = grow(doc.SceneMaxDepths)
	doc.SceneScreenDists = grow(doc.SceneScreenDists)
	for len(doc.SceneDone) < count {
		doc.SceneDone = append(doc.SceneDone, false)
	}
}
