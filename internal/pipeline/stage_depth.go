package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"parallax/internal/fileutil"
	"parallax/internal/logging"
	"parallax/internal/metadata"
	"parallax/internal/scene"
	"parallax/internal/scenesplit"
	"parallax/internal/stitch"
)

// stageDepth produces the depth unit for every scene, then stitches them
// into the final depth stream with the RGB stream's frame count enforced.
// Scenes run sequentially: inference holds accelerator memory, and one scene
// at a time keeps the pressure bounded. All per-scene state lives on disk,
// so a resumed run picks up after the last finished unit.
func (c *Controller) stageDepth(ctx context.Context, rs *runState, logger *slog.Logger) (bool, error) {
	if c.opts.SkipDepth {
		if !rs.doc.DepthSkipped {
			rs.doc.DepthSkipped = true
			if err := rs.store.Save(rs.doc); err != nil {
				return false, Wrap(ErrConfiguration, "depth", "save metadata", "", err)
			}
		}
		logger.Info("depth stage skipped by request")
		return true, nil
	}
	if fileutil.Exists(depthPath(rs.dir)) {
		return true, nil
	}

	scenes, err := scenesplit.Load(scenesDir(rs.dir))
	if err != nil {
		return false, Wrap(ErrInvariant, "depth", "load scenes", "", err)
	}

	worker, err := scene.NewWorker(scene.Options{
		FFmpeg:          c.ffmpeg,
		Prober:          c.prober,
		Backend:         c.backend,
		Resolution:      rs.doc.ResolutionCeiling,
		ModelDir:        c.cfg.DepthBackend.ModelDir,
		MaxSceneSeconds: rs.doc.MaxSceneSeconds,
		Logger:          logger,
	})
	if err != nil {
		return false, Wrap(ErrConfiguration, "depth", "worker", "", err)
	}

	ensureSceneStats(rs.doc, len(scenes))
	units := make([]string, len(scenes))
	for i, sc := range scenes {
		sceneCtx := logging.WithScene(ctx, sc.Index)
		unitPath := filepath.Join(scenesDir(rs.dir), scene.DepthFileName(sc.Index))
		units[i] = unitPath
		if sceneComplete(rs.doc, i, unitPath) {
			continue
		}

		unit, err := worker.Process(sceneCtx, sc, scenesDir(rs.dir))
		if err != nil {
			return false, Wrap(ErrInvariant, "depth", scene.DepthFileName(sc.Index), "", err)
		}
		rs.doc.SceneMinDepths[i] = unit.Stats.MinDepth
		rs.doc.SceneMaxDepths[i] = unit.Stats.MaxDepth
		rs.doc.SceneScreenDists[i] = unit.Stats.ScreenDist
		if unit.Fallback {
			rs.doc.SceneFallbacks = appendUnique(rs.doc.SceneFallbacks, sc.Index)
		}
		rs.doc.SceneDone[i] = true
		if err := rs.store.Save(rs.doc); err != nil {
			return false, Wrap(ErrConfiguration, "depth", "save metadata", "", err)
		}
	}

	reference, err := c.counter.Count(ctx, rgbPath(rs.dir))
	if err != nil {
		return false, Wrap(ErrExternalTool, "depth", "count rgb frames", "", err)
	}
	rgb, err := c.prober.Probe(ctx, rgbPath(rs.dir))
	if err != nil {
		return false, Wrap(ErrExternalTool, "depth", "probe rgb stream", "", err)
	}

	stitcher, err := stitch.New(c.ffmpeg, c.counter, logger)
	if err != nil {
		return false, Wrap(ErrConfiguration, "depth", "stitcher", "", err)
	}
	err = stitcher.Stitch(ctx, stitch.Spec{
		Inputs:          units,
		Output:          depthPath(rs.dir),
		FPS:             rgb.FrameRate,
		ReferenceFrames: reference,
		Gray:            true,
	})
	if err != nil {
		return false, wrapStitchErr("depth", err)
	}
	return false, nil
}

// sceneComplete reports whether a scene's depth unit can be reused on
// resume: the unit file must exist and the document must mark the scene
// done, so a crash between encode and metadata save reruns it. Measured
// stats are not consulted; a genuine all-zero volume is still complete.
func sceneComplete(doc *metadata.Document, i int, unitPath string) bool {
	return fileutil.Exists(unitPath) && i < len(doc.SceneDone) && doc.SceneDone[i]
}

func appendUnique(values []int, value int) []int {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}
