package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"parallax/internal/fileutil"
	"parallax/internal/logging"
	"parallax/internal/metadata"
	"parallax/internal/npz"
	"parallax/internal/scene"
	"parallax/internal/scenesplit"
)

// stageExport copies the verified pair and its metadata into the export
// directory and assembles the run-level depth archive from the per-scene
// arrays. Archive assembly is best effort; the stream pair is the product.
func (c *Controller) stageExport(ctx context.Context, rs *runState, logger *slog.Logger) (bool, error) {
	if c.opts.SkipExport {
		logger.Info("export stage skipped by request")
		return true, nil
	}
	dest := exportDir(rs.dir)
	if fileutil.Exists(filepath.Join(dest, RGBFile)) {
		return true, nil
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return false, Wrap(ErrConfiguration, "export", "create export dir", "", err)
	}
	if err := fileutil.CopyFile(rgbPath(rs.dir), filepath.Join(dest, RGBFile)); err != nil {
		return false, Wrap(ErrConfiguration, "export", "copy rgb stream", "", err)
	}
	if !rs.doc.DepthSkipped {
		if err := fileutil.CopyFile(depthPath(rs.dir), filepath.Join(dest, DepthFile)); err != nil {
			return false, Wrap(ErrConfiguration, "export", "copy depth stream", "", err)
		}
		if err := c.assembleDepthArchive(ctx, rs, filepath.Join(dest, DepthArchive)); err != nil {
			logger.Warn("depth archive not assembled", logging.Error(err))
		}
	}

	rs.doc.ExportedAt = time.Now().UTC()
	if err := rs.store.Save(rs.doc); err != nil {
		return false, Wrap(ErrConfiguration, "export", "save metadata", "", err)
	}
	if err := fileutil.CopyFile(rs.store.Path(), filepath.Join(dest, metadata.FileName)); err != nil {
		return false, Wrap(ErrConfiguration, "export", "copy metadata", "", err)
	}
	return false, nil
}

// assembleDepthArchive concatenates per-scene depth arrays into one run
// volume. Scenes without a raw array (flat placeholders) are synthesized at
// the placeholder gray level; every contribution must match the planned
// depth geometry or the archive is abandoned.
func (c *Controller) assembleDepthArchive(ctx context.Context, rs *runState, output string) error {
	plan := rs.doc.Geometry
	if plan == nil {
		return fmt.Errorf("no geometry plan in metadata")
	}
	scenes, err := scenesplit.Load(scenesDir(rs.dir))
	if err != nil {
		return fmt.Errorf("load scenes: %w", err)
	}

	frameSize := plan.DepthHeight * plan.DepthWidth
	var data []float32
	var totalFrames int
	for _, sc := range scenes {
		frames, err := c.counter.Count(ctx, sc.VideoPath)
		if err != nil {
			return fmt.Errorf("count scene %d frames: %w", sc.Index, err)
		}

		npzPath := filepath.Join(scenesDir(rs.dir), scene.DepthNPZName(sc.Index))
		if fileutil.Exists(npzPath) {
			volume, _, err := scene.LoadVolume(npzPath, frames)
			if err != nil {
				return fmt.Errorf("scene %d: %w", sc.Index, err)
			}
			if volume.Height != plan.DepthHeight || volume.Width != plan.DepthWidth {
				return fmt.Errorf("scene %d volume is %dx%d, plan is %dx%d",
					sc.Index, volume.Width, volume.Height, plan.DepthWidth, plan.DepthHeight)
			}
			data = append(data, volume.Data...)
		} else {
			flat := make([]float32, int(frames)*frameSize)
			for i := range flat {
				flat[i] = scene.FlatDepthValue
			}
			data = append(data, flat...)
		}
		totalFrames += int(frames)
	}

	return npz.WriteDepth(output, npz.Array{
		Shape: []int{totalFrames, plan.DepthHeight, plan.DepthWidth},
		Data:  data,
	})
}
