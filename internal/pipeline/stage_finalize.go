package pipeline

import (
	"context"
	"log/slog"

	"parallax/internal/fileutil"
	"parallax/internal/logging"
	"parallax/internal/media/ffprobe"
	"parallax/internal/metadata"
	"parallax/internal/verify"
)

// stageFinalize is the run-level verification gate. The stitched pair must
// pass all seven synchronization checks before the document is finalized;
// an unverified pair never reaches export.
func (c *Controller) stageFinalize(ctx context.Context, rs *runState, logger *slog.Logger) (bool, error) {
	if rs.doc.Video != nil {
		return true, nil
	}

	rgb, err := c.prober.Probe(ctx, rgbPath(rs.dir))
	if err != nil {
		return false, Wrap(ErrExternalTool, "finalize", "probe rgb stream", "", err)
	}

	if !rs.doc.DepthSkipped {
		if !fileutil.Exists(depthPath(rs.dir)) {
			return false, Wrap(ErrInvariant, "finalize", "depth stream missing", depthPath(rs.dir), nil)
		}
		report, err := verify.New(c.prober).Verify(ctx, rgbPath(rs.dir), depthPath(rs.dir))
		if err != nil {
			return false, Wrap(ErrExternalTool, "finalize", "verify", "", err)
		}
		for _, finding := range report.Findings {
			logger.Info("verification finding",
				logging.String("check", string(finding.Check)),
				logging.String("severity", string(finding.Severity)),
				logging.String("detail", finding.Detail))
		}
		if !report.Verified() {
			return false, Wrap(ErrUnverified, "finalize", "verify",
				report.Critical()[0].Detail, nil)
		}
		rs.doc.Verified = true

		depth, err := c.prober.Probe(ctx, depthPath(rs.dir))
		if err != nil {
			return false, Wrap(ErrExternalTool, "finalize", "probe depth stream", "", err)
		}
		rs.doc.Depth = c.streamProperties(ctx, depthPath(rs.dir), depth)
	}

	rs.doc.Video = c.streamProperties(ctx, rgbPath(rs.dir), rgb)
	if err := rs.store.Save(rs.doc); err != nil {
		return false, Wrap(ErrConfiguration, "finalize", "save metadata", "", err)
	}
	return false, nil
}

// streamProperties converts a probe into the persisted measurement record,
// enriched with codec and bitrate when container inspection succeeds.
func (c *Controller) streamProperties(ctx context.Context, path string, probe verify.StreamProbe) *metadata.StreamProperties {
	props := &metadata.StreamProperties{
		Width:      probe.Width,
		Height:     probe.Height,
		FPS:        probe.FrameRate,
		Duration:   probe.Duration,
		FrameCount: probe.FrameCount,
	}
	if result, err := ffprobe.Inspect(ctx, c.cfg.Tools.FFprobe, path); err == nil {
		if video, err := result.Video(); err == nil {
			props.Codec = video.Codec
		}
		props.BitRate = result.BitRate()
	}
	return props
}
