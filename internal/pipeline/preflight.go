package pipeline

import (
	"context"
	"strings"

	"parallax/internal/deps"
)

// preflight verifies external prerequisites before any stage work: required
// binaries, free disk space under the output root, and for remote depth
// inference a live status probe of the service.
func (c *Controller) preflight(ctx context.Context) error {
	needBackend := !c.opts.SkipDepth && !c.cfg.RemoteBackend()
	requirements := deps.ToolRequirements(
		c.cfg.Tools.FFmpeg, c.cfg.Tools.FFprobe, c.cfg.Tools.SceneSplit,
		c.cfg.DepthBackend.Command, needBackend)

	if missing := deps.MissingRequired(deps.CheckBinaries(requirements)); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, status := range missing {
			names = append(names, status.Name+" ("+status.Detail+")")
		}
		return Wrap(ErrConfiguration, "preflight", "binaries", strings.Join(names, ", "), nil)
	}

	if status := deps.CheckFreeSpace(c.cfg.Paths.OutputRoot, c.cfg.Pipeline.MinFreeGiB); !status.Available {
		return Wrap(ErrValidation, "preflight", "disk space", status.Detail, nil)
	}

	if !c.opts.SkipDepth && c.cfg.RemoteBackend() {
		if checker, ok := c.backend.(statusChecker); ok {
			if err := checker.Status(ctx); err != nil {
				return Wrap(ErrExternalTool, "preflight", "depth backend status", c.cfg.DepthBackend.URL, err)
			}
		}
	}
	return nil
}
