package verify

import (
	"context"

	"parallax/internal/media/ffprobe"
)

// FFprobeProber loads stream properties through the probe adapter.
type FFprobeProber struct {
	Binary string
}

// Probe inspects one stream. A failed frame count or timestamp extraction is
// recorded on the probe (CountObtained/PTSObtained false) rather than
// returned as an error, so the verifier can classify the inability as a
// critical finding instead of aborting inspection.
func (p FFprobeProber) Probe(ctx context.Context, path string) (StreamProbe, error) {
	result, err := ffprobe.Inspect(ctx, p.Binary, path)
	if err != nil {
		return StreamProbe{}, err
	}
	video, err := result.Video()
	if err != nil {
		return StreamProbe{}, err
	}

	probe := StreamProbe{
		Path:      path,
		Width:     video.Width,
		Height:    video.Height,
		FrameRate: video.FPS(),
		Duration:  result.DurationSeconds(),
		TimeBase:  video.TimeBase,
	}

	if count, err := ffprobe.CountFrames(ctx, p.Binary, path); err == nil {
		probe.FrameCount = count
		probe.CountObtained = true
	}

	if pts, err := ffprobe.FramePTS(ctx, p.Binary, path); err == nil {
		probe.PTS = pts.PTS
		probe.PTSObtained = true
		if !pts.TimeBase.IsZero() {
			probe.TimeBase = pts.TimeBase
		}
	}

	return probe, nil
}
