package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CountFrames decodes the stream and returns the exact video frame count.
// Container metadata (nb_frames) is deliberately not trusted here: the
// synchronization contract needs decoded counts, and an uncountable stream
// is an error rather than zero.
func CountFrames(ctx context.Context, binary string, path string) (int64, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, errors.New("ffprobe count: empty path")
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_frames",
		"-show_entries", "stream=nb_read_frames",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe count %s: %w: %s", path, err, strings.TrimSpace(string(output)))
	}

	text := strings.TrimSpace(string(output))
	count, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe count %s: unparseable frame count %q", path, text)
	}
	if count <= 0 {
		return 0, fmt.Errorf("ffprobe count %s: no frames counted", path)
	}
	return count, nil
}

// PTSResult carries the per-frame integer presentation ticks of a stream
// together with the timebase they are expressed in.
type PTSResult struct {
	PTS      []int64
	TimeBase Rational
}

// FramePTS extracts every video frame's presentation timestamp as integer
// ticks. Ticks are the ground truth for synchronization; floating seconds
// would lose precision on long streams.
func FramePTS(ctx context.Context, binary string, path string) (PTSResult, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return PTSResult{}, errors.New("ffprobe pts: empty path")
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "frame=pts",
		"-of", "csv=p=0",
		"--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return PTSResult{}, fmt.Errorf("ffprobe pts %s: %w: %s", path, err, strings.TrimSpace(string(output)))
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	pts := make([]int64, 0, len(lines))
	for _, line := range lines {
		cleaned := strings.TrimSpace(strings.TrimSuffix(line, ","))
		if cleaned == "" {
			continue
		}
		tick, err := strconv.ParseInt(cleaned, 10, 64)
		if err != nil {
			return PTSResult{}, fmt.Errorf("ffprobe pts %s: unparseable tick %q", path, cleaned)
		}
		pts = append(pts, tick)
	}
	if len(pts) == 0 {
		return PTSResult{}, fmt.Errorf("ffprobe pts %s: no timestamps extracted", path)
	}

	tbCmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=time_base",
		"-of", "csv=p=0",
		"--", path)
	tbOutput, err := tbCmd.CombinedOutput()
	if err != nil {
		return PTSResult{}, fmt.Errorf("ffprobe timebase %s: %w: %s", path, err, strings.TrimSpace(string(tbOutput)))
	}
	tb, err := ParseRational(string(tbOutput))
	if err != nil {
		return PTSResult{}, fmt.Errorf("ffprobe timebase %s: %w", path, err)
	}

	return PTSResult{PTS: pts, TimeBase: tb}, nil
}
