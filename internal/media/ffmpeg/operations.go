package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CropScaleSpec describes the geometry conversion of the source video.
type CropScaleSpec struct {
	Input      string
	Output     string
	CropWidth  int
	CropHeight int
	CropX      int
	CropY      int
	ScaleW     int
	ScaleH     int
	FPS        float64
	// DurationCap trims the output to the first N seconds when positive.
	DurationCap float64
}

// CropScale crops, scales, and conforms the source to the planned RGB geometry.
func (c *Client) CropScale(ctx context.Context, spec CropScaleSpec) error {
	if spec.Input == "" || spec.Output == "" {
		return errors.New("crop/scale: input and output required")
	}
	filters := []string{
		fmt.Sprintf("crop=%d:%d:%d:%d", spec.CropWidth, spec.CropHeight, spec.CropX, spec.CropY),
		fmt.Sprintf("scale=%d:%d", spec.ScaleW, spec.ScaleH),
		fmt.Sprintf("fps=%s", formatFPS(spec.FPS)),
	}

	args := []string{"-y", "-i", spec.Input}
	if spec.DurationCap > 0 {
		args = append(args, "-t", strconv.FormatFloat(spec.DurationCap, 'f', -1, 64))
	}
	args = append(args,
		"-vf", strings.Join(filters, ","),
		"-fps_mode", "cfr",
		"-an",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		spec.Output,
	)
	return c.run(ctx, args, nil)
}

// TrimSpec describes a time-bounded excerpt of a stream.
type TrimSpec struct {
	Input  string
	Output string
	Start  float64
	// Duration bounds the excerpt length when positive.
	Duration float64
	FPS      float64
}

// Trim re-encodes a time window of the input as its own clip. Stream copy is
// not used: copied trims cut on keyframes and the excerpt must be
// frame-accurate.
func (c *Client) Trim(ctx context.Context, spec TrimSpec) error {
	if spec.Input == "" || spec.Output == "" {
		return errors.New("trim: input and output required")
	}
	if spec.Start < 0 {
		return errors.New("trim: negative start")
	}

	args := []string{"-y", "-ss", strconv.FormatFloat(spec.Start, 'f', -1, 64), "-i", spec.Input}
	if spec.Duration > 0 {
		args = append(args, "-t", strconv.FormatFloat(spec.Duration, 'f', -1, 64))
	}
	if spec.FPS > 0 {
		args = append(args, "-vf", fmt.Sprintf("fps=%s", formatFPS(spec.FPS)), "-fps_mode", "cfr")
	}
	args = append(args, "-an", "-c:v", "libx264", "-preset", "medium", "-crf", "18", "-pix_fmt", "yuv420p", spec.Output)
	return c.run(ctx, args, nil)
}

// ConcatCopy losslessly concatenates the inputs in order via the concat
// demuxer with stream copy. No re-encode happens here; timing defects in the
// inputs surface unchanged in the output, which is exactly what the stitcher's
// frame-count assertion needs.
func (c *Client) ConcatCopy(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return errors.New("concat: no inputs")
	}
	if output == "" {
		return errors.New("concat: output required")
	}

	listPath := output + ".concat.txt"
	var list strings.Builder
	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return fmt.Errorf("concat: resolve %s: %w", input, err)
		}
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("concat: write list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		output,
	}
	return c.run(ctx, args, nil)
}

// ConformSpec forces a stream onto exact geometry and timing.
type ConformSpec struct {
	Input  string
	Output string
	FPS    float64
	// Width/Height scale the output when both are positive.
	Width  int
	Height int
	// FrameLimit hard-caps the output frame count when positive (-frames:v).
	FrameLimit int64
	// Gray encodes the output as a single-channel gray stream.
	Gray bool
}

// ConformCFR re-encodes a stream at an exact constant frame rate with
// regenerated presentation timestamps. Naive single-pass encodes drift in
// duration and PTS relative to their source; this pass exists to remove that
// drift, and FrameLimit enforces the output frame count instead of relying on
// filter timing to produce it.
func (c *Client) ConformCFR(ctx context.Context, spec ConformSpec) error {
	if spec.Input == "" || spec.Output == "" {
		return errors.New("conform: input and output required")
	}
	if spec.FPS <= 0 {
		return errors.New("conform: positive fps required")
	}

	filters := []string{fmt.Sprintf("fps=%s", formatFPS(spec.FPS))}
	if spec.Width > 0 && spec.Height > 0 {
		filters = append(filters, fmt.Sprintf("scale=%d:%d", spec.Width, spec.Height))
	}

	args := []string{
		"-y",
		"-fflags", "+genpts",
		"-i", spec.Input,
		"-vf", strings.Join(filters, ","),
		"-fps_mode", "cfr",
		"-video_track_timescale", "90000",
	}
	if spec.FrameLimit > 0 {
		args = append(args, "-frames:v", strconv.FormatInt(spec.FrameLimit, 10))
	}
	args = append(args, "-an", "-c:v", "libx264", "-preset", "medium", "-crf", "18")
	if spec.Gray {
		args = append(args, "-pix_fmt", "gray")
	} else {
		args = append(args, "-pix_fmt", "yuv420p")
	}
	args = append(args, spec.Output)
	return c.run(ctx, args, nil)
}

// FlatSpec describes a constant-value placeholder clip.
type FlatSpec struct {
	Output     string
	Width      int
	Height     int
	FPS        float64
	FrameCount int64
	// Value is the constant gray level (0-255).
	Value int
}

// SynthesizeFlat produces a constant-value gray clip with an exact frame
// count, used as the fallback depth unit when inference is skipped or fails.
func (c *Client) SynthesizeFlat(ctx context.Context, spec FlatSpec) error {
	if spec.Output == "" {
		return errors.New("flat: output required")
	}
	if spec.Width <= 0 || spec.Height <= 0 || spec.FPS <= 0 || spec.FrameCount <= 0 {
		return errors.New("flat: positive geometry, fps, and frame count required")
	}
	value := spec.Value
	if value < 0 {
		value = 0
	}
	if value > 255 {
		value = 255
	}

	source := fmt.Sprintf("color=c=0x%02x%02x%02x:s=%dx%d:r=%s",
		value, value, value, spec.Width, spec.Height, formatFPS(spec.FPS))
	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", source,
		"-frames:v", strconv.FormatInt(spec.FrameCount, 10),
		"-fps_mode", "cfr",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "18",
		"-pix_fmt", "gray",
		spec.Output,
	}
	return c.run(ctx, args, nil)
}

// GrayFramesSpec describes an encode of raw gray8 frames arriving on stdin.
type GrayFramesSpec struct {
	Output string
	Width  int
	Height int
	FPS    float64
}

// EncodeGrayFrames encodes a raw gray8 frame sequence from reader into a
// video at the given rate. This is the first pass of the scene depth encode;
// the caller re-conforms the result against the scene's RGB unit afterwards.
func (c *Client) EncodeGrayFrames(ctx context.Context, spec GrayFramesSpec, frames io.Reader) error {
	if spec.Output == "" {
		return errors.New("gray encode: output required")
	}
	if spec.Width <= 0 || spec.Height <= 0 || spec.FPS <= 0 {
		return errors.New("gray encode: positive geometry and fps required")
	}
	if frames == nil {
		return errors.New("gray encode: frame reader required")
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"-s", fmt.Sprintf("%dx%d", spec.Width, spec.Height),
		"-r", formatFPS(spec.FPS),
		"-i", "pipe:0",
		"-fps_mode", "cfr",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "18",
		"-pix_fmt", "gray",
		spec.Output,
	}
	return c.run(ctx, args, frames)
}

// formatFPS renders a frame rate without trailing float noise; common NTSC
// rates keep their exact rational form.
func formatFPS(fps float64) string {
	switch fps {
	case 23.976:
		return "24000/1001"
	case 29.97:
		return "30000/1001"
	case 59.94:
		return "60000/1001"
	}
	return strconv.FormatFloat(fps, 'f', -1, 64)
}
