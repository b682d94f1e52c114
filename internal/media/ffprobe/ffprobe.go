package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	AvgFrame   string `json:"avg_frame_rate"`
	TimeBase   string `json:"time_base"`
	NBFrames   string `json:"nb_frames"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Rational is an exact num/den pair as reported by ffprobe (e.g. "24000/1001").
type Rational struct {
	Num int64
	Den int64
}

// Float returns the rational as a float64, or 0 for a zero denominator.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// IsZero reports whether the rational is unset.
func (r Rational) IsZero() bool { return r.Num == 0 && r.Den == 0 }

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// ParseRational parses "num/den" or a bare integer string.
func ParseRational(value string) (Rational, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return Rational{}, errors.New("empty rational")
	}
	if num, den, found := strings.Cut(cleaned, "/"); found {
		n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("rational numerator %q: %w", num, err)
		}
		d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("rational denominator %q: %w", den, err)
		}
		return Rational{Num: n, Den: d}, nil
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("rational %q: %w", cleaned, err)
	}
	return Rational{Num: n, Den: 1}, nil
}

// VideoInfo summarizes the first video stream of a container.
type VideoInfo struct {
	Width     int
	Height    int
	Codec     string
	BitRate   int64
	Duration  float64
	FrameRate Rational
	TimeBase  Rational
	NBFrames  int64
}

// FPS returns the stream frame rate as a float.
func (v VideoInfo) FPS() float64 { return v.FrameRate.Float() }

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Video returns the properties of the first video stream, or an error when
// the container has none.
func (r Result) Video() (VideoInfo, error) {
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		info := VideoInfo{
			Width:   stream.Width,
			Height:  stream.Height,
			Codec:   stream.CodecName,
			BitRate: int64(parseFloat(stream.BitRate)),
		}
		info.Duration = parseFloat(stream.Duration)
		if info.Duration == 0 {
			info.Duration = r.DurationSeconds()
		}
		if rate, err := ParseRational(stream.RFrameRate); err == nil {
			info.FrameRate = rate
		}
		if info.FrameRate.IsZero() || info.FrameRate.Float() == 0 {
			if rate, err := ParseRational(stream.AvgFrame); err == nil {
				info.FrameRate = rate
			}
		}
		if tb, err := ParseRational(stream.TimeBase); err == nil {
			info.TimeBase = tb
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(stream.NBFrames), 10, 64); err == nil {
			info.NBFrames = n
		}
		return info, nil
	}
	return VideoInfo{}, fmt.Errorf("no video stream in %s", r.Format.Filename)
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	rate := parseFloat(r.Format.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
