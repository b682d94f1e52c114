package ffprobe

import (
	"math"
	"testing"
)

func TestParseRational(t *testing.T) {
	cases := []struct {
		input string
		want  Rational
	}{
		{"24000/1001", Rational{Num: 24000, Den: 1001}},
		{"1/90000", Rational{Num: 1, Den: 90000}},
		{"25", Rational{Num: 25, Den: 1}},
		{" 30000/1001 ", Rational{Num: 30000, Den: 1001}},
	}
	for _, tc := range cases {
		got, err := ParseRational(tc.input)
		if err != nil {
			t.Fatalf("ParseRational(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("ParseRational(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}

	for _, bad := range []string{"", "a/b", "24/"} {
		if _, err := ParseRational(bad); err == nil {
			t.Errorf("ParseRational(%q) accepted invalid input", bad)
		}
	}
}

func TestRationalFloat(t *testing.T) {
	rate := Rational{Num: 24000, Den: 1001}
	if got := rate.Float(); math.Abs(got-23.976) > 0.001 {
		t.Errorf("Float() = %v", got)
	}
	if got := (Rational{}).Float(); got != 0 {
		t.Errorf("zero-denominator Float() = %v, want 0", got)
	}
}

func TestResultVideo(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", CodecName: "aac"},
			{
				CodecType:  "video",
				CodecName:  "h264",
				Width:      1916,
				Height:     1080,
				RFrameRate: "24000/1001",
				TimeBase:   "1/90000",
				NBFrames:   "240",
				BitRate:    "4500000",
			},
		},
		Format: Format{Duration: "10.01"},
	}

	info, err := result.Video()
	if err != nil {
		t.Fatalf("Video: %v", err)
	}
	if info.Width != 1916 || info.Height != 1080 {
		t.Errorf("dimensions = %dx%d", info.Width, info.Height)
	}
	if info.FrameRate != (Rational{Num: 24000, Den: 1001}) {
		t.Errorf("frame rate = %v", info.FrameRate)
	}
	if info.TimeBase != (Rational{Num: 1, Den: 90000}) {
		t.Errorf("timebase = %v", info.TimeBase)
	}
	if info.NBFrames != 240 {
		t.Errorf("nb_frames = %d", info.NBFrames)
	}
	// Stream carries no duration, so the container duration applies.
	if info.Duration != 10.01 {
		t.Errorf("duration = %v", info.Duration)
	}
}

func TestResultVideoFallsBackToAvgFrameRate(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", RFrameRate: "0/0", AvgFrame: "25/1"},
		},
	}
	info, err := result.Video()
	if err != nil {
		t.Fatalf("Video: %v", err)
	}
	if info.FPS() != 25 {
		t.Errorf("fps = %v, want 25", info.FPS())
	}
}

func TestResultVideoMissingStream(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "audio"}}}
	if _, err := result.Video(); err == nil {
		t.Fatal("expected error for audio-only container")
	}
}

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
		},
		Format: Format{Duration: "123.45", BitRate: "32000"},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", BitRate: "nope"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}
