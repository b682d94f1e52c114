package verify

import (
	"context"
	"fmt"
	"math"

	"parallax/internal/media/ffprobe"
)

// Tolerances for the non-exact checks.
const (
	// AspectTolerance is the maximum relative aspect-ratio deviation (0.02%).
	AspectTolerance = 0.0002
	// FPSTolerance is the maximum frame-rate deviation.
	FPSTolerance = 0.001
	// DurationTolerance is the container-duration deviation below which no
	// advisory finding is raised.
	DurationTolerance = 0.001
)

// Severity classifies a finding.
type Severity string

const (
	// SeverityCritical findings block verification.
	SeverityCritical Severity = "critical"
	// SeverityAdvisory findings are logged but non-blocking.
	SeverityAdvisory Severity = "advisory"
)

// Check names the verification axis a finding belongs to.
type Check string

const (
	CheckAspectRatio Check = "aspect_ratio"
	CheckFrameCount  Check = "frame_count"
	CheckFrameRate   Check = "frame_rate"
	CheckDuration    Check = "duration"
	CheckTimebase    Check = "timebase"
	CheckEdgePTS     Check = "edge_pts"
	CheckPTSSequence Check = "pts_sequence"
)

// Finding is one itemized deviation between the two streams.
type Finding struct {
	Check    Check
	Severity Severity
	Detail   string
}

// Report is the verifier's full result for one stream pair.
type Report struct {
	Reference string
	Candidate string
	Findings  []Finding
}

// Verified reports whether zero critical findings exist.
func (r Report) Verified() bool {
	for _, finding := range r.Findings {
		if finding.Severity == SeverityCritical {
			return false
		}
	}
	return true
}

// Critical returns only the blocking findings.
func (r Report) Critical() []Finding {
	var critical []Finding
	for _, finding := range r.Findings {
		if finding.Severity == SeverityCritical {
			critical = append(critical, finding)
		}
	}
	return critical
}

// StreamProbe carries everything the verifier needs to know about one stream.
type StreamProbe struct {
	Path       string
	Width      int
	Height     int
	FrameRate  float64
	Duration   float64
	FrameCount int64
	// CountObtained is false when the frame count could not be decoded;
	// that inability is itself a critical finding, never a skipped check.
	CountObtained bool
	TimeBase      ffprobe.Rational
	PTS           []int64
	// PTSObtained is false when per-frame timestamps could not be
	// extracted. Same rule as CountObtained: critical, never skipped.
	PTSObtained bool
}

// Prober loads stream properties for verification.
type Prober interface {
	Probe(ctx context.Context, path string) (StreamProbe, error)
}

// Verifier compares stream pairs.
type Verifier struct {
	prober Prober
}

// New constructs a verifier over the given prober.
func New(prober Prober) *Verifier {
	return &Verifier{prober: prober}
}

// Verify probes both paths and compares them. Probe failures are returned as
// errors: a stream that cannot be inspected at all cannot be certified.
func (v *Verifier) Verify(ctx context.Context, reference, candidate string) (Report, error) {
	ref, err := v.prober.Probe(ctx, reference)
	if err != nil {
		return Report{}, fmt.Errorf("verify: probe reference: %w", err)
	}
	cand, err := v.prober.Probe(ctx, candidate)
	if err != nil {
		return Report{}, fmt.Errorf("verify: probe candidate: %w", err)
	}
	return Compare(ref, cand), nil
}

// Compare runs the seven checks over two probed streams.
func Compare(ref, cand StreamProbe) Report {
	report := Report{Reference: ref.Path, Candidate: cand.Path}
	add := func(check Check, severity Severity, format string, args ...any) {
		report.Findings = append(report.Findings, Finding{
			Check:    check,
			Severity: severity,
			Detail:   fmt.Sprintf(format, args...),
		})
	}

	// 1. Aspect ratio. Dimensions may differ; the ratio may not.
	refAspect := aspect(ref.Width, ref.Height)
	candAspect := aspect(cand.Width, cand.Height)
	switch {
	case refAspect == 0 || candAspect == 0:
		add(CheckAspectRatio, SeverityCritical, "unusable dimensions: %dx%d vs %dx%d",
			ref.Width, ref.Height, cand.Width, cand.Height)
	case math.Abs(refAspect-candAspect)/refAspect > AspectTolerance:
		add(CheckAspectRatio, SeverityCritical, "aspect %.6f (%dx%d) vs %.6f (%dx%d)",
			refAspect, ref.Width, ref.Height, candAspect, cand.Width, cand.Height)
	}

	// 2. Frame count. Uncountable streams are critical, not unknown.
	switch {
	case !ref.CountObtained:
		add(CheckFrameCount, SeverityCritical, "reference frame count unobtainable")
	case !cand.CountObtained:
		add(CheckFrameCount, SeverityCritical, "candidate frame count unobtainable")
	case ref.FrameCount != cand.FrameCount:
		add(CheckFrameCount, SeverityCritical, "frame counts differ: %d vs %d", ref.FrameCount, cand.FrameCount)
	}

	// 3. Frame rate.
	if math.Abs(ref.FrameRate-cand.FrameRate) > FPSTolerance {
		add(CheckFrameRate, SeverityCritical, "frame rates differ: %.6f vs %.6f", ref.FrameRate, cand.FrameRate)
	}

	// 4. Container duration. Absent PTS divergence this is container
	// metadata noise, so it never blocks on its own.
	if math.Abs(ref.Duration-cand.Duration) > DurationTolerance {
		add(CheckDuration, SeverityAdvisory, "container durations differ: %.6fs vs %.6fs", ref.Duration, cand.Duration)
	}

	// 5. Timebase. Tick comparison is meaningless across timebases, so a
	// mismatch is critical on its own and ends timestamp checking.
	if ref.TimeBase != cand.TimeBase {
		add(CheckTimebase, SeverityCritical, "timebases differ: %s vs %s", ref.TimeBase, cand.TimeBase)
		return report
	}

	// Checks 6 and 7 need tick evidence from both sides. A stream whose
	// timestamps cannot be extracted fails certification the same way an
	// uncountable stream does.
	if !ref.PTSObtained || len(ref.PTS) == 0 {
		add(CheckPTSSequence, SeverityCritical, "reference timestamps unobtainable")
		return report
	}
	if !cand.PTSObtained || len(cand.PTS) == 0 {
		add(CheckPTSSequence, SeverityCritical, "candidate timestamps unobtainable")
		return report
	}

	// 6. First/last PTS in integer ticks.
	if ref.PTS[0] != cand.PTS[0] {
		add(CheckEdgePTS, SeverityCritical, "first PTS differs: %d vs %d", ref.PTS[0], cand.PTS[0])
	}
	refLast := ref.PTS[len(ref.PTS)-1]
	candLast := cand.PTS[len(cand.PTS)-1]
	if refLast != candLast {
		add(CheckEdgePTS, SeverityCritical, "last PTS differs: %d vs %d", refLast, candLast)
	}

	// 7. Full sequence equality, the strongest check.
	if len(ref.PTS) != len(cand.PTS) {
		add(CheckPTSSequence, SeverityCritical, "PTS sequence lengths differ: %d vs %d", len(ref.PTS), len(cand.PTS))
	} else {
		for i := range ref.PTS {
			if ref.PTS[i] != cand.PTS[i] {
				add(CheckPTSSequence, SeverityCritical, "PTS differs at frame %d: %d vs %d", i, ref.PTS[i], cand.PTS[i])
				break
			}
		}
	}

	return report
}

func aspect(width, height int) float64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	return float64(width) / float64(height)
}
