package geometry

import (
	"fmt"
	"log/slog"
	"math"

	"parallax/internal/logging"
)

// PlanTolerance is the maximum relative aspect-ratio deviation a plan may
// carry between its RGB and depth dimensions. It is looser than the stream
// verifier's tolerance: integer rounding at depth resolution costs more
// relative aspect than the final streams carry, because the depth units are
// conformed to the RGB geometry before verification.
const PlanTolerance = 0.002

// maxCropFraction bounds how much of the source width a plan may discard
// before it is treated as infeasible rather than merely aggressive.
const maxCropFraction = 0.10

// Input holds the planner inputs.
type Input struct {
	SourceWidth  int
	SourceHeight int
	// ResolutionCeiling becomes the depth stream width.
	ResolutionCeiling int
	// Divisor is the depth model's spatial divisibility constraint.
	Divisor int
}

// Plan is the immutable geometry derivation for one run.
type Plan struct {
	SourceWidth  int `json:"source_width"`
	SourceHeight int `json:"source_height"`
	CropLeft     int `json:"crop_left"`
	CropRight    int `json:"crop_right"`
	RGBWidth     int `json:"rgb_width"`
	RGBHeight    int `json:"rgb_height"`
	DepthWidth   int `json:"depth_width"`
	DepthHeight  int `json:"depth_height"`
}

// CropTotal returns the total horizontal crop in pixels.
func (p Plan) CropTotal() int { return p.CropLeft + p.CropRight }

// RGBAspect returns the exact RGB aspect ratio from integer dimensions.
func (p Plan) RGBAspect() float64 {
	if p.RGBHeight == 0 {
		return 0
	}
	return float64(p.RGBWidth) / float64(p.RGBHeight)
}

// DepthAspect returns the exact depth aspect ratio from integer dimensions.
func (p Plan) DepthAspect() float64 {
	if p.DepthHeight == 0 {
		return 0
	}
	return float64(p.DepthWidth) / float64(p.DepthHeight)
}

// AspectDelta returns the relative deviation between the two aspect ratios.
func (p Plan) AspectDelta() float64 {
	depth := p.DepthAspect()
	if depth == 0 {
		return math.Inf(1)
	}
	return math.Abs(p.RGBAspect()-depth) / depth
}

// Planner computes geometry plans and logs their derivation.
type Planner struct {
	logger *slog.Logger
}

// NewPlanner constructs a planner. A nil logger is replaced with a no-op.
func NewPlanner(logger *slog.Logger) *Planner {
	return &Planner{logger: logging.NewComponentLogger(logger, "geometry")}
}

// Compute derives the aspect-matched crop plan.
//
// The depth width is pinned to the resolution ceiling; the depth height is
// the nearest even multiple of the divisor to the height preserving the
// original aspect. The RGB width is then re-derived from the *integer* depth
// dimensions so both streams share the depth stream's exact aspect, and the
// residual horizontal crop is split with the extra pixel biased left.
func (pl *Planner) Compute(in Input) (Plan, error) {
	if in.SourceWidth <= 0 || in.SourceHeight <= 0 {
		return Plan{}, fmt.Errorf("plan geometry: invalid source dimensions %dx%d", in.SourceWidth, in.SourceHeight)
	}
	if in.ResolutionCeiling < 2 {
		return Plan{}, fmt.Errorf("plan geometry: resolution ceiling %d too small", in.ResolutionCeiling)
	}
	if in.Divisor <= 0 {
		return Plan{}, fmt.Errorf("plan geometry: divisor must be positive, got %d", in.Divisor)
	}

	depthW := in.ResolutionCeiling - in.ResolutionCeiling%2
	if depthW > in.SourceWidth {
		return Plan{}, fmt.Errorf("plan geometry: depth width %d exceeds source width %d", depthW, in.SourceWidth)
	}

	sourceAspect := float64(in.SourceWidth) / float64(in.SourceHeight)
	idealDepthH := float64(depthW) / sourceAspect

	depthH := nearestEvenMultiple(idealDepthH, in.Divisor)
	if depthH <= 0 {
		return Plan{}, fmt.Errorf("plan geometry: no feasible depth height near %.2f with divisor %d", idealDepthH, in.Divisor)
	}

	// Recompute the aspect from the rounded integers, not the ideal float:
	// the verifier compares integer-derived ratios and the RGB width must
	// match what the depth stream actually carries.
	depthAspect := float64(depthW) / float64(depthH)

	rgbH := in.SourceHeight
	rgbW := roundToEven(float64(rgbH) * depthAspect)
	if rgbW <= 0 {
		return Plan{}, fmt.Errorf("plan geometry: derived RGB width %d is not usable", rgbW)
	}

	crop := in.SourceWidth - rgbW
	if crop < 0 {
		return Plan{}, fmt.Errorf("plan geometry: source width %d narrower than RGB target %d", in.SourceWidth, rgbW)
	}
	if float64(crop) > float64(in.SourceWidth)*maxCropFraction {
		return Plan{}, fmt.Errorf("plan geometry: crop of %d px exceeds %.0f%% of source width %d",
			crop, maxCropFraction*100, in.SourceWidth)
	}

	plan := Plan{
		SourceWidth:  in.SourceWidth,
		SourceHeight: in.SourceHeight,
		CropLeft:     crop/2 + crop%2,
		CropRight:    crop / 2,
		RGBWidth:     rgbW,
		RGBHeight:    rgbH,
		DepthWidth:   depthW,
		DepthHeight:  depthH,
	}

	pl.logger.Info("geometry plan derived",
		logging.String("source", fmt.Sprintf("%dx%d", in.SourceWidth, in.SourceHeight)),
		logging.String("rgb", fmt.Sprintf("%dx%d", plan.RGBWidth, plan.RGBHeight)),
		logging.String("depth", fmt.Sprintf("%dx%d", plan.DepthWidth, plan.DepthHeight)),
		logging.Int("crop_left", plan.CropLeft),
		logging.Int("crop_right", plan.CropRight),
		logging.Float64("ideal_depth_height", idealDepthH),
		logging.Float64("aspect_delta", plan.AspectDelta()),
	)

	if delta := plan.AspectDelta(); delta > PlanTolerance {
		return Plan{}, fmt.Errorf("plan geometry: aspect delta %.6f exceeds tolerance %.6f", delta, PlanTolerance)
	}
	return plan, nil
}

// nearestEvenMultiple returns the even multiple of divisor closest to target,
// searching outward and breaking ties toward the smaller value (the smaller
// height keeps the derived crop smaller).
func nearestEvenMultiple(target float64, divisor int) int {
	step := divisor
	if divisor%2 != 0 {
		step = divisor * 2
	}
	base := int(math.Round(target/float64(step))) * step
	if base <= 0 {
		base = step
	}

	lower := base
	for lower > 0 && math.Abs(float64(lower)-target) > math.Abs(float64(lower-step)-target) {
		lower -= step
	}
	higher := lower + step
	if lower <= 0 {
		return higher
	}
	if math.Abs(float64(higher)-target) < math.Abs(float64(lower)-target) {
		return higher
	}
	return lower
}

func roundToEven(value float64) int {
	rounded := int(math.Round(value / 2.0)) * 2
	return rounded
}
