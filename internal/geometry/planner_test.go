package geometry

import (
	"testing"

	"parallax/internal/logging"
)

func TestComputeCanonical1080p(t *testing.T) {
	planner := NewPlanner(logging.NewNop())
	plan, err := planner.Compute(Input{
		SourceWidth:       1920,
		SourceHeight:      1080,
		ResolutionCeiling: 720,
		Divisor:           14,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if plan.DepthWidth != 720 || plan.DepthHeight != 406 {
		t.Errorf("depth dimensions = %dx%d, want 720x406", plan.DepthWidth, plan.DepthHeight)
	}
	if plan.RGBWidth != 1916 || plan.RGBHeight != 1080 {
		t.Errorf("rgb dimensions = %dx%d, want 1916x1080", plan.RGBWidth, plan.RGBHeight)
	}
	if plan.CropLeft != 2 || plan.CropRight != 2 {
		t.Errorf("crop = %d/%d, want 2/2", plan.CropLeft, plan.CropRight)
	}
}

func TestComputeProperties(t *testing.T) {
	cases := []struct {
		name    string
		w, h, r int
	}{
		{"1080p/720", 1920, 1080, 720},
		{"4k/720", 3840, 2160, 720},
		{"720p/518", 1280, 720, 518},
		{"sd/504", 720, 576, 504},
		{"vertical/392", 1080, 1920, 392},
	}

	planner := NewPlanner(logging.NewNop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := planner.Compute(Input{
				SourceWidth:       tc.w,
				SourceHeight:      tc.h,
				ResolutionCeiling: tc.r,
				Divisor:           14,
			})
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}

			for name, dim := range map[string]int{
				"rgb width":    plan.RGBWidth,
				"rgb height":   plan.RGBHeight,
				"depth width":  plan.DepthWidth,
				"depth height": plan.DepthHeight,
			} {
				if dim%2 != 0 {
					t.Errorf("%s = %d, want even", name, dim)
				}
			}
			if plan.DepthHeight%14 != 0 {
				t.Errorf("depth height %d not a multiple of 14", plan.DepthHeight)
			}
			if plan.DepthWidth > tc.r {
				t.Errorf("depth width %d exceeds ceiling %d", plan.DepthWidth, tc.r)
			}
			if delta := plan.AspectDelta(); delta > PlanTolerance {
				t.Errorf("aspect delta %.6f exceeds plan tolerance", delta)
			}
			if plan.CropLeft < plan.CropRight {
				t.Errorf("crop split %d/%d not left-biased", plan.CropLeft, plan.CropRight)
			}
			if total := plan.CropTotal(); total > tc.w/10 {
				t.Errorf("crop total %d exceeds 10%% of width %d", total, tc.w)
			}
		})
	}
}

func TestComputeOddCeilingRoundsDown(t *testing.T) {
	planner := NewPlanner(logging.NewNop())
	plan, err := planner.Compute(Input{
		SourceWidth:       1920,
		SourceHeight:      1080,
		ResolutionCeiling: 721,
		Divisor:           14,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if plan.DepthWidth != 720 {
		t.Errorf("depth width = %d, want odd ceiling rounded down to 720", plan.DepthWidth)
	}
}

func TestComputeInfeasibleInputs(t *testing.T) {
	planner := NewPlanner(logging.NewNop())
	cases := []struct {
		name string
		in   Input
	}{
		{"zero source", Input{ResolutionCeiling: 720, Divisor: 14}},
		{"ceiling above source", Input{SourceWidth: 640, SourceHeight: 480, ResolutionCeiling: 720, Divisor: 14}},
		{"zero divisor", Input{SourceWidth: 1920, SourceHeight: 1080, ResolutionCeiling: 720}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := planner.Compute(tc.in); err == nil {
				t.Fatal("Compute succeeded, want error")
			}
		})
	}
}
