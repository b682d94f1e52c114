package scene

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"parallax/internal/npz"
)

func TestCanonicalizeFramesFirst(t *testing.T) {
	arr := npz.Array{Shape: []int{3, 4, 6}, Data: make([]float32, 72)}
	volume, err := Canonicalize(arr)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if volume.Frames != 3 || volume.Height != 4 || volume.Width != 6 {
		t.Errorf("volume = (%d,%d,%d), want (3,4,6)", volume.Frames, volume.Height, volume.Width)
	}
}

func TestCanonicalizeTransposesTrailingFrameAxis(t *testing.T) {
	// (height=2, width=3, frames=2): frame axis is smallest and trails.
	data := []float32{
		// h=0: (w,f) pairs
		1, 10, 2, 20, 3, 30,
		// h=1
		4, 40, 5, 50, 6, 60,
	}
	volume, err := Canonicalize(npz.Array{Shape: []int{2, 3, 2}, Data: data})
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if volume.Frames != 2 || volume.Height != 2 || volume.Width != 3 {
		t.Fatalf("volume = (%d,%d,%d), want (2,2,3)", volume.Frames, volume.Height, volume.Width)
	}

	wantFrame0 := []float32{1, 2, 3, 4, 5, 6}
	wantFrame1 := []float32{10, 20, 30, 40, 50, 60}
	if diff := cmp.Diff(wantFrame0, volume.Frame(0)); diff != "" {
		t.Errorf("frame 0 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantFrame1, volume.Frame(1)); diff != "" {
		t.Errorf("frame 1 mismatch (-want +got):\n%s", diff)
	}
}

func TestCanonicalizeSingleFrame(t *testing.T) {
	volume, err := Canonicalize(npz.Array{Shape: []int{4, 6}, Data: make([]float32, 24)})
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if volume.Frames != 1 || volume.Height != 4 || volume.Width != 6 {
		t.Errorf("volume = (%d,%d,%d), want (1,4,6)", volume.Frames, volume.Height, volume.Width)
	}
}

func TestResampleFrames(t *testing.T) {
	base := DepthVolume{Frames: 3, Height: 1, Width: 1, Data: []float32{1, 2, 3}}

	expanded, err := ResampleFrames(base, 5)
	if err != nil {
		t.Fatalf("ResampleFrames: %v", err)
	}
	if diff := cmp.Diff([]float32{1, 2, 2, 3, 3}, expanded.Data); diff != "" {
		t.Errorf("expanded mismatch (-want +got):\n%s", diff)
	}

	reduced, err := ResampleFrames(base, 2)
	if err != nil {
		t.Fatalf("ResampleFrames: %v", err)
	}
	if diff := cmp.Diff([]float32{1, 3}, reduced.Data); diff != "" {
		t.Errorf("reduced mismatch (-want +got):\n%s", diff)
	}

	same, err := ResampleFrames(base, 3)
	if err != nil {
		t.Fatalf("ResampleFrames: %v", err)
	}
	if diff := cmp.Diff(base.Data, same.Data); diff != "" {
		t.Errorf("identity resample mismatch (-want +got):\n%s", diff)
	}

	if _, err := ResampleFrames(base, 0); err == nil {
		t.Fatal("ResampleFrames accepted zero target")
	}
}

func TestMeasure(t *testing.T) {
	volume := DepthVolume{
		Frames: 3,
		Height: 2,
		Width:  2,
		Data: []float32{
			5, 6, 7, 8,
			1, 2, 3, 4,
			9, 10, 11, 12,
		},
	}
	stats := Measure(volume)
	if stats.MinDepth != 1 || stats.MaxDepth != 12 {
		t.Errorf("min/max = %v/%v, want 1/12", stats.MinDepth, stats.MaxDepth)
	}
	// Middle frame sorted: [1 2 3 4]; 35th percentile index = int(0.35*3) = 1.
	if stats.ScreenDist != 2 {
		t.Errorf("screen distance = %v, want 2", stats.ScreenDist)
	}
}

func TestNormalizeGray8(t *testing.T) {
	volume := DepthVolume{Frames: 1, Height: 1, Width: 3, Data: []float32{2, 4, 6}}
	gray := NormalizeGray8(volume)
	want := []byte{0, 128, 255}
	for i := range want {
		if int(math.Abs(float64(gray[i])-float64(want[i]))) > 1 {
			t.Errorf("gray[%d] = %d, want about %d", i, gray[i], want[i])
		}
	}

	flat := NormalizeGray8(DepthVolume{Frames: 1, Height: 1, Width: 2, Data: []float32{7, 7}})
	if flat[0] != 0 || flat[1] != 0 {
		t.Errorf("constant volume normalized to %v, want zeros", flat)
	}
}
