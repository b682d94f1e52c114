package scene

import (
	"fmt"
	"math"
	"sort"

	"parallax/internal/npz"
)

// ScreenPercentile selects the depth value treated as the screen plane: the
// 35th percentile of the middle frame of the scene.
const ScreenPercentile = 0.35

// DepthVolume is a scene's depth data in canonical (frames, height, width)
// order.
type DepthVolume struct {
	Frames int
	Height int
	Width  int
	Data   []float32
}

// Frame returns the raw values of one frame.
func (v DepthVolume) Frame(index int) []float32 {
	size := v.Height * v.Width
	return v.Data[index*size : (index+1)*size]
}

// Canonicalize reorders a raw backend array into (frames, height, width).
// Backends disagree on axis order; the frame axis is identified as the
// smallest, and when it trails (height, width, frames) the volume is
// transposed. A 2-D array is a single frame.
func Canonicalize(arr npz.Array) (DepthVolume, error) {
	switch len(arr.Shape) {
	case 2:
		return DepthVolume{Frames: 1, Height: arr.Shape[0], Width: arr.Shape[1], Data: arr.Data}, nil
	case 3:
	default:
		return DepthVolume{}, fmt.Errorf("depth volume: unsupported shape %v", arr.Shape)
	}
	if arr.Len() != len(arr.Data) {
		return DepthVolume{}, fmt.Errorf("depth volume: shape %v does not cover %d elements", arr.Shape, len(arr.Data))
	}

	if arr.Shape[2] < arr.Shape[0] && arr.Shape[2] < arr.Shape[1] {
		return transposeHWF(arr), nil
	}
	return DepthVolume{Frames: arr.Shape[0], Height: arr.Shape[1], Width: arr.Shape[2], Data: arr.Data}, nil
}

func transposeHWF(arr npz.Array) DepthVolume {
	height, width, frames := arr.Shape[0], arr.Shape[1], arr.Shape[2]
	out := make([]float32, len(arr.Data))
	for h := 0; h < height; h++ {
		for w := 0; w < width; w++ {
			base := (h*width + w) * frames
			for f := 0; f < frames; f++ {
				out[f*height*width+h*width+w] = arr.Data[base+f]
			}
		}
	}
	return DepthVolume{Frames: frames, Height: height, Width: width, Data: out}
}

// ResampleFrames maps the volume onto exactly target frames by nearest-index
// selection over a linear index map. Duplication and dropping are both fine;
// what matters is that the output count matches the RGB unit exactly.
func ResampleFrames(v DepthVolume, target int64) (DepthVolume, error) {
	if target <= 0 {
		return DepthVolume{}, fmt.Errorf("depth volume: invalid target frame count %d", target)
	}
	if int64(v.Frames) == target {
		return v, nil
	}

	size := v.Height * v.Width
	out := make([]float32, int(target)*size)
	for i := int64(0); i < target; i++ {
		src := 0
		if target > 1 {
			src = int(math.Round(float64(i) * float64(v.Frames-1) / float64(target-1)))
		}
		if src >= v.Frames {
			src = v.Frames - 1
		}
		copy(out[int(i)*size:], v.Frame(src))
	}
	return DepthVolume{Frames: int(target), Height: v.Height, Width: v.Width, Data: out}, nil
}

// LoadVolume reads a backend depth archive and prepares it against the RGB
// unit: canonical axis order, measurements over the raw values, then frame
// resampling to the target count.
func LoadVolume(path string, targetFrames int64) (DepthVolume, Stats, error) {
	arr, err := npz.ReadDepth(path)
	if err != nil {
		return DepthVolume{}, Stats{}, err
	}
	volume, err := Canonicalize(arr)
	if err != nil {
		return DepthVolume{}, Stats{}, fmt.Errorf("%s: %w", path, err)
	}
	stats := Measure(volume)
	volume, err = ResampleFrames(volume, targetFrames)
	if err != nil {
		return DepthVolume{}, Stats{}, fmt.Errorf("%s: %w", path, err)
	}
	return volume, stats, nil
}

// Stats are a scene's raw depth measurements, taken before normalization so
// they stay comparable across scenes.
type Stats struct {
	MinDepth   float64
	MaxDepth   float64
	ScreenDist float64
}

// Measure computes min/max over the whole volume and the screen distance
// from the middle frame.
func Measure(v DepthVolume) Stats {
	if len(v.Data) == 0 {
		return Stats{}
	}
	min, max := v.Data[0], v.Data[0]
	for _, val := range v.Data {
		if val < min {
			min = val
		}
		if val > max {
			max = val
		}
	}

	middle := append([]float32(nil), v.Frame(v.Frames/2)...)
	sort.Slice(middle, func(i, j int) bool { return middle[i] < middle[j] })
	screen := middle[int(ScreenPercentile*float64(len(middle)-1))]

	return Stats{MinDepth: float64(min), MaxDepth: float64(max), ScreenDist: float64(screen)}
}

// NormalizeGray8 maps the volume's value range onto 0..255 gray, min to
// black and max to white. A degenerate (constant) volume maps to zero.
func NormalizeGray8(v DepthVolume) []byte {
	out := make([]byte, len(v.Data))
	if len(v.Data) == 0 {
		return out
	}
	min, max := v.Data[0], v.Data[0]
	for _, val := range v.Data {
		if val < min {
			min = val
		}
		if val > max {
			max = val
		}
	}
	span := max - min
	if span <= 0 {
		return out
	}
	for i, val := range v.Data {
		out[i] = byte(math.Round(float64(val-min) / float64(span) * 255))
	}
	return out
}
