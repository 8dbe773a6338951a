package terrain

import "math"

const (
	falloffCurve = 3
	falloffShift = 2.2
)

// FalloffMap builds a size x size island mask. Values are near 0 in the centre
// and approach 1 at the edges.
func FalloffMap(size int) *HeightMap {
	out := NewHeightMap(size, size)
	for j := 0; j < out.Height; j++ {
		for i := 0; i < out.Width; i++ {
			x := float64(i)/float64(size)*2 - 1
			y := float64(j)/float64(size)*2 - 1
			v := math.Max(math.Abs(x), math.Abs(y))
			out.Set(i, j, falloffValue(v))
		}
	}
	return out
}

func falloffValue(v float64) float64 {
	a := math.Pow(v, falloffCurve)
	b := math.Pow(falloffShift-falloffShift*v, falloffCurve)
	if a+b == 0 {
		return 0
	}
	return a / (a + b)
}

// ApplyFalloff subtracts the mask from the overlapping window of heights and
// clamps the result into [0,1]. Cells outside the mask are left untouched.
func ApplyFalloff(heights, falloff *HeightMap) {
	w := min(heights.Width, falloff.Width)
	h := min(heights.Height, falloff.Height)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			heights.Set(x, y, clamp01(heights.At(x, y)-falloff.At(x, y)))
		}
	}
}
