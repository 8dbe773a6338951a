package terrain

import "testing"

func TestFalloffMapRangeAndSymmetry(t *testing.T) {
	const size = 33
	m := FalloffMap(size)
	if m.Width != size || m.Height != size {
		t.Fatalf("falloff extent %dx%d, want %dx%d", m.Width, m.Height, size, size)
	}
	for j := 0; j < size; j++ {
		for i := 0; i < size; i++ {
			v := m.At(i, j)
			if v < 0 || v > 1 {
				t.Fatalf("falloff(%d,%d) = %v outside [0,1]", i, j, v)
			}
			if v != m.At(j, i) {
				t.Fatalf("falloff not symmetric at (%d,%d)", i, j)
			}
		}
	}
	centre := m.At(size/2, size/2)
	edge := m.At(0, size/2)
	if centre >= 0.01 {
		t.Fatalf("centre falloff = %v, want near 0", centre)
	}
	if edge != 1 {
		t.Fatalf("edge falloff = %v, want 1", edge)
	}
}

func TestApplyFalloffClampsInPlace(t *testing.T) {
	heights := NewHeightMap(3, 2)
	copy(heights.Values, []float64{0.75, 1.8, -0.2, 0.9, 0.125, 7})
	mask := NewHeightMap(2, 2)
	copy(mask.Values, []float64{0.25, 0.5, 1, 0})

	ApplyFalloff(heights, mask)

	want := []float64{0.5, 1, -0.2, 0, 0.125, 7}
	for i, v := range heights.Values {
		if v != want[i] {
			t.Fatalf("cell %d = %v, want %v", i, v, want[i])
		}
	}
}
