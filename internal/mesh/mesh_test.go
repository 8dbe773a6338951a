package mesh

import (
	"math"
	"testing"

	"terrainstream/internal/terrain"
)

func flatHeights(size int, v float64) *terrain.HeightMap {
	h := terrain.NewHeightMap(size, size)
	for i := range h.Values {
		h.Values[i] = v
	}
	return h
}

func TestBuildVertexCountsPerLOD(t *testing.T) {
	heights := flatHeights(241, 0.5)
	tests := []struct {
		lod     int
		perLine int
	}{
		{lod: 0, perLine: 241},
		{lod: 1, perLine: 121},
		{lod: 2, perLine: 61},
		{lod: 4, perLine: 31},
		{lod: 6, perLine: 21},
	}
	for _, tt := range tests {
		data := Builder{}.Build(heights, 10, tt.lod)
		if got := len(data.Vertices); got != tt.perLine*tt.perLine {
			t.Fatalf("lod %d: vertices = %d, want %d", tt.lod, got, tt.perLine*tt.perLine)
		}
		if got, want := data.TriangleCount(), 2*(tt.perLine-1)*(tt.perLine-1); got != want {
			t.Fatalf("lod %d: triangles = %d, want %d", tt.lod, got, want)
		}
		if len(data.Normals) != len(data.Vertices) || len(data.UVs) != len(data.Vertices) {
			t.Fatalf("lod %d: attribute lengths differ", tt.lod)
		}
		if data.LOD != tt.lod {
			t.Fatalf("lod = %d, want %d", data.LOD, tt.lod)
		}
	}
}

func TestBuildCentresGridAndScalesHeight(t *testing.T) {
	data := Builder{}.Build(flatHeights(5, 0.5), 4, 0)
	first := data.Vertices[0]
	last := data.Vertices[len(data.Vertices)-1]
	if first.X() != -2 || first.Z() != 2 {
		t.Fatalf("first vertex = %v, want x=-2 z=2", first)
	}
	if last.X() != 2 || last.Z() != -2 {
		t.Fatalf("last vertex = %v, want x=2 z=-2", last)
	}
	if first.Y() != 2 {
		t.Fatalf("height = %v, want 2", first.Y())
	}
}

func TestBuildTriangleIndicesInRange(t *testing.T) {
	for _, size := range []int{2, 7, 10, 241} {
		for lod := 0; lod <= 3; lod++ {
			data := Builder{}.Build(flatHeights(size, 0), 1, lod)
			for _, idx := range data.Triangles {
				if idx < 0 || int(idx) >= len(data.Vertices) {
					t.Fatalf("size %d lod %d: index %d out of %d vertices", size, lod, idx, len(data.Vertices))
				}
			}
		}
	}
}

func TestFlatMeshNormalsPointUp(t *testing.T) {
	data := Builder{}.Build(flatHeights(9, 0.3), 20, 1)
	for i, n := range data.Normals {
		if math.Abs(float64(n.Len())-1) > 1e-5 {
			t.Fatalf("normal %d not unit length: %v", i, n)
		}
		if math.Abs(float64(n.Y())-1) > 1e-5 {
			t.Fatalf("normal %d = %v, want up", i, n)
		}
	}
}
