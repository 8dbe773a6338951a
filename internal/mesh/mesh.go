// Package mesh triangulates chunk height maps into renderable grids.
package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/terrain"
)

// Data is a triangle list over a regular grid of vertices.
type Data struct {
	Vertices  []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Triangles []int32
	LOD       int
}

func (d *Data) TriangleCount() int {
	return len(d.Triangles) / 3
}

// Builder is stateless; the zero value is ready for use from any goroutine.
type Builder struct{}

// Increment returns the sample stride used for a detail level.
func Increment(lod int) int {
	if lod <= 0 {
		return 1
	}
	return lod * 2
}

// VerticesPerLine is the number of vertices along one axis of a mesh built
// from size samples at lod.
func VerticesPerLine(size, lod int) int {
	if size <= 0 {
		return 0
	}
	return (size-1)/Increment(lod) + 1
}

// Build samples every Increment(lod)-th height and scales it by
// heightMultiplier. The grid is centred on the origin in XZ.
func (Builder) Build(heights *terrain.HeightMap, heightMultiplier float64, lod int) *Data {
	if lod < 0 {
		lod = 0
	}
	inc := Increment(lod)
	w, h := heights.Width, heights.Height
	perLine := VerticesPerLine(w, lod)
	lines := VerticesPerLine(h, lod)

	data := &Data{
		Vertices: make([]mgl32.Vec3, 0, perLine*lines),
		UVs:      make([]mgl32.Vec2, 0, perLine*lines),
		LOD:      lod,
	}
	if perLine > 1 && lines > 1 {
		data.Triangles = make([]int32, 0, (perLine-1)*(lines-1)*6)
	}

	topLeftX := float32(w-1) / -2
	topLeftZ := float32(h-1) / 2

	vertex := int32(0)
	stride := int32(perLine)
	for y := 0; y < h; y += inc {
		for x := 0; x < w; x += inc {
			data.Vertices = append(data.Vertices, mgl32.Vec3{
				topLeftX + float32(x),
				float32(heights.At(x, y) * heightMultiplier),
				topLeftZ - float32(y),
			})
			data.UVs = append(data.UVs, mgl32.Vec2{float32(x) / float32(w), float32(y) / float32(h)})

			if x+inc < w && y+inc < h {
				data.Triangles = append(data.Triangles,
					vertex, vertex+stride+1, vertex+stride,
					vertex+stride+1, vertex, vertex+1,
				)
			}
			vertex++
		}
	}

	data.Normals = smoothNormals(data.Vertices, data.Triangles)
	return data
}

func smoothNormals(vertices []mgl32.Vec3, triangles []int32) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(vertices))
	for i := 0; i+2 < len(triangles); i += 3 {
		a, b, c := triangles[i], triangles[i+1], triangles[i+2]
		face := vertices[b].Sub(vertices[a]).Cross(vertices[c].Sub(vertices[a]))
		normals[a] = normals[a].Add(face)
		normals[b] = normals[b].Add(face)
		normals[c] = normals[c].Add(face)
	}
	up := mgl32.Vec3{0, 1, 0}
	for i, n := range normals {
		if n.Len() == 0 {
			normals[i] = up
			continue
		}
		normals[i] = n.Normalize()
	}
	return normals
}
