package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ChunkCoord identifies a chunk in chunk space. Neighbouring chunks differ by
// one in X or Y.
type ChunkCoord struct {
	X int
	Y int
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Position returns the centre of the chunk in viewer space.
func (c ChunkCoord) Position(chunkSize int) mgl64.Vec2 {
	return mgl64.Vec2{float64(c.X * chunkSize), float64(c.Y * chunkSize)}
}

// CoordForPosition returns the chunk whose centre is nearest to pos. Halfway
// positions round to the even coordinate.
func CoordForPosition(pos mgl64.Vec2, chunkSize int) ChunkCoord {
	size := float64(chunkSize)
	return ChunkCoord{
		X: int(math.RoundToEven(pos.X() / size)),
		Y: int(math.RoundToEven(pos.Y() / size)),
	}
}

// Bounds is an axis-aligned rectangle with inclusive Min and Max corners.
type Bounds struct {
	Min mgl64.Vec2
	Max mgl64.Vec2
}

// BoundsAround returns the square of side size centred on centre.
func BoundsAround(centre mgl64.Vec2, size float64) Bounds {
	half := mgl64.Vec2{size / 2, size / 2}
	return Bounds{Min: centre.Sub(half), Max: centre.Add(half)}
}

// SqrDistance is the squared distance from p to the nearest point of b, zero
// when p is inside.
func (b Bounds) SqrDistance(p mgl64.Vec2) float64 {
	dx := axisGap(p.X(), b.Min.X(), b.Max.X())
	dy := axisGap(p.Y(), b.Min.Y(), b.Max.Y())
	return dx*dx + dy*dy
}

func (b Bounds) Distance(p mgl64.Vec2) float64 {
	return math.Sqrt(b.SqrDistance(p))
}

func axisGap(v, lo, hi float64) float64 {
	if v < lo {
		return lo - v
	}
	if v > hi {
		return v - hi
	}
	return 0
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
