package pipeline

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"

	"terrainstream/internal/mesh"
	"terrainstream/internal/terrain"
)

// MapSource produces the map data of one chunk.
type MapSource interface {
	Generate(ctx context.Context, centre mgl64.Vec2) (*terrain.MapData, error)
}

// MeshBuilder triangulates a height map at a detail level.
type MeshBuilder interface {
	Build(heights *terrain.HeightMap, heightMultiplier float64, lod int) *mesh.Data
}

// Generator issues typed map and mesh requests through a Pipeline.
type Generator struct {
	pipeline         *Pipeline
	maps             MapSource
	meshes           MeshBuilder
	heightMultiplier float64
}

func NewGenerator(p *Pipeline, maps MapSource, meshes MeshBuilder, heightMultiplier float64) *Generator {
	return &Generator{
		pipeline:         p,
		maps:             maps,
		meshes:           meshes,
		heightMultiplier: heightMultiplier,
	}
}

func (g *Generator) RequestMapData(centre mgl64.Vec2, callback func(*terrain.MapData, error)) error {
	return Submit(g.pipeline, KindMapData, func(ctx context.Context) (*terrain.MapData, error) {
		return g.maps.Generate(ctx, centre)
	}, callback)
}

func (g *Generator) RequestMeshData(data *terrain.MapData, lod int, callback func(*mesh.Data, error)) error {
	heights := data.Heights
	return Submit(g.pipeline, KindMesh, func(ctx context.Context) (*mesh.Data, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return g.meshes.Build(heights, g.heightMultiplier, lod), nil
	}, callback)
}
