package world

import (
	"terrainstream/internal/mesh"
	"terrainstream/internal/terrain"
)

// Renderer receives finished chunk data. The manager never reads it back.
type Renderer interface {
	ApplyMapData(coord ChunkCoord, data *terrain.MapData)
	ApplyMesh(coord ChunkCoord, data *mesh.Data)
	SetVisible(coord ChunkCoord, visible bool)
	Release(coord ChunkCoord)
}

type NopRenderer struct{}

func (NopRenderer) ApplyMapData(ChunkCoord, *terrain.MapData) {}
func (NopRenderer) ApplyMesh(ChunkCoord, *mesh.Data)          {}
func (NopRenderer) SetVisible(ChunkCoord, bool)               {}
func (NopRenderer) Release(ChunkCoord)                        {}
