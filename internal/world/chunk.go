package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"terrainstream/internal/mesh"
	"terrainstream/internal/terrain"
)

type ChunkState int

const (
	ChunkAwaitingMapData ChunkState = iota
	ChunkInvisible
	ChunkVisible
)

func (s ChunkState) String() string {
	switch s {
	case ChunkAwaitingMapData:
		return "awaiting"
	case ChunkInvisible:
		return "invisible"
	case ChunkVisible:
		return "visible"
	default:
		return "unknown"
	}
}

// lodSlot caches the mesh of one detail level. requested stays set once a
// mesh arrives so the level is never built twice.
type lodSlot struct {
	lod       int
	mesh      *mesh.Data
	requested bool
}

// Chunk is the streaming state of one coordinate. It is owned by the Manager
// goroutine and never touched by workers.
type Chunk struct {
	coord    ChunkCoord
	position mgl64.Vec2
	bounds   Bounds
	manager  *Manager
	slots    []lodSlot
	mapData  *terrain.MapData
	applied  int
	visible  bool
	tracked  bool
	evicted  bool
	inFlight bool
}

func newChunk(m *Manager, coord ChunkCoord) *Chunk {
	size := m.opts.ChunkSize
	position := coord.Position(size)
	c := &Chunk{
		coord:    coord,
		position: position,
		bounds:   BoundsAround(position, float64(size)),
		manager:  m,
		slots:    make([]lodSlot, len(m.levels)),
		applied:  -1,
	}
	for i, level := range m.levels {
		c.slots[i].lod = level.LOD
	}
	return c
}

func (c *Chunk) Coord() ChunkCoord {
	return c.coord
}

// Position is the chunk centre in viewer space.
func (c *Chunk) Position() mgl64.Vec2 {
	return c.position
}

func (c *Chunk) Bounds() Bounds {
	return c.bounds
}

func (c *Chunk) State() ChunkState {
	switch {
	case c.mapData == nil:
		return ChunkAwaitingMapData
	case c.visible:
		return ChunkVisible
	default:
		return ChunkInvisible
	}
}

func (c *Chunk) Visible() bool {
	return c.visible
}

func (c *Chunk) MapData() *terrain.MapData {
	return c.mapData
}

// AppliedLOD is the index into the detail levels of the mesh currently shown,
// or -1 before any mesh has been applied.
func (c *Chunk) AppliedLOD() int {
	return c.applied
}

// HasMesh reports whether the mesh for detail index idx is cached.
func (c *Chunk) HasMesh(idx int) bool {
	return idx >= 0 && idx < len(c.slots) && c.slots[idx].mesh != nil
}

// MeshRequested reports whether detail index idx has been requested.
func (c *Chunk) MeshRequested(idx int) bool {
	return idx >= 0 && idx < len(c.slots) && c.slots[idx].requested
}

func (c *Chunk) requestMapData() {
	if c.inFlight || c.mapData != nil {
		return
	}
	c.inFlight = true
	m := c.manager
	if err := m.requester.RequestMapData(c.position, c.onMapData); err != nil {
		c.inFlight = false
		m.logger.Printf("chunk %v map request rejected: %v", c.coord, err)
	}
}

func (c *Chunk) onMapData(data *terrain.MapData, err error) {
	c.inFlight = false
	if c.evicted {
		return
	}
	m := c.manager
	if err != nil {
		m.failures++
		m.logger.Printf("chunk %v map generation failed, will retry: %v", c.coord, err)
		return
	}
	c.mapData = data
	m.renderer.ApplyMapData(c.coord, data)
	c.refresh()
}

func (c *Chunk) requestMesh(idx int) {
	slot := &c.slots[idx]
	slot.requested = true
	m := c.manager
	err := m.requester.RequestMeshData(c.mapData, slot.lod, func(data *mesh.Data, err error) {
		c.onMesh(idx, data, err)
	})
	if err != nil {
		slot.requested = false
		m.logger.Printf("chunk %v lod %d mesh request rejected: %v", c.coord, slot.lod, err)
	}
}

func (c *Chunk) onMesh(idx int, data *mesh.Data, err error) {
	if c.evicted {
		return
	}
	m := c.manager
	slot := &c.slots[idx]
	if err != nil {
		slot.requested = false
		m.failures++
		m.logger.Printf("chunk %v lod %d mesh generation failed, will retry: %v", c.coord, slot.lod, err)
		return
	}
	slot.mesh = data
	c.refresh()
}

// refresh re-evaluates visibility and detail level against the current viewer.
// A chunk whose map request failed asks again here.
func (c *Chunk) refresh() {
	if c.mapData == nil {
		c.requestMapData()
		return
	}
	m := c.manager
	dist := c.bounds.Distance(m.viewer)
	visible := dist <= m.maxView

	if visible {
		idx := SelectLOD(m.levels, dist)
		if idx != c.applied {
			slot := &c.slots[idx]
			switch {
			case slot.mesh != nil:
				c.applied = idx
				m.renderer.ApplyMesh(c.coord, slot.mesh)
			case !slot.requested:
				c.requestMesh(idx)
			}
		}
		m.track(c)
	} else {
		m.untrack(c)
	}
	c.setVisible(visible)
}

func (c *Chunk) setVisible(visible bool) {
	if c.visible == visible {
		return
	}
	c.visible = visible
	c.manager.renderer.SetVisible(c.coord, visible)
}
