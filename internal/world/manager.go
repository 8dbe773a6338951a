package world

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"terrainstream/internal/config"
	"terrainstream/internal/mesh"
	"terrainstream/internal/terrain"
)

// Requester schedules chunk generation. Callbacks must run on the goroutine
// that drives the Manager.
type Requester interface {
	RequestMapData(centre mgl64.Vec2, callback func(*terrain.MapData, error)) error
	RequestMeshData(data *terrain.MapData, lod int, callback func(*mesh.Data, error)) error
}

// Options configures chunk streaming. ChunkSize is measured in viewer space.
type Options struct {
	ChunkSize     int
	WorldScale    float64
	MoveThreshold float64
	DetailLevels  []DetailLevel
	MaxChunks     int
}

// OptionsFromConfig derives streaming options. Neighbouring chunk maps share
// their edge row, so chunks are spaced one cell closer than the map size.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ChunkSize:     cfg.Terrain.ChunkSize - 1,
		WorldScale:    cfg.Streaming.WorldScale,
		MoveThreshold: cfg.Streaming.MoveThreshold,
		DetailLevels:  DetailLevelsFromConfig(cfg.Streaming.DetailLevels),
		MaxChunks:     cfg.Streaming.MaxChunks,
	}
}

// ChunkSummary describes one visible chunk.
type ChunkSummary struct {
	Coord ChunkCoord
	State ChunkState
	LOD   int
}

// Stats counts the chunk table.
type Stats struct {
	Known      int
	Visible    int
	Pending    int
	Evicted    uint64
	Failures   uint64
	Recomputes uint64
}

// Manager keeps the set of known chunks around a moving viewer. It is not safe
// for concurrent use; every call, including pipeline callbacks, must come from
// one goroutine.
type Manager struct {
	opts      Options
	levels    []DetailLevel
	maxView   float64
	requester Requester
	renderer  Renderer
	logger    *log.Logger

	chunks  map[ChunkCoord]*Chunk
	visible []*Chunk

	viewer        mgl64.Vec2
	lastRecompute mgl64.Vec2
	started       bool

	recomputes uint64
	evicted    uint64
	failures   uint64
}

func NewManager(opts Options, requester Requester, renderer Renderer, logger *log.Logger) (*Manager, error) {
	if requester == nil {
		return nil, errors.New("requester is required")
	}
	if opts.ChunkSize < 1 {
		return nil, fmt.Errorf("chunk size %d must be positive", opts.ChunkSize)
	}
	if opts.WorldScale <= 0 {
		return nil, fmt.Errorf("world scale %g must be positive", opts.WorldScale)
	}
	levels, err := NormalizeDetailLevels(opts.DetailLevels)
	if err != nil {
		return nil, err
	}
	if renderer == nil {
		renderer = NopRenderer{}
	}
	if logger == nil {
		logger = log.New(log.Writer(), "world ", log.LstdFlags|log.Lmicroseconds)
	}
	opts.DetailLevels = levels
	return &Manager{
		opts:      opts,
		levels:    levels,
		maxView:   MaxViewDistance(levels),
		requester: requester,
		renderer:  renderer,
		logger:    logger,
		chunks:    make(map[ChunkCoord]*Chunk),
	}, nil
}

// Options returns the normalised options the manager runs with.
func (m *Manager) Options() Options {
	return m.opts
}

// DetailLevels returns a copy of the LOD table, nearest level first.
func (m *Manager) DetailLevels() []DetailLevel {
	return append([]DetailLevel(nil), m.levels...)
}

// Viewer is the last viewer position in viewer space.
func (m *Manager) Viewer() mgl64.Vec2 {
	return m.viewer
}

// UpdateViewer records a world-space viewer position. The visible set is
// recomputed on the first call and whenever the viewer has moved more than the
// move threshold since the last recompute. It reports whether it recomputed.
func (m *Manager) UpdateViewer(pos mgl64.Vec2) bool {
	m.viewer = pos.Mul(1 / m.opts.WorldScale)
	if m.started {
		moved := m.viewer.Sub(m.lastRecompute)
		if moved.Dot(moved) <= m.opts.MoveThreshold*m.opts.MoveThreshold {
			return false
		}
	}
	m.started = true
	m.lastRecompute = m.viewer
	m.recompute()
	return true
}

func (m *Manager) radius() int {
	return int(math.Ceil(m.maxView / float64(m.opts.ChunkSize)))
}

func (m *Manager) recompute() {
	m.recomputes++
	for _, c := range m.visible {
		c.tracked = false
		c.setVisible(false)
	}
	m.visible = m.visible[:0]

	centre := CoordForPosition(m.viewer, m.opts.ChunkSize)
	radius := m.radius()
	created := 0
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			coord := ChunkCoord{X: centre.X + dx, Y: centre.Y + dy}
			if c, ok := m.chunks[coord]; ok {
				c.refresh()
				continue
			}
			c := newChunk(m, coord)
			m.chunks[coord] = c
			created++
			c.requestMapData()
		}
	}
	if created > 0 {
		m.logger.Printf("viewer %v in chunk %v: created %d chunks, %d known, %d visible",
			m.viewer, centre, created, len(m.chunks), len(m.visible))
	}
	m.evict(centre, radius)
}

func (m *Manager) track(c *Chunk) {
	if c.tracked {
		return
	}
	c.tracked = true
	m.visible = append(m.visible, c)
}

// untrack drops a chunk that left view between recomputes, for example when a
// late mesh arrives after the viewer moved less than the move threshold.
func (m *Manager) untrack(c *Chunk) {
	if !c.tracked {
		return
	}
	c.tracked = false
	for i, v := range m.visible {
		if v == c {
			m.visible = append(m.visible[:i], m.visible[i+1:]...)
			return
		}
	}
}

// evict drops the farthest chunks outside the streaming square until the table
// fits MaxChunks. Chunks inside the square are never evicted.
func (m *Manager) evict(centre ChunkCoord, radius int) {
	if m.opts.MaxChunks <= 0 || len(m.chunks) <= m.opts.MaxChunks {
		return
	}
	var candidates []*Chunk
	for coord, c := range m.chunks {
		if absInt(coord.X-centre.X) > radius || absInt(coord.Y-centre.Y) > radius {
			candidates = append(candidates, c)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		di := candidates[i].bounds.SqrDistance(m.viewer)
		dj := candidates[j].bounds.SqrDistance(m.viewer)
		if di != dj {
			return di > dj
		}
		return lessCoord(candidates[i].coord, candidates[j].coord)
	})

	removed := 0
	for _, c := range candidates {
		if len(m.chunks) <= m.opts.MaxChunks {
			break
		}
		if c.tracked {
			continue
		}
		c.evicted = true
		delete(m.chunks, c.coord)
		m.renderer.Release(c.coord)
		removed++
	}
	m.evicted += uint64(removed)
	if removed > 0 {
		m.logger.Printf("evicted %d chunks, %d known", removed, len(m.chunks))
	}
}

func (m *Manager) Chunk(coord ChunkCoord) (*Chunk, bool) {
	c, ok := m.chunks[coord]
	return c, ok
}

func (m *Manager) ChunkCount() int {
	return len(m.chunks)
}

// VisibleChunks returns the coordinates tracked as visible, sorted by Y then X.
func (m *Manager) VisibleChunks() []ChunkCoord {
	out := make([]ChunkCoord, 0, len(m.visible))
	for _, c := range m.visible {
		out = append(out, c.coord)
	}
	sort.Slice(out, func(i, j int) bool { return lessCoord(out[i], out[j]) })
	return out
}

// Snapshot summarises every visible chunk in VisibleChunks order. LOD is the
// mesh LOD on display, or -1 while the first mesh is still being built.
func (m *Manager) Snapshot() []ChunkSummary {
	coords := m.VisibleChunks()
	out := make([]ChunkSummary, 0, len(coords))
	for _, coord := range coords {
		c := m.chunks[coord]
		lod := -1
		if c.applied >= 0 {
			lod = m.levels[c.applied].LOD
		}
		out = append(out, ChunkSummary{Coord: coord, State: c.State(), LOD: lod})
	}
	return out
}

func (m *Manager) Stats() Stats {
	stats := Stats{
		Known:      len(m.chunks),
		Visible:    len(m.visible),
		Evicted:    m.evicted,
		Failures:   m.failures,
		Recomputes: m.recomputes,
	}
	for _, c := range m.chunks {
		if c.mapData == nil {
			stats.Pending++
		}
	}
	return stats
}

func lessCoord(a, b ChunkCoord) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}
