package terrain

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"terrainstream/internal/config"
)

// MapData is the generated payload of one chunk. It is never mutated after
// Generate returns it.
type MapData struct {
	Heights *HeightMap
	Classes *Classification
}

// MapGenerator combines the noise field, falloff mask and region classifier
// into complete chunk maps.
type MapGenerator struct {
	field      *NoiseField
	bands      []Band
	chunkSize  int
	useFalloff bool
	falloff    *HeightMap
}

// NewMapGenerator builds the noise field, region bands and optional falloff
// mask described by cfg.
func NewMapGenerator(cfg config.TerrainConfig) (*MapGenerator, error) {
	if cfg.ChunkSize < 2 {
		return nil, fmt.Errorf("chunk size %d too small", cfg.ChunkSize)
	}
	basis, err := NewBasis(cfg.Basis, cfg.Seed)
	if err != nil {
		return nil, err
	}
	bands, err := BandsFromConfig(cfg.Regions)
	if err != nil {
		return nil, err
	}
	g := &MapGenerator{
		field:      NewNoiseField(NoiseParamsFromConfig(cfg), basis),
		bands:      bands,
		chunkSize:  cfg.ChunkSize,
		useFalloff: cfg.UseFalloff,
	}
	if g.useFalloff {
		g.falloff = FalloffMap(cfg.ChunkSize)
	}
	return g, nil
}

// ChunkSize is the number of classified cells per axis.
func (g *MapGenerator) ChunkSize() int {
	return g.chunkSize
}

func (g *MapGenerator) Bands() []Band {
	return g.bands
}

// Generate samples a bordered (chunkSize+2)^2 height map around centre and
// classifies its inner window.
func (g *MapGenerator) Generate(ctx context.Context, centre mgl64.Vec2) (*MapData, error) {
	size := g.chunkSize + 2
	heights, err := g.field.SampleContext(ctx, centre, size, size)
	if err != nil {
		return nil, fmt.Errorf("sample heights at %v: %w", centre, err)
	}
	if g.useFalloff {
		ApplyFalloff(heights, g.falloff)
	}
	return &MapData{
		Heights: heights,
		Classes: Classify(heights, g.bands, g.chunkSize),
	}, nil
}
