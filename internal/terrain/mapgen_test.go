package terrain

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"terrainstream/internal/config"
)

func smallTerrain() config.TerrainConfig {
	cfg := config.Default().Terrain
	cfg.ChunkSize = 9
	return cfg
}

func TestMapGeneratorDimensions(t *testing.T) {
	gen, err := NewMapGenerator(smallTerrain())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	data, err := gen.Generate(context.Background(), mgl64.Vec2{8, -8})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if data.Heights.Width != 11 || data.Heights.Height != 11 {
		t.Fatalf("heights %dx%d, want 11x11", data.Heights.Width, data.Heights.Height)
	}
	if data.Classes.Width != 9 || len(data.Classes.Index) != 81 {
		t.Fatalf("classes %dx%d (%d cells), want 9x9", data.Classes.Width, data.Classes.Height, len(data.Classes.Index))
	}
	if got := len(gen.Bands()); got != len(config.DefaultRegions()) {
		t.Fatalf("bands = %d", got)
	}
}

func TestMapGeneratorDeterministic(t *testing.T) {
	a, err := NewMapGenerator(smallTerrain())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	b, err := NewMapGenerator(smallTerrain())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	centre := mgl64.Vec2{-16, 32}
	da, _ := a.Generate(context.Background(), centre)
	db, _ := b.Generate(context.Background(), centre)
	if !sameBits(da.Heights, db.Heights) || !reflect.DeepEqual(da.Classes, db.Classes) {
		t.Fatalf("generators with the same config disagree")
	}
}

func TestMapGeneratorFalloffClampsWindow(t *testing.T) {
	cfg := smallTerrain()
	cfg.UseFalloff = true
	gen, err := NewMapGenerator(cfg)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	data, err := gen.Generate(context.Background(), mgl64.Vec2{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for y := 0; y < cfg.ChunkSize; y++ {
		for x := 0; x < cfg.ChunkSize; x++ {
			if v := data.Heights.At(x, y); v < 0 || v > 1 {
				t.Fatalf("height (%d,%d) = %v outside [0,1]", x, y, v)
			}
		}
	}
}

func TestMapGeneratorHonoursCancellation(t *testing.T) {
	gen, err := NewMapGenerator(smallTerrain())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gen.Generate(ctx, mgl64.Vec2{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewMapGeneratorRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.TerrainConfig)
	}{
		{name: "chunk size", mutate: func(c *config.TerrainConfig) { c.ChunkSize = 1 }},
		{name: "basis", mutate: func(c *config.TerrainConfig) { c.Basis = "value" }},
		{name: "colour", mutate: func(c *config.TerrainConfig) { c.Regions = []config.RegionConfig{{Name: "x", Color: "#12"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallTerrain()
			tt.mutate(&cfg)
			if _, err := NewMapGenerator(cfg); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestTextures(t *testing.T) {
	heights := NewHeightMap(2, 1)
	copy(heights.Values, []float64{-1, 2})
	img := HeightTexture(heights)
	if got := img.NRGBAAt(0, 0); got.R != 0 || got.A != 0xff {
		t.Fatalf("low height pixel = %#v", got)
	}
	if got := img.NRGBAAt(1, 0); got.R != 0xff {
		t.Fatalf("high height pixel = %#v", got)
	}

	heights.Set(0, 0, 0.6)
	classes := Classify(heights, testBands(), 1)
	if got := ColorTexture(classes).NRGBAAt(0, 0); got != grey {
		t.Fatalf("colour pixel = %#v, want %#v", got, grey)
	}
}
