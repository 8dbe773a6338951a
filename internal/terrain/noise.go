package terrain

import (
	"context"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"terrainstream/internal/config"
)

// octaveOffsetRange bounds the seed-derived per-octave sampling offsets.
const octaveOffsetRange = 100000

// HeightMap is a dense row-major grid of unnormalised height samples.
type HeightMap struct {
	Width  int
	Height int
	Values []float64
}

// NewHeightMap allocates a zeroed grid. Negative sizes are treated as zero.
func NewHeightMap(width, height int) *HeightMap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &HeightMap{
		Width:  width,
		Height: height,
		Values: make([]float64, width*height),
	}
}

func (h *HeightMap) index(x, y int) int {
	return y*h.Width + x
}

// At returns the sample at column x, row y.
func (h *HeightMap) At(x, y int) float64 {
	return h.Values[h.index(x, y)]
}

// Set stores v at column x, row y.
func (h *HeightMap) Set(x, y int, v float64) {
	h.Values[h.index(x, y)] = v
}

// NoiseParams describes one fractal noise configuration.
type NoiseParams struct {
	Seed        int64
	Scale       float64
	Octaves     int
	Persistence float64
	Lacunarity  float64
	Compensator float64
	Offset      mgl64.Vec2
}

// NoiseParamsFromConfig copies the noise settings out of the terrain section.
func NoiseParamsFromConfig(cfg config.TerrainConfig) NoiseParams {
	return NoiseParams{
		Seed:        cfg.Seed,
		Scale:       cfg.Scale,
		Octaves:     cfg.Octaves,
		Persistence: cfg.Persistence,
		Lacunarity:  cfg.Lacunarity,
		Compensator: cfg.Compensator,
		Offset:      mgl64.Vec2{cfg.Offset.X, cfg.Offset.Y},
	}
}

func (p NoiseParams) normalized() NoiseParams {
	if p.Scale < config.MinScale {
		p.Scale = config.MinScale
	}
	if p.Octaves < 0 {
		p.Octaves = 0
	}
	if p.Lacunarity < 1 {
		p.Lacunarity = 1
	}
	return p
}

// NoiseField samples multi-octave noise over arbitrary rectangular regions.
// It holds no mutable state, so one field may be shared by every worker.
type NoiseField struct {
	params  NoiseParams
	basis   Basis
	offsets []mgl64.Vec2
}

// NewNoiseField derives the per-octave offsets from the seed. The same seed
// always produces the same offsets.
func NewNoiseField(params NoiseParams, basis Basis) *NoiseField {
	params = params.normalized()
	prng := rand.New(rand.NewSource(params.Seed))
	offsets := make([]mgl64.Vec2, params.Octaves)
	for i := range offsets {
		offsets[i] = mgl64.Vec2{
			float64(prng.Intn(2*octaveOffsetRange) - octaveOffsetRange),
			float64(prng.Intn(2*octaveOffsetRange) - octaveOffsetRange),
		}
	}
	return &NoiseField{
		params:  params,
		basis:   basis,
		offsets: offsets,
	}
}

// Params returns the parameters after clamping.
func (f *NoiseField) Params() NoiseParams {
	return f.params
}

// Sample returns a freshly allocated width x height grid centred on origin.
// The origin's Y component is subtracted so that chunk-space Y grows the same
// way on screen as sample rows.
func (f *NoiseField) Sample(origin mgl64.Vec2, width, height int) *HeightMap {
	out, _ := f.SampleContext(context.Background(), origin, width, height)
	return out
}

// SampleContext is Sample with cancellation checked between rows.
func (f *NoiseField) SampleContext(ctx context.Context, origin mgl64.Vec2, width, height int) (*HeightMap, error) {
	out := NewHeightMap(width, height)
	if out.Width == 0 || out.Height == 0 {
		return out, nil
	}

	shift := origin.Add(f.params.Offset)
	octaves := make([]mgl64.Vec2, len(f.offsets))
	for i, off := range f.offsets {
		octaves[i] = mgl64.Vec2{off.X() + shift.X(), off.Y() - shift.Y()}
	}

	halfW := float64(out.Width) / 2
	halfH := float64(out.Height) / 2
	scale := f.params.Scale

	for y := 0; y < out.Height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < out.Width; x++ {
			amplitude := 1.0
			frequency := 1.0
			noiseHeight := 0.0

			for _, off := range octaves {
				sampleX := (float64(x) - halfW + off.X()) / scale * frequency
				sampleY := (float64(y) - halfH + off.Y()) / scale * frequency
				noiseHeight += f.basis.Eval2(sampleX, sampleY) * amplitude
				amplitude *= f.params.Persistence
				frequency *= f.params.Lacunarity
			}

			out.Values[out.index(x, y)] = noiseHeight * f.params.Compensator
		}
	}
	return out, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
