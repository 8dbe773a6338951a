package terrain

import (
	"fmt"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Basis is a coherent gradient-noise function sampled once per octave. Values
// fall roughly within [0,1].
type Basis interface {
	Eval2(x, y float64) float64
}

const (
	BasisSimplex = "simplex"
	BasisPerlin  = "perlin"
)

// NewBasis builds the named noise basis. An empty kind selects simplex.
func NewBasis(kind string, seed int64) (Basis, error) {
	switch kind {
	case "", BasisSimplex:
		return opensimplex.NewNormalized(seed), nil
	case BasisPerlin:
		// One octave only; the NoiseField does its own fractal summation.
		return perlinBasis{p: perlin.NewPerlin(2, 2, 1, seed)}, nil
	default:
		return nil, fmt.Errorf("unknown noise basis %q", kind)
	}
}

type perlinBasis struct {
	p *perlin.Perlin
}

func (b perlinBasis) Eval2(x, y float64) float64 {
	return (b.p.Noise2D(x, y) + 1) * 0.5
}
