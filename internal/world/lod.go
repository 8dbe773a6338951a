package world

import (
	"errors"

	"terrainstream/internal/config"
)

// ErrNoDetailLevels is returned when a manager is configured without any
// detail level.
var ErrNoDetailLevels = errors.New("at least one detail level is required")

// DetailLevel pairs a mesh LOD with the farthest distance it is used at.
type DetailLevel struct {
	LOD             int
	VisibleDistance float64
}

func DetailLevelsFromConfig(levels []config.DetailLevel) []DetailLevel {
	out := make([]DetailLevel, len(levels))
	for i, l := range levels {
		out[i] = DetailLevel{LOD: l.LOD, VisibleDistance: l.VisibleDistance}
	}
	return out
}

// NormalizeDetailLevels returns a copy of levels whose thresholds strictly
// increase. A threshold not above its predecessor is raised to one past it.
func NormalizeDetailLevels(levels []DetailLevel) ([]DetailLevel, error) {
	if len(levels) == 0 {
		return nil, ErrNoDetailLevels
	}
	out := append([]DetailLevel(nil), levels...)
	for i := 1; i < len(out); i++ {
		if out[i].VisibleDistance <= out[i-1].VisibleDistance {
			out[i].VisibleDistance = out[i-1].VisibleDistance + 1
		}
	}
	return out, nil
}

// MaxViewDistance is the threshold of the coarsest level.
func MaxViewDistance(levels []DetailLevel) float64 {
	if len(levels) == 0 {
		return 0
	}
	return levels[len(levels)-1].VisibleDistance
}

// SelectLOD returns the index of the first level whose threshold distance does
// not exceed. Distances past every threshold select the last level.
func SelectLOD(levels []DetailLevel, distance float64) int {
	idx := 0
	for i := 0; i < len(levels)-1; i++ {
		if distance > levels[i].VisibleDistance {
			idx = i + 1
		} else {
			break
		}
	}
	return idx
}
