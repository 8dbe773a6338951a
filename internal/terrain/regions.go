package terrain

import (
	"fmt"
	"image/color"
	"sort"

	"terrainstream/internal/config"
)

// Band is one classification region. A cell belongs to the highest band whose
// Height it reaches.
type Band struct {
	Name   string
	Height float64
	Color  color.NRGBA
}

// SortBands orders bands ascending by threshold. Equal thresholds keep their
// configured order.
func SortBands(bands []Band) {
	sort.SliceStable(bands, func(i, j int) bool {
		return bands[i].Height < bands[j].Height
	})
}

// BandsFromConfig parses and sorts the configured regions.
func BandsFromConfig(regions []config.RegionConfig) ([]Band, error) {
	bands := make([]Band, 0, len(regions))
	for i, region := range regions {
		c, err := config.ParseColor(region.Color)
		if err != nil {
			return nil, fmt.Errorf("region %d (%s): %w", i, region.Name, err)
		}
		bands = append(bands, Band{Name: region.Name, Height: region.Height, Color: c})
	}
	SortBands(bands)
	return bands, nil
}

// Classification is the row-major category grid derived from a height map.
// Index holds the band index per cell, or -1 when the cell is below every band.
type Classification struct {
	Width  int
	Height int
	Index  []int
	Colors []color.NRGBA
}

func (c *Classification) At(x, y int) int {
	return c.Index[y*c.Width+x]
}

func (c *Classification) ColorAt(x, y int) color.NRGBA {
	return c.Colors[y*c.Width+x]
}

// Classify assigns a band to each cell of the top-left size x size window of
// heights. bands must already be sorted ascending.
func Classify(heights *HeightMap, bands []Band, size int) *Classification {
	if size > heights.Width {
		size = heights.Width
	}
	if size > heights.Height {
		size = heights.Height
	}
	if size < 0 {
		size = 0
	}

	out := &Classification{
		Width:  size,
		Height: size,
		Index:  make([]int, size*size),
		Colors: make([]color.NRGBA, size*size),
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			h := heights.At(x, y)
			idx := -1
			for i := range bands {
				if h < bands[i].Height {
					break
				}
				idx = i
			}
			cell := y*size + x
			out.Index[cell] = idx
			if idx >= 0 {
				out.Colors[cell] = bands[idx].Color
			}
		}
	}
	return out
}
