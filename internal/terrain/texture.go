package terrain

import (
	"image"
	"image/color"
	"math"
)

// HeightTexture renders heights as greyscale, clamping samples into [0,1]
// before mapping them from black to white.
func HeightTexture(heights *HeightMap) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, heights.Width, heights.Height))
	for y := 0; y < heights.Height; y++ {
		for x := 0; x < heights.Width; x++ {
			g := uint8(math.Round(clamp01(heights.At(x, y)) * 255))
			img.SetNRGBA(x, y, color.NRGBA{R: g, G: g, B: g, A: 0xff})
		}
	}
	return img
}

// ColorTexture paints every classified cell with its band colour.
func ColorTexture(classes *Classification) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, classes.Width, classes.Height))
	for y := 0; y < classes.Height; y++ {
		for x := 0; x < classes.Width; x++ {
			img.SetNRGBA(x, y, classes.ColorAt(x, y))
		}
	}
	return img
}
