package world

import (
	"image/color"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"terrainstream/internal/terrain"
)

func TestPreviewRendererWritesScaledColourMap(t *testing.T) {
	dir := t.TempDir()
	r := NewPreviewRenderer(dir, 3, log.New(io.Discard, "", 0))

	heights := terrain.NewHeightMap(4, 4)
	heights.Set(1, 0, 0.9)
	bands := []terrain.Band{
		{Name: "low", Height: 0, Color: color.NRGBA{B: 0xff, A: 0xff}},
		{Name: "high", Height: 0.5, Color: color.NRGBA{R: 0xff, A: 0xff}},
	}
	data := &terrain.MapData{Heights: heights, Classes: terrain.Classify(heights, bands, 2)}

	coord := ChunkCoord{X: -1, Y: 2}
	r.ApplyMapData(coord, data)
	r.Close()

	path := filepath.Join(dir, "chunk_-1_2.png")
	if PreviewPath(dir, coord, "") != path {
		t.Fatalf("preview path = %s", PreviewPath(dir, coord, ""))
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open preview: %v", err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 6 {
		t.Fatalf("preview size %dx%d, want 6x6", b.Dx(), b.Dy())
	}
	// Cell (1,0) covers pixels 3..5 of the first three rows.
	if got := color.NRGBAModel.Convert(img.At(4, 1)).(color.NRGBA); got.R != 0xff || got.B != 0 {
		t.Fatalf("high cell pixel = %#v", got)
	}
	if got := color.NRGBAModel.Convert(img.At(1, 4)).(color.NRGBA); got.B != 0xff || got.R != 0 {
		t.Fatalf("low cell pixel = %#v", got)
	}
}

func TestSavePreviewRejectsMissingImage(t *testing.T) {
	if err := SavePreview(filepath.Join(t.TempDir(), "x.png"), nil, 1); err == nil {
		t.Fatalf("expected error for nil image")
	}
}

func TestPreviewRendererCloseFlushesQueuedWrites(t *testing.T) {
	dir := t.TempDir()
	r := NewPreviewRenderer(dir, 1, log.New(io.Discard, "", 0))

	heights := terrain.NewHeightMap(2, 2)
	bands := []terrain.Band{{Name: "flat", Height: 0, Color: color.NRGBA{G: 0xff, A: 0xff}}}
	data := &terrain.MapData{Heights: heights, Classes: terrain.Classify(heights, bands, 2)}

	coords := []ChunkCoord{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: -1}}
	for _, c := range coords {
		r.ApplyMapData(c, data)
	}
	r.Close()
	for _, c := range coords {
		if _, err := os.Stat(PreviewPath(dir, c, "")); err != nil {
			t.Fatalf("preview for %v missing after close: %v", c, err)
		}
	}

	late := ChunkCoord{X: 5, Y: 5}
	r.ApplyMapData(late, data)
	if _, err := os.Stat(PreviewPath(dir, late, "")); !os.IsNotExist(err) {
		t.Fatalf("preview written after close: %v", err)
	}
}
