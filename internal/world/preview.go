package world

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/alitto/pond/v2"
	"golang.org/x/image/draw"

	"terrainstream/internal/mesh"
	"terrainstream/internal/terrain"
)

// SavePreview writes img as a PNG, enlarged by scale with nearest-neighbour
// sampling so individual cells stay crisp.
func SavePreview(path string, img image.Image, scale int) error {
	if img == nil {
		return fmt.Errorf("preview image is nil")
	}
	if err := ensurePreviewDir(filepath.Dir(path)); err != nil {
		return err
	}
	if scale > 1 {
		b := img.Bounds()
		dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

// PreviewPath is the file name used for a chunk's preview inside dir.
func PreviewPath(dir string, coord ChunkCoord, suffix string) string {
	name := fmt.Sprintf("chunk_%d_%d", coord.X, coord.Y)
	if suffix != "" {
		name += "_" + suffix
	}
	return filepath.Join(dir, name+".png")
}

// PreviewRenderer writes a colour preview PNG for each chunk as soon as its
// map data arrives. Encoding runs on a private single-worker pool so the tick
// loop never waits on disk. Meshes and visibility are ignored.
type PreviewRenderer struct {
	dir    string
	scale  int
	logger *log.Logger
	writes pond.Pool
}

func NewPreviewRenderer(dir string, scale int, logger *log.Logger) *PreviewRenderer {
	if logger == nil {
		logger = log.New(log.Writer(), "preview ", log.LstdFlags|log.Lmicroseconds)
	}
	return &PreviewRenderer{dir: dir, scale: scale, logger: logger, writes: pond.NewPool(1)}
}

func (r *PreviewRenderer) ApplyMapData(coord ChunkCoord, data *terrain.MapData) {
	if data == nil || data.Classes == nil {
		return
	}
	path := PreviewPath(r.dir, coord, "")
	err := r.writes.Go(func() {
		if err := SavePreview(path, terrain.ColorTexture(data.Classes), r.scale); err != nil {
			r.logger.Printf("chunk %v preview failed: %v", coord, err)
		}
	})
	if err != nil {
		r.logger.Printf("chunk %v preview dropped: %v", coord, err)
	}
}

// Close waits for queued previews to be written. Later map data is dropped.
func (r *PreviewRenderer) Close() {
	r.writes.StopAndWait()
}

func (r *PreviewRenderer) ApplyMesh(ChunkCoord, *mesh.Data) {}
func (r *PreviewRenderer) SetVisible(ChunkCoord, bool)      {}
func (r *PreviewRenderer) Release(ChunkCoord)               {}

func ensurePreviewDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("output directory is empty")
	}
	return os.MkdirAll(dir, 0o755)
}
