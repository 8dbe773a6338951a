package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"terrainstream/internal/config"
	"terrainstream/internal/mesh"
	"terrainstream/internal/pipeline"
	"terrainstream/internal/terrain"
	"terrainstream/internal/world"
)

type chunkResult struct {
	coord     world.ChunkCoord
	data      *terrain.MapData
	mapTime   time.Duration
	meshTime  time.Duration
	triangles int
	err       error
}

func main() {
	var (
		cfgPath    = flag.String("config", "", "path to terrain configuration file (defaults when empty)")
		radius     = flag.Int("radius", 2, "chunks generated on each side of the origin")
		lod        = flag.Int("lod", 0, "mesh detail level to build for every chunk")
		previewDir = flag.String("preview", "", "directory for colour and height previews (skipped when empty)")
		scale      = flag.Int("scale", 2, "preview upscale factor")
		workers    = flag.Int("workers", 0, "worker count override (0 keeps the configured value)")
	)
	flag.Parse()

	if *radius < 0 {
		fmt.Fprintln(os.Stderr, "radius cannot be negative")
		os.Exit(1)
	}

	cfg, notes, err := config.LoadWithNotes(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	for _, note := range notes {
		fmt.Fprintf(os.Stderr, "config: %s\n", note)
	}
	if *workers > 0 {
		cfg.Pipeline.Workers = *workers
	}

	maps, err := terrain.NewMapGenerator(cfg.Terrain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "terrain generator: %v\n", err)
		os.Exit(1)
	}

	jobs := pipeline.New(context.Background(), cfg.Pipeline, log.New(io.Discard, "", 0))
	defer jobs.Close()
	requests := pipeline.NewGenerator(jobs, maps, mesh.Builder{}, cfg.Terrain.HeightMultiplier)

	spacing := cfg.Terrain.ChunkSize - 1
	total := (2**radius + 1) * (2**radius + 1)
	results := make([]*chunkResult, 0, total)
	finished := 0

	startWall := time.Now()
	for y := -*radius; y <= *radius; y++ {
		for x := -*radius; x <= *radius; x++ {
			res := &chunkResult{coord: world.ChunkCoord{X: x, Y: y}}
			results = append(results, res)
			requested := time.Now()
			centre := res.coord.Position(spacing)
			err := requests.RequestMapData(centre, func(data *terrain.MapData, err error) {
				res.mapTime = time.Since(requested)
				if err != nil {
					res.err = err
					finished++
					return
				}
				res.data = data
				meshStart := time.Now()
				err = requests.RequestMeshData(data, *lod, func(m *mesh.Data, err error) {
					res.meshTime = time.Since(meshStart)
					res.err = err
					if m != nil {
						res.triangles = m.TriangleCount()
					}
					finished++
				})
				if err != nil {
					res.err = err
					finished++
				}
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "request chunk %v: %v\n", res.coord, err)
				os.Exit(1)
			}
		}
	}

	for finished < total {
		if jobs.Drain() == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	wallDuration := time.Since(startWall)

	var (
		mapTimes  []time.Duration
		meshTimes []time.Duration
		failures  int
		triangles int
	)
	for _, res := range results {
		if res.err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "chunk %v failed: %v\n", res.coord, res.err)
			continue
		}
		mapTimes = append(mapTimes, res.mapTime)
		meshTimes = append(meshTimes, res.meshTime)
		triangles += res.triangles
	}

	stats := jobs.Stats()
	fmt.Println("== Terrain Generation Profile ==")
	fmt.Printf("Seed: %d, basis: %s, falloff: %t\n", cfg.Terrain.Seed, cfg.Terrain.Basis, cfg.Terrain.UseFalloff)
	fmt.Printf("Chunks: %d (radius %d), map size %d, mesh LOD %d\n", total, *radius, cfg.Terrain.ChunkSize, *lod)
	fmt.Printf("Successes: %d, Failures: %d\n", total-failures, failures)
	fmt.Printf("Map latency p50 %s, p95 %s\n", percentile(mapTimes, 0.5), percentile(mapTimes, 0.95))
	fmt.Printf("Mesh latency p50 %s, p95 %s\n", percentile(meshTimes, 0.5), percentile(meshTimes, 0.95))
	fmt.Printf("Triangles built: %d\n", triangles)
	fmt.Printf("Jobs submitted %d, completed %d, delivered %d, failed %d\n",
		stats.Submitted, stats.Completed, stats.Delivered, stats.Failed)
	fmt.Printf("Wall clock duration: %s\n", wallDuration)
	if secs := wallDuration.Seconds(); secs > 0 {
		fmt.Printf("Throughput: %.1f chunks/s\n", float64(total-failures)/secs)
	}

	if *previewDir == "" {
		return
	}
	written := 0
	for _, res := range results {
		if res.data == nil {
			continue
		}
		if err := world.SavePreview(world.PreviewPath(*previewDir, res.coord, ""), terrain.ColorTexture(res.data.Classes), *scale); err != nil {
			fmt.Fprintf(os.Stderr, "write colour preview %v: %v\n", res.coord, err)
			continue
		}
		if err := world.SavePreview(world.PreviewPath(*previewDir, res.coord, "height"), terrain.HeightTexture(res.data.Heights), *scale); err != nil {
			fmt.Fprintf(os.Stderr, "write height preview %v: %v\n", res.coord, err)
			continue
		}
		written++
	}
	fmt.Printf("Previews written to %s: %d chunks\n", *previewDir, written)
}

func percentile(values []time.Duration, q float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}
