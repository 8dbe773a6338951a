package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a JSON and YAML friendly wrapper around time.Duration that
// accepts human readable strings such as "150ms" in configuration files while
// still allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML encodes the duration as its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar, got kind %d", value.Kind)
	}
	if value.ShortTag() == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode int: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	if value.ShortTag() == "!!null" {
		*d = 0
		return nil
	}
	return d.parse(value.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MinScale is the smallest noise scale accepted before sampling.
const MinScale = 0.001

// Config captures the tunable parameters needed to run a terrain streamer.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Network   NetworkConfig   `json:"network" yaml:"network"`
	Terrain   TerrainConfig   `json:"terrain" yaml:"terrain"`
	Streaming StreamingConfig `json:"streaming" yaml:"streaming"`
	Pipeline  PipelineConfig  `json:"pipeline" yaml:"pipeline"`
	Preview   PreviewConfig   `json:"preview" yaml:"preview"`
}

type ServerConfig struct {
	ID          string   `json:"id" yaml:"id"`
	Description string   `json:"description" yaml:"description"`
	TickRate    Duration `json:"tickRate" yaml:"tickRate"`     // e.g. "33ms"
	StreamRate  Duration `json:"streamRate" yaml:"streamRate"` // visible chunk summary broadcast interval
}

type NetworkConfig struct {
	ListenUDP            string   `json:"listenUdp" yaml:"listenUdp"`                       // ":19000"
	MaxDatagramSizeBytes int      `json:"maxDatagramSizeBytes" yaml:"maxDatagramSizeBytes"` // default to 64 KiB - UDP practical limit
	SessionTimeout       Duration `json:"sessionTimeout" yaml:"sessionTimeout"`             // drop observers that stop sending
}

type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

type RegionConfig struct {
	Name   string  `json:"name" yaml:"name"`
	Height float64 `json:"height" yaml:"height"`
	Color  string  `json:"color" yaml:"color"` // "#rrggbb" or "#rrggbbaa"
}

type TerrainConfig struct {
	Seed             int64          `json:"seed" yaml:"seed"`
	Scale            float64        `json:"scale" yaml:"scale"`
	Octaves          int            `json:"octaves" yaml:"octaves"`
	Persistence      float64        `json:"persistence" yaml:"persistence"`
	Lacunarity       float64        `json:"lacunarity" yaml:"lacunarity"`
	Compensator      float64        `json:"compensator" yaml:"compensator"`
	Offset           Vec2           `json:"offset" yaml:"offset"`
	Basis            string         `json:"basis" yaml:"basis"`         // "simplex" or "perlin"
	ChunkSize        int            `json:"chunkSize" yaml:"chunkSize"` // map cells per axis, without the border
	UseFalloff       bool           `json:"useFalloff" yaml:"useFalloff"`
	HeightMultiplier float64        `json:"heightMultiplier" yaml:"heightMultiplier"`
	Regions          []RegionConfig `json:"regions" yaml:"regions"`
}

type DetailLevel struct {
	LOD             int     `json:"lod" yaml:"lod"`
	VisibleDistance float64 `json:"visibleDistance" yaml:"visibleDistance"`
}

type StreamingConfig struct {
	WorldScale    float64       `json:"worldScale" yaml:"worldScale"`       // world units per chunk-space unit
	MoveThreshold float64       `json:"moveThreshold" yaml:"moveThreshold"` // observer displacement before recompute
	DetailLevels  []DetailLevel `json:"detailLevels" yaml:"detailLevels"`
	MaxChunks     int           `json:"maxChunks" yaml:"maxChunks"` // 0 keeps every chunk ever created
}

type PipelineConfig struct {
	Workers          int `json:"workers" yaml:"workers"` // 0 uses GOMAXPROCS
	CompletionBuffer int `json:"completionBuffer" yaml:"completionBuffer"`
}

type PreviewConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Dir     string `json:"dir" yaml:"dir"`
	Scale   int    `json:"scale" yaml:"scale"`
}

// Load reads configuration from a JSON or YAML file if provided. An empty path
// returns defaults. Clamped values are corrected silently; use LoadWithNotes
// to observe the corrections.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithNotes(path)
	return cfg, err
}

// LoadWithNotes behaves like Load and additionally returns the corrections
// applied by Normalize.
func LoadWithNotes(path string) (*Config, []string, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, nil, fmt.Errorf("parse config: %w", err)
		}
	}

	notes := cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, notes, fmt.Errorf("validate config: %w", err)
	}
	return cfg, notes, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ID:          "terrain-0",
			Description: "local development terrain streamer",
			TickRate:    Duration(33 * time.Millisecond),
			StreamRate:  Duration(200 * time.Millisecond),
		},
		Network: NetworkConfig{
			ListenUDP:            ":19000",
			MaxDatagramSizeBytes: 1 << 16,
			SessionTimeout:       Duration(30 * time.Second),
		},
		Terrain: TerrainConfig{
			Seed:             1,
			Scale:            50,
			Octaves:          4,
			Persistence:      0.5,
			Lacunarity:       2,
			Compensator:      0.55,
			Basis:            "simplex",
			ChunkSize:        239,
			UseFalloff:       false,
			HeightMultiplier: 30,
			Regions:          DefaultRegions(),
		},
		Streaming: StreamingConfig{
			WorldScale:    3,
			MoveThreshold: 25,
			DetailLevels: []DetailLevel{
				{LOD: 0, VisibleDistance: 150},
				{LOD: 1, VisibleDistance: 300},
				{LOD: 4, VisibleDistance: 450},
			},
		},
		Pipeline: PipelineConfig{
			Workers:          0,
			CompletionBuffer: 1024,
		},
		Preview: PreviewConfig{
			Enabled: false,
			Dir:     "chunk-preview",
			Scale:   2,
		},
	}
}

// DefaultRegions returns the classic water-to-snow band table.
func DefaultRegions() []RegionConfig {
	return []RegionConfig{
		{Name: "deep water", Height: 0, Color: "#1f3f8c"},
		{Name: "water", Height: 0.3, Color: "#3366cc"},
		{Name: "sand", Height: 0.4, Color: "#d2c87a"},
		{Name: "grass", Height: 0.45, Color: "#56972a"},
		{Name: "forest", Height: 0.55, Color: "#3e6b1f"},
		{Name: "rock", Height: 0.6, Color: "#5b4a3c"},
		{Name: "mountain", Height: 0.7, Color: "#4a3c34"},
		{Name: "snow", Height: 0.9, Color: "#ffffff"},
	}
}

// Normalize clamps degenerate values into range instead of rejecting them and
// returns a description of every correction made.
func (c *Config) Normalize() []string {
	var notes []string
	t := &c.Terrain
	if t.Lacunarity < 1 {
		notes = append(notes, fmt.Sprintf("terrain.lacunarity %g raised to 1", t.Lacunarity))
		t.Lacunarity = 1
	}
	if t.Octaves < 0 {
		notes = append(notes, fmt.Sprintf("terrain.octaves %d raised to 0", t.Octaves))
		t.Octaves = 0
	}
	if t.Scale < MinScale {
		notes = append(notes, fmt.Sprintf("terrain.scale %g raised to %g", t.Scale, MinScale))
		t.Scale = MinScale
	}
	if t.Basis == "" {
		t.Basis = "simplex"
	}

	levels := c.Streaming.DetailLevels
	for i := 1; i < len(levels); i++ {
		if levels[i].VisibleDistance <= levels[i-1].VisibleDistance {
			fixed := levels[i-1].VisibleDistance + 1
			notes = append(notes, fmt.Sprintf("streaming.detailLevels[%d].visibleDistance %g raised to %g",
				i, levels[i].VisibleDistance, fixed))
			levels[i].VisibleDistance = fixed
		}
	}

	if c.Server.TickRate <= 0 {
		c.Server.TickRate = Duration(33 * time.Millisecond)
	}
	if c.Server.StreamRate <= 0 {
		c.Server.StreamRate = Duration(200 * time.Millisecond)
	}
	if c.Pipeline.CompletionBuffer <= 0 {
		c.Pipeline.CompletionBuffer = 1024
	}
	if c.Preview.Scale <= 0 {
		c.Preview.Scale = 1
	}
	return notes
}

func (c *Config) Validate() error {
	if c.Server.ID == "" {
		return errors.New("server.id must be set")
	}
	if c.Network.ListenUDP == "" {
		return errors.New("network.listenUdp must be set")
	}
	if c.Terrain.ChunkSize < 2 {
		return errors.New("terrain.chunkSize must be at least 2")
	}
	switch c.Terrain.Basis {
	case "", "simplex", "perlin":
	default:
		return fmt.Errorf("terrain.basis %q is not supported", c.Terrain.Basis)
	}
	for i, region := range c.Terrain.Regions {
		if _, err := ParseColor(region.Color); err != nil {
			return fmt.Errorf("terrain.regions[%d].color: %w", i, err)
		}
	}
	if c.Streaming.WorldScale <= 0 {
		return errors.New("streaming.worldScale must be positive")
	}
	if c.Streaming.MoveThreshold < 0 {
		return errors.New("streaming.moveThreshold cannot be negative")
	}
	if len(c.Streaming.DetailLevels) == 0 {
		return errors.New("streaming.detailLevels must not be empty")
	}
	for i, level := range c.Streaming.DetailLevels {
		if level.LOD < 0 {
			return fmt.Errorf("streaming.detailLevels[%d].lod cannot be negative", i)
		}
	}
	if c.Streaming.MaxChunks < 0 {
		return errors.New("streaming.maxChunks cannot be negative")
	}
	if c.Pipeline.Workers < 0 {
		return errors.New("pipeline.workers cannot be negative")
	}
	return nil
}
