// Package level parses the static level geometry description: solid
// tiles, ramps, ceilings, grapple anchors and spawn points. Only the
// collision stand-in and the renderer consume the geometry; the session
// core never looks at it.
package level

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const (
	TileBox  = "box"
	TileRamp = "ramp"
	TileCeil = "ceil"
)

type Vec3 [3]float64

type Tile struct {
	Type     string  `json:"type"`
	Pos      Vec3    `json:"pos"`
	Size     Vec3    `json:"size"`
	AngleDeg float64 `json:"angleDeg,omitempty"` // ramps only
}

type Anchor struct {
	Pos       Vec3    `json:"pos"`
	Radius    float64 `json:"radius"`
	ConeDeg   float64 `json:"coneDeg"`
	AutoRange float64 `json:"autoRange"`
}

type Spawn struct {
	Pos Vec3 `json:"pos"`
}

type Meta struct {
	ID         string `json:"id"`
	Difficulty int    `json:"difficulty"`
}

type Level struct {
	Version int      `json:"version"`
	Meta    Meta     `json:"meta"`
	Tiles   []Tile   `json:"tiles"`
	Anchors []Anchor `json:"anchors"`
	Spawns  []Spawn  `json:"spawns"`
}

func Load(r io.Reader) (*Level, error) {
	var lvl Level
	if err := json.NewDecoder(r).Decode(&lvl); err != nil {
		return nil, fmt.Errorf("decode level: %w", err)
	}
	if err := lvl.validate(); err != nil {
		return nil, err
	}
	return &lvl, nil
}

func LoadFile(path string) (*Level, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func (l *Level) validate() error {
	if l.Version < 1 {
		return fmt.Errorf("unsupported level version %d", l.Version)
	}
	if len(l.Spawns) == 0 {
		return fmt.Errorf("level %q has no spawns", l.Meta.ID)
	}
	for i, t := range l.Tiles {
		switch t.Type {
		case TileBox, TileRamp, TileCeil:
		default:
			return fmt.Errorf("tile %d: unknown type %q", i, t.Type)
		}
	}
	return nil
}

// SpawnPos cycles through the spawn list.
func (l *Level) SpawnPos(i int) Vec3 {
	return l.Spawns[i%len(l.Spawns)].Pos
}

// Default is a flat arena with two platforms, used when no level file is
// configured.
func Default() *Level {
	return &Level{
		Version: 1,
		Meta:    Meta{ID: "default", Difficulty: 1},
		Tiles: []Tile{
			{Type: TileBox, Pos: Vec3{0, -0.5, 0}, Size: Vec3{40, 1, 4}},
			{Type: TileBox, Pos: Vec3{-8, 1.5, 0}, Size: Vec3{4, 1, 4}},
			{Type: TileBox, Pos: Vec3{8, 2.5, 0}, Size: Vec3{4, 1, 4}},
		},
		Spawns: []Spawn{
			{Pos: Vec3{-4, 1, 0}},
			{Pos: Vec3{-2, 1, 0}},
			{Pos: Vec3{2, 1, 0}},
			{Pos: Vec3{4, 1, 0}},
		},
	}
}
