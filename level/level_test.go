package level

import (
	"strings"
	"testing"
)

const sampleLevel = `{
	"version": 1,
	"meta": {"id": "gym", "difficulty": 2},
	"tiles": [
		{"type": "box", "pos": [0, -0.5, 0], "size": [40, 1, 4]},
		{"type": "ramp", "pos": [6, 0.5, 0], "size": [4, 1, 4], "angleDeg": 30},
		{"type": "ceil", "pos": [0, 8, 0], "size": [40, 1, 4]}
	],
	"anchors": [
		{"pos": [0, 6, 0], "radius": 0.4, "coneDeg": 60, "autoRange": 9}
	],
	"spawns": [
		{"pos": [-4, 1, 0]},
		{"pos": [4, 1, 0]}
	]
}`

func TestLoad_ParsesSample(t *testing.T) {
	lvl, err := Load(strings.NewReader(sampleLevel))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if lvl.Meta.ID != "gym" || lvl.Meta.Difficulty != 2 {
		t.Errorf("meta = %+v", lvl.Meta)
	}
	if len(lvl.Tiles) != 3 || lvl.Tiles[1].Type != TileRamp || lvl.Tiles[1].AngleDeg != 30 {
		t.Errorf("tiles parsed wrong: %+v", lvl.Tiles)
	}
	if len(lvl.Anchors) != 1 || lvl.Anchors[0].AutoRange != 9 {
		t.Errorf("anchors parsed wrong: %+v", lvl.Anchors)
	}
	if len(lvl.Spawns) != 2 {
		t.Errorf("spawns parsed wrong: %+v", lvl.Spawns)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"unknown tile type", `{"version":1,"tiles":[{"type":"portal"}],"spawns":[{"pos":[0,0,0]}]}`},
		{"no spawns", `{"version":1,"tiles":[]}`},
		{"unsupported version", `{"version":0,"spawns":[{"pos":[0,0,0]}]}`},
		{"not json", `[`},
	}
	for _, c := range cases {
		if _, err := Load(strings.NewReader(c.json)); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}

func TestSpawnPos_Cycles(t *testing.T) {
	lvl, err := Load(strings.NewReader(sampleLevel))
	if err != nil {
		t.Fatal(err)
	}
	if lvl.SpawnPos(0) != lvl.SpawnPos(2) {
		t.Error("spawn index should wrap around the spawn list")
	}
	if lvl.SpawnPos(0) == lvl.SpawnPos(1) {
		t.Error("adjacent spawn indices should differ")
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().validate(); err != nil {
		t.Errorf("built-in level is invalid: %v", err)
	}
}
