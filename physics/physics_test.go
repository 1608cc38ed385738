package physics

import (
	"testing"

	"github.com/speedgrapplers/gameserver/level"
)

const dt = 1.0 / 60

func TestWorld_FallAndLandOnFloor(t *testing.T) {
	w := NewWorld(nil)
	b := w.Spawn("p1") // default spawns sit above the floor slab

	for i := 0; i < 240; i++ {
		w.Step(dt)
	}
	if b.Y != 0 {
		t.Errorf("body rests at y=%v, want the floor top 0", b.Y)
	}
	if b.VY != 0 {
		t.Errorf("vertical velocity %v after landing, want 0", b.VY)
	}
}

func TestWorld_LandsOnHighestSurface(t *testing.T) {
	w := NewWorld(nil)
	b := w.Spawn("p1")
	// Over the taller default platform (top face at 3).
	b.X, b.Y, b.Z = 8, 6, 0

	for i := 0; i < 240; i++ {
		w.Step(dt)
	}
	if b.Y != 3 {
		t.Errorf("body rests at y=%v, want the platform top 3", b.Y)
	}
}

func TestWorld_CeilingsAreNotWalkable(t *testing.T) {
	lvl := &level.Level{
		Version: 1,
		Tiles: []level.Tile{
			{Type: level.TileCeil, Pos: level.Vec3{0, 5, 0}, Size: level.Vec3{40, 1, 4}},
		},
		Spawns: []level.Spawn{{Pos: level.Vec3{0, 8, 0}}},
	}
	w := NewWorld(lvl)
	b := w.Spawn("p1")

	for i := 0; i < 300; i++ {
		w.Step(dt)
	}
	if b.Y != 0 {
		t.Errorf("body rests at y=%v, should fall through the ceiling tile to 0", b.Y)
	}
}

func TestWorld_LateralVelocityMovesBody(t *testing.T) {
	w := NewWorld(nil)
	b := w.Spawn("p1")
	start := b.X
	b.SetVelocity(6, 0, 0)

	w.Step(dt)
	if b.X <= start {
		t.Errorf("x did not advance: %v -> %v", start, b.X)
	}
}

func TestWorld_SpawnPointsCycle(t *testing.T) {
	w := NewWorld(nil)
	first := w.Spawn("p1")
	for _, id := range []string{"p2", "p3", "p4"} {
		w.Spawn(id)
	}
	fifth := w.Spawn("p5")
	if fifth.X != first.X || fifth.Z != first.Z {
		t.Error("fifth spawn should reuse the first spawn point")
	}
}

func TestWorld_RemoveDropsBody(t *testing.T) {
	w := NewWorld(nil)
	w.Spawn("p1")
	w.Remove("p1")
	if _, ok := w.Body("p1"); ok {
		t.Error("removed body still present")
	}
	if len(w.Positions()) != 0 {
		t.Error("removed body still reported in positions")
	}
}
