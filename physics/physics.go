// Package physics is the stand-in rigid-body backend: gravity, tile
// surface landing, velocity/position read-write per body. The real
// collision solver it stands in for is an external collaborator; the
// motion integrator only ever talks to the game.Body interface.
package physics

import (
	"github.com/speedgrapplers/gameserver/game"
	"github.com/speedgrapplers/gameserver/level"
)

const Gravity = -25.0

type PhysBody struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

func (b *PhysBody) Position() (x, y, z float64) {
	return b.X, b.Y, b.Z
}

func (b *PhysBody) Velocity() (vx, vy, vz float64) {
	return b.VX, b.VY, b.VZ
}

func (b *PhysBody) SetVelocity(vx, vy, vz float64) {
	b.VX, b.VY, b.VZ = vx, vy, vz
}

type World struct {
	lvl    *level.Level
	bodies map[string]*PhysBody
	spawns int
}

func NewWorld(lvl *level.Level) *World {
	if lvl == nil {
		lvl = level.Default()
	}
	return &World{
		lvl:    lvl,
		bodies: make(map[string]*PhysBody),
	}
}

// Spawn creates a body at the next spawn point.
func (w *World) Spawn(id string) *PhysBody {
	pos := w.lvl.SpawnPos(w.spawns)
	w.spawns++
	b := &PhysBody{X: pos[0], Y: pos[1], Z: pos[2]}
	w.bodies[id] = b
	return b
}

func (w *World) Body(id string) (*PhysBody, bool) {
	b, ok := w.bodies[id]
	return b, ok
}

func (w *World) Remove(id string) {
	delete(w.bodies, id)
}

func (w *World) Positions() map[string]game.Vec3 {
	out := make(map[string]game.Vec3, len(w.bodies))
	for id, b := range w.bodies {
		out[id] = game.Vec3{X: b.X, Y: b.Y, Z: b.Z}
	}
	return out
}

// Step integrates gravity and lands falling bodies on the highest tile
// surface under them. Ramps are treated as flat-topped; the real solver
// this stands in for handles the slope.
func (w *World) Step(dt float64) {
	for _, b := range w.bodies {
		b.VY += Gravity * dt
		b.X += b.VX * dt
		b.Y += b.VY * dt
		b.Z += b.VZ * dt

		floor := w.surfaceHeight(b.X, b.Z)
		if b.Y < floor && b.VY <= 0 {
			b.Y = floor
			b.VY = 0
		}
	}
}

// surfaceHeight is the top of the highest walkable tile whose footprint
// contains (x, z). Ceilings don't count.
func (w *World) surfaceHeight(x, z float64) float64 {
	top := 0.0
	for _, t := range w.lvl.Tiles {
		if t.Type == level.TileCeil {
			continue
		}
		if x < t.Pos[0]-t.Size[0]/2 || x > t.Pos[0]+t.Size[0]/2 {
			continue
		}
		if z < t.Pos[2]-t.Size[2]/2 || z > t.Pos[2]+t.Size[2]/2 {
			continue
		}
		if h := t.Pos[1] + t.Size[1]/2; h > top {
			top = h
		}
	}
	return top
}
