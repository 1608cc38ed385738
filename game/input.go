// Package game holds the simulation core: input normalization, the motion
// integrator, camera framing and the safe-zone elimination machine. It is
// pure state-in/state-out so the display host and the tests drive it the
// same way.
package game

import (
	"math"
	"time"
)

// Button bitmask layout. Only Jump is physics-relevant; the rest ride the
// mask untouched.
const (
	ButtonJump    = 1
	ButtonGrapple = 2
	ButtonSlide   = 4
	ButtonItem    = 8
	ButtonPause   = 16
)

const (
	// StickRadius is the drag distance (px) that maps to full deflection.
	StickRadius = 90.0
	// Deadzone is the unit-disc magnitude below which the stick reads zero.
	Deadzone = 0.12
	// SampleInterval caps the controller send cadence at 60 Hz.
	SampleInterval = time.Second / 60
)

// Command is one normalized controller sample. Axes are int8, up is
// positive Y. Pressed/Released carry button transitions for exactly one
// sample window.
type Command struct {
	T        int64
	AX       int8
	AY       int8
	Buttons  uint16
	Pressed  uint16
	Released uint16
}

// QuantizeAxis maps a unit-range axis to int8, rounding half away from
// zero. Quantizing an already-quantized value is a no-op.
func QuantizeAxis(v float64) int8 {
	clamped := math.Max(-1, math.Min(1, v))
	q := math.Round(clamped * 127)
	if q > 127 {
		q = 127
	}
	if q < -127 {
		q = -127
	}
	return int8(q)
}

// AxisToUnit is the inverse mapping used by the integrator.
func AxisToUnit(a int8) float64 {
	return math.Max(-1, math.Min(1, float64(a)/127))
}

// ApplyDeadzone zeroes vectors below the dead threshold and linearly
// rescales the remaining magnitude band back to [0,1].
func ApplyDeadzone(x, y, dz float64) (float64, float64) {
	mag := math.Hypot(x, y)
	if mag < dz {
		return 0, 0
	}
	scaled := (mag - dz) / (1 - dz)
	return x / mag * scaled, y / mag * scaled
}

// Pad models the controller-side touch stick and buttons. Pointer events
// update the latest sample; Sample emits at most one Command per tick
// window, last value wins.
type Pad struct {
	active  bool
	originX float64
	originY float64

	// current post-deadzone sample, screen coordinates (down is +Y)
	ax float64
	ay float64

	buttons  uint16
	pressed  uint16
	released uint16

	lastSent time.Time
}

func NewPad() *Pad {
	return &Pad{}
}

func (p *Pad) PointerDown(x, y float64) {
	p.active = true
	p.originX = x
	p.originY = y
}

func (p *Pad) PointerMove(x, y float64) {
	if !p.active {
		return
	}
	dx := x - p.originX
	dy := y - p.originY
	mag := math.Min(StickRadius, math.Hypot(dx, dy))
	ang := math.Atan2(dy, dx)
	nx := mag * math.Cos(ang) / StickRadius
	ny := mag * math.Sin(ang) / StickRadius
	p.ax, p.ay = ApplyDeadzone(nx, ny, Deadzone)
}

func (p *Pad) PointerUp() {
	p.active = false
	p.ax = 0
	p.ay = 0
}

// Press latches a held bit and records the released->held edge.
func (p *Pad) Press(bit uint16) {
	if p.buttons&bit == 0 {
		p.pressed |= bit
	}
	p.buttons |= bit
}

// Release clears a held bit and records the held->released edge.
func (p *Pad) Release(bit uint16) {
	if p.buttons&bit != 0 {
		p.released |= bit
	}
	p.buttons &^= bit
}

// Sample returns the next Command, or nil when called inside the current
// tick window. Edge masks are consumed by the returned sample: a press is
// observed exactly once downstream even though held state is resent every
// tick. Screen Y is inverted so up is positive on the wire.
func (p *Pad) Sample(now time.Time) *Command {
	if !p.lastSent.IsZero() && now.Sub(p.lastSent) < SampleInterval {
		return nil
	}
	p.lastSent = now
	cmd := &Command{
		T:        now.UnixMilli(),
		AX:       QuantizeAxis(p.ax),
		AY:       QuantizeAxis(-p.ay),
		Buttons:  p.buttons,
		Pressed:  p.pressed,
		Released: p.released,
	}
	p.pressed = 0
	p.released = 0
	return cmd
}
