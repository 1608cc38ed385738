package game

// Body is the slice of the physics backend the integrator touches:
// velocity and position read/write on one rigid body. The collision
// response itself stays behind this interface.
type Body interface {
	Position() (x, y, z float64)
	Velocity() (vx, vy, vz float64)
	SetVelocity(vx, vy, vz float64)
}

const (
	// MaxLateralSpeed is the horizontal speed at full stick deflection,
	// units per second.
	MaxLateralSpeed = 8.0
	// JumpSpeed is the vertical velocity written on a grounded jump.
	JumpSpeed = 9.5
	// GroundedHeight approximates ground contact: a body at or below this
	// height counts as grounded. Stand-in for a real contact query.
	GroundedHeight = 0.08
)

// Integrate applies one player's latest command to their body for one
// tick. Lateral motion is a kinematic override: horizontal velocity is
// rewritten unconditionally every tick, so external horizontal forces do
// not accumulate. That is the intended arcade feel, not an oversight.
// Vertical velocity is left to gravity and collisions, except for the
// jump impulse, which fires only on the pressed edge while grounded.
func Integrate(body Body, cmd *Command) {
	var lateral float64
	var pressed uint16
	if cmd != nil {
		lateral = AxisToUnit(cmd.AX)
		pressed = cmd.Pressed
	}

	_, vy, vz := body.Velocity()
	vx := lateral * MaxLateralSpeed

	_, y, _ := body.Position()
	grounded := y <= GroundedHeight
	if grounded && pressed&ButtonJump != 0 {
		vy = JumpSpeed
	}

	body.SetVelocity(vx, vy, vz)
}
