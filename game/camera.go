package game

import "math"

const (
	// CameraBlend is the per-tick single-pole smoothing factor toward the
	// player centroid.
	CameraBlend = 0.1
	// CameraYOffset frames players slightly below center.
	CameraYOffset = 4.0
	// CameraDepth is the fixed camera Z; the rig never dollies.
	CameraDepth = 16.0

	CameraFOVDeg = 50.0
	CameraAspect = 16.0 / 9.0
)

// Vec3 is a world-space position.
type Vec3 struct {
	X, Y, Z float64
}

// Camera is the smoothed centroid-follow framing. Zero value is not
// useful; use NewCamera.
type Camera struct {
	X, Y, Z float64
}

func NewCamera() Camera {
	return Camera{X: 0, Y: 6, Z: CameraDepth}
}

// StepCamera returns the camera advanced one tick toward the centroid of
// the given positions. Callers pass live (non-eliminated) players only.
// With no positions the camera holds still.
func StepCamera(cam Camera, positions []Vec3) Camera {
	if len(positions) == 0 {
		return cam
	}
	var cx, cy float64
	for _, p := range positions {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(positions))
	cy /= float64(len(positions))

	cam.X += (cx - cam.X) * CameraBlend
	cam.Y += (cy + CameraYOffset - cam.Y) * CameraBlend
	// Z fixed
	return cam
}

// Project maps a world position into the camera's clip space. ok is false
// for positions at or behind the camera plane, which the zone monitor
// treats as out of frame.
func (c Camera) Project(p Vec3) (nx, ny float64, ok bool) {
	depth := c.Z - p.Z
	if depth <= 0 {
		return 0, 0, false
	}
	tanHalf := math.Tan(CameraFOVDeg * math.Pi / 360)
	ny = (p.Y - c.Y) / (depth * tanHalf)
	nx = (p.X - c.X) / (depth * tanHalf * CameraAspect)
	return nx, ny, true
}
