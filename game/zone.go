package game

import "time"

// ZoneState is a player's standing against the safe frame.
type ZoneState int

const (
	ZoneSafe ZoneState = iota
	ZoneOutOfFrame
	ZoneEliminated // terminal for the round
)

// ZoneConfig tunes the shrinking safe frame. Padding is the fraction of
// the visible frame cut off at each edge; it ratchets down over quiet
// stretches and snaps back to the default on every elimination.
type ZoneConfig struct {
	PaddingDefault float64
	PaddingFloor   float64
	ShrinkPerTick  float64
	EdgeMargin     float64
	Grace          time.Duration
	Quiescence     time.Duration
}

func DefaultZoneConfig() ZoneConfig {
	return ZoneConfig{
		PaddingDefault: 0.15,
		PaddingFloor:   0.02,
		ShrinkPerTick:  0.0005,
		EdgeMargin:     0.05,
		Grace:          800 * time.Millisecond,
		Quiescence:     10 * time.Second,
	}
}

type playerZone struct {
	state    ZoneState
	outSince time.Time
}

// Monitor owns the per-player Safe/OutOfFrame/Eliminated machine and the
// room-wide padding schedule. All timing is wall-clock, passed in by the
// caller, so frame-rate variance does not skew the grace window.
type Monitor struct {
	cfg     ZoneConfig
	padding float64
	// lastElimination also marks round start, so shrinking cannot begin
	// before one full quiescence window.
	lastElimination time.Time
	players         map[string]*playerZone
}

func NewMonitor(cfg ZoneConfig, now time.Time) *Monitor {
	return &Monitor{
		cfg:             cfg,
		padding:         cfg.PaddingDefault,
		lastElimination: now,
		players:         make(map[string]*playerZone),
	}
}

func (m *Monitor) Padding() float64 {
	return m.padding
}

func (m *Monitor) State(id string) ZoneState {
	if pz, ok := m.players[id]; ok {
		return pz.state
	}
	return ZoneSafe
}

func (m *Monitor) Eliminated(id string) bool {
	return m.State(id) == ZoneEliminated
}

// RemovePlayer forgets a disconnected player entirely.
func (m *Monitor) RemovePlayer(id string) {
	delete(m.players, id)
}

// LivePositions filters out eliminated players, for the camera centroid.
func (m *Monitor) LivePositions(positions map[string]Vec3) []Vec3 {
	out := make([]Vec3, 0, len(positions))
	for id, p := range positions {
		if !m.Eliminated(id) {
			out = append(out, p)
		}
	}
	return out
}

// Step advances every tracked player one tick against the current camera
// framing and runs the padding schedule. It returns the ids eliminated
// this tick; each id is returned exactly once, ever.
func (m *Monitor) Step(now time.Time, cam Camera, positions map[string]Vec3) []string {
	limit := 1 - m.padding + m.cfg.EdgeMargin

	var eliminated []string
	for id, pos := range positions {
		pz, ok := m.players[id]
		if !ok {
			pz = &playerZone{state: ZoneSafe}
			m.players[id] = pz
		}
		if pz.state == ZoneEliminated {
			continue
		}

		nx, ny, visible := cam.Project(pos)
		out := !visible || nx > limit || nx < -limit || ny > limit || ny < -limit

		switch pz.state {
		case ZoneSafe:
			if out {
				pz.state = ZoneOutOfFrame
				pz.outSince = now
			}
		case ZoneOutOfFrame:
			if !out {
				// Re-entering clears the clock entirely.
				pz.state = ZoneSafe
			} else if now.Sub(pz.outSince) > m.cfg.Grace {
				pz.state = ZoneEliminated
				eliminated = append(eliminated, id)
			}
		}
	}

	if len(eliminated) > 0 {
		m.padding = m.cfg.PaddingDefault
		m.lastElimination = now
	} else if now.Sub(m.lastElimination) > m.cfg.Quiescence {
		m.padding -= m.cfg.ShrinkPerTick
		if m.padding < m.cfg.PaddingFloor {
			m.padding = m.cfg.PaddingFloor
		}
	}

	return eliminated
}
