// Headless display host. Connects to the gateway, creates a room and
// owns the simulation: it consumes forwarded controller input, ticks the
// motion integrator, camera and zone monitor at 60 Hz, and uploads binary
// world snapshots for the phones' HUDs. A rendering display client would
// run this exact loop and draw on top.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/speedgrapplers/gameserver/game"
	"github.com/speedgrapplers/gameserver/level"
	"github.com/speedgrapplers/gameserver/network"
	"github.com/speedgrapplers/gameserver/physics"
)

const (
	tickRate      = 60
	snapshotEvery = 2 // 30 Hz uploads
)

type host struct {
	conn *websocket.Conn
	send sync.Mutex

	mu       sync.Mutex
	roomCode string
	roster   map[string]network.PlayerInfo
	commands map[string]*game.Command
}

func (h *host) sendEvent(event string, payload any) error {
	data, err := network.Encode(event, payload)
	if err != nil {
		return err
	}
	h.send.Lock()
	defer h.send.Unlock()
	return h.conn.WriteMessage(websocket.TextMessage, data)
}

func (h *host) sendBinary(data []byte) error {
	h.send.Lock()
	defer h.send.Unlock()
	return h.conn.WriteMessage(websocket.BinaryMessage, data)
}

// readLoop feeds roster changes and forwarded input into the sim state.
func (h *host) readLoop(done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := h.conn.ReadMessage()
		if err != nil {
			log.Printf("read error: %v", err)
			return
		}
		env, err := network.DecodeEnvelope(data)
		if err != nil {
			continue
		}
		switch env.E {
		case network.EvHostCreateAck:
			var ack network.CreateAck
			if json.Unmarshal(env.D, &ack) == nil && ack.OK {
				h.mu.Lock()
				h.roomCode = ack.RoomCode
				h.mu.Unlock()
				log.Printf("room created: %s (join QR at /qr/%s)", ack.RoomCode, ack.RoomCode)
			}
		case network.EvRoomStats:
			var stats network.RoomStats
			if json.Unmarshal(env.D, &stats) != nil {
				continue
			}
			h.mu.Lock()
			h.roster = make(map[string]network.PlayerInfo, len(stats.Players))
			for _, p := range stats.Players {
				h.roster[p.ID] = p
			}
			h.mu.Unlock()
			log.Printf("roster: %d controller(s)", len(stats.Players))
		case network.EvHostInput:
			var in network.HostInput
			if json.Unmarshal(env.D, &in) != nil {
				continue
			}
			cmd := &game.Command{
				T:        in.Input.T,
				AX:       int8(in.Input.AX),
				AY:       int8(in.Input.AY),
				Buttons:  uint16(in.Input.Buttons),
				Pressed:  uint16(in.Input.Pressed),
				Released: uint16(in.Input.Released),
			}
			h.mu.Lock()
			h.commands[in.PlayerID] = cmd
			h.mu.Unlock()
		}
	}
}

// takeCommands snapshots the latest command per player and consumes the
// edge masks, so a jump press is applied on exactly one tick.
func (h *host) takeCommands() (map[string]*game.Command, map[string]network.PlayerInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cmds := make(map[string]*game.Command, len(h.commands))
	for id, c := range h.commands {
		cc := *c
		cmds[id] = &cc
		c.Pressed = 0
		c.Released = 0
	}
	roster := make(map[string]network.PlayerInfo, len(h.roster))
	for id, p := range h.roster {
		roster[id] = p
	}
	return cmds, roster
}

func (h *host) simLoop(lvl *level.Level, quit <-chan struct{}) {
	world := physics.NewWorld(lvl)
	cam := game.NewCamera()
	zone := game.NewMonitor(game.DefaultZoneConfig(), time.Now())

	dt := 1.0 / float64(tickRate)
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
		}
		tick++
		now := time.Now()
		cmds, roster := h.takeCommands()

		// Reconcile bodies against the roster.
		for id := range roster {
			if _, ok := world.Body(id); !ok {
				world.Spawn(id)
				log.Printf("spawned %s", id)
			}
		}
		for id := range world.Positions() {
			if _, ok := roster[id]; !ok {
				world.Remove(id)
				zone.RemovePlayer(id)
			}
		}

		for id := range roster {
			body, _ := world.Body(id)
			if zone.Eliminated(id) {
				// Corpses coast; the integrator no longer drives them.
				continue
			}
			game.Integrate(body, cmds[id])
		}
		world.Step(dt)

		positions := world.Positions()
		cam = game.StepCamera(cam, zone.LivePositions(positions))
		for _, id := range zone.Step(now, cam, positions) {
			log.Printf("player %s eliminated (out of frame too long)", id)
		}

		// Last player standing ends the round: everyone respawns with a
		// fresh zone clock.
		if len(roster) >= 2 {
			live, winner := 0, ""
			for id := range roster {
				if !zone.Eliminated(id) {
					live++
					winner = id
				}
			}
			if live <= 1 {
				if live == 1 {
					log.Printf("round over, %s wins", winner)
				} else {
					log.Print("round over, no survivors")
				}
				world = physics.NewWorld(lvl)
				for id := range roster {
					world.Spawn(id)
				}
				zone = game.NewMonitor(game.DefaultZoneConfig(), now)
				positions = world.Positions()
			}
		}

		if tick%snapshotEvery == 0 {
			h.uploadSnapshot(tick, cam, zone, positions, roster)
		}
	}
}

func (h *host) uploadSnapshot(tick uint64, cam game.Camera, zone *game.Monitor, positions map[string]game.Vec3, roster map[string]network.PlayerInfo) {
	snap := game.Snapshot{
		Tick:    tick,
		Padding: zone.Padding(),
		CamX:    cam.X,
		CamY:    cam.Y,
	}
	for id, pos := range positions {
		info := roster[id]
		snap.Players = append(snap.Players, game.PlayerSnapshot{
			ID:         id,
			Name:       info.Name,
			Color:      info.Color,
			X:          pos.X,
			Y:          pos.Y,
			Z:          pos.Z,
			Eliminated: zone.Eliminated(id),
		})
	}
	data, err := snap.Encode()
	if err != nil {
		return
	}
	_ = h.sendBinary(data)
}

func main() {
	var addr, levelFile string
	flag.StringVar(&addr, "addr", "localhost:4000", "gateway host:port")
	flag.StringVar(&levelFile, "level", "", "level JSON file (optional)")
	flag.Parse()

	lvl := level.Default()
	if levelFile != "" {
		loaded, err := level.LoadFile(levelFile)
		if err != nil {
			log.Fatalf("load level: %v", err)
		}
		lvl = loaded
	}

	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	log.Printf("connecting to %s", u.String())
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	h := &host{
		conn:     conn,
		roster:   make(map[string]network.PlayerInfo),
		commands: make(map[string]*game.Command),
	}

	done := make(chan struct{})
	go h.readLoop(done)

	if err := h.sendEvent(network.EvHostCreate, nil); err != nil {
		log.Fatalf("host:create failed: %v", err)
	}

	quit := make(chan struct{})
	go h.simLoop(lvl, quit)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	select {
	case <-done:
	case <-interrupt:
		log.Println("interrupt received, closing connection")
		close(quit)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
