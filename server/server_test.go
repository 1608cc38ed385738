package server

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/speedgrapplers/gameserver/config"
	"github.com/speedgrapplers/gameserver/game"
	"github.com/speedgrapplers/gameserver/monitor"
	"github.com/speedgrapplers/gameserver/network"
)

type sentEvent struct {
	event   string
	payload any
}

// fakeConn is a scriptable connection: the test pushes inbound frames and
// records everything the server sends back.
type fakeConn struct {
	inbound   chan *network.Message
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	events []sentEvent
	binary [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan *network.Message, 16),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, sentEvent{event: event, payload: payload})
	return nil
}

func (c *fakeConn) SendBinary(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.binary = append(c.binary, data)
	return nil
}

func (c *fakeConn) Read() (*network.Message, error) {
	select {
	case msg := <-c.inbound:
		return msg, nil
	case <-c.done:
		return nil, net.ErrClosed
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) RemoteAddr() net.Addr { return nil }

func (c *fakeConn) push(t *testing.T, event string, payload any) {
	t.Helper()
	data, err := network.Encode(event, payload)
	if err != nil {
		t.Fatalf("encode %s: %v", event, err)
	}
	env, err := network.DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode %s: %v", event, err)
	}
	c.inbound <- &network.Message{Env: env, Data: data}
}

func (c *fakeConn) pushRaw(event, rawPayload string) {
	c.inbound <- &network.Message{Env: &network.Envelope{E: event, D: json.RawMessage(rawPayload)}}
}

func (c *fakeConn) pushBinary(data []byte) {
	c.inbound <- &network.Message{Binary: true, Data: data}
}

func (c *fakeConn) eventsNamed(event string) []sentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []sentEvent
	for _, e := range c.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (c *fakeConn) binaryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.binary)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// testBody stands in for a rigid body on the display side of the loop.
type testBody struct {
	y, vx, vy, vz float64
}

func (b *testBody) Position() (float64, float64, float64) { return 0, b.y, 0 }
func (b *testBody) Velocity() (float64, float64, float64) { return b.vx, b.vy, b.vz }
func (b *testBody) SetVelocity(vx, vy, vz float64)        { b.vx, b.vy, b.vz = vx, vy, vz }

var colorPattern = regexp.MustCompile(`^#[0-9a-f]{6}$`)

// TestServer_EndToEnd walks the whole session flow over fake connections:
// a display creates a room, a phone joins, inputs stream through the
// monotonic gate to the display and drive the integrator, snapshots relay
// back, and the roster follows the disconnect. One server instance covers
// everything because the prometheus default registry is process-global.
func TestServer_EndToEnd(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			RPCAddress: "127.0.0.1:0",
			PublicURL:  "http://party.test",
		},
		Game: config.GameConfig{
			RoomTTL:      time.Minute,
			ReapInterval: time.Minute,
			MaxPlayers:   8,
		},
	}
	s := NewGameServer(cfg, monitor.NewMonitor("server_test"))
	defer s.Shutdown()

	// Display connects and creates a room.
	displayConn := newFakeConn()
	go s.handleConnection(displayConn)
	displayConn.push(t, network.EvHostCreate, nil)

	waitFor(t, "create ack", func() bool {
		return len(displayConn.eventsNamed(network.EvHostCreateAck)) > 0
	})
	ack := displayConn.eventsNamed(network.EvHostCreateAck)[0].payload.(network.CreateAck)
	if !ack.OK || len(ack.RoomCode) != network.RoomCodeLength {
		t.Fatalf("bad create ack: %+v", ack)
	}
	code := ack.RoomCode

	// A second create on the same connection is ignored.
	displayConn.push(t, network.EvHostCreate, nil)

	// Controller join: malformed payload, unknown room, then success.
	ctrlConn := newFakeConn()
	go s.handleConnection(ctrlConn)

	ctrlConn.pushRaw(network.EvControllerJoin, `{"roomCode":"X"}`)
	waitFor(t, "invalid join nack", func() bool {
		return len(ctrlConn.eventsNamed(network.EvControllerJoinAck)) >= 1
	})
	nack := ctrlConn.eventsNamed(network.EvControllerJoinAck)[0].payload.(network.JoinAck)
	if nack.OK || nack.Reason != network.ReasonInvalidPayload {
		t.Errorf("short code ack = %+v, want invalid_payload", nack)
	}

	unknown := "AAAA"
	if code == unknown {
		unknown = "BBBB"
	}
	ctrlConn.push(t, network.EvControllerJoin, network.JoinRequest{RoomCode: unknown})
	waitFor(t, "unknown room nack", func() bool {
		return len(ctrlConn.eventsNamed(network.EvControllerJoinAck)) >= 2
	})
	nack = ctrlConn.eventsNamed(network.EvControllerJoinAck)[1].payload.(network.JoinAck)
	if nack.OK || nack.Reason != network.ReasonRoomNotFound {
		t.Errorf("unknown room ack = %+v, want room_not_found", nack)
	}

	ctrlConn.push(t, network.EvControllerJoin, network.JoinRequest{
		RoomCode:          code,
		DisplayName:       "alice",
		ReconnectionToken: "tok-1",
	})
	waitFor(t, "join ack", func() bool {
		return len(ctrlConn.eventsNamed(network.EvControllerJoinAck)) >= 3
	})
	join := ctrlConn.eventsNamed(network.EvControllerJoinAck)[2].payload.(network.JoinAck)
	if !join.OK || join.PlayerID == "" {
		t.Fatalf("join failed: %+v", join)
	}
	if !colorPattern.MatchString(join.Color) {
		t.Errorf("color %q is not a css hex color", join.Color)
	}
	if join.ReconnectionToken != "tok-1" {
		t.Errorf("token = %q, want the echoed tok-1", join.ReconnectionToken)
	}

	// Both sides see the roster.
	waitFor(t, "roster on controller", func() bool {
		return len(ctrlConn.eventsNamed(network.EvRoomStats)) > 0
	})
	waitFor(t, "roster on display", func() bool {
		for _, e := range displayConn.eventsNamed(network.EvRoomStats) {
			if len(e.payload.(network.RoomStats).Players) == 1 {
				return true
			}
		}
		return false
	})

	// Input streaming: a full-right sample, a stale one, a tie, then a
	// jump press. The stale sample must vanish.
	ctrlConn.push(t, network.EvControllerInput, network.InputPayload{T: 100, AX: 127, Buttons: 1})
	ctrlConn.pushRaw(network.EvControllerInput, `{"t":-1}`)
	ctrlConn.push(t, network.EvControllerInput, network.InputPayload{T: 50, AX: 5})
	ctrlConn.push(t, network.EvControllerInput, network.InputPayload{T: 100, AX: 64})
	ctrlConn.push(t, network.EvControllerInput, network.InputPayload{T: 101, Buttons: 1, Pressed: 1})

	waitFor(t, "forwarded inputs", func() bool {
		return len(displayConn.eventsNamed(network.EvHostInput)) >= 3
	})
	forwarded := displayConn.eventsNamed(network.EvHostInput)
	if len(forwarded) != 3 {
		t.Fatalf("forwarded %d inputs, want 3", len(forwarded))
	}
	for i, wantT := range []int64{100, 100, 101} {
		in := forwarded[i].payload.(network.HostInput)
		if in.PlayerID != join.PlayerID || in.Input.T != wantT {
			t.Errorf("forwarded[%d] = %+v, want t=%d for %s", i, in, wantT, join.PlayerID)
		}
	}

	// Drive the integrator with the forwarded samples, as a display host
	// would: full deflection pins lateral speed, the held jump bit alone
	// does not jump, the pressed edge does.
	body := &testBody{}
	first := forwarded[0].payload.(network.HostInput).Input
	game.Integrate(body, &game.Command{AX: int8(first.AX), Buttons: uint16(first.Buttons)})
	if body.vx != game.MaxLateralSpeed {
		t.Errorf("vx = %v, want %v", body.vx, game.MaxLateralSpeed)
	}
	if body.vy != 0 {
		t.Errorf("held jump bit fired a jump, vy = %v", body.vy)
	}
	jump := forwarded[2].payload.(network.HostInput).Input
	game.Integrate(body, &game.Command{Buttons: uint16(jump.Buttons), Pressed: uint16(jump.Pressed)})
	if body.vy != game.JumpSpeed {
		t.Errorf("vy = %v, want %v", body.vy, game.JumpSpeed)
	}

	// Binary snapshots relay display -> controllers, never the reverse.
	displayConn.pushBinary([]byte{0x01, 0x02})
	waitFor(t, "snapshot on controller", func() bool { return ctrlConn.binaryCount() == 1 })
	ctrlConn.pushBinary([]byte{0xff})
	time.Sleep(20 * time.Millisecond)
	if displayConn.binaryCount() != 0 {
		t.Error("controller binary frame reached the display")
	}

	// HTTP surface.
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/qr/"+code, nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("qr endpoint: status %d, type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/qr/"+unknown, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("qr for unknown room: status %d, want 404", rec.Code)
	}
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	var rooms []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rooms); err != nil || len(rooms) != 1 {
		t.Errorf("rooms listing = %s (err %v)", rec.Body.String(), err)
	}

	// Controller disconnect empties the roster on the display.
	_ = ctrlConn.Close()
	waitFor(t, "roster after disconnect", func() bool {
		stats := displayConn.eventsNamed(network.EvRoomStats)
		if len(stats) == 0 {
			return false
		}
		return len(stats[len(stats)-1].payload.(network.RoomStats).Players) == 0
	})

	_ = displayConn.Close()
}
