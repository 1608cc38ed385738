package room

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/speedgrapplers/gameserver/logger"
	"github.com/speedgrapplers/gameserver/network"
	"github.com/speedgrapplers/gameserver/session"
)

// Room is one isolated game session: a display plus its controllers. All
// roster mutation and input gating runs on a single goroutine fed by the
// inbox, so concurrent arrivals from many controllers can never interleave
// mid-update. Reads from outside (broadcast fanout, listings) go through
// the roster mutex.
type Room struct {
	Code      string
	CreatedAt time.Time

	inbox     chan any
	quit      chan struct{}
	closeOnce sync.Once

	mutex       sync.RWMutex
	display     *session.Session
	controllers map[string]*session.Session
	orphanSince time.Time // set when the display disconnects

	// actor-owned, no locking: last accepted input timestamp per player
	lastT map[string]int64

	broadcaster Broadcaster
	metrics     Metrics
	maxPlayers  int // 0 means unlimited
	onClose     func(r *Room)
}

// Commands delivered through the inbox.

type joinCmd struct {
	sess  *session.Session
	name  string
	reply chan joinResult
}

type joinResult struct {
	playerID string
	color    string
	err      error
}

type leaveCmd struct {
	sessionID string
}

type inputCmd struct {
	sessionID string
	payload   network.InputPayload
}

type snapshotCmd struct {
	data []byte
}

func newRoom(code string, display *session.Session, b Broadcaster, m Metrics, maxPlayers int, onClose func(r *Room)) *Room {
	if m == nil {
		m = NopMetrics{}
	}
	r := &Room{
		Code:        code,
		CreatedAt:   time.Now(),
		inbox:       make(chan any, 256),
		quit:        make(chan struct{}),
		display:     display,
		controllers: make(map[string]*session.Session),
		lastT:       make(map[string]int64),
		broadcaster: b,
		metrics:     m,
		maxPlayers:  maxPlayers,
		onClose:     onClose,
	}
	go r.run()
	return r
}

func (r *Room) run() {
	for {
		select {
		case <-r.quit:
			return
		case cmd := <-r.inbox:
			r.handle(cmd)
		}
	}
}

func (r *Room) handle(cmd any) {
	switch c := cmd.(type) {
	case joinCmd:
		r.handleJoin(c)
	case leaveCmd:
		r.handleLeave(c.sessionID)
	case inputCmd:
		r.handleInput(c)
	case snapshotCmd:
		if err := r.broadcaster.BroadcastBinaryToRoom(r.Code, c.data); err == nil {
			r.metrics.IncSnapshotsRelayed()
		}
	}
}

func (r *Room) handleJoin(c joinCmd) {
	if r.maxPlayers > 0 && r.NumControllers() >= r.maxPlayers {
		c.reply <- joinResult{err: network.ErrRoomFull}
		return
	}

	color := fmt.Sprintf("#%06x", rand.Intn(0x1000000))
	c.sess.SetIdentity(c.name, color)
	c.sess.SetRoom(r.Code)
	c.sess.SetRole(session.RoleController)

	r.mutex.Lock()
	r.controllers[c.sess.ID] = c.sess
	r.mutex.Unlock()
	r.lastT[c.sess.ID] = 0

	c.reply <- joinResult{playerID: c.sess.ID, color: color}
	r.broadcastStats()
}

func (r *Room) handleLeave(sessionID string) {
	r.mutex.Lock()
	if r.display != nil && r.display.ID == sessionID {
		r.display = nil
		r.orphanSince = time.Now()
		r.mutex.Unlock()
		logger.Log.Infof("room %s lost its display", r.Code)
		return
	}
	_, wasMember := r.controllers[sessionID]
	delete(r.controllers, sessionID)
	r.mutex.Unlock()

	delete(r.lastT, sessionID)
	if wasMember {
		// Remaining players keep their ids and colors.
		r.broadcastStats()
	}
}

// handleInput enforces monotonic acceptance: a sample with a timestamp
// strictly below the last accepted one for that player is expected
// network noise and is dropped without acknowledgment. Ties pass.
func (r *Room) handleInput(c inputCmd) {
	if last, ok := r.lastT[c.sessionID]; !ok || c.payload.T < last {
		if ok {
			r.metrics.IncInputsDroppedStale()
		}
		return
	}
	r.lastT[c.sessionID] = c.payload.T

	r.mutex.RLock()
	display := r.display
	r.mutex.RUnlock()
	if display == nil {
		return
	}
	err := display.Send(network.EvHostInput, network.HostInput{
		PlayerID: c.sessionID,
		Input:    c.payload,
	})
	if err == nil {
		r.metrics.IncInputsForwarded()
	}
}

func (r *Room) broadcastStats() {
	start := time.Now()
	_ = r.broadcaster.BroadcastToRoom(r.Code, network.EvRoomStats, r.Stats())
	r.metrics.ObserveBroadcast(time.Since(start))
}

// Stats assembles the current roster payload.
func (r *Room) Stats() network.RoomStats {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	players := make([]network.PlayerInfo, 0, len(r.controllers))
	for id, s := range r.controllers {
		name, color := s.Identity()
		players = append(players, network.PlayerInfo{ID: id, Name: name, Color: color})
	}
	return network.RoomStats{RoomCode: r.Code, Players: players}
}

// Join adds a controller and returns its assigned id and color. Blocks
// until the room goroutine has applied the mutation.
func (r *Room) Join(sess *session.Session, name string) (playerID, color string, err error) {
	reply := make(chan joinResult, 1)
	select {
	case r.inbox <- joinCmd{sess: sess, name: name, reply: reply}:
	case <-r.quit:
		return "", "", network.ErrRoomNotFound
	}
	select {
	case res := <-reply:
		return res.playerID, res.color, res.err
	case <-r.quit:
		return "", "", network.ErrRoomNotFound
	}
}

// Leave removes a member. Safe to call for ids the room never saw.
func (r *Room) Leave(sessionID string) {
	select {
	case r.inbox <- leaveCmd{sessionID: sessionID}:
	case <-r.quit:
	}
}

// SubmitInput hands a validated controller sample to the room goroutine.
// Non-blocking: if the inbox is full the sample is dropped, input being a
// best-effort stream.
func (r *Room) SubmitInput(sessionID string, payload network.InputPayload) {
	select {
	case r.inbox <- inputCmd{sessionID: sessionID, payload: payload}:
	default:
	}
}

// SubmitSnapshot relays a binary world snapshot from the display.
func (r *Room) SubmitSnapshot(data []byte) {
	select {
	case r.inbox <- snapshotCmd{data: data}:
	default:
	}
}

// Members returns a point-in-time copy of every connected session,
// display included.
func (r *Room) Members() []*session.Session {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	members := make([]*session.Session, 0, len(r.controllers)+1)
	if r.display != nil {
		members = append(members, r.display)
	}
	for _, s := range r.controllers {
		members = append(members, s)
	}
	return members
}

func (r *Room) NumControllers() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.controllers)
}

// OrphanedSince reports when the room lost its display; zero while the
// display is connected.
func (r *Room) OrphanedSince() time.Time {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if r.display != nil {
		return time.Time{}
	}
	return r.orphanSince
}

// Close stops the room goroutine and unregisters the room. Idempotent.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.quit)
		if r.onClose != nil {
			r.onClose(r)
		}
	})
}
