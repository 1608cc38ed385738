package room

import (
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/speedgrapplers/gameserver/logger"
	"github.com/speedgrapplers/gameserver/network"
	"github.com/speedgrapplers/gameserver/session"
)

// codeAlphabet omits glyphs that read ambiguously on a TV across the room:
// no I/O, no 0/1/9.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ2345678"

// maxCodeRetries bounds collision re-rolls. Past that the candidate is
// accepted anyway; with 31^4 codes against tens of rooms a persistent
// collision means something else is broken.
const maxCodeRetries = 20

// GenerateCode uniformly samples one room code.
func GenerateCode() string {
	b := make([]byte, network.RoomCodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		idx, _ := rand.Int(rand.Reader, max)
		b[i] = codeAlphabet[idx.Int64()]
	}
	return string(b)
}

// RoomInfo is the admin/listing view of a room.
type RoomInfo struct {
	Code        string    `json:"code"`
	Controllers int       `json:"controllers"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Registry owns every live room, keyed by code. A code stays live from
// creation until the room is closed; codes are never reused while live.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	ttl        time.Duration
	maxPlayers int
	quit       chan struct{}

	// codeFn is a seam for tests that force collisions.
	codeFn func() string
}

func NewRegistry(ttl, reapInterval time.Duration, maxPlayers int) *Registry {
	reg := &Registry{
		rooms:      make(map[string]*Room),
		ttl:        ttl,
		maxPlayers: maxPlayers,
		quit:       make(chan struct{}),
		codeFn:     GenerateCode,
	}
	go reg.reapLoop(reapInterval)
	return reg
}

// Create allocates a fresh code and starts a room for the given display
// session.
func (reg *Registry) Create(display *session.Session, b Broadcaster, m Metrics) *Room {
	reg.mu.Lock()
	code := reg.codeFn()
	for i := 0; i < maxCodeRetries; i++ {
		if _, taken := reg.rooms[code]; !taken {
			break
		}
		code = reg.codeFn()
	}
	old := reg.rooms[code]
	r := newRoom(code, display, b, m, reg.maxPlayers, reg.remove)
	reg.rooms[code] = r
	reg.mu.Unlock()

	if old != nil {
		logger.Log.Warnf("room code %s collided past retry budget, replacing", code)
		old.Close()
	}
	display.SetRole(session.RoleDisplay)
	display.SetRoom(code)
	return r
}

func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, exists := reg.rooms[code]
	return r, exists
}

func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

func (reg *Registry) List() []RoomInfo {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]RoomInfo, 0, len(reg.rooms))
	for code, r := range reg.rooms {
		out = append(out, RoomInfo{
			Code:        code,
			Controllers: r.NumControllers(),
			CreatedAt:   r.CreatedAt,
		})
	}
	return out
}

// CloseRoom tears a room down by code.
func (reg *Registry) CloseRoom(code string) bool {
	reg.mu.RLock()
	r, exists := reg.rooms[code]
	reg.mu.RUnlock()
	if exists {
		r.Close()
	}
	return exists
}

// Stop halts the reaper. Rooms themselves are closed by their owners.
func (reg *Registry) Stop() {
	close(reg.quit)
}

// remove drops a closing room, but only if it still owns its code: a
// replacement room under the same code must survive the old one's Close.
func (reg *Registry) remove(r *Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.rooms[r.Code] == r {
		delete(reg.rooms, r.Code)
	}
}

// reapLoop closes rooms whose display has been gone longer than the TTL.
// A room without its display can never render again, but the TTL keeps
// controllers from being cut off the instant a TV hiccups.
func (reg *Registry) reapLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-reg.quit:
			return
		case <-ticker.C:
			now := time.Now()
			for _, r := range reg.snapshot() {
				if since := r.OrphanedSince(); !since.IsZero() && now.Sub(since) > reg.ttl {
					logger.Log.Infof("reaping orphaned room %s", r.Code)
					r.Close()
				}
			}
		}
	}
}

func (reg *Registry) snapshot() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		out = append(out, r)
	}
	return out
}
