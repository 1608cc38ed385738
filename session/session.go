package session

import (
	"sync"
	"time"

	"github.com/speedgrapplers/gameserver/network"
)

// Role says which side of the TV/phone split a connection is on.
type Role int

const (
	RoleNone Role = iota
	RoleDisplay
	RoleController
)

type Session struct {
	ID        string
	Conn      network.Connection
	CreatedAt time.Time

	mutex      sync.RWMutex
	role       Role
	roomCode   string
	name       string
	color      string
	lastActive time.Time
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
	}
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Send(event string, payload any) error {
	s.Touch()
	return s.Conn.Send(event, payload)
}

func (s *Session) SendBinary(data []byte) error {
	return s.Conn.SendBinary(data)
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) SetRole(r Role) {
	s.mutex.Lock()
	s.role = r
	s.mutex.Unlock()
}

func (s *Session) Role() Role {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.role
}

func (s *Session) SetRoom(code string) {
	s.mutex.Lock()
	s.roomCode = code
	s.mutex.Unlock()
}

func (s *Session) Room() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomCode
}

func (s *Session) SetIdentity(name, color string) {
	s.mutex.Lock()
	s.name = name
	s.color = color
	s.mutex.Unlock()
}

func (s *Session) Identity() (name, color string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.name, s.color
}

// Manager tracks every live connection by session ID.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(s *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[s.ID] = s
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	s, exists := m.sessions[sessionID]
	return s, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
