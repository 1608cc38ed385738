package broadcast

import (
	"errors"

	"github.com/speedgrapplers/gameserver/room"
	"github.com/speedgrapplers/gameserver/session"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomBroadcaster fans messages out over a room's member snapshot. Send
// failures to individual sockets are skipped: a dead connection is the
// read loop's problem, and one bad client never affects the others.
type RoomBroadcaster struct {
	registry *room.Registry
}

func NewRoomBroadcaster(registry *room.Registry) *RoomBroadcaster {
	return &RoomBroadcaster{registry: registry}
}

func (b *RoomBroadcaster) BroadcastToRoom(code string, event string, payload any) error {
	r, exists := b.registry.Get(code)
	if !exists {
		return ErrRoomNotFound
	}
	for _, s := range r.Members() {
		if err := s.Send(event, payload); err != nil {
			continue
		}
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastBinaryToRoom(code string, data []byte) error {
	r, exists := b.registry.Get(code)
	if !exists {
		return ErrRoomNotFound
	}
	for _, s := range r.Members() {
		// Snapshots originate from the display; echoing them back would
		// just waste its downlink.
		if s.Role() == session.RoleDisplay {
			continue
		}
		if err := s.SendBinary(data); err != nil {
			continue
		}
	}
	return nil
}
