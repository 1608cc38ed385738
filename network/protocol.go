package network

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire events. Text frames carry a JSON Envelope; binary frames carry
// msgpack world snapshots and need no envelope (only the display sends
// them, and they always mean "relay to my room").
const (
	EvHostCreate        = "host:create"
	EvHostCreateAck     = "host:create:ack"
	EvHostInput         = "host:input"
	EvHostState         = "host:state"
	EvControllerJoin    = "controller:join"
	EvControllerJoinAck = "controller:join:ack"
	EvControllerInput   = "controller:input"
	EvRoomStats         = "room:stats"
	EvRoomState         = "room:state"
)

// Join rejection reasons, client-visible.
const (
	ReasonInvalidPayload = "invalid_payload"
	ReasonRoomNotFound   = "room_not_found"
	ReasonRoomFull       = "room_full"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room full")
)

const RoomCodeLength = 4

// Envelope frames every text message: event name plus raw payload.
type Envelope struct {
	E string          `json:"e"`
	D json.RawMessage `json:"d,omitempty"`
}

func Encode(event string, payload any) ([]byte, error) {
	env := Envelope{E: event}
	if payload != nil {
		d, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		env.D = d
	}
	return json.Marshal(env)
}

func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.E == "" {
		return nil, ErrInvalidPayload
	}
	return &env, nil
}

// JoinRequest is a controller's entry ticket into a room.
type JoinRequest struct {
	RoomCode          string `json:"roomCode"`
	DisplayName       string `json:"displayName,omitempty"`
	ReconnectionToken string `json:"reconnectionToken,omitempty"`
}

func (r *JoinRequest) Validate() error {
	if len(r.RoomCode) != RoomCodeLength {
		return ErrInvalidPayload
	}
	return nil
}

type JoinAck struct {
	OK                bool   `json:"ok"`
	Reason            string `json:"reason,omitempty"`
	PlayerID          string `json:"playerId,omitempty"`
	Color             string `json:"color,omitempty"`
	ReconnectionToken string `json:"reconnectionToken,omitempty"`
}

type CreateAck struct {
	OK       bool   `json:"ok"`
	RoomCode string `json:"roomCode"`
}

// InputPayload is the high-frequency controller sample. Axes are quantized
// int8, buttons are held-state, pressed/released are one-shot edge masks.
type InputPayload struct {
	T        int64 `json:"t"`
	AX       int   `json:"ax"`
	AY       int   `json:"ay"`
	Buttons  int   `json:"buttons"`
	Pressed  int   `json:"pressed,omitempty"`
	Released int   `json:"released,omitempty"`
}

func (p *InputPayload) Validate() error {
	if p.T < 0 {
		return ErrInvalidPayload
	}
	if p.AX < -127 || p.AX > 127 || p.AY < -127 || p.AY > 127 {
		return ErrInvalidPayload
	}
	for _, mask := range []int{p.Buttons, p.Pressed, p.Released} {
		if mask < 0 || mask > 0xffff {
			return ErrInvalidPayload
		}
	}
	return nil
}

type PlayerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

// RoomStats is broadcast to every room member on each roster change.
type RoomStats struct {
	RoomCode string       `json:"roomCode"`
	Players  []PlayerInfo `json:"players"`
}

// HostInput forwards one validated controller sample to the display,
// which owns the simulation.
type HostInput struct {
	PlayerID string       `json:"playerId"`
	Input    InputPayload `json:"input"`
}
