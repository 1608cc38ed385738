package game

import "github.com/vmihailenco/msgpack/v5"

// Snapshot is the per-tick world state the display uploads and the server
// relays to controllers. Binary msgpack keeps the high-frequency frames
// small.
type Snapshot struct {
	Tick    uint64           `msgpack:"t"`
	Padding float64          `msgpack:"pad"`
	CamX    float64          `msgpack:"cx"`
	CamY    float64          `msgpack:"cy"`
	Players []PlayerSnapshot `msgpack:"p"`
}

type PlayerSnapshot struct {
	ID         string  `msgpack:"id"`
	Name       string  `msgpack:"n,omitempty"`
	Color      string  `msgpack:"c,omitempty"`
	X          float64 `msgpack:"x"`
	Y          float64 `msgpack:"y"`
	Z          float64 `msgpack:"z"`
	Eliminated bool    `msgpack:"e"`
}

func (s *Snapshot) Encode() ([]byte, error) {
	return msgpack.Marshal(s)
}

func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
