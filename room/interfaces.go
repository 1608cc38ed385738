package room

import "time"

// Broadcaster fans a message out to every member of a room. Defined here
// to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(code string, event string, payload any) error
	BroadcastBinaryToRoom(code string, data []byte) error
}

// Metrics is the slice of the monitor the room reports into.
type Metrics interface {
	IncInputsForwarded()
	IncInputsDroppedStale()
	IncSnapshotsRelayed()
	ObserveBroadcast(d time.Duration)
}

// NopMetrics satisfies Metrics for tests and headless use.
type NopMetrics struct{}

func (NopMetrics) IncInputsForwarded()              {}
func (NopMetrics) IncInputsDroppedStale()           {}
func (NopMetrics) IncSnapshotsRelayed()             {}
func (NopMetrics) ObserveBroadcast(d time.Duration) {}
