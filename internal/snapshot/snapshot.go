// Package snapshot persists the minimal playback state that survives
// process death: the queue as track IDs, the current index and position,
// and the shuffle/repeat flags. One record per install.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorrupt is returned when snapshot bytes cannot be decoded or fail
// validation. Callers discard the snapshot and cold-start.
var ErrCorrupt = errors.New("corrupt snapshot")

// Snapshot is the persisted playback record.
type Snapshot struct {
	CurrentTrackID int64   `json:"current_track_id"`
	CurrentIndex   int     `json:"current_index"`
	PositionMs     int64   `json:"position_ms"`
	Queue          []int64 `json:"queue"`
	Shuffle        bool    `json:"shuffle"`
	RepeatMode     int     `json:"repeat_mode"`
}

// Marshal encodes the snapshot as JSON.
func Marshal(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal decodes and validates snapshot bytes. Any decode failure or
// out-of-range field yields ErrCorrupt.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(s.Queue) == 0 {
		return nil, fmt.Errorf("%w: empty queue", ErrCorrupt)
	}
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Queue) {
		return nil, fmt.Errorf("%w: index %d out of range", ErrCorrupt, s.CurrentIndex)
	}
	if s.PositionMs < 0 {
		return nil, fmt.Errorf("%w: negative position", ErrCorrupt)
	}
	if s.RepeatMode < 0 || s.RepeatMode > 2 {
		return nil, fmt.Errorf("%w: repeat mode %d", ErrCorrupt, s.RepeatMode)
	}
	return &s, nil
}
