// internal/playback/state.go
package playback

import "time"

// RepeatMode defines the repeat behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "Off"
	case RepeatAll:
		return "All"
	case RepeatOne:
		return "One"
	default:
		return "Unknown"
	}
}

// Next cycles Off -> All -> One -> Off.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// State is an immutable snapshot of the canonical playback state. A new
// value is published on every field change; subscribers never see a
// half-applied update.
type State struct {
	CurrentTrack *Track
	IsPlaying    bool
	Position     time.Duration
	Duration     time.Duration
	Queue        []Track
	CurrentIndex int // -1 if the queue is empty
	Shuffle      bool
	RepeatMode   RepeatMode
}

// HasQueue reports whether any tracks are loaded.
func (s State) HasQueue() bool {
	return len(s.Queue) > 0
}

// HasNext reports whether a queue entry follows the current one.
func (s State) HasNext() bool {
	return s.CurrentIndex >= 0 && s.CurrentIndex < len(s.Queue)-1
}

// clone returns a copy safe for publication: the queue slice and current
// track are copied so later mutations never leak into a published snapshot.
func (s State) clone() State {
	out := s
	out.Queue = make([]Track, len(s.Queue))
	copy(out.Queue, s.Queue)
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		out.CurrentTrack = &t
	}
	return out
}
