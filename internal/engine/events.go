package engine

import "time"

// Event is implemented by all engine event types.
type Event interface {
	isEvent()
}

// PlayingChanged is emitted when playback starts or stops, whatever the cause
// (explicit Play/Pause, end of queue, decode failure).
type PlayingChanged struct {
	Playing bool
}

// Ready is emitted once the duration of the loaded track is known.
type Ready struct {
	Duration time.Duration
}

// Ended is emitted when the current track plays to completion. The engine
// stays on the same index; the coordinator decides what happens next.
type Ended struct{}

// TrackTransition is emitted when the engine moves to a different queue
// entry (Next/Previous/JumpTo). Index is the position in the loaded queue,
// in insertion order, regardless of shuffle.
type TrackTransition struct {
	Index int
}

// ErrorEvent is emitted when decoding or output fails. Playback state is
// left as it was; the engine does not retry.
type ErrorEvent struct {
	Op   string // e.g. "play", "decode"
	Path string
	Err  error
}

func (PlayingChanged) isEvent()  {}
func (Ready) isEvent()           {}
func (Ended) isEvent()           {}
func (TrackTransition) isEvent() {}
func (ErrorEvent) isEvent()      {}
