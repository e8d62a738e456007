// Package engine wraps the native audio pipeline behind a queue-aware
// capability interface. The coordinator is the only component issuing
// playback-affecting calls; everyone else observes.
package engine

import "time"

// Interface defines the engine contract for dependency injection and testing.
//
// The engine owns decoding and output only. It holds the loaded queue as an
// ordered list of file paths and reports progression through Events; it never
// decides repeat policy (the coordinator applies that on Ended).
type Interface interface {
	// Queue loading
	SetQueue(paths []string, startIndex int) error
	Append(path string)
	JumpTo(index int) error

	// Transport
	Play() error
	Pause()
	SeekTo(pos time.Duration)
	Next() error
	Previous() error

	// Traversal order
	SetShuffled(enabled bool)
	Shuffled() bool

	// Output tuning
	SetVolume(level float64)
	SetSpeed(ratio float64)
	SetPitch(ratio float64)
	SetSkipSilence(enabled bool)
	SetNormalization(enabled bool)

	// State queries
	Playing() bool
	Position() time.Duration
	Duration() time.Duration
	CurrentIndex() int
	QueueLen() int

	// OutputSessionID identifies the current output session. It changes
	// whenever the output device is (re)opened; holders of resources bound
	// to the session must re-acquire when it does.
	OutputSessionID() int

	// SetListener registers the single event listener. Events are delivered
	// sequentially in the order they occur.
	SetListener(fn func(Event))

	Close() error
}
