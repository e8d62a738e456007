// Package sleeptimer pauses playback after a countdown or at the end of
// the current track.
package sleeptimer

import (
	"sync"
	"time"
)

// EndOfTrack is the sentinel Start argument for pause-at-track-end mode.
const EndOfTrack = -1

// Status is the timer state.
type Status int

const (
	Idle Status = iota
	CountingDown
	PauseAtTrackEnd
)

// Timer invokes a pause action when a countdown expires or, in
// pause-at-track-end mode, when the current track finishes. A scheduled
// callback is cancellable up to the instant it fires; a fire in progress
// completes rather than being interrupted.
type Timer struct {
	mu       sync.Mutex
	status   Status
	deadline time.Time
	timer    *time.Timer
	pause    func()
}

// New creates an idle timer with the given pause action.
func New(pause func()) *Timer {
	return &Timer{pause: pause}
}

// Start arms the timer. minutes > 0 schedules a one-shot countdown,
// cancelling any previous one; EndOfTrack arms pause-at-track-end mode.
// Other values are ignored.
func (t *Timer) Start(minutes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()

	switch {
	case minutes == EndOfTrack:
		t.status = PauseAtTrackEnd
	case minutes > 0:
		t.startCountdownLocked(time.Duration(minutes) * time.Minute)
	}
}

func (t *Timer) startCountdownLocked(d time.Duration) {
	t.status = CountingDown
	t.deadline = time.Now().Add(d)
	t.timer = time.AfterFunc(d, t.fire)
}

// Clear cancels any scheduled callback and returns to Idle.
func (t *Timer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

func (t *Timer) cancelLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.status = Idle
	t.deadline = time.Time{}
}

func (t *Timer) fire() {
	t.mu.Lock()
	if t.status != CountingDown {
		t.mu.Unlock()
		return
	}
	t.cancelLocked()
	pause := t.pause
	t.mu.Unlock()
	pause()
}

// OnTrackEnded pauses playback if armed in pause-at-track-end mode.
func (t *Timer) OnTrackEnded() {
	t.firePauseAtEnd()
}

// OnTrackTransition pauses playback if armed in pause-at-track-end mode.
// Transitions count: the user asked for "this track, then stop".
func (t *Timer) OnTrackTransition() {
	t.firePauseAtEnd()
}

func (t *Timer) firePauseAtEnd() {
	t.mu.Lock()
	if t.status != PauseAtTrackEnd {
		t.mu.Unlock()
		return
	}
	t.status = Idle
	pause := t.pause
	t.mu.Unlock()
	pause()
}

// Status returns the current state.
func (t *Timer) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// IsActive reports whether the timer is in any non-idle state.
func (t *Timer) IsActive() bool {
	return t.Status() != Idle
}

// Remaining returns the time left on the countdown, floored at zero. Only
// meaningful while counting down.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != CountingDown {
		return 0
	}
	d := time.Until(t.deadline)
	if d < 0 {
		return 0
	}
	return d
}
