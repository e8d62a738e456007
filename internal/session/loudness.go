package session

import "sync"

// engineOutput is the slice of the engine the loudness stage binds to.
type engineOutput interface {
	OutputSessionID() int
	SetNormalization(enabled bool)
}

// loudnessStage manages the loudness-processing stage bound to the
// engine's output session. Acquisition follows the session: when the
// engine reopens its output, the stage must be re-acquired against the
// new session ID. Double release and release without acquire are no-ops.
type loudnessStage struct {
	mu        sync.Mutex
	eng       engineOutput
	sessionID int
	acquired  bool
	enabled   bool
}

func newLoudnessStage(eng engineOutput) *loudnessStage {
	return &loudnessStage{eng: eng}
}

// SetEnabled turns normalization on or off. Enabling acquires the stage on
// the current output session; disabling releases it.
func (l *loudnessStage) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
	if enabled {
		l.acquireLocked()
	} else {
		l.releaseLocked()
	}
}

// Refresh re-acquires the stage if the output session changed underneath
// it. A no-op while not acquired.
func (l *loudnessStage) Refresh() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.acquired || !l.enabled {
		return
	}
	if l.eng.OutputSessionID() != l.sessionID {
		l.acquireLocked()
	}
}

// Release detaches the stage. Safe to call repeatedly or before any
// acquire.
func (l *loudnessStage) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releaseLocked()
}

func (l *loudnessStage) acquireLocked() {
	l.sessionID = l.eng.OutputSessionID()
	l.acquired = true
	l.eng.SetNormalization(true)
}

func (l *loudnessStage) releaseLocked() {
	if !l.acquired {
		return
	}
	l.acquired = false
	l.eng.SetNormalization(false)
}

// Acquired reports whether the stage currently holds the session.
func (l *loudnessStage) Acquired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired
}
