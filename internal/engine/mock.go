// internal/engine/mock.go
package engine

import (
	"sync"
	"time"
)

// Mock is a test double for the engine. All accessors are safe to call
// concurrently with the coordinator's polling loop.
type Mock struct {
	mu sync.Mutex

	queue    []string
	index    int
	playing  bool
	shuffled bool

	position time.Duration
	duration time.Duration

	volumeLevel float64
	speed       float64
	pitch       float64
	skipSilence bool
	normalized  bool
	sessionID   int

	playErr      error
	setQueueErr  error
	setQueueArgs [][]string
	appendCalls  []string
	seekCalls    []time.Duration
	shuffleCalls []bool
	jumpCalls    []int

	listener func(Event)
}

// NewMock creates a new mock engine for testing.
func NewMock() *Mock {
	return &Mock{index: -1, volumeLevel: 1, speed: 1, pitch: 1, sessionID: 1}
}

func (m *Mock) SetQueue(paths []string, startIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setQueueErr != nil {
		return m.setQueueErr
	}
	m.setQueueArgs = append(m.setQueueArgs, append([]string(nil), paths...))
	m.queue = append([]string(nil), paths...)
	if len(m.queue) == 0 {
		m.index = -1
		return nil
	}
	if startIndex < 0 || startIndex >= len(m.queue) {
		startIndex = 0
	}
	m.index = startIndex
	m.playing = false
	return nil
}

func (m *Mock) Append(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendCalls = append(m.appendCalls, path)
	m.queue = append(m.queue, path)
}

func (m *Mock) JumpTo(index int) error {
	m.mu.Lock()
	m.jumpCalls = append(m.jumpCalls, index)
	if index < 0 || index >= len(m.queue) {
		m.mu.Unlock()
		return nil
	}
	m.index = index
	m.position = 0
	fn := m.listener
	m.mu.Unlock()
	if fn != nil {
		fn(TrackTransition{Index: index})
	}
	return nil
}

func (m *Mock) Play() error {
	m.mu.Lock()
	if m.playErr != nil {
		err := m.playErr
		m.mu.Unlock()
		return err
	}
	fire := !m.playing
	m.playing = true
	fn := m.listener
	m.mu.Unlock()
	if fire && fn != nil {
		fn(PlayingChanged{Playing: true})
	}
	return nil
}

func (m *Mock) Pause() {
	m.mu.Lock()
	fire := m.playing
	m.playing = false
	fn := m.listener
	m.mu.Unlock()
	if fire && fn != nil {
		fn(PlayingChanged{Playing: false})
	}
}

func (m *Mock) SeekTo(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, pos)
	m.position = pos
}

func (m *Mock) Next() error {
	m.mu.Lock()
	next := m.index + 1
	if next >= len(m.queue) {
		next = 0
	}
	m.mu.Unlock()
	return m.JumpTo(next)
}

func (m *Mock) Previous() error {
	m.mu.Lock()
	prev := m.index - 1
	m.mu.Unlock()
	if prev < 0 {
		return nil
	}
	return m.JumpTo(prev)
}

func (m *Mock) SetShuffled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shuffleCalls = append(m.shuffleCalls, enabled)
	m.shuffled = enabled
}

func (m *Mock) Shuffled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shuffled
}

func (m *Mock) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volumeLevel = level
}

func (m *Mock) SetSpeed(ratio float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speed = ratio
}

func (m *Mock) SetPitch(ratio float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pitch = ratio
}

func (m *Mock) SetSkipSilence(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipSilence = enabled
}

func (m *Mock) SetNormalization(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.normalized = enabled
}

func (m *Mock) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func (m *Mock) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Mock) OutputSessionID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

func (m *Mock) SetListener(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = fn
}

func (m *Mock) Close() error { return nil }

// Test helpers

// Emit delivers an event to the registered listener.
func (m *Mock) Emit(ev Event) {
	m.mu.Lock()
	fn := m.listener
	m.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (m *Mock) SetPosition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = d
}

func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

func (m *Mock) SetQueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setQueueErr = err
}

func (m *Mock) SetSessionID(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionID = id
}

func (m *Mock) Queue() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queue...)
}

func (m *Mock) SetQueueCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.setQueueArgs...)
}

func (m *Mock) AppendCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.appendCalls...)
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

func (m *Mock) ShuffleCalls() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.shuffleCalls...)
}

func (m *Mock) JumpCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.jumpCalls...)
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volumeLevel
}

func (m *Mock) Speed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

func (m *Mock) Pitch() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pitch
}

func (m *Mock) SkipSilence() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skipSilence
}

func (m *Mock) Normalized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.normalized
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
