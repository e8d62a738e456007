// internal/playback/service_impl.go
package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/availlant/ripple/internal/engine"
)

const (
	pollInterval      = 200 * time.Millisecond
	persistInterval   = 10 * time.Second
	shuffleDebounce   = 500 * time.Millisecond
	restartThreshold  = 3 * time.Second
	playedAfter       = 30 * time.Second
	engineEventBuffer = 64
	publishBuffer     = 32
)

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

// Config carries the coordinator's collaborators. Engine is required;
// everything else may be nil and degrades to a no-op.
type Config struct {
	Engine  engine.Interface
	Library Library
	Prefs   Prefs
	Store   SnapshotStore
	Sleep   SleepTimer
	Logger  zerolog.Logger
}

type serviceImpl struct {
	mu sync.Mutex

	engine  engine.Interface
	library Library
	prefs   Prefs
	store   SnapshotStore
	sleep   SleepTimer
	log     zerolog.Logger

	state        State
	playRecorded bool // play count already incremented for this track instance

	volume float64
	speed  float64
	pitch  float64

	lastShuffleToggle time.Time

	bridge Bridge

	polling  bool
	pollStop chan struct{}

	subs   []*Subscription
	subsMu sync.RWMutex

	events chan engine.Event
	pub    chan State

	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// New creates the coordinator, restores any persisted queue (paused, never
// auto-playing), and starts its background loops.
func New(cfg Config) Service {
	s := &serviceImpl{
		engine:  cfg.Engine,
		library: cfg.Library,
		prefs:   cfg.Prefs,
		store:   cfg.Store,
		sleep:   cfg.Sleep,
		log:     cfg.Logger,
		state:   State{CurrentIndex: -1},
		volume:  1.0,
		speed:   1.0,
		pitch:   1.0,
		events:  make(chan engine.Event, engineEventBuffer),
		pub:     make(chan State, publishBuffer),
		done:    make(chan struct{}),
	}

	s.engine.SetListener(func(ev engine.Event) {
		select {
		case s.events <- ev:
		case <-s.done:
		}
	})

	s.restore()

	s.wg.Add(3)
	go s.runEvents()
	go s.runBroadcast()
	go s.runPersist()

	return s
}

// Play replaces the queue and starts playback at the given track. If the
// track is not in the queue the index is clamped to 0.
func (s *serviceImpl) Play(track Track, queue []Track) error {
	s.mu.Lock()
	q := make([]Track, len(queue))
	copy(q, queue)
	if len(q) == 0 {
		q = []Track{track}
	}
	idx := 0
	for i := range q {
		if q[i].ID == track.ID && q[i].Path == track.Path {
			idx = i
			break
		}
	}
	paths := make([]string, len(q))
	for i := range q {
		paths[i] = q[i].Path
	}
	// State mutates only once the engine accepted the queue; a load
	// failure leaves the last consistent state in place.
	if err := s.engine.SetQueue(paths, idx); err != nil {
		s.mu.Unlock()
		s.log.Error().Err(err).Str("path", q[idx].Path).Msg("load queue failed")
		return err
	}
	s.state.Queue = q
	s.state.CurrentIndex = idx
	cur := q[idx]
	s.state.CurrentTrack = &cur
	s.state.Position = 0
	s.state.Duration = cur.Duration
	s.playRecorded = false

	err := s.engine.Play()
	snap := s.state.clone()
	s.publish(snap)
	s.mu.Unlock()
	return err
}

// TogglePlayPause starts or pauses playback. The IsPlaying field follows
// the engine's PlayingChanged event, not this call.
func (s *serviceImpl) TogglePlayPause() {
	s.mu.Lock()
	playing := s.state.IsPlaying
	s.mu.Unlock()
	if playing {
		s.engine.Pause()
	} else if err := s.engine.Play(); err != nil {
		s.log.Error().Err(err).Msg("play failed")
	}
}

// PlayNext advances to the next queue entry. At the last entry it wraps
// only under repeat-all; otherwise it is a no-op.
func (s *serviceImpl) PlayNext() {
	s.mu.Lock()
	ok := s.state.HasNext() || (s.state.RepeatMode == RepeatAll && s.state.HasQueue())
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.engine.Next(); err != nil {
		s.log.Error().Err(err).Msg("next failed")
	}
}

// PlayPrevious restarts the current track when more than three seconds
// have elapsed, otherwise moves to the previous queue entry if one exists.
func (s *serviceImpl) PlayPrevious() {
	s.mu.Lock()
	pos := s.state.Position
	idx := s.state.CurrentIndex
	s.mu.Unlock()

	if pos > restartThreshold || idx <= 0 {
		s.SeekTo(0)
		return
	}
	if err := s.engine.Previous(); err != nil {
		s.log.Error().Err(err).Msg("previous failed")
	}
}

// SeekTo moves the position within the current track, clamped to
// [0, duration]. The new position is published before the next poll tick.
func (s *serviceImpl) SeekTo(pos time.Duration) {
	s.mu.Lock()
	if pos < 0 {
		pos = 0
	}
	if d := s.state.Duration; d > 0 && pos > d {
		pos = d
	}
	s.engine.SeekTo(pos)
	s.state.Position = pos
	snap := s.state.clone()
	s.publish(snap)
	s.mu.Unlock()
}

// ToggleShuffle inverts the shuffle flag and returns the new value. Calls
// within 500ms of the previous toggle are dropped, absorbing duplicate
// UI+OS invocations; the current value is returned unchanged.
func (s *serviceImpl) ToggleShuffle() bool {
	s.mu.Lock()
	now := time.Now()
	if now.Sub(s.lastShuffleToggle) < shuffleDebounce {
		v := s.state.Shuffle
		s.mu.Unlock()
		return v
	}
	s.lastShuffleToggle = now
	s.state.Shuffle = !s.state.Shuffle
	v := s.state.Shuffle
	s.engine.SetShuffled(v)
	snap := s.state.clone()
	b := s.bridge
	s.publish(snap)
	s.mu.Unlock()

	if b != nil {
		b.RefreshLayout(snap)
	}
	return v
}

// SetShuffle sets the shuffle flag explicitly (OS session property writes).
// Unlike ToggleShuffle it is not debounced: an explicit set is idempotent.
func (s *serviceImpl) SetShuffle(enabled bool) {
	s.mu.Lock()
	if s.state.Shuffle == enabled {
		s.mu.Unlock()
		return
	}
	s.state.Shuffle = enabled
	s.engine.SetShuffled(enabled)
	snap := s.state.clone()
	b := s.bridge
	s.publish(snap)
	s.mu.Unlock()

	if b != nil {
		b.RefreshLayout(snap)
	}
}

// SetRepeatMode sets the repeat mode explicitly.
func (s *serviceImpl) SetRepeatMode(mode RepeatMode) {
	s.mu.Lock()
	if s.state.RepeatMode == mode {
		s.mu.Unlock()
		return
	}
	s.state.RepeatMode = mode
	snap := s.state.clone()
	b := s.bridge
	s.publish(snap)
	s.mu.Unlock()

	if b != nil {
		b.RefreshLayout(snap)
	}
}

// CycleRepeatMode advances Off -> All -> One -> Off and returns the new mode.
func (s *serviceImpl) CycleRepeatMode() RepeatMode {
	s.mu.Lock()
	s.state.RepeatMode = s.state.RepeatMode.Next()
	mode := s.state.RepeatMode
	snap := s.state.clone()
	b := s.bridge
	s.publish(snap)
	s.mu.Unlock()

	if b != nil {
		b.RefreshLayout(snap)
	}
	return mode
}

// SetVolume applies an output level clamped to [0, 1].
func (s *serviceImpl) SetVolume(level float64) {
	s.mu.Lock()
	s.volume = clamp(level, 0, 1)
	s.engine.SetVolume(s.volume)
	s.mu.Unlock()
}

// SetSpeed applies a playback speed clamped to [0.25, 2].
func (s *serviceImpl) SetSpeed(ratio float64) {
	s.mu.Lock()
	s.speed = clamp(ratio, 0.25, 2.0)
	s.engine.SetSpeed(s.speed)
	s.mu.Unlock()
}

// SetPitch applies a pitch ratio clamped to [0.5, 2].
func (s *serviceImpl) SetPitch(ratio float64) {
	s.mu.Lock()
	s.pitch = clamp(ratio, 0.5, 2.0)
	s.engine.SetPitch(s.pitch)
	s.mu.Unlock()
}

func (s *serviceImpl) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *serviceImpl) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

func (s *serviceImpl) Pitch() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pitch
}

// ToggleFavorite flips the favorite flag on the current track and returns
// the new value immediately. The library write happens in the background;
// a failure there is logged and the in-memory flag stands.
func (s *serviceImpl) ToggleFavorite() bool {
	s.mu.Lock()
	t := s.state.CurrentTrack
	if t == nil {
		s.mu.Unlock()
		return false
	}
	t.Favorite = !t.Favorite
	newVal := t.Favorite
	if i := s.state.CurrentIndex; i >= 0 && i < len(s.state.Queue) {
		s.state.Queue[i].Favorite = newVal
	}
	id := t.ID
	snap := s.state.clone()
	b := s.bridge
	lib := s.library
	s.publish(snap)
	s.mu.Unlock()

	if lib != nil {
		go func() {
			if err := lib.SetFavorite(id, newVal); err != nil {
				s.log.Warn().Err(err).Int64("track", id).Msg("favorite write failed")
			}
		}()
	}
	if b != nil {
		b.RefreshLayout(snap)
	}
	return newVal
}

// AddToQueue appends a track without interrupting playback. On an empty
// queue it behaves like Play.
func (s *serviceImpl) AddToQueue(track Track) error {
	s.mu.Lock()
	if !s.state.HasQueue() {
		s.mu.Unlock()
		return s.Play(track, []Track{track})
	}
	s.state.Queue = append(s.state.Queue, track)
	s.engine.Append(track.Path)
	snap := s.state.clone()
	s.publish(snap)
	s.mu.Unlock()
	return nil
}

// State returns the current snapshot.
func (s *serviceImpl) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// CurrentTrack returns a copy of the current track, or nil.
func (s *serviceImpl) CurrentTrack() *Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentTrack == nil {
		return nil
	}
	t := *s.state.CurrentTrack
	return &t
}

// IsPlaying reports whether playback is running.
func (s *serviceImpl) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsPlaying
}

// Position returns the last published position.
func (s *serviceImpl) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Position
}

// Subscribe creates a new subscription seeded with the current state.
func (s *serviceImpl) Subscribe() *Subscription {
	st := s.State()
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription(st)
	s.subs = append(s.subs, sub)
	return sub
}

// AttachBridge registers the OS session bridge.
func (s *serviceImpl) AttachBridge(b Bridge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bridge = b
}

// DetachBridge unregisters the bridge. Safe to call when none is attached.
func (s *serviceImpl) DetachBridge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bridge = nil
}

// Close stops the background loops, flushes a final snapshot, closes all
// subscriptions and releases the engine (the coordinator owns it).
func (s *serviceImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.stopPositionUpdatesLocked()
	close(s.done)
	s.mu.Unlock()

	s.persistOnce()
	s.wg.Wait()

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()

	return s.engine.Close()
}

// publish hands a snapshot to the broadcast loop. Called with s.mu held
// so snapshots enter the channel in version order; the send never blocks,
// latest-wins when the loop falls behind.
func (s *serviceImpl) publish(st State) {
	for {
		select {
		case s.pub <- st:
			return
		case <-s.done:
			return
		default:
		}
		select {
		case <-s.pub:
		default:
		}
	}
}

func (s *serviceImpl) runBroadcast() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case st := <-s.pub:
			s.subsMu.RLock()
			for _, sub := range s.subs {
				sub.send(st)
			}
			s.subsMu.RUnlock()
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
