package engine

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

const normalizationGain = -1.0 // halve output when loudness normalization is on

// Player is the beep-backed engine implementation.
type Player struct {
	mu sync.Mutex

	queue []string
	order []int // traversal order over queue indices (identity unless shuffled)
	index int   // current queue index, -1 if nothing loaded

	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	rate     *beep.Resampler
	volume   *effects.Volume
	gen      atomic.Int64 // invalidates the finish callback of a replaced stream

	playing     bool
	shuffled    bool
	volumeLevel float64
	speed       float64
	pitch       float64
	skipSilence bool
	normalized  bool

	speakerRate beep.SampleRate
	sessionID   int

	listener func(Event)
	closed   bool
}

// Verify Player implements Interface at compile time.
var _ Interface = (*Player)(nil)

// NewPlayer creates an engine with nothing loaded.
func NewPlayer() *Player {
	return &Player{
		index:       -1,
		volumeLevel: 1.0,
		speed:       1.0,
		pitch:       1.0,
	}
}

// SetListener registers the single event listener.
func (p *Player) SetListener(fn func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = fn
}

func (p *Player) emit(ev Event) {
	p.mu.Lock()
	fn := p.listener
	p.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

// SetQueue replaces the loaded queue and loads the track at startIndex,
// paused. Play must be called to start output.
func (p *Player) SetQueue(paths []string, startIndex int) error {
	p.mu.Lock()
	p.unloadLocked()
	p.queue = append([]string(nil), paths...)
	p.rebuildOrderLocked()
	if len(p.queue) == 0 {
		p.index = -1
		p.mu.Unlock()
		return nil
	}
	if startIndex < 0 || startIndex >= len(p.queue) {
		startIndex = 0
	}
	err := p.loadLocked(startIndex, false)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.emit(Ready{Duration: p.Duration()})
	return nil
}

// Append adds a path to the end of the queue without touching playback.
func (p *Player) Append(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, path)
	p.rebuildOrderLocked()
}

// JumpTo loads the queue entry at index, keeping the current play/pause state.
func (p *Player) JumpTo(index int) error {
	p.mu.Lock()
	if index < 0 || index >= len(p.queue) {
		p.mu.Unlock()
		return fmt.Errorf("jump index %d out of range", index)
	}
	wasPlaying := p.playing
	err := p.loadLocked(index, wasPlaying)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.emit(TrackTransition{Index: index})
	p.emit(Ready{Duration: p.Duration()})
	return nil
}

// Play starts or resumes output.
func (p *Player) Play() error {
	p.mu.Lock()
	if p.ctrl == nil {
		if p.index < 0 && len(p.queue) > 0 {
			if err := p.loadLocked(0, false); err != nil {
				p.mu.Unlock()
				return err
			}
		}
		if p.ctrl == nil {
			p.mu.Unlock()
			return nil
		}
	}
	if p.playing {
		p.mu.Unlock()
		return nil
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	p.playing = true
	p.mu.Unlock()
	p.emit(PlayingChanged{Playing: true})
	return nil
}

// Pause pauses output. No-op when already paused or nothing is loaded.
func (p *Player) Pause() {
	p.mu.Lock()
	if p.ctrl == nil || !p.playing {
		p.mu.Unlock()
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	p.playing = false
	p.mu.Unlock()
	p.emit(PlayingChanged{Playing: false})
}

// SeekTo moves the playback position of the current track.
func (p *Player) SeekTo(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return
	}
	n := p.format.SampleRate.N(pos)
	if n < 0 {
		n = 0
	}
	if n > p.streamer.Len() {
		n = p.streamer.Len()
	}
	speaker.Lock()
	_ = p.streamer.Seek(n)
	speaker.Unlock()
}

// Next advances to the next entry in traversal order.
func (p *Player) Next() error {
	return p.step(1)
}

// Previous moves to the previous entry in traversal order.
func (p *Player) Previous() error {
	return p.step(-1)
}

func (p *Player) step(delta int) error {
	p.mu.Lock()
	if len(p.queue) == 0 || p.index < 0 {
		p.mu.Unlock()
		return nil
	}
	pos := p.orderPosLocked(p.index) + delta
	if pos < 0 || pos >= len(p.order) {
		// wraps in traversal order; when to stop at the end of the
		// queue is the caller's call, made in queue-order terms
		pos = (pos + len(p.order)) % len(p.order)
	}
	next := p.order[pos]
	wasPlaying := p.playing
	err := p.loadLocked(next, wasPlaying)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.emit(TrackTransition{Index: next})
	p.emit(Ready{Duration: p.Duration()})
	return nil
}

// SetShuffled enables or disables shuffled traversal. The loaded queue and
// reported indices are unaffected; only the order Next/Previous walk changes.
func (p *Player) SetShuffled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shuffled == enabled {
		return
	}
	p.shuffled = enabled
	p.rebuildOrderLocked()
}

// Shuffled reports whether shuffled traversal is enabled.
func (p *Player) Shuffled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shuffled
}

func (p *Player) rebuildOrderLocked() {
	n := len(p.queue)
	if !p.shuffled {
		p.order = p.order[:0]
		for i := 0; i < n; i++ {
			p.order = append(p.order, i)
		}
		return
	}
	p.order = rand.Perm(n)
	// keep the current track first so shuffle never interrupts it
	if p.index >= 0 {
		for i, v := range p.order {
			if v == p.index {
				p.order[0], p.order[i] = p.order[i], p.order[0]
				break
			}
		}
	}
}

func (p *Player) orderPosLocked(index int) int {
	for i, v := range p.order {
		if v == index {
			return i
		}
	}
	return 0
}

// SetVolume sets the output level (0.0 to 1.0).
func (p *Player) SetVolume(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volumeLevel = level
	p.applyVolumeLocked()
}

// SetSpeed sets the playback speed ratio.
func (p *Player) SetSpeed(ratio float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speed = ratio
	p.applyRateLocked()
}

// SetPitch sets the pitch ratio. The output stage has a single resampler, so
// pitch and speed compound on it.
func (p *Player) SetPitch(ratio float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pitch = ratio
	p.applyRateLocked()
}

// SetSkipSilence enables dropping near-silent samples at track start.
// Takes effect from the next loaded track.
func (p *Player) SetSkipSilence(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skipSilence = enabled
}

// SetNormalization toggles the loudness stage on the current output session.
func (p *Player) SetNormalization(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.normalized = enabled
	p.applyVolumeLocked()
}

func (p *Player) applyVolumeLocked() {
	if p.volume == nil {
		return
	}
	v := levelToVolume(p.volumeLevel)
	if p.normalized {
		v += normalizationGain
	}
	speaker.Lock()
	p.volume.Volume = v
	p.volume.Silent = p.volumeLevel <= 0
	speaker.Unlock()
}

func (p *Player) applyRateLocked() {
	if p.rate == nil {
		return
	}
	speaker.Lock()
	p.rate.SetRatio(p.speed * p.pitch)
	speaker.Unlock()
}

// Playing reports whether output is running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Position returns the position within the current track.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return 0
	}
	return p.format.SampleRate.D(p.streamer.Position())
}

// Duration returns the duration of the current track.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return 0
	}
	return p.format.SampleRate.D(p.streamer.Len())
}

// CurrentIndex returns the loaded queue index (-1 if nothing loaded).
func (p *Player) CurrentIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// QueueLen returns the number of loaded queue entries.
func (p *Player) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// OutputSessionID identifies the current output session.
func (p *Player) OutputSessionID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

// Close stops output and releases the loaded stream. The speaker itself is
// process-global and left open.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.unloadLocked()
	return nil
}

func (p *Player) unloadLocked() {
	if p.streamer == nil {
		return
	}
	p.gen.Add(1)
	speaker.Clear()
	p.streamer.Close()
	p.streamer = nil
	if p.file != nil {
		p.file.Close()
		p.file = nil
	}
	p.ctrl = nil
	p.rate = nil
	p.volume = nil
	p.playing = false
}

func (p *Player) loadLocked(index int, startPlaying bool) error {
	path := p.queue[index]
	streamer, format, f, err := decode(path)
	if err != nil {
		go p.emit(ErrorEvent{Op: "decode", Path: path, Err: err})
		return err
	}

	p.unloadLocked()

	if p.speakerRate == 0 || p.speakerRate != format.SampleRate {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			streamer.Close()
			f.Close()
			go p.emit(ErrorEvent{Op: "output", Path: path, Err: err})
			return err
		}
		p.speakerRate = format.SampleRate
		p.sessionID++
	}

	p.file = f
	p.streamer = streamer
	p.format = format
	p.index = index

	var src beep.Streamer = streamer
	if p.skipSilence {
		src = skipLeadingSilence(src)
	}
	p.ctrl = &beep.Ctrl{Streamer: src, Paused: !startPlaying}
	p.rate = beep.ResampleRatio(4, p.speed*p.pitch, p.ctrl)
	p.volume = &effects.Volume{Streamer: p.rate, Base: 2}
	v := levelToVolume(p.volumeLevel)
	if p.normalized {
		v += normalizationGain
	}
	p.volume.Volume = v
	p.volume.Silent = p.volumeLevel <= 0
	p.playing = startPlaying

	// The callback runs on the speaker goroutine with the speaker lock held,
	// so it must not touch p.mu.
	gen := p.gen.Load()
	speaker.Play(beep.Seq(p.volume, beep.Callback(func() {
		if p.gen.Load() == gen {
			go p.emit(Ended{})
		}
	})))
	return nil
}

func decode(path string) (beep.StreamSeekCloser, beep.Format, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, nil, err
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	default:
		err = fmt.Errorf("unsupported format: %s", ext)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, nil, err
	}
	return streamer, format, f, nil
}

const silenceThreshold = 0.001

// skipLeadingSilence drops near-silent samples until the first audible one.
func skipLeadingSilence(s beep.Streamer) beep.Streamer {
	audible := false
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for {
			n, ok := s.Stream(samples)
			if audible || n == 0 {
				return n, ok
			}
			for i := 0; i < n; i++ {
				if math.Abs(samples[i][0]) > silenceThreshold || math.Abs(samples[i][1]) > silenceThreshold {
					audible = true
					copy(samples, samples[i:n])
					return n - i, ok
				}
			}
			if !ok {
				return 0, false
			}
		}
	})
}

// levelToVolume converts a 0.0-1.0 level to beep's logarithmic Volume value.
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10 (essentially silent).
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
