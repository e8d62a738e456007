package playback

import (
	"time"

	"github.com/availlant/ripple/internal/engine"
)

// runEvents consumes engine events on the single state-owner loop. Events
// are applied in arrival order; commands and this loop serialize on the
// same mutex, so no observer ever sees interleaved field updates.
func (s *serviceImpl) runEvents() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.handleEvent(ev)
		}
	}
}

func (s *serviceImpl) handleEvent(ev engine.Event) {
	switch ev := ev.(type) {
	case engine.PlayingChanged:
		s.mu.Lock()
		s.state.IsPlaying = ev.Playing
		if ev.Playing {
			s.startPositionUpdatesLocked()
		} else {
			s.stopPositionUpdatesLocked()
		}
		snap := s.state.clone()
		s.publish(snap)
		s.mu.Unlock()

	case engine.Ready:
		s.mu.Lock()
		s.state.Duration = ev.Duration
		if s.state.Position > ev.Duration {
			s.state.Position = ev.Duration
		}
		snap := s.state.clone()
		s.publish(snap)
		s.mu.Unlock()

	case engine.Ended:
		s.handleEnded()

	case engine.TrackTransition:
		s.handleTransition(ev.Index)

	case engine.ErrorEvent:
		// Contained at this boundary: playback stays at its last
		// consistent state, nothing propagates to subscribers.
		s.log.Error().Err(ev.Err).Str("op", ev.Op).Str("path", ev.Path).Msg("engine error")
	}
}

// handleEnded applies the repeat policy when a track plays to completion.
func (s *serviceImpl) handleEnded() {
	s.mu.Lock()
	mode := s.state.RepeatMode
	idx := s.state.CurrentIndex
	last := len(s.state.Queue) - 1
	sleep := s.sleep
	s.mu.Unlock()

	if idx < 0 {
		return
	}

	switch {
	case mode == RepeatOne:
		if err := s.engine.JumpTo(idx); err == nil {
			_ = s.engine.Play()
		} else {
			s.log.Error().Err(err).Msg("repeat-one reload failed")
		}
	case idx < last:
		if err := s.engine.Next(); err != nil {
			s.log.Error().Err(err).Msg("advance failed")
		}
	case mode == RepeatAll:
		// wrap to the head of the queue
		if err := s.engine.JumpTo(0); err == nil {
			_ = s.engine.Play()
		} else {
			s.log.Error().Err(err).Msg("repeat-all wrap failed")
		}
	default:
		// repeat off at the last entry: stop where we are
		s.engine.Pause()
		s.mu.Lock()
		s.state.IsPlaying = false
		s.stopPositionUpdatesLocked()
		snap := s.state.clone()
		s.publish(snap)
		s.mu.Unlock()
	}

	if sleep != nil {
		sleep.OnTrackEnded()
	}
}

// handleTransition resolves the engine's reported index into the queue.
// Unresolvable indices are ignored; the published state stays consistent.
func (s *serviceImpl) handleTransition(index int) {
	s.mu.Lock()
	if index < 0 || index >= len(s.state.Queue) {
		s.mu.Unlock()
		return
	}
	s.state.CurrentIndex = index
	cur := s.state.Queue[index]
	s.state.CurrentTrack = &cur
	s.state.Position = 0
	s.state.Duration = cur.Duration
	s.playRecorded = false
	sleep := s.sleep
	snap := s.state.clone()
	s.publish(snap)
	s.mu.Unlock()

	if sleep != nil {
		sleep.OnTrackTransition()
	}
}

// startPositionUpdatesLocked starts the 200ms polling loop. Starting an
// already-running loop is a no-op.
func (s *serviceImpl) startPositionUpdatesLocked() {
	if s.polling {
		return
	}
	s.polling = true
	stop := make(chan struct{})
	s.pollStop = stop
	s.wg.Add(1)
	go s.pollPosition(stop)
}

// stopPositionUpdatesLocked stops the polling loop. Stopping an
// already-stopped loop is a no-op.
func (s *serviceImpl) stopPositionUpdatesLocked() {
	if !s.polling {
		return
	}
	s.polling = false
	close(s.pollStop)
}

func (s *serviceImpl) pollPosition(stop chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.tickPosition()
		}
	}
}

// tickPosition reads the engine position, publishes it, and fires the
// play-count accounting once the played threshold is crossed.
func (s *serviceImpl) tickPosition() {
	pos := s.engine.Position()

	s.mu.Lock()
	s.state.Position = pos
	var record int64
	if !s.playRecorded && s.state.CurrentTrack != nil && considersPlayed(pos, s.state.Duration) {
		s.playRecorded = true
		record = s.state.CurrentTrack.ID
	}
	lib := s.library
	snap := s.state.clone()
	s.publish(snap)
	s.mu.Unlock()

	if record != 0 && lib != nil {
		go func() {
			if err := lib.IncrementPlayCount(record); err != nil {
				s.log.Warn().Err(err).Int64("track", record).Msg("play count write failed")
			}
		}()
	}
}

// considersPlayed implements the threshold rule: a track counts as played
// once 30 seconds or half its duration has elapsed, whichever comes first.
func considersPlayed(pos, duration time.Duration) bool {
	if pos > playedAfter {
		return true
	}
	return duration > 0 && pos > duration/2
}
