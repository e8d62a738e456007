package playback

import (
	"time"

	"github.com/availlant/ripple/internal/snapshot"
)

// runPersist wakes every ten seconds and writes a snapshot while the queue
// is non-empty and persistence is enabled. A failed write is logged and
// retried implicitly on the next cycle.
func (s *serviceImpl) runPersist() {
	defer s.wg.Done()
	ticker := time.NewTicker(persistInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.persistOnce()
		}
	}
}

func (s *serviceImpl) persistOnce() {
	if s.store == nil || s.prefs == nil || !s.prefs.PersistentQueueEnabled() {
		return
	}

	s.mu.Lock()
	if !s.state.HasQueue() {
		s.mu.Unlock()
		return
	}
	snap := snapshot.Snapshot{
		CurrentIndex: s.state.CurrentIndex,
		PositionMs:   s.state.Position.Milliseconds(),
		Queue:        make([]int64, len(s.state.Queue)),
		Shuffle:      s.state.Shuffle,
		RepeatMode:   int(s.state.RepeatMode),
	}
	for i := range s.state.Queue {
		snap.Queue[i] = s.state.Queue[i].ID
	}
	if s.state.CurrentTrack != nil {
		snap.CurrentTrackID = s.state.CurrentTrack.ID
	}
	s.mu.Unlock()

	if err := s.store.Save(snap); err != nil {
		s.log.Warn().Err(err).Msg("snapshot save failed")
	}
}

// restore rehydrates the persisted queue at construction. Playback is left
// paused: restore must never auto-start audio. Every failure path falls
// open to an empty state and is never surfaced to the caller.
func (s *serviceImpl) restore() {
	if s.store == nil || s.library == nil || s.prefs == nil || !s.prefs.PersistentQueueEnabled() {
		return
	}

	snap, err := s.store.Load()
	if err != nil {
		s.log.Warn().Err(err).Msg("discarding unreadable snapshot")
		if derr := s.store.Delete(); derr != nil {
			s.log.Warn().Err(derr).Msg("snapshot delete failed")
		}
		return
	}
	if snap == nil {
		return
	}

	tracks, err := s.library.TracksByIDs(snap.Queue)
	if err != nil {
		s.log.Warn().Err(err).Msg("snapshot queue lookup failed")
		return
	}
	if len(tracks) == 0 {
		return
	}

	// Resolve the current track by ID first, by saved index second.
	idx := -1
	for i := range tracks {
		if tracks[i].ID == snap.CurrentTrackID {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = snap.CurrentIndex
	}
	if idx < 0 || idx >= len(tracks) {
		idx = 0
	}

	paths := make([]string, len(tracks))
	for i := range tracks {
		paths[i] = tracks[i].Path
	}
	if err := s.engine.SetQueue(paths, idx); err != nil {
		s.log.Warn().Err(err).Msg("snapshot queue load failed")
		return
	}
	s.engine.SetShuffled(snap.Shuffle)

	pos := time.Duration(snap.PositionMs) * time.Millisecond
	if d := tracks[idx].Duration; d > 0 && pos > d {
		pos = d
	}
	s.engine.SeekTo(pos)

	s.mu.Lock()
	s.state.Queue = tracks
	s.state.CurrentIndex = idx
	cur := tracks[idx]
	s.state.CurrentTrack = &cur
	s.state.Position = pos
	s.state.Duration = cur.Duration
	s.state.Shuffle = snap.Shuffle
	s.state.RepeatMode = RepeatMode(snap.RepeatMode)
	s.state.IsPlaying = false
	s.mu.Unlock()
}
