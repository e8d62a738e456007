package playback

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/availlant/ripple/internal/engine"
	"github.com/availlant/ripple/internal/snapshot"
)

func TestRestore_RehydratesPaused(t *testing.T) {
	m := engine.NewMock()
	lib := newFakeLibrary(testTracks()...)
	store := &memStore{snap: &snapshot.Snapshot{
		CurrentTrackID: 2,
		CurrentIndex:   1,
		PositionMs:     5000,
		Queue:          []int64{1, 2, 3},
		Shuffle:        true,
		RepeatMode:     int(RepeatAll),
	}}
	svc := newTestService(t, Config{
		Engine:  m,
		Library: lib,
		Prefs:   &fakePrefs{enabled: true},
		Store:   store,
	})

	st := svc.State()
	if st.IsPlaying {
		t.Error("restore must never auto-play")
	}
	if st.CurrentIndex != 1 {
		t.Errorf("CurrentIndex = %d, want 1", st.CurrentIndex)
	}
	if st.CurrentTrack == nil || st.CurrentTrack.ID != 2 {
		t.Errorf("CurrentTrack = %+v, want ID 2", st.CurrentTrack)
	}
	if st.Position != 5*time.Second {
		t.Errorf("Position = %v, want 5s", st.Position)
	}
	if !st.Shuffle || st.RepeatMode != RepeatAll {
		t.Errorf("flags = shuffle %v repeat %v, want true/RepeatAll", st.Shuffle, st.RepeatMode)
	}

	if calls := m.SetQueueCalls(); len(calls) != 1 || len(calls[0]) != 3 {
		t.Errorf("SetQueue calls = %v, want one call with 3 paths", calls)
	}
	if seeks := m.SeekCalls(); len(seeks) != 1 || seeks[0] != 5*time.Second {
		t.Errorf("SeekCalls = %v, want [5s]", seeks)
	}
	if shuffles := m.ShuffleCalls(); len(shuffles) != 1 || !shuffles[0] {
		t.Errorf("ShuffleCalls = %v, want [true]", shuffles)
	}
}

func TestRestore_ResolvesByIDWhenIndexStale(t *testing.T) {
	lib := newFakeLibrary(testTracks()...)
	store := &memStore{snap: &snapshot.Snapshot{
		CurrentTrackID: 3,
		CurrentIndex:   0, // stale: ID wins
		Queue:          []int64{1, 2, 3},
	}}
	svc := newTestService(t, Config{
		Library: lib,
		Prefs:   &fakePrefs{enabled: true},
		Store:   store,
	})

	if idx := svc.State().CurrentIndex; idx != 2 {
		t.Errorf("CurrentIndex = %d, want 2 (resolved by track ID)", idx)
	}
}

func TestRestore_SkipsDeletedTracks(t *testing.T) {
	// Track 2 is gone from the library.
	all := testTracks()
	lib := newFakeLibrary(all[0], all[2])
	store := &memStore{snap: &snapshot.Snapshot{
		CurrentTrackID: 2,
		CurrentIndex:   1,
		Queue:          []int64{1, 2, 3},
	}}
	svc := newTestService(t, Config{
		Library: lib,
		Prefs:   &fakePrefs{enabled: true},
		Store:   store,
	})

	st := svc.State()
	if len(st.Queue) != 2 {
		t.Fatalf("queue len = %d, want 2 (deleted track dropped)", len(st.Queue))
	}
	if st.CurrentIndex < 0 || st.CurrentIndex >= len(st.Queue) {
		t.Errorf("CurrentIndex = %d out of range for queue len %d", st.CurrentIndex, len(st.Queue))
	}
}

func TestRestore_CorruptSnapshotDiscarded(t *testing.T) {
	lib := newFakeLibrary(testTracks()...)
	store := &memStore{loadErr: snapshot.ErrCorrupt}
	svc := newTestService(t, Config{
		Library: lib,
		Prefs:   &fakePrefs{enabled: true},
		Store:   store,
	})

	st := svc.State()
	if st.HasQueue() {
		t.Error("corrupt snapshot should cold-start with an empty queue")
	}
	if store.deleteCount() != 1 {
		t.Errorf("deletes = %d, want 1 (corrupt snapshot removed)", store.deleteCount())
	}
}

func TestRestore_DisabledLeavesStoreUntouched(t *testing.T) {
	store := &memStore{snap: &snapshot.Snapshot{Queue: []int64{1}, CurrentTrackID: 1}}
	svc := newTestService(t, Config{
		Library: newFakeLibrary(testTracks()...),
		Prefs:   &fakePrefs{enabled: false},
		Store:   store,
	})

	if svc.State().HasQueue() {
		t.Error("restore should be skipped while persistence is disabled")
	}
	store.mu.Lock()
	loads := store.loads
	store.mu.Unlock()
	if loads != 0 {
		t.Errorf("loads = %d, want 0", loads)
	}
}

func TestPersist_FlushedOnClose(t *testing.T) {
	store := &memStore{}
	svc := New(Config{
		Engine:  engine.NewMock(),
		Library: newFakeLibrary(testTracks()...),
		Prefs:   &fakePrefs{enabled: true},
		Store:   store,
		Logger:  zerolog.Nop(),
	})

	q := testTracks()
	if err := svc.Play(q[1], q); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	svc.SeekTo(7 * time.Second)
	svc.SetRepeatMode(RepeatOne)

	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	snap := store.saved()
	if snap == nil {
		t.Fatal("no snapshot written on close")
	}
	if snap.CurrentTrackID != 2 || snap.CurrentIndex != 1 {
		t.Errorf("snapshot current = id %d idx %d, want id 2 idx 1", snap.CurrentTrackID, snap.CurrentIndex)
	}
	if len(snap.Queue) != 3 {
		t.Errorf("snapshot queue = %v, want 3 IDs", snap.Queue)
	}
	if snap.PositionMs != 7000 {
		t.Errorf("snapshot position = %dms, want 7000", snap.PositionMs)
	}
	if snap.RepeatMode != int(RepeatOne) {
		t.Errorf("snapshot repeat = %d, want %d", snap.RepeatMode, int(RepeatOne))
	}
}

func TestPersist_EmptyQueueNotWritten(t *testing.T) {
	store := &memStore{}
	svc := New(Config{
		Engine: engine.NewMock(),
		Prefs:  &fakePrefs{enabled: true},
		Store:  store,
		Logger: zerolog.Nop(),
	})

	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if store.saved() != nil {
		t.Error("empty queue must not be persisted")
	}
}
