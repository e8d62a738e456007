package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/availlant/ripple/internal/engine"
)

func playQueue(t *testing.T, svc Service, idx int) []Track {
	t.Helper()
	q := testTracks()
	if err := svc.Play(q[idx], q); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	waitFor(t, "playing", svc.IsPlaying)
	return q
}

func TestEnded_RepeatOneReloadsSameTrack(t *testing.T) {
	m := engine.NewMock()
	svc := newTestService(t, Config{Engine: m})
	playQueue(t, svc, 1)
	svc.SetRepeatMode(RepeatOne)

	m.Emit(engine.Ended{})

	waitFor(t, "reload", func() bool {
		jumps := m.JumpCalls()
		return len(jumps) > 0 && jumps[len(jumps)-1] == 1
	})
	if idx := svc.State().CurrentIndex; idx != 1 {
		t.Errorf("CurrentIndex = %d, want 1", idx)
	}
	if !svc.IsPlaying() {
		t.Error("repeat-one should keep playing")
	}
}

func TestEnded_AdvancesMidQueue(t *testing.T) {
	m := engine.NewMock()
	svc := newTestService(t, Config{Engine: m})
	playQueue(t, svc, 0)

	m.Emit(engine.Ended{})

	waitFor(t, "advance", func() bool { return svc.State().CurrentIndex == 1 })
	st := svc.State()
	if st.Position != 0 {
		t.Errorf("Position = %v after transition, want 0", st.Position)
	}
	if st.CurrentTrack == nil || st.CurrentTrack.ID != 2 {
		t.Errorf("CurrentTrack = %+v, want ID 2", st.CurrentTrack)
	}
}

func TestEnded_RepeatAllWrapsAtTail(t *testing.T) {
	m := engine.NewMock()
	svc := newTestService(t, Config{Engine: m})
	playQueue(t, svc, 2)
	svc.SetRepeatMode(RepeatAll)

	m.Emit(engine.Ended{})

	waitFor(t, "wrap", func() bool { return svc.State().CurrentIndex == 0 })
	if !svc.IsPlaying() {
		t.Error("repeat-all wrap should keep playing")
	}
}

func TestEnded_StopsAtTailRepeatOff(t *testing.T) {
	m := engine.NewMock()
	svc := newTestService(t, Config{Engine: m})
	playQueue(t, svc, 2)

	m.Emit(engine.Ended{})

	waitFor(t, "paused at tail", func() bool { return !svc.IsPlaying() })
	if idx := svc.State().CurrentIndex; idx != 2 {
		t.Errorf("CurrentIndex = %d, want 2 (position kept)", idx)
	}
}

func TestPlayingChanged_DuplicateEventsAreIdempotent(t *testing.T) {
	m := engine.NewMock()
	svc := newTestService(t, Config{Engine: m})
	playQueue(t, svc, 0)

	// A redundant Playing=true must not start a second polling loop.
	m.Emit(engine.PlayingChanged{Playing: true})
	m.SetPosition(1200 * time.Millisecond)
	waitFor(t, "position polled", func() bool {
		return svc.Position() == 1200*time.Millisecond
	})

	m.Emit(engine.PlayingChanged{Playing: false})
	m.Emit(engine.PlayingChanged{Playing: false})
	waitFor(t, "stopped", func() bool { return !svc.IsPlaying() })

	// Polling restarts cleanly after the duplicate stop.
	m.Emit(engine.PlayingChanged{Playing: true})
	m.SetPosition(2400 * time.Millisecond)
	waitFor(t, "position polled after restart", func() bool {
		return svc.Position() == 2400*time.Millisecond
	})
}

func TestTransition_OutOfRangeIgnored(t *testing.T) {
	m := engine.NewMock()
	svc := newTestService(t, Config{Engine: m})
	playQueue(t, svc, 1)

	m.Emit(engine.TrackTransition{Index: 99})

	time.Sleep(50 * time.Millisecond)
	if idx := svc.State().CurrentIndex; idx != 1 {
		t.Errorf("CurrentIndex = %d after bogus transition, want 1", idx)
	}
}

func TestEngineError_StateUnchanged(t *testing.T) {
	m := engine.NewMock()
	svc := newTestService(t, Config{Engine: m})
	playQueue(t, svc, 1)
	before := svc.State()

	m.Emit(engine.ErrorEvent{Op: "decode", Path: "/music/b.flac", Err: errors.New("bad frame")})

	time.Sleep(50 * time.Millisecond)
	after := svc.State()
	if after.CurrentIndex != before.CurrentIndex || after.IsPlaying != before.IsPlaying {
		t.Errorf("state changed across engine error: before=%+v after=%+v", before, after)
	}
}

func TestSleepTimer_NotifiedOnEndedAndTransition(t *testing.T) {
	m := engine.NewMock()
	sleep := &fakeSleep{}
	svc := newTestService(t, Config{Engine: m, Sleep: sleep})
	playQueue(t, svc, 0)

	m.Emit(engine.Ended{})

	waitFor(t, "sleep notifications", func() bool {
		return sleep.endedCount() == 1 && sleep.transitionCount() >= 1
	})
}

func TestPlayCount_RecordedOncePerTrackInstance(t *testing.T) {
	m := engine.NewMock()
	lib := newFakeLibrary(testTracks()...)
	svc := newTestService(t, Config{Engine: m, Library: lib})
	playQueue(t, svc, 0)

	m.SetPosition(31 * time.Second)

	waitFor(t, "play count", func() bool { return lib.playCount(1) == 1 })

	// Further polls past the threshold must not count again.
	time.Sleep(3 * pollInterval)
	if n := lib.playCount(1); n != 1 {
		t.Errorf("play count = %d, want 1", n)
	}
}

func TestPlayCount_ResetByTransition(t *testing.T) {
	m := engine.NewMock()
	lib := newFakeLibrary(testTracks()...)
	svc := newTestService(t, Config{Engine: m, Library: lib})
	playQueue(t, svc, 0)

	m.SetPosition(31 * time.Second)
	waitFor(t, "first count", func() bool { return lib.playCount(1) == 1 })

	svc.PlayNext()
	waitFor(t, "next track", func() bool { return svc.State().CurrentIndex == 1 })

	m.SetPosition(31 * time.Second)
	waitFor(t, "second count", func() bool { return lib.playCount(2) == 1 })
	if n := lib.playCount(1); n != 1 {
		t.Errorf("first track count = %d, want 1", n)
	}
}

func TestConsidersPlayed(t *testing.T) {
	tests := []struct {
		name     string
		pos      time.Duration
		duration time.Duration
		want     bool
	}{
		{"below both thresholds", 10 * time.Second, 3 * time.Minute, false},
		{"past 30 seconds", 31 * time.Second, 10 * time.Minute, true},
		{"past half of a short track", 16 * time.Second, 30 * time.Second, true},
		{"short track below half", 14 * time.Second, 30 * time.Second, false},
		{"unknown duration below 30s", 29 * time.Second, 0, false},
		{"unknown duration past 30s", 31 * time.Second, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := considersPlayed(tt.pos, tt.duration); got != tt.want {
				t.Errorf("considersPlayed(%v, %v) = %v, want %v", tt.pos, tt.duration, got, tt.want)
			}
		})
	}
}
