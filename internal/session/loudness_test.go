package session

import "testing"

type fakeOutput struct {
	sessionID  int
	normalized bool
	setCalls   int
}

func (f *fakeOutput) OutputSessionID() int { return f.sessionID }

func (f *fakeOutput) SetNormalization(enabled bool) {
	f.normalized = enabled
	f.setCalls++
}

func TestLoudness_EnableAcquires(t *testing.T) {
	out := &fakeOutput{sessionID: 1}
	stage := newLoudnessStage(out)

	stage.SetEnabled(true)

	if !stage.Acquired() {
		t.Error("stage should be acquired after enable")
	}
	if !out.normalized {
		t.Error("engine normalization should be on")
	}
}

func TestLoudness_DisableReleases(t *testing.T) {
	out := &fakeOutput{sessionID: 1}
	stage := newLoudnessStage(out)

	stage.SetEnabled(true)
	stage.SetEnabled(false)

	if stage.Acquired() {
		t.Error("stage should be released after disable")
	}
	if out.normalized {
		t.Error("engine normalization should be off")
	}
}

func TestLoudness_ReleaseWithoutAcquireIsNoop(t *testing.T) {
	out := &fakeOutput{sessionID: 1}
	stage := newLoudnessStage(out)

	stage.Release()
	stage.Release()

	if out.setCalls != 0 {
		t.Errorf("SetNormalization calls = %d, want 0", out.setCalls)
	}
}

func TestLoudness_DoubleReleaseIsNoop(t *testing.T) {
	out := &fakeOutput{sessionID: 1}
	stage := newLoudnessStage(out)

	stage.SetEnabled(true)
	stage.Release()
	calls := out.setCalls
	stage.Release()

	if out.setCalls != calls {
		t.Error("second release should not touch the engine")
	}
}

func TestLoudness_RefreshRebindsOnSessionChange(t *testing.T) {
	out := &fakeOutput{sessionID: 1}
	stage := newLoudnessStage(out)
	stage.SetEnabled(true)
	calls := out.setCalls

	stage.Refresh() // same session, nothing to do
	if out.setCalls != calls {
		t.Error("refresh on an unchanged session should be a no-op")
	}

	out.sessionID = 2
	stage.Refresh()
	if out.setCalls != calls+1 {
		t.Error("refresh should re-acquire on a new output session")
	}
	if !stage.Acquired() || !out.normalized {
		t.Error("stage should remain acquired on the new session")
	}
}

func TestLoudness_RefreshWhileReleasedIsNoop(t *testing.T) {
	out := &fakeOutput{sessionID: 1}
	stage := newLoudnessStage(out)

	out.sessionID = 2
	stage.Refresh()

	if out.setCalls != 0 || stage.Acquired() {
		t.Error("refresh must not acquire a released stage")
	}
}
