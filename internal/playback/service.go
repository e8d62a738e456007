package playback

import (
	"time"

	"github.com/availlant/ripple/internal/snapshot"
)

// Service defines the playback coordination contract. It is the sole mutator
// of the canonical playback state: UI commands and OS session commands both
// go through here, so neither path can observe a half-applied update.
type Service interface {
	// Playback control
	Play(track Track, queue []Track) error
	TogglePlayPause()
	PlayNext()
	PlayPrevious()
	SeekTo(pos time.Duration)

	// Modes
	ToggleShuffle() bool
	SetShuffle(enabled bool)
	CycleRepeatMode() RepeatMode
	SetRepeatMode(mode RepeatMode)

	// Output tuning (values clamped to their valid ranges)
	SetVolume(level float64)
	SetSpeed(ratio float64)
	SetPitch(ratio float64)
	Volume() float64
	Speed() float64
	Pitch() float64

	// Favorites and queue edits
	ToggleFavorite() bool
	AddToQueue(track Track) error

	// State queries
	State() State
	CurrentTrack() *Track
	IsPlaying() bool
	Position() time.Duration

	// Event subscription (replay-1 multicast)
	Subscribe() *Subscription

	// OS session bridge registration. The coordinator operates fine with no
	// bridge attached; commands still work, OS surfaces just go stale.
	AttachBridge(b Bridge)
	DetachBridge()

	// Lifecycle
	Close() error
}

// Bridge is the OS-facing presentation surface. The coordinator pushes a
// refresh after commands that change button iconography (favorite, repeat,
// shuffle), since the bridge's own stream subscription dedupes on track
// identity and would miss those.
type Bridge interface {
	RefreshLayout(State)
}

// Library is the slice of the library store the coordinator consumes.
// Calls may block on database I/O and run off the state-owner path.
type Library interface {
	TracksByIDs(ids []int64) ([]Track, error)
	IncrementPlayCount(id int64) error
	SetFavorite(id int64, favorite bool) error
}

// Prefs supplies feature flags. The coordinator only reads.
type Prefs interface {
	PersistentQueueEnabled() bool
}

// SnapshotStore persists the minimal queue snapshot across process death.
type SnapshotStore interface {
	Load() (*snapshot.Snapshot, error)
	Save(snapshot.Snapshot) error
	Delete() error
}

// SleepTimer receives track lifecycle hooks so a pause-at-track-end timer
// can fire. Hooks are invoked outside the coordinator lock; implementations
// may call back into the Service.
type SleepTimer interface {
	OnTrackEnded()
	OnTrackTransition()
}
