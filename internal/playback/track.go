package playback

import "time"

// Track represents a track in the queue. Values are copies of library data;
// only the Favorite flag is mutated, and only through ToggleFavorite.
type Track struct {
	ID          int64
	Path        string
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	Duration    time.Duration
	Favorite    bool
	ArtPath     string
}
