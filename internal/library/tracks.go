package library

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a track ID has no row.
var ErrNotFound = errors.New("track not found")

// Track is a scanned library entry. Immutable once scanned except for the
// favorite flag and play count.
type Track struct {
	ID          int64
	Path        string
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	Duration    time.Duration
	ArtPath     string
	Favorite    bool
	PlayCount   int
}

const trackColumns = `id, path, title, artist, album, track_number, duration_ms, art_path, favorite, play_count`

func scanTrack(row interface{ Scan(...any) error }) (Track, error) {
	var t Track
	var artist, album, artPath sql.NullString
	var trackNumber sql.NullInt64
	var durationMs int64
	err := row.Scan(&t.ID, &t.Path, &t.Title, &artist, &album, &trackNumber,
		&durationMs, &artPath, &t.Favorite, &t.PlayCount)
	if err != nil {
		return Track{}, err
	}
	t.Artist = artist.String
	t.Album = album.String
	t.ArtPath = artPath.String
	t.TrackNumber = int(trackNumber.Int64)
	t.Duration = time.Duration(durationMs) * time.Millisecond
	return t, nil
}

// GetTrackByID returns the track with the given ID.
func (l *Library) GetTrackByID(id int64) (*Track, error) {
	row := l.db.QueryRow(`SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TracksByIDs returns tracks in the order of the given IDs. IDs with no
// matching row are skipped, so a restored queue survives library deletions.
func (l *Library) TracksByIDs(ids []int64) ([]Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	byID := make(map[int64]Track, len(ids))
	for _, id := range ids {
		if _, seen := byID[id]; seen {
			continue
		}
		t, err := l.GetTrackByID(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		byID[id] = *t
	}
	out := make([]Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// AllTracks returns the whole library ordered by artist, album and track
// number.
func (l *Library) AllTracks() ([]Track, error) {
	rows, err := l.db.Query(`SELECT ` + trackColumns + ` FROM tracks ORDER BY artist, album, track_number, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetFavorite sets the favorite flag on a track.
func (l *Library) SetFavorite(id int64, favorite bool) error {
	res, err := l.db.Exec(`UPDATE tracks SET favorite = ? WHERE id = ?`, favorite, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// IncrementPlayCount adds one play to a track.
func (l *Library) IncrementPlayCount(id int64) error {
	res, err := l.db.Exec(`UPDATE tracks SET play_count = play_count + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}
