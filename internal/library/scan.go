package library

import (
	"database/sql"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
)

var audioExts = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".ogg":  true,
}

// coverNames lists common album art filenames in priority order.
var coverNames = []string{
	"cover.jpg", "cover.png", "cover.jpeg",
	"folder.jpg", "folder.png", "folder.jpeg",
	"album.jpg", "album.png", "album.jpeg",
	"front.jpg", "front.png", "front.jpeg",
}

// ScanStats summarizes a completed scan.
type ScanStats struct {
	Added   int
	Updated int
	Skipped int
}

// Scan walks the source directories and upserts every audio file found.
// Files whose mtime is unchanged are skipped. Unreadable files are logged
// and skipped, never fatal to the scan.
func (l *Library) Scan(sources []string) (ScanStats, error) {
	var stats ScanStats

	existing, err := l.mtimesByPath()
	if err != nil {
		return stats, err
	}

	err = l.withTx(func(tx *sql.Tx) error {
		for _, src := range sources {
			walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					l.log.Warn().Err(err).Str("path", path).Msg("scan: skipping entry")
					return nil
				}
				if d.IsDir() || !audioExts[strings.ToLower(filepath.Ext(path))] {
					return nil
				}
				info, err := d.Info()
				if err != nil {
					return nil
				}
				mtime := info.ModTime().Unix()
				if prev, ok := existing[path]; ok && prev == mtime {
					stats.Skipped++
					return nil
				}

				t := readTags(path)
				now := time.Now().Unix()
				_, err = tx.Exec(`
					INSERT INTO tracks (path, mtime, title, artist, album, track_number, art_path, added_at, updated_at)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT(path) DO UPDATE SET
						mtime = excluded.mtime,
						title = excluded.title,
						artist = excluded.artist,
						album = excluded.album,
						track_number = excluded.track_number,
						art_path = excluded.art_path,
						updated_at = excluded.updated_at
				`, path, mtime, t.Title, t.Artist, t.Album, t.TrackNumber, t.ArtPath, now, now)
				if err != nil {
					return err
				}
				if _, ok := existing[path]; ok {
					stats.Updated++
				} else {
					stats.Added++
				}
				return nil
			})
			if walkErr != nil {
				return walkErr
			}
		}
		return nil
	})
	return stats, err
}

func (l *Library) mtimesByPath() (map[string]int64, error) {
	rows, err := l.db.Query(`SELECT path, mtime FROM tracks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var path string
		var mtime int64
		if err := rows.Scan(&path, &mtime); err != nil {
			return nil, err
		}
		out[path] = mtime
	}
	return out, rows.Err()
}

// readTags extracts metadata, falling back to the filename when the file
// carries no usable tags. Duration is left to the engine: it is captured
// from the decode stage on first play.
func readTags(path string) Track {
	t := Track{
		Path:    path,
		Title:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		ArtPath: findAlbumArt(path),
	}

	f, err := os.Open(path)
	if err != nil {
		return t
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return t
	}
	if m.Title() != "" {
		t.Title = m.Title()
	}
	t.Artist = m.Artist()
	t.Album = m.Album()
	t.TrackNumber, _ = m.Track()
	return t
}

// findAlbumArt looks for album art in the same directory as the track.
func findAlbumArt(trackPath string) string {
	dir := filepath.Dir(trackPath)
	for _, name := range coverNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
