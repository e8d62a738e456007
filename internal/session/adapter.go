//go:build linux

package session

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/availlant/ripple/internal/playback"
	"github.com/availlant/ripple/internal/prefs"
)

const (
	minPlaybackRate = 0.25
	maxPlaybackRate = 2.0
)

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil // Track list interface not implemented
}

func (r *rootAdapter) Identity() (string, error) {
	return "Ripple", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/x-wav", "audio/ogg"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the optional
// loop-status and shuffle interfaces.
type playerAdapter struct {
	service playback.Service
	prefs   *prefs.Store
}

func (p *playerAdapter) Next() error {
	p.service.PlayNext()
	return nil
}

func (p *playerAdapter) Previous() error {
	p.service.PlayPrevious()
	return nil
}

func (p *playerAdapter) Pause() error {
	if p.service.IsPlaying() {
		p.service.TogglePlayPause()
	}
	return nil
}

func (p *playerAdapter) PlayPause() error {
	p.service.TogglePlayPause()
	return nil
}

func (p *playerAdapter) Stop() error {
	if p.service.IsPlaying() {
		p.service.TogglePlayPause()
	}
	p.service.SeekTo(0)
	return nil
}

func (p *playerAdapter) Play() error {
	if !p.service.IsPlaying() {
		p.service.TogglePlayPause()
	}
	return nil
}

// Seek moves relative to the current position. Remotes that send a zero
// offset get the configured seek step instead.
func (p *playerAdapter) Seek(offset types.Microseconds) error {
	step := time.Duration(offset) * time.Microsecond
	if step == 0 && p.prefs != nil {
		step = p.prefs.SeekInterval()
	}
	pos := p.service.Position() + step
	if pos < 0 {
		pos = 0
	}
	p.service.SeekTo(pos)
	return nil
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	p.service.SeekTo(time.Duration(position) * time.Microsecond)
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	st := p.service.State()
	switch {
	case st.IsPlaying:
		return types.PlaybackStatusPlaying, nil
	case st.HasQueue():
		return types.PlaybackStatusPaused, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return p.service.Speed(), nil
}

func (p *playerAdapter) SetRate(rate float64) error {
	if rate < minPlaybackRate {
		rate = minPlaybackRate
	}
	if rate > maxPlaybackRate {
		rate = maxPlaybackRate
	}
	p.service.SetSpeed(rate)
	return nil
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	track := p.service.CurrentTrack()
	if track == nil {
		return types.Metadata{}, nil
	}

	st := p.service.State()
	meta := types.Metadata{
		TrackId:     dbus.ObjectPath(formatTrackID(track.ID)),
		Length:      types.Microseconds(st.Duration.Microseconds()),
		Title:       track.Title,
		Artist:      []string{track.Artist},
		Album:       track.Album,
		TrackNumber: track.TrackNumber,
	}
	if track.ArtPath != "" {
		meta.ArtUrl = "file://" + track.ArtPath
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.service.Volume(), nil
}

func (p *playerAdapter) SetVolume(level float64) error {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	p.service.SetVolume(level)
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.service.Position().Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return minPlaybackRate, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return maxPlaybackRate, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	st := p.service.State()
	return st.HasNext() || (st.HasQueue() && st.RepeatMode == playback.RepeatAll), nil
}

// CanGoPrevious is true whenever a track is loaded: past the restart
// threshold Previous rewinds the current track instead of jumping back.
func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.service.State().HasQueue(), nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.service.State().HasQueue(), nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	switch p.service.State().RepeatMode {
	case playback.RepeatOne:
		return types.LoopStatusTrack, nil
	case playback.RepeatAll:
		return types.LoopStatusPlaylist, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	switch status {
	case types.LoopStatusNone:
		p.service.SetRepeatMode(playback.RepeatOff)
	case types.LoopStatusTrack:
		p.service.SetRepeatMode(playback.RepeatOne)
	case types.LoopStatusPlaylist:
		p.service.SetRepeatMode(playback.RepeatAll)
	}
	return nil
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.service.State().Shuffle, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	p.service.SetShuffle(shuffle)
	return nil
}

func formatTrackID(id int64) string {
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%d", id)
}
