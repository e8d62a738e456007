//go:build linux

// Package session exposes playback to the desktop: an MPRIS player on the
// session bus, a media notification with transport actions, and the loudness
// stage that follows the engine's output session.
package session

import (
	"sync"

	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/rs/zerolog"

	"github.com/availlant/ripple/internal/engine"
	"github.com/availlant/ripple/internal/playback"
	"github.com/availlant/ripple/internal/prefs"
)

// Bridge mirrors coordinator state out to the OS surfaces and routes remote
// commands back in. It never owns the engine; closing the bridge leaves
// playback running.
type Bridge struct {
	svc      playback.Service
	eng      engine.Interface
	prefs    *prefs.Store
	log      zerolog.Logger
	server   *server.Server
	notes    *notifier
	loudness *loudnessStage
	sub      *playback.Subscription
	cfgCh    <-chan prefs.Config
	cfgStop  func()

	quit chan struct{}
	wg   sync.WaitGroup

	mu   sync.Mutex
	last renderKey
}

// renderKey is the part of the state the notification cares about. Position
// ticks arrive five times a second and must not re-render.
type renderKey struct {
	trackID  int64
	playing  bool
	favorite bool
	shuffle  bool
	repeat   playback.RepeatMode
}

// New starts the MPRIS server and the notification surface and attaches the
// bridge to the coordinator. A missing notification daemon degrades to
// MPRIS-only operation.
func New(svc playback.Service, eng engine.Interface, store *prefs.Store, log zerolog.Logger) (*Bridge, error) {
	b := &Bridge{
		svc:      svc,
		eng:      eng,
		prefs:    store,
		log:      log.With().Str("component", "session").Logger(),
		loudness: newLoudnessStage(eng),
		quit:     make(chan struct{}),
	}

	b.applyConfig(store.Current())

	b.server = server.NewServer("ripple", &rootAdapter{}, &playerAdapter{service: svc, prefs: store})
	go func() {
		if err := b.server.Listen(); err != nil {
			b.log.Warn().Err(err).Msg("mpris server stopped")
		}
	}()

	notes, err := newNotifier(b.onAction, b.log)
	if err != nil {
		b.log.Warn().Err(err).Msg("notifications unavailable, mpris only")
	} else {
		b.notes = notes
	}

	b.sub = svc.Subscribe()
	b.cfgCh, b.cfgStop = store.Subscribe()
	svc.AttachBridge(b)

	b.wg.Add(1)
	go b.run()
	return b, nil
}

func (b *Bridge) run() {
	defer b.wg.Done()
	for {
		select {
		case st := <-b.sub.States:
			b.loudness.Refresh()
			b.maybeRender(st)
		case cfg := <-b.cfgCh:
			b.applyConfig(cfg)
		case <-b.sub.Done:
			return
		case <-b.quit:
			return
		}
	}
}

func (b *Bridge) applyConfig(cfg prefs.Config) {
	b.log.Debug().
		Bool("skip_silence", cfg.Playback.SkipSilence).
		Bool("normalization", cfg.Playback.Normalization).
		Bool("offload", cfg.Playback.Offload).
		Bool("float_output", cfg.Playback.FloatOutput).
		Msg("applying playback config")
	b.eng.SetSkipSilence(cfg.Playback.SkipSilence)
	b.loudness.SetEnabled(cfg.Playback.Normalization)
	// The output path has no offload mode and always mixes in floats, so
	// the last two flags carry no engine call.
	if cfg.Playback.Offload {
		b.log.Debug().Msg("offload has no effect on this output path")
	}
}

// maybeRender updates the notification only when something it displays
// changed.
func (b *Bridge) maybeRender(st playback.State) {
	if st.CurrentTrack == nil {
		return
	}
	key := renderKey{
		trackID:  st.CurrentTrack.ID,
		playing:  st.IsPlaying,
		favorite: st.CurrentTrack.Favorite,
		shuffle:  st.Shuffle,
		repeat:   st.RepeatMode,
	}
	b.mu.Lock()
	if key == b.last {
		b.mu.Unlock()
		return
	}
	b.last = key
	b.mu.Unlock()
	b.render(st)
}

// RefreshLayout re-renders the notification after a command changed a
// toggle. Called by the coordinator with the post-command snapshot.
func (b *Bridge) RefreshLayout(st playback.State) {
	b.maybeRender(st)
}

func (b *Bridge) render(st playback.State) {
	if b.notes == nil {
		return
	}
	b.notes.Render(layoutFor(st))
}

func layoutFor(st playback.State) layout {
	track := st.CurrentTrack

	body := track.Artist
	if track.Album != "" {
		if body != "" {
			body += " - "
		}
		body += track.Album
	}

	icon := "audio-x-generic"
	if track.ArtPath != "" {
		icon = track.ArtPath
	}

	favLabel := "Favorite"
	if track.Favorite {
		favLabel = "Unfavorite"
	}
	shuffleLabel := "Shuffle on"
	if st.Shuffle {
		shuffleLabel = "Shuffle off"
	}

	return layout{
		Title: track.Title,
		Body:  body,
		Icon:  icon,
		Actions: []string{
			ActionFavoriteToggle, favLabel,
			ActionRepeatCycle, "Repeat: " + st.RepeatMode.String(),
			ActionShuffleToggle, shuffleLabel,
		},
	}
}

// onAction handles a notification button press. The mutating service calls
// refresh the layout through the attached bridge, so no extra render here.
func (b *Bridge) onAction(key string) {
	switch key {
	case ActionFavoriteToggle:
		b.svc.ToggleFavorite()
	case ActionRepeatCycle:
		b.svc.CycleRepeatMode()
	case ActionShuffleToggle:
		b.svc.ToggleShuffle()
	default:
		b.log.Debug().Str("action", key).Msg("unknown notification action")
	}
}

// Close detaches from the coordinator and tears down the OS surfaces.
func (b *Bridge) Close() error {
	b.svc.DetachBridge()
	if b.cfgStop != nil {
		b.cfgStop()
	}
	close(b.quit)
	b.wg.Wait()
	b.loudness.Release()
	if b.notes != nil {
		b.notes.Close()
	}
	return b.server.Stop()
}
