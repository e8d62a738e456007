package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/availlant/ripple/internal/engine"
	"github.com/availlant/ripple/internal/library"
	"github.com/availlant/ripple/internal/logging"
	"github.com/availlant/ripple/internal/playback"
	"github.com/availlant/ripple/internal/prefs"
	"github.com/availlant/ripple/internal/session"
	"github.com/availlant/ripple/internal/sleeptimer"
	"github.com/availlant/ripple/internal/snapshot"
)

func main() {
	var (
		sleepMin = flag.Int("sleep", 0, "pause playback after N minutes (-1 pauses at end of current track)")
		rescan   = flag.Bool("scan", false, "rescan library sources before starting")
	)
	flag.Parse()

	if err := run(*sleepMin, *rescan); err != nil {
		fmt.Fprintln(os.Stderr, "ripple:", err)
		os.Exit(1)
	}
}

func run(sleepMin int, rescan bool) error {
	prefsStore, err := prefs.Open(logging.New("warn"))
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer prefsStore.Close()

	cfg := prefsStore.Current()
	log := logging.New(cfg.LogLevel)

	if err := prefsStore.Watch(); err != nil {
		log.Warn().Err(err).Msg("config hot reload unavailable")
	}

	lib, err := library.Open(log)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer lib.Close()

	scan := func() {
		stats, err := lib.Scan(cfg.LibrarySources)
		if err != nil {
			log.Error().Err(err).Msg("library scan failed")
			return
		}
		log.Info().
			Int("added", stats.Added).
			Int("updated", stats.Updated).
			Int("skipped", stats.Skipped).
			Msg("library scan done")
	}
	if rescan {
		scan()
	} else {
		go scan()
	}

	store, err := snapshot.NewStore()
	if err != nil {
		log.Warn().Err(err).Msg("queue persistence unavailable")
		store = nil
	}

	eng := engine.NewPlayer()

	var svc playback.Service
	timer := sleeptimer.New(func() {
		if svc != nil && svc.IsPlaying() {
			svc.TogglePlayPause()
		}
	})

	svcCfg := playback.Config{
		Engine:  eng,
		Library: libraryAdapter{lib},
		Prefs:   prefsStore,
		Sleep:   timer,
		Logger:  log,
	}
	if store != nil {
		svcCfg.Store = store
	}
	svc = playback.New(svcCfg)
	defer svc.Close()

	bridge, err := session.New(svc, eng, prefsStore, log)
	if err != nil {
		log.Warn().Err(err).Msg("session bridge unavailable")
	} else {
		defer bridge.Close()
	}

	if sleepMin != 0 {
		timer.Start(sleepMin)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("ripple running")
	<-ctx.Done()
	log.Info().Msg("shutting down")
	return nil
}

// libraryAdapter narrows the library to the coordinator's view of it.
type libraryAdapter struct {
	lib *library.Library
}

func (a libraryAdapter) TracksByIDs(ids []int64) ([]playback.Track, error) {
	rows, err := a.lib.TracksByIDs(ids)
	if err != nil {
		return nil, err
	}
	out := make([]playback.Track, len(rows))
	for i, r := range rows {
		out[i] = playback.Track{
			ID:          r.ID,
			Path:        r.Path,
			Title:       r.Title,
			Artist:      r.Artist,
			Album:       r.Album,
			TrackNumber: r.TrackNumber,
			Duration:    r.Duration,
			Favorite:    r.Favorite,
			ArtPath:     r.ArtPath,
		}
	}
	return out, nil
}

func (a libraryAdapter) IncrementPlayCount(id int64) error {
	return a.lib.IncrementPlayCount(id)
}

func (a libraryAdapter) SetFavorite(id int64, favorite bool) error {
	return a.lib.SetFavorite(id, favorite)
}
