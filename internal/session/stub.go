//go:build !linux

package session

import (
	"github.com/rs/zerolog"

	"github.com/availlant/ripple/internal/engine"
	"github.com/availlant/ripple/internal/playback"
	"github.com/availlant/ripple/internal/prefs"
)

// Bridge is a no-op on platforms without a session bus.
type Bridge struct{}

func New(_ playback.Service, _ engine.Interface, _ *prefs.Store, _ zerolog.Logger) (*Bridge, error) {
	return &Bridge{}, nil
}

func (b *Bridge) RefreshLayout(playback.State) {}

func (b *Bridge) Close() error { return nil }
