// Package prefs loads player preferences and re-reads them when the
// config file changes, so flag consumers observe updates without a restart.
package prefs

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

const (
	appName        = "ripple"
	configFileName = "config.toml"

	defaultSeekInterval = 10 // seconds
)

// Config mirrors the config file.
type Config struct {
	LibrarySources []string       `koanf:"library_sources"`
	LogLevel       string         `koanf:"log_level"`
	Playback       PlaybackConfig `koanf:"playback"`
}

// PlaybackConfig holds the engine and persistence flags.
type PlaybackConfig struct {
	PersistentQueue *bool `koanf:"persistent_queue"` // default: true
	SkipSilence     bool  `koanf:"skip_silence"`
	Normalization   bool  `koanf:"normalize_loudness"`
	Offload         bool  `koanf:"offload"`
	FloatOutput     bool  `koanf:"float_output"`
	SeekInterval    int   `koanf:"seek_interval"` // seconds, default: 10
}

// Store holds the current config and fans out reloads to subscribers.
type Store struct {
	mu   sync.RWMutex
	path string
	prov *file.File
	cfg  Config
	subs []chan Config
	log  zerolog.Logger
}

// Open loads the config from the default XDG path. A missing file yields
// defaults; a malformed one is an error.
func Open(log zerolog.Logger) (*Store, error) {
	path, err := xdg.ConfigFile(filepath.Join(appName, configFileName))
	if err != nil {
		return nil, err
	}
	return OpenAt(path, log)
}

// OpenAt loads the config from an explicit path.
func OpenAt(path string, log zerolog.Logger) (*Store, error) {
	s := &Store{path: path, log: log}
	cfg, err := s.load()
	if err != nil {
		return nil, err
	}
	s.cfg = cfg
	return s, nil
}

func (s *Store) load() (Config, error) {
	var cfg Config
	k := koanf.New(".")

	if _, err := os.Stat(s.path); err == nil {
		if err := k.Load(file.Provider(s.path), toml.Parser()); err != nil {
			return cfg, err
		}
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}

	for i, src := range cfg.LibrarySources {
		cfg.LibrarySources[i] = expandPath(src)
	}
	if cfg.Playback.SeekInterval <= 0 {
		cfg.Playback.SeekInterval = defaultSeekInterval
	}
	return cfg, nil
}

// Watch starts observing the config file for changes. Reload failures keep
// the previous config and are logged.
func (s *Store) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prov != nil {
		return nil
	}
	if _, err := os.Stat(s.path); err != nil {
		// nothing to watch yet; flags stay at their load-time values
		return nil
	}
	s.prov = file.Provider(s.path)
	return s.prov.Watch(func(_ interface{}, err error) {
		if err != nil {
			s.log.Warn().Err(err).Msg("config watch error")
			return
		}
		cfg, err := s.load()
		if err != nil {
			s.log.Warn().Err(err).Msg("config reload failed, keeping previous")
			return
		}
		s.mu.Lock()
		s.cfg = cfg
		subs := append([]chan Config(nil), s.subs...)
		s.mu.Unlock()
		for _, ch := range subs {
			select {
			case ch <- cfg:
			default:
			}
		}
	})
}

// Current returns the latest loaded config.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Subscribe returns a channel receiving each reloaded config, and a cancel
// function. The current config is delivered immediately.
func (s *Store) Subscribe() (<-chan Config, func()) {
	ch := make(chan Config, 4)
	s.mu.Lock()
	ch <- s.cfg
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, c := range s.subs {
			if c == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
	}
	return ch, cancel
}

// Close stops watching the config file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prov == nil {
		return nil
	}
	err := s.prov.Unwatch()
	s.prov = nil
	return err
}

// PersistentQueueEnabled reports whether the queue is persisted across
// restarts. Defaults to true when unset.
func (s *Store) PersistentQueueEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg.Playback.PersistentQueue == nil {
		return true
	}
	return *s.cfg.Playback.PersistentQueue
}

// SeekInterval returns the relative-seek step.
func (s *Store) SeekInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.cfg.Playback.SeekInterval) * time.Second
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
