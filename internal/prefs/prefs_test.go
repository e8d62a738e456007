package prefs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenAt_MissingFileYieldsDefaults(t *testing.T) {
	s, err := OpenAt(filepath.Join(t.TempDir(), "config.toml"), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenAt() error: %v", err)
	}
	defer s.Close()

	if !s.PersistentQueueEnabled() {
		t.Error("persistent queue should default to enabled")
	}
	if got := s.SeekInterval(); got != 10*time.Second {
		t.Errorf("SeekInterval() = %v, want 10s", got)
	}
	cfg := s.Current()
	if cfg.Playback.SkipSilence || cfg.Playback.Normalization {
		t.Error("engine flags should default to off")
	}
}

func TestOpenAt_ParsesFile(t *testing.T) {
	path := writeConfig(t, `
library_sources = ["/music"]
log_level = "debug"

[playback]
persistent_queue = false
skip_silence = true
normalize_loudness = true
seek_interval = 30
`)
	s, err := OpenAt(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenAt() error: %v", err)
	}
	defer s.Close()

	cfg := s.Current()
	if len(cfg.LibrarySources) != 1 || cfg.LibrarySources[0] != "/music" {
		t.Errorf("LibrarySources = %v", cfg.LibrarySources)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if s.PersistentQueueEnabled() {
		t.Error("persistent queue should be disabled by the file")
	}
	if !cfg.Playback.SkipSilence || !cfg.Playback.Normalization {
		t.Error("engine flags should be enabled by the file")
	}
	if got := s.SeekInterval(); got != 30*time.Second {
		t.Errorf("SeekInterval() = %v, want 30s", got)
	}
}

func TestOpenAt_MalformedFileIsError(t *testing.T) {
	path := writeConfig(t, `this is not toml = = =`)
	if _, err := OpenAt(path, zerolog.Nop()); err == nil {
		t.Fatal("OpenAt() should fail on a malformed file")
	}
}

func TestSeekInterval_FloorsToDefault(t *testing.T) {
	path := writeConfig(t, "[playback]\nseek_interval = -5\n")
	s, err := OpenAt(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenAt() error: %v", err)
	}
	defer s.Close()

	if got := s.SeekInterval(); got != 10*time.Second {
		t.Errorf("SeekInterval() = %v, want default 10s", got)
	}
}

func TestSubscribe_DeliversCurrentImmediately(t *testing.T) {
	s, err := OpenAt(filepath.Join(t.TempDir(), "config.toml"), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenAt() error: %v", err)
	}
	defer s.Close()

	ch, cancel := s.Subscribe()
	defer cancel()

	select {
	case cfg := <-ch:
		if cfg.Playback.SeekInterval != 10 {
			t.Errorf("delivered SeekInterval = %d, want 10", cfg.Playback.SeekInterval)
		}
	default:
		t.Fatal("current config should be buffered on subscribe")
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := writeConfig(t, "[playback]\nskip_silence = false\n")
	s, err := OpenAt(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenAt() error: %v", err)
	}
	defer s.Close()

	if err := s.Watch(); err != nil {
		t.Fatalf("Watch() error: %v", err)
	}

	ch, cancel := s.Subscribe()
	defer cancel()
	<-ch // initial delivery

	if err := os.WriteFile(path, []byte("[playback]\nskip_silence = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-ch:
		if !cfg.Playback.SkipSilence {
			t.Error("reloaded config should have skip_silence on")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload delivered after the file changed")
	}

	if !s.Current().Playback.SkipSilence {
		t.Error("Current() should reflect the reload")
	}
}

func TestWatch_MissingFileIsNoop(t *testing.T) {
	s, err := OpenAt(filepath.Join(t.TempDir(), "config.toml"), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenAt() error: %v", err)
	}
	defer s.Close()

	if err := s.Watch(); err != nil {
		t.Errorf("Watch() on a missing file should be a no-op, got %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandPath("~/Music"); got != filepath.Join(home, "Music") {
		t.Errorf("expandPath(~/Music) = %q", got)
	}
	if got := expandPath("/absolute"); got != "/absolute" {
		t.Errorf("expandPath(/absolute) = %q", got)
	}
	if got := expandPath(""); got != "" {
		t.Errorf("expandPath(\"\") = %q", got)
	}
}
