package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validSnapshot() Snapshot {
	return Snapshot{
		CurrentTrackID: 2,
		CurrentIndex:   1,
		PositionMs:     5000,
		Queue:          []int64{1, 2, 3},
		Shuffle:        true,
		RepeatMode:     1,
	}
}

func TestUnmarshal_RoundTrip(t *testing.T) {
	data, err := Marshal(validSnapshot())
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, validSnapshot(), *got)
}

func TestUnmarshal_CorruptBytes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not json", []byte("not json at all")},
		{"truncated", []byte(`{"queue":[1,2`)},
		{"empty object", []byte(`{}`)},
		{"empty queue", []byte(`{"queue":[]}`)},
		{"index past queue", []byte(`{"queue":[1,2],"current_index":5}`)},
		{"negative index", []byte(`{"queue":[1],"current_index":-1}`)},
		{"negative position", []byte(`{"queue":[1],"position_ms":-10}`)},
		{"repeat out of range", []byte(`{"queue":[1],"repeat_mode":7}`)},
		{"wrong field type", []byte(`{"queue":"abc"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestStore_LoadMissingIsNil(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "queue.json"))

	snap, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, snap)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "queue.json"))

	require.NoError(t, store.Save(validSnapshot()))

	got, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, validSnapshot(), *got)
}

func TestStore_SaveCreatesParentDirs(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "deep", "nested", "queue.json"))
	require.NoError(t, store.Save(validSnapshot()))
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store := NewStoreAt(path)
	require.NoError(t, store.Save(validSnapshot()))

	require.NoError(t, os.WriteFile(path, []byte("garbage{{{"), 0o644))

	_, err := store.Load()
	require.True(t, errors.Is(err, ErrCorrupt))
}

func TestStore_DeleteMissingIsNoError(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "queue.json"))
	require.NoError(t, store.Delete())
}

func TestStore_DeleteRemovesSnapshot(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "queue.json"))
	require.NoError(t, store.Save(validSnapshot()))
	require.NoError(t, store.Delete())

	snap, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, snap)
}
