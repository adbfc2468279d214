package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/midnight/internal/interview"
)

// TestKey checks key derivation and sanitization.
func TestKey(t *testing.T) {
	require.Equal(t, "abc_Mr__Green.wav", Key("abc", "Mr. Green", "x.WAV"))
	require.Equal(t, "abc_Alice.mp3", Key("abc", " Alice ", "noext"))
	require.Equal(t, "abc____.mp3", Key("abc", "../", "evil.m$3"))
}

// TestFSStoreRoundTrip covers put, get, replace and delete.
func TestFSStoreRoundTrip(t *testing.T) {
	s, err := NewFSStore(filepath.Join(t.TempDir(), "audio"), nil)
	require.NoError(t, err)
	ctx := context.Background()

	key := Key("id1", "Alice", "alice.mp3")
	require.NoError(t, s.Put(ctx, key, []byte("one"), "audio/mpeg"))
	require.NoError(t, s.Put(ctx, key, []byte("two"), "audio/mpeg"))

	data, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("two"), data)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	_, err = s.Get(ctx, key)
	require.ErrorIs(t, err, interview.ErrNotFound)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestFSStoreRejectsTraversal refuses keys with path separators.
func TestFSStoreRejectsTraversal(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), nil)
	require.NoError(t, err)

	err = s.Put(context.Background(), "../escape", []byte("x"), "")
	require.ErrorIs(t, err, interview.ErrInvalidInput)
	require.ErrorIs(t,
		s.Delete(context.Background(), ".."), interview.ErrInvalidInput,
	)
}

// TestOpen selects backends by name.
func TestOpen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()

	s, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.IsType(t, &FSStore{}, s)

	cfg.Backend = BackendMinio
	_, err = Open(context.Background(), cfg, nil)
	require.ErrorIs(t, err, interview.ErrNotConfigured)

	cfg.Backend = "tape"
	_, err = Open(context.Background(), cfg, nil)
	require.ErrorIs(t, err, interview.ErrInvalidInput)
}
