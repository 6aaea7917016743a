package identity

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/chatsync/internal/domain"
)

func TestFileStore_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chatsync")
	s := NewFileStore(dir)

	_, err := s.Load()
	require.ErrorIs(t, err, ErrNoIdentity)

	want := FromUser(domain.User{ID: "u1", Username: "Alice", Avatar: "🚀", Points: 120, Level: 2}, "tok")
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "u1", got.User().ID)

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(filepath.Join(dir, fileName))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())
	}

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestFileStore_CorruptFileIsRemoved(t *testing.T) {
	cases := map[string]string{
		"not json":        "{{{",
		"missing user id": `{"username":"Alice"}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte(content), 0600))

			_, err := NewFileStore(dir).Load()
			require.ErrorIs(t, err, ErrCorruptIdentity)

			_, statErr := os.Stat(filepath.Join(dir, fileName))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}
