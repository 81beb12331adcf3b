package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))
	key := IMAPPasswordKey("me@example.com", "imap.example.com")

	_, err := s.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(key, "hunter2"))
	got, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	require.NoError(t, s.Set(key, "correct horse"))
	got, err = s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "correct horse", got)

	require.NoError(t, s.Delete(key))
	_, err = s.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Delete(key), "deleting a missing key is fine")
}

func TestIMAPPasswordKey(t *testing.T) {
	assert.Equal(t, "imap:me@example.com@imap.example.com", IMAPPasswordKey("me@example.com", "imap.example.com"))
}

func TestFilePassword_FromEnv(t *testing.T) {
	t.Setenv("CONTACTSTATS_KEYRING_PASSWORD", "secret")
	pw, err := filePassword("ignored")
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)
}
