package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stables/internal/supabase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogin() supabase.Session {
	return supabase.Session{
		AccessToken:  "a",
		RefreshToken: "r",
		User:         supabase.User{ID: "owner-1", Email: "e@x"},
	}
}

func TestLoadStateEmpty(t *testing.T) {
	t.Setenv("STB_HOME", t.TempDir())

	s, err := LoadState()
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())
}

func TestRememberLoginKeepsBaseAndOwner(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STB_HOME", dir)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := RememberLogin("http://api.test/", testLogin(), now)
	require.NoError(t, err)

	s, err := LoadState()
	require.NoError(t, err)
	assert.Equal(t, "http://api.test", s.APIBaseURL)
	assert.Equal(t, "owner-1", s.OwnerID)
	assert.Equal(t, "e@x", s.Email)
	assert.True(t, s.LoggedInAt.Equal(now))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestRequireLoginChecksAPIBase(t *testing.T) {
	t.Setenv("STB_HOME", t.TempDir())

	_, err := RequireLogin("http://api.test")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = RememberLogin("http://api.test", testLogin(), time.Now())
	require.NoError(t, err)

	s, err := RequireLogin("http://api.test/")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", s.OwnerID)

	_, err = RequireLogin("http://other.test")
	assert.True(t, errors.Is(err, ErrNotLoggedIn))
	assert.ErrorContains(t, err, "logged in to http://api.test")
}

func TestLogoutKeepsAPIBase(t *testing.T) {
	t.Setenv("STB_HOME", t.TempDir())
	_, err := RememberLogin("http://api.test", testLogin(), time.Now())
	require.NoError(t, err)

	require.NoError(t, Logout())
	require.NoError(t, Logout())

	s, err := LoadState()
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())
	assert.Empty(t, s.OwnerID)
	assert.Equal(t, "http://api.test", s.APIBaseURL)
}

func TestLoadStateRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STB_HOME", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte("{"), 0o600))

	_, err := LoadState()
	assert.ErrorContains(t, err, "decode")
}
