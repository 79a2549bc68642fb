package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stables/internal/supabase"
)

var ErrNotLoggedIn = errors.New("not logged in, run `stb login`")

// State is what stb keeps between runs: the API it last logged in to and
// the owner tokens issued there.
type State struct {
	APIBaseURL   string    `json:"api_base_url"`
	OwnerID      string    `json:"owner_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	LoggedInAt   time.Time `json:"logged_in_at,omitempty"`
}

func (s State) LoggedIn() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

// StateDir is ~/.stb unless STB_HOME is set. The offline queue lives there
// too.
func StateDir() (string, error) {
	dir := strings.TrimSpace(os.Getenv("STB_HOME"))
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".stb")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func statePath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

// LoadState returns the zero State when nothing was saved yet.
func LoadState() (State, error) {
	path, err := statePath()
	if err != nil {
		return State{}, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, nil
}

func SaveState(s State) error {
	path, err := statePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "state-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// RememberLogin replaces the saved login with sess, issued by baseURL.
func RememberLogin(baseURL string, sess supabase.Session, now time.Time) (State, error) {
	s := State{
		APIBaseURL:   strings.TrimRight(baseURL, "/"),
		OwnerID:      sess.User.ID,
		Email:        sess.User.Email,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		LoggedInAt:   now.UTC(),
	}
	return s, SaveState(s)
}

// Logout drops the tokens and keeps the API base URL for the next login.
func Logout() error {
	s, err := LoadState()
	if err != nil {
		return err
	}
	return SaveState(State{APIBaseURL: s.APIBaseURL})
}

// RequireLogin loads the saved login for baseURL. A token issued by a
// different API is refused rather than sent there.
func RequireLogin(baseURL string) (State, error) {
	s, err := LoadState()
	if err != nil {
		return State{}, err
	}
	if !s.LoggedIn() {
		return State{}, ErrNotLoggedIn
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if s.APIBaseURL != "" && s.APIBaseURL != baseURL {
		return State{}, fmt.Errorf("logged in to %s, not %s: %w", s.APIBaseURL, baseURL, ErrNotLoggedIn)
	}
	return s, nil
}
