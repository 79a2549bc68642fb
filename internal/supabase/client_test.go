package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" || r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"bad jwt"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(User{ID: "u-1", Email: "a@b.c"})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL+"/", "anon", "")
	user, err := c.VerifyAccessToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)

	_, err = c.VerifyAccessToken(context.Background(), "bad")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.Contains(t, se.Body, "bad jwt")
}

func TestLoginPostsPasswordGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["email"] != "a@b.c" || in["password"] != "pw" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(Session{AccessToken: "tok", User: User{ID: "u-1", Email: "a@b.c"}})
	}))
	t.Cleanup(srv.Close)

	s, err := NewClient(srv.URL, "anon", "").Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", s.AccessToken)
	assert.Equal(t, "u-1", s.User.ID)
}

func TestTableCallsPreferServiceKey(t *testing.T) {
	var gotKey, gotPrefer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("apikey")
		if r.Method == http.MethodPost {
			gotPrefer = r.Header.Get("Prefer")
			w.WriteHeader(http.StatusCreated)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "anon", "service")
	data, err := c.SelectData(context.Background(), "racing_data", 1)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, "service", gotKey)

	require.NoError(t, c.UpsertData(context.Background(), "racing_data", 1, json.RawMessage(`{}`)))
	assert.Contains(t, gotPrefer, "merge-duplicates")
}
