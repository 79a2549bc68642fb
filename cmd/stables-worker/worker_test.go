package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"stables/internal/config"
	"stables/internal/game"
	"stables/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAnnouncer struct {
	pre  []game.PreRaceSnapshot
	post []game.PostRaceReport
	err  error
}

func (r *recordingAnnouncer) PreRace(_ context.Context, snap game.PreRaceSnapshot) error {
	r.pre = append(r.pre, snap)
	return r.err
}

func (r *recordingAnnouncer) PostRace(_ context.Context, rep game.PostRaceReport) error {
	r.post = append(r.post, rep)
	return r.err
}

func newTestWorker(t *testing.T, now *time.Time, ann *recordingAnnouncer) *worker {
	t.Helper()
	trigger, err := config.ParseTrigger("0 21 * * *", time.UTC)
	require.NoError(t, err)
	svc := game.NewService(store.NewMemory(nil), slog.Default(), game.Options{
		Rules: game.DefaultRules(),
		Seed:  11,
		Now:   func() time.Time { return *now },
	})
	return &worker{svc: svc, trigger: trigger, announcer: ann, log: slog.Default()}
}

func TestCheckRunsOncePerTrigger(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ann := &recordingAnnouncer{}
	w := newTestWorker(t, &now, ann)

	// First check on a fresh season only anchors the clock.
	require.NoError(t, w.check(ctx))
	assert.Empty(t, ann.post)

	now = now.Add(6 * time.Hour)
	require.NoError(t, w.check(ctx))
	assert.Empty(t, ann.post)

	now = now.Add(4 * time.Hour)
	require.NoError(t, w.check(ctx))
	require.Len(t, ann.post, 1)
	require.Len(t, ann.pre, 1)
	assert.Equal(t, ann.post[0].Race.Date.Day+1, ann.pre[0].Race.Date.Day)

	require.NoError(t, w.check(ctx))
	assert.Len(t, ann.post, 1)
}

func TestAnnouncerFailureDoesNotFailCheck(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ann := &recordingAnnouncer{err: errors.New("discord down")}
	w := newTestWorker(t, &now, ann)

	require.NoError(t, w.check(ctx))
	now = now.Add(24 * time.Hour)
	require.NoError(t, w.check(ctx))
	assert.Len(t, ann.post, 1)
	assert.Len(t, ann.pre, 1)
}
