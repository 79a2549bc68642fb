package syncq

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPermanent = errors.New("rejected")

func TestLoadEmpty(t *testing.T) {
	t.Setenv("STB_HOME", t.TempDir())
	cmds, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestPushKeepsOrder(t *testing.T) {
	t.Setenv("STB_HOME", t.TempDir())
	require.NoError(t, Push(Command{Method: "POST", Path: "/v1/horses", IdempotencyKey: "a"}))
	require.NoError(t, Push(Command{Method: "POST", Path: "/v1/bets", Body: map[string]any{"stake": 100}, IdempotencyKey: "b"}))

	cmds, err := Load()
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, "a", cmds[0].IdempotencyKey)
	assert.EqualValues(t, 100, cmds[1].Body["stake"])
}

func TestDrain(t *testing.T) {
	t.Setenv("STB_HOME", t.TempDir())
	for _, key := range []string{"ok", "bad", "later"} {
		require.NoError(t, Push(Command{Method: "POST", Path: "/v1/x", IdempotencyKey: key}))
	}

	sent, dropped, err := Drain(func(cmd Command) error {
		switch cmd.IdempotencyKey {
		case "ok":
			return nil
		case "bad":
			return errPermanent
		}
		return errors.New("connection refused")
	}, func(err error) bool { return errors.Is(err, errPermanent) })
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, dropped, 1)

	left, err := Load()
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "later", left[0].IdempotencyKey)
}
