// Package syncq is the CLI's offline write queue. Writes that fail on the
// network are kept with their idempotency key and replayed by `stb sync`.
package syncq

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"stables/internal/cli"
)

type Command struct {
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	Body           map[string]any `json:"body,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
}

func queuePath() (string, error) {
	dir, err := cli.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.json"), nil
}

func Load() ([]Command, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Command{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Command{}, nil
	}
	var out []Command
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func Save(commands []Command) error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(commands, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func Push(cmd Command) error {
	commands, err := Load()
	if err != nil {
		return err
	}
	commands = append(commands, cmd)
	return Save(commands)
}

// Replayer sends one queued command.
type Replayer func(cmd Command) error

// Drain replays every queued command in order. Commands that fail with a
// transient error stay queued; permanent failures are dropped and reported.
func Drain(replay Replayer, permanent func(error) bool) (sent int, dropped []error, err error) {
	commands, err := Load()
	if err != nil {
		return 0, nil, err
	}
	remaining := make([]Command, 0, len(commands))
	for _, cmd := range commands {
		rerr := replay(cmd)
		switch {
		case rerr == nil:
			sent++
		case permanent(rerr):
			dropped = append(dropped, rerr)
		default:
			remaining = append(remaining, cmd)
		}
	}
	return sent, dropped, Save(remaining)
}
