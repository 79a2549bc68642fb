package store

import (
	"context"
	"sync"
)

// Memory keeps the document in process. Saves copy the blob.
type Memory struct {
	mu    sync.Mutex
	raw   []byte
	saves int
}

func NewMemory(raw []byte) *Memory {
	return &Memory{raw: append([]byte(nil), raw...)}
}

func (m *Memory) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.raw...), nil
}

func (m *Memory) Save(ctx context.Context, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = append([]byte(nil), raw...)
	m.saves++
	return nil
}

// Saves reports how many saves have been applied.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) Close() error { return nil }
