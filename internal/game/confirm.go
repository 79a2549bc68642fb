package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConfirmStore holds pending two-step confirmations keyed by requester and
// action. Expiry is judged against the injected clock only.
type ConfirmStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[confirmKey]pendingConfirm
}

type confirmKey struct {
	requester string
	action    string
}

type pendingConfirm struct {
	token     string
	expiresAt time.Time
}

func NewConfirmStore(ttl time.Duration, now func() time.Time) *ConfirmStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &ConfirmStore{ttl: ttl, now: now, pending: map[confirmKey]pendingConfirm{}}
}

func (c *ConfirmStore) Request(requester, action string) ResetTicket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	p := pendingConfirm{token: uuid.NewString(), expiresAt: c.now().Add(c.ttl)}
	c.pending[confirmKey{requester, action}] = p
	return ResetTicket{Token: p.token, ExpiresAt: p.expiresAt}
}

// Confirm consumes a token. Missing, expired and mismatched tokens all fail
// with ErrConfirmExpired; a mismatch leaves the pending token in place.
func (c *ConfirmStore) Confirm(requester, action, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	k := confirmKey{requester, action}
	p, ok := c.pending[k]
	if !ok {
		return reject(ReasonConfirmationExpired, "no pending %s confirmation", action)
	}
	if p.token != token {
		return reject(ReasonConfirmationExpired, "confirmation token does not match")
	}
	delete(c.pending, k)
	return nil
}

func (c *ConfirmStore) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	return len(c.pending)
}

func (c *ConfirmStore) expireLocked() {
	now := c.now()
	for k, p := range c.pending {
		if !now.Before(p.expiresAt) {
			delete(c.pending, k)
		}
	}
}
