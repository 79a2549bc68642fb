package game

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestConfirmStoreTTL(t *testing.T) {
	clock := &fakeClock{t: testNow}
	store := NewConfirmStore(time.Minute, clock.Now)

	ticket := store.Request("admin", "reset")
	if !ticket.ExpiresAt.Equal(testNow.Add(time.Minute)) {
		t.Fatalf("unexpected expiry %s", ticket.ExpiresAt)
	}
	if err := store.Confirm("admin", "reset", "wrong"); ReasonOf(err) != ReasonConfirmationExpired {
		t.Fatalf("expected mismatch to fail, got %v", err)
	}
	if err := store.Confirm("other", "reset", ticket.Token); ReasonOf(err) != ReasonConfirmationExpired {
		t.Fatalf("expected other requester to fail, got %v", err)
	}

	clock.Advance(59 * time.Second)
	if store.Pending() != 1 {
		t.Fatalf("expected token to still be live")
	}
	if err := store.Confirm("admin", "reset", ticket.Token); err != nil {
		t.Fatalf("expected confirm to succeed: %v", err)
	}
	if err := store.Confirm("admin", "reset", ticket.Token); err == nil {
		t.Fatalf("expected a token to be single use")
	}

	expired := store.Request("admin", "reset")
	clock.Advance(time.Minute)
	if err := store.Confirm("admin", "reset", expired.Token); ReasonOf(err) != ReasonConfirmationExpired {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
	if store.Pending() != 0 {
		t.Fatalf("expected expired tokens to be dropped")
	}
}

func TestConfirmStoreRequestReplacesToken(t *testing.T) {
	clock := &fakeClock{t: testNow}
	store := NewConfirmStore(time.Minute, clock.Now)
	first := store.Request("admin", "reset")
	second := store.Request("admin", "reset")
	if first.Token == second.Token {
		t.Fatalf("expected a fresh token")
	}
	if err := store.Confirm("admin", "reset", first.Token); err == nil {
		t.Fatalf("expected the replaced token to fail")
	}
	if err := store.Confirm("admin", "reset", second.Token); err != nil {
		t.Fatalf("expected the newest token to succeed: %v", err)
	}
}
