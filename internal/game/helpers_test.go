package game

import (
	"fmt"
	"testing"
	"time"
)

var testNow = time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

func newTestDoc(t *testing.T, rules Rules, date SeasonDate) *Document {
	t.Helper()
	doc := NewDocument(rules)
	doc.Clock.Year, doc.Clock.Month, doc.Clock.Day = date.Year, date.Month, date.Day
	return doc
}

func addOwner(t *testing.T, doc *Document, id string, balance int64) *Owner {
	t.Helper()
	o := &Owner{ID: id, Balance: balance, Horses: []string{}}
	doc.Owners[id] = o
	return o
}

func evenStats(v int) Stats {
	return Stats{Speed: v, Stamina: v, Temper: 50, Growth: 50, Turf: 80, Dirt: 80}
}

func addHorse(t *testing.T, doc *Document, ownerID string, stats Stats) *Horse {
	t.Helper()
	o, ok := doc.Owners[ownerID]
	if !ok {
		t.Fatalf("owner %s missing", ownerID)
	}
	id := doc.nextHorseID("H")
	h := &Horse{ID: id, Name: fmt.Sprintf("Runner %s", id), Owner: PlayerOwner(ownerID), Stats: stats, Age: 2}
	doc.Horses[id] = h
	o.Horses = append(o.Horses, id)
	return h
}

func mustReason(t *testing.T, err error, want Reason) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected rejection %s, got nil", want)
	}
	if got := ReasonOf(err); got != want {
		t.Fatalf("expected rejection %s, got %v", want, err)
	}
}
