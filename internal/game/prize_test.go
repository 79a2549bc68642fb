package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankTiesKeepFieldOrder(t *testing.T) {
	rules := DefaultRules()
	rules.Filler.MinField = 5
	e := NewEngine(rules)
	today := SeasonDate{2024, 1, 5}
	doc := newTestDoc(t, rules, today)
	addOwner(t, doc, "alice", 0)
	addOwner(t, doc, "bob", 0)
	alice := addHorse(t, doc, "alice", evenStats(100))
	bob := addHorse(t, doc, "bob", evenStats(100))
	require.NoError(t, e.Register(doc, "bob", bob.ID, today))
	require.NoError(t, e.Register(doc, "alice", alice.ID, today))

	race := RaceInfo{Date: today, Name: "Maiden", Distance: 1600, Surface: SurfaceTurf, Class: ClassFiller}
	f := e.BuildField(doc, race, newTickRNG(3))
	require.Len(t, f.House, 3)
	for _, h := range f.House {
		h.Stats = evenStats(100)
	}

	ranked := e.rank(f, FixedVariance(1))
	require.Len(t, ranked, 5)
	want := []string{bob.ID, alice.ID, f.House[0].ID, f.House[1].ID, f.House[2].ID}
	got := make([]string, len(ranked))
	for i, rr := range ranked {
		got[i] = rr.horse.ID
		assert.Equal(t, ranked[0].score, rr.score)
	}
	assert.Equal(t, want, got)
}

func TestPrizeForFloorsInexactFractions(t *testing.T) {
	rules := DefaultRules()
	rules.Filler.Payouts = []float64{0.57, 0.29, 0.14}
	e := NewEngine(rules)

	cases := []struct {
		purse    int64
		position int
		want     int64
	}{
		{100, 1, 57},
		{100, 2, 29},
		{100, 3, 14},
		{40_000, 2, 11_600},
		{100, 4, 0},
		{100, 0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, e.PrizeFor(ClassFiller, tc.purse, tc.position), "purse %d position %d", tc.purse, tc.position)
	}
}
