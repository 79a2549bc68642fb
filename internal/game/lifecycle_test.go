package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestOncePerDay(t *testing.T) {
	rules := DefaultRules()
	e := NewEngine(rules)
	doc := newTestDoc(t, rules, SeasonDate{2024, 3, 10})
	addOwner(t, doc, "alice", 0)
	h := addHorse(t, doc, "alice", evenStats(100))
	h.Fatigue = 5

	_, err := e.Rest(doc, "alice", h.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Fatigue)

	_, err = e.Rest(doc, "alice", h.ID)
	mustReason(t, err, ReasonAlreadyRested)
	assert.Equal(t, 2, h.Fatigue)

	doc.Clock, _ = doc.Clock.Advance(rules.CycleDays)
	_, err = e.Rest(doc, "alice", h.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, h.Fatigue, "rest never takes fatigue below zero")

	_, err = e.Rest(doc, "bob", h.ID)
	mustReason(t, err, ReasonNotOwner)
}

func TestTrain(t *testing.T) {
	rules := DefaultRules()
	e := NewEngine(rules)
	doc := newTestDoc(t, rules, SeasonDate{2024, 3, 10})
	addOwner(t, doc, "alice", 0)
	h := addHorse(t, doc, "alice", evenStats(100))
	h.Stats.Growth = 20

	_, err := e.Train(doc, "alice", h.ID, "charisma", 1)
	mustReason(t, err, ReasonInvalidTraining)
	_, err = e.Train(doc, "alice", h.ID, TrainSpeed, 0)
	mustReason(t, err, ReasonInvalidTraining)
	_, err = e.Train(doc, "alice", h.ID, TrainSpeed, rules.Lifecycle.TrainMaxSpend+1)
	mustReason(t, err, ReasonInvalidTraining)

	_, err = e.Train(doc, "alice", h.ID, TrainSpeed, 5)
	require.NoError(t, err)
	assert.Equal(t, 105, h.Stats.Speed)
	assert.Equal(t, 15, h.Stats.Growth)
	assert.Equal(t, rules.Lifecycle.TrainFatigue, h.Fatigue)

	h.Stats.Growth = 3
	_, err = e.Train(doc, "alice", h.ID, TrainStamina, 5)
	mustReason(t, err, ReasonInsufficientGrowth)

	h.Stats.Growth = 50
	h.Stats.Temper = rules.Lifecycle.StatCeiling
	_, err = e.Train(doc, "alice", h.ID, TrainTemper, 5)
	mustReason(t, err, ReasonStatAtCeiling)

	h.Stats.Stamina = rules.Lifecycle.StatCeiling - 2
	h.Fatigue = MaxFatigue
	_, err = e.Train(doc, "alice", h.ID, TrainStamina, 5)
	require.NoError(t, err)
	assert.Equal(t, rules.Lifecycle.StatCeiling, h.Stats.Stamina)
	assert.Equal(t, MaxFatigue, h.Fatigue)
}

func TestRetireHorseCascades(t *testing.T) {
	rules := DefaultRules()
	e := NewEngine(rules)
	today := SeasonDate{2024, 3, 10}
	doc := newTestDoc(t, rules, today)
	alice := addOwner(t, doc, "alice", 0)
	bob := addOwner(t, doc, "bob", 1000)
	h := addHorse(t, doc, "alice", evenStats(100))
	keep := addHorse(t, doc, "alice", evenStats(100))
	later := today.AddDays(2, rules.CycleDays)
	require.NoError(t, e.Register(doc, "alice", h.ID, today))
	require.NoError(t, e.Register(doc, "alice", h.ID, later))
	require.NoError(t, e.Register(doc, "alice", keep.ID, later))
	_, err := e.PlaceBet(doc, "bob", h.ID, 250, testNow)
	require.NoError(t, err)

	_, _, err = e.RetireHorse(doc, "bob", h.ID)
	mustReason(t, err, ReasonNotOwner)

	ret, refunds, err := e.RetireHorse(doc, "alice", h.ID)
	require.NoError(t, err)
	assert.Equal(t, RetireReasonOwner, ret.Reason)
	require.Len(t, refunds, 1)
	assert.True(t, refunds[0].Refund)
	assert.EqualValues(t, 1000, bob.Balance)

	assert.NotContains(t, alice.Horses, h.ID)
	assert.Empty(t, doc.Entries[today.Key()])
	assert.Equal(t, []string{keep.ID}, doc.Entries[later.Key()])
	_, err = e.HorseView(doc, h.ID)
	mustReason(t, err, ReasonUnknownHorse)
	mustReason(t, e.Register(doc, "alice", h.ID, later), ReasonUnknownHorse)
	require.Len(t, doc.Retirements, 1)
}

func TestAfterRaceBounds(t *testing.T) {
	rules := DefaultRules()
	e := NewEngine(rules)
	h := &Horse{Owner: PlayerOwner("alice"), Stats: evenStats(100), Fatigue: 9}
	h.Stats.Growth = rules.Lifecycle.GrowthCap - 1
	house := &Horse{Owner: HouseOwner(), Stats: evenStats(100)}

	e.afterRace([]*Horse{h, house}, newTickRNG(3).stream(streamLifecycle))
	assert.Equal(t, MaxFatigue, h.Fatigue)
	assert.Equal(t, rules.Lifecycle.GrowthCap, h.Stats.Growth)
	assert.Equal(t, 1, h.Starts)
	assert.Zero(t, house.Fatigue)
	assert.Zero(t, house.Starts)
}

func TestRetireReason(t *testing.T) {
	e := NewEngine(DefaultRules())
	tests := []struct {
		name  string
		horse Horse
		want  string
	}{
		{name: "fresh", horse: Horse{Age: 3, Starts: 10, Wins: 1}},
		{name: "race limit", horse: Horse{Age: 3, Starts: 41, Wins: 1}, want: RetireReasonStarts},
		{name: "exactly at limit", horse: Horse{Age: 3, Starts: 40, Wins: 1}},
		{name: "old", horse: Horse{Age: 8, Starts: 10, Wins: 3}, want: RetireReasonAge},
		{name: "winless", horse: Horse{Age: 5, Starts: 10}, want: RetireReasonWinless},
		{name: "young winless", horse: Horse{Age: 4, Starts: 10}},
	}
	for _, tc := range tests {
		got, _ := e.retireReason(&tc.horse)
		if got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}
