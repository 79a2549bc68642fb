package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureRacePadsFieldAndPaysRealHorsesOnly(t *testing.T) {
	rules := DefaultRules()
	e := NewEngine(rules)
	today := SeasonDate{2024, 1, 5}
	doc := newTestDoc(t, rules, today)
	alice := addOwner(t, doc, "alice", 0)
	var real []*Horse
	for i := 0; i < 3; i++ {
		h := addHorse(t, doc, "alice", evenStats(120))
		require.NoError(t, e.Register(doc, "alice", h.ID, today))
		real = append(real, h)
	}

	out, err := e.Tick(doc, 7, "race-1", testNow)
	require.NoError(t, err)
	rec := out.Record
	require.True(t, rec.Held)
	assert.Equal(t, ClassFeature, rec.Class)
	assert.Equal(t, "Nakayama Kinpai", rec.Name)
	assert.EqualValues(t, 7, rec.Seed)
	require.Len(t, rec.Results, rules.Feature.MinField)

	house := 0
	var paid int64
	for i, res := range rec.Results {
		assert.Equal(t, i+1, res.Position)
		if res.Owner.IsHouse() {
			house++
			assert.Zero(t, res.Prize, "house horses never receive prize money")
			continue
		}
		assert.Equal(t, e.PrizeFor(ClassFeature, rec.Purse, res.Position), res.Prize)
		paid += res.Prize
	}
	assert.Equal(t, 15, house)
	assert.Len(t, doc.houseHorses(ClassFeature), 15, "synthesised horses are persisted")
	assert.Equal(t, paid, alice.Balance)

	winner, _ := rec.Winner()
	if winner.Owner.IsHouse() {
		assert.Zero(t, alice.Wins)
	} else {
		assert.Equal(t, 1, alice.Wins)
		assert.Equal(t, 1, doc.Horses[winner.HorseID].Wins)
	}
	for _, h := range real {
		require.Len(t, h.History, 1)
		assert.Equal(t, rules.Feature.MinField, h.History[0].FieldSize)
		assert.Equal(t, "race-1", h.History[0].RaceID)
		assert.Equal(t, 1, h.Starts)
		assert.GreaterOrEqual(t, h.Fatigue, rules.Lifecycle.RaceFatigueMin)
		assert.LessOrEqual(t, h.Fatigue, rules.Lifecycle.RaceFatigueMax)
	}
	for _, h := range doc.houseHorses(ClassFeature) {
		assert.Zero(t, h.Starts)
		assert.Empty(t, h.History)
	}

	assert.Empty(t, doc.Entries[today.Key()])
	assert.Equal(t, SeasonDate{2024, 1, 6}, doc.Today())
	assert.Equal(t, today, doc.Clock.LastTick)
	assert.Equal(t, testNow, doc.Clock.LastTickAt)

	rep, ok := e.PostRace(doc, today)
	require.True(t, ok)
	assert.True(t, rep.Held)
	assert.Len(t, rep.Results, rules.Feature.MinField)
	assert.Empty(t, rep.Retired)
}

func TestBuildFieldReusesHouseStable(t *testing.T) {
	rules := DefaultRules()
	e := NewEngine(rules)
	today := SeasonDate{2024, 1, 5}
	doc := newTestDoc(t, rules, today)
	addOwner(t, doc, "alice", 0)
	h := addHorse(t, doc, "alice", evenStats(100))
	require.NoError(t, e.Register(doc, "alice", h.ID, today))
	gen := newTickRNG(1).stream(streamStable)
	for i := 0; i < 5; i++ {
		e.newHouseHorse(doc, ClassFeature, gen)
		e.newHouseHorse(doc, ClassFiller, gen)
	}
	race := rules.RaceFor(doc.Schedule, today)

	field := e.BuildField(doc, race, newTickRNG(9))
	require.Equal(t, rules.Feature.MinField, field.Size())
	assert.Equal(t, h, field.Runner[0], "real entries run first")
	assert.Len(t, doc.houseHorses(ClassFeature), rules.Feature.MinField-1)
	assert.Len(t, doc.houseHorses(ClassFiller), 5, "other class stable is untouched")

	before := len(doc.Horses)
	again := e.BuildField(doc, race, newTickRNG(10))
	assert.Equal(t, rules.Feature.MinField, again.Size())
	assert.Len(t, doc.Horses, before, "a full stable is reused without generating more")
	for _, hh := range again.House {
		assert.True(t, hh.IsHouse())
		assert.Equal(t, ClassFeature, hh.Class)
		assert.GreaterOrEqual(t, hh.Stats.Speed, rules.Feature.HouseStatMin)
		assert.LessOrEqual(t, hh.Stats.Speed, rules.Feature.HouseStatMax)
	}
}

func TestRaceNotHeldBelowTwoRunners(t *testing.T) {
	rules := DefaultRules()
	rules.Filler.MinField = 0
	e := NewEngine(rules)
	today := SeasonDate{2024, 3, 2}
	doc := newTestDoc(t, rules, today)
	alice := addOwner(t, doc, "alice", 0)
	bob := addOwner(t, doc, "bob", 1000)
	h := addHorse(t, doc, "alice", evenStats(100))
	require.NoError(t, e.Register(doc, "alice", h.ID, today))
	_, err := e.PlaceBet(doc, "bob", h.ID, 100, testNow)
	require.NoError(t, err)

	out, err := e.Tick(doc, 1, "race-x", testNow)
	require.NoError(t, err)
	assert.False(t, out.Record.Held)
	assert.Empty(t, out.Record.Results)
	_, ok := out.Record.Winner()
	assert.False(t, ok)

	assert.Zero(t, alice.Balance)
	assert.Zero(t, alice.Wins)
	assert.Zero(t, h.Wins)
	assert.Zero(t, h.Starts)
	assert.Zero(t, h.Fatigue)
	assert.Empty(t, h.History)
	assert.EqualValues(t, 1000, bob.Balance, "stakes come back when the race is not held")
	require.Len(t, out.Refunds, 1)
	assert.Equal(t, SeasonDate{2024, 3, 3}, doc.Today(), "the day still advances")
	assert.Empty(t, doc.Bets)
	require.Len(t, doc.Races, 1)
}

func TestTickDeterministicForSeed(t *testing.T) {
	rules := DefaultRules()
	e := NewEngine(rules)
	today := SeasonDate{2024, 3, 2}
	doc := newTestDoc(t, rules, today)
	addOwner(t, doc, "alice", 0)
	addOwner(t, doc, "bob", 5000)
	for i := 0; i < 3; i++ {
		h := addHorse(t, doc, "alice", evenStats(90+i*10))
		require.NoError(t, e.Register(doc, "alice", h.ID, today))
	}
	_, err := e.PlaceBet(doc, "bob", "H00002", 500, testNow)
	require.NoError(t, err)

	a, err := doc.Clone()
	require.NoError(t, err)
	b, err := doc.Clone()
	require.NoError(t, err)
	outA, err := e.Tick(a, 99, "race-1", testNow)
	require.NoError(t, err)
	outB, err := e.Tick(b, 99, "race-1", testNow)
	require.NoError(t, err)

	assert.Equal(t, outA.Record, outB.Record)
	assert.Equal(t, a.Owners["alice"].Balance, b.Owners["alice"].Balance)
	assert.Equal(t, a.Owners["bob"].Balance, b.Owners["bob"].Balance)
	for id, h := range a.Horses {
		assert.Equal(t, h.Stats, b.Horses[id].Stats)
		assert.Equal(t, h.Fatigue, b.Horses[id].Fatigue)
	}
}

func TestTickRetiresAndPurgesHorses(t *testing.T) {
	rules := DefaultRules()
	e := NewEngine(rules)
	today := SeasonDate{2024, 3, 2}
	doc := newTestDoc(t, rules, today)
	alice := addOwner(t, doc, "alice", 0)
	veteran := addHorse(t, doc, "alice", evenStats(100))
	veteran.Starts = rules.Lifecycle.RetireStarts
	veteran.Wins = 3
	later := today.AddDays(3, rules.CycleDays)
	require.NoError(t, e.Register(doc, "alice", veteran.ID, today))
	require.NoError(t, e.Register(doc, "alice", veteran.ID, later))
	young := addHorse(t, doc, "alice", evenStats(100))

	out, err := e.Tick(doc, 5, "race-r", testNow)
	require.NoError(t, err)
	require.Len(t, out.Retired, 1)
	assert.Equal(t, veteran.ID, out.Retired[0].HorseID)
	assert.Equal(t, RetireReasonStarts, out.Retired[0].Reason)
	assert.Equal(t, "race-r", out.Retired[0].AfterRace)

	assert.NotContains(t, doc.Horses, veteran.ID)
	assert.Equal(t, []string{young.ID}, alice.Horses)
	assert.Empty(t, doc.Entries[later.Key()])
	_, err = e.HorseView(doc, veteran.ID)
	mustReason(t, err, ReasonUnknownHorse)

	rep, ok := e.PostRace(doc, today)
	require.True(t, ok)
	assert.Equal(t, []string{veteran.Name}, rep.Retired)
	assert.Equal(t, veteran.ID, findResult(t, rep.Results, veteran.ID).HorseID, "past records keep retired horses")
}

func TestYearRolloverAgesRealHorsesOnly(t *testing.T) {
	rules := DefaultRules()
	e := NewEngine(rules)
	doc := newTestDoc(t, rules, SeasonDate{2024, 12, 30})
	addOwner(t, doc, "alice", 0)
	h := addHorse(t, doc, "alice", evenStats(100))
	house := e.newHouseHorse(doc, ClassFeature, newTickRNG(1).stream(streamStable))

	_, err := e.Tick(doc, 3, "race-y", testNow)
	require.NoError(t, err)
	assert.Equal(t, SeasonDate{2025, 1, 1}, doc.Today())
	assert.Equal(t, 3, h.Age)
	assert.Equal(t, rules.NewHorse.StartAge, house.Age)
}

func TestTickRefusesSecondRunForSameDay(t *testing.T) {
	rules := DefaultRules()
	e := NewEngine(rules)
	doc := newTestDoc(t, rules, SeasonDate{2024, 3, 2})
	doc.Clock.LastTick = doc.Today()

	_, err := e.Tick(doc, 1, "race-z", testNow)
	assert.ErrorIs(t, err, ErrTickAlreadyRan)
	assert.Empty(t, doc.Races)
}

func TestFatigueStaysBounded(t *testing.T) {
	rules := DefaultRules()
	e := NewEngine(rules)
	doc := newTestDoc(t, rules, SeasonDate{2024, 1, 1})
	addOwner(t, doc, "alice", 0)
	for i := 0; i < 3; i++ {
		addHorse(t, doc, "alice", evenStats(100))
	}
	check := func() {
		for _, h := range doc.Horses {
			if h.Fatigue < 0 || h.Fatigue > MaxFatigue {
				t.Fatalf("horse %s fatigue %d out of bounds on %s", h.ID, h.Fatigue, doc.Today())
			}
		}
	}
	for day := 0; day < 90; day++ {
		_, _ = e.BulkRegister(doc, "alice", BulkAll, doc.Today())
		check()
		for i, id := range doc.Owners["alice"].Horses {
			if (day+i)%3 == 0 {
				_, _ = e.Rest(doc, "alice", id)
			} else {
				_, _ = e.Train(doc, "alice", id, TrainSpeed, 2)
			}
			check()
		}
		_, err := e.Tick(doc, int64(day+1), "race", testNow)
		require.NoError(t, err)
		check()
	}
}

func findResult(t *testing.T, results []Result, horseID string) Result {
	t.Helper()
	for _, r := range results {
		if r.HorseID == horseID {
			return r
		}
	}
	t.Fatalf("horse %s not in results", horseID)
	return Result{}
}

func TestTickAdvancesPastRecordedDay(t *testing.T) {
	rules := DefaultRules()
	e := NewEngine(rules)
	first := SeasonDate{2024, 3, 2}
	doc := newTestDoc(t, rules, first)

	_, err := e.Tick(doc, 1, "race-a", testNow)
	require.NoError(t, err)
	assert.Equal(t, first, doc.Clock.LastTick)
	assert.False(t, doc.Clock.TickedToday(), "the day moves on right after the race is recorded")

	v := e.SeasonView(doc, 0)
	assert.Equal(t, first, v.LastTick)
	assert.Equal(t, first.AddDays(1, rules.CycleDays), v.Today)

	// A second engine tick resolves the next day; repeat runs within one real
	// day are held back by LastTickAt in Service.TickIfDue.
	out, err := e.Tick(doc, 2, "race-b", testNow)
	require.NoError(t, err)
	assert.Equal(t, v.Today, out.Record.Date)
	require.Len(t, doc.Races, 2)
}
