package game

import "time"

type TickOutcome struct {
	Race    RaceInfo     `json:"race"`
	Record  RaceRecord   `json:"record"`
	Retired []Retirement `json:"retired,omitempty"`
	Refunds []BetPayout  `json:"refunds,omitempty"`
	Next    SeasonDate   `json:"next"`
}

// Tick resolves today's race and advances the calendar by one day. It mutates
// doc in place; callers run it on a working copy and persist once.
func (e *Engine) Tick(doc *Document, seed int64, raceID string, now time.Time) (TickOutcome, error) {
	if doc.Clock.TickedToday() {
		return TickOutcome{}, ErrTickAlreadyRan
	}
	today := doc.Today()
	race := e.Rules.RaceFor(doc.Schedule, today)
	rng := newTickRNG(seed)

	record := RaceRecord{
		ID:       raceID,
		Date:     today,
		Name:     race.Name,
		Distance: race.Distance,
		Surface:  race.Surface,
		Class:    race.Class,
		Purse:    race.Purse,
		Seed:     seed,
	}
	out := TickOutcome{Race: race}

	field := e.BuildField(doc, race, rng)
	if field.Size() < 2 {
		out.Refunds = refundDay(doc, today)
		record.Payouts = out.Refunds
	} else {
		record.Held = true
		ranked := e.rank(field, e.Rules.Scoring.variance(rng.stream(streamVariance)))
		record.Results = e.allocate(doc, race, raceID, ranked)
		record.Payouts = settle(doc, today, ranked[0].horse.ID)
		e.afterRace(field.Real, rng.stream(streamLifecycle))
	}
	delete(doc.Entries, today.Key())
	doc.Races = append(doc.Races, record)
	out.Record = record

	next, rolled := doc.Clock.Advance(e.Rules.CycleDays)
	next.LastTick = today
	next.LastTickAt = now.UTC()
	doc.Clock = next
	if rolled {
		ageRealHorses(doc)
	}

	retired, refunds := e.sweep(doc, raceID)
	out.Retired = retired
	out.Refunds = append(out.Refunds, refunds...)
	pruneStale(doc, e.Rules.CycleDays)

	out.Next = doc.Today()
	return out, nil
}

// pruneStale drops entries, bets and idempotency keys for days already past.
// Normal flow never leaves any; a restored or migrated document might.
func pruneStale(doc *Document, cycleDays int) {
	today := doc.Today().Ordinal(cycleDays)
	for key := range doc.Entries {
		if d, err := ParseSeasonDate(key); err != nil || d.Ordinal(cycleDays) < today {
			delete(doc.Entries, key)
		}
	}
	for key, byHorse := range doc.Bets {
		d, err := ParseSeasonDate(key)
		if err == nil && d.Ordinal(cycleDays) >= today {
			continue
		}
		for id, bets := range byHorse {
			refundBets(doc, id, bets)
		}
		delete(doc.Bets, key)
	}
	for key, day := range doc.Processed {
		if d, err := ParseSeasonDate(day); err != nil || d.Ordinal(cycleDays) < today-1 {
			delete(doc.Processed, key)
		}
	}
}
