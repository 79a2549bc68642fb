package game

import "sort"

// PreRace projects the race on day with the entries received so far.
func (e *Engine) PreRace(doc *Document, day SeasonDate) PreRaceSnapshot {
	race := e.Rules.RaceFor(doc.Schedule, day)
	odds := map[string]float64{}
	for _, line := range e.Odds(doc, day) {
		odds[line.HorseID] = line.Odds
	}
	snap := PreRaceSnapshot{Race: race, Entries: []EntryView{}, MinField: e.Rules.Class(race.Class).MinField}
	for _, h := range realEntrants(doc, day) {
		snap.Entries = append(snap.Entries, EntryView{
			HorseID: h.ID,
			Name:    h.Name,
			Owner:   h.Owner.ID,
			Fatigue: h.Fatigue,
			Odds:    odds[h.ID],
		})
	}
	return snap
}

// PostRace projects the resolved race on day. ok is false when no race has
// been recorded for that day.
func (e *Engine) PostRace(doc *Document, day SeasonDate) (PostRaceReport, bool) {
	rec, ok := doc.raceOn(day)
	if !ok {
		return PostRaceReport{}, false
	}
	rep := PostRaceReport{
		Race: RaceInfo{
			Date:     rec.Date,
			Name:     rec.Name,
			Distance: rec.Distance,
			Surface:  rec.Surface,
			Class:    rec.Class,
			Purse:    rec.Purse,
		},
		Held:    rec.Held,
		Results: append([]Result{}, rec.Results...),
		Payouts: append([]BetPayout{}, rec.Payouts...),
		Retired: []string{},
	}
	for _, ret := range doc.Retirements {
		if rec.ID != "" && ret.AfterRace == rec.ID {
			rep.Retired = append(rep.Retired, ret.Name)
		}
	}
	return rep, true
}

func (e *Engine) horseView(doc *Document, h *Horse) HorseView {
	v := HorseView{
		ID:       h.ID,
		Name:     h.Name,
		Owner:    h.Owner,
		Stats:    h.Stats,
		Age:      h.Age,
		Fatigue:  h.Fatigue,
		Favorite: h.Favorite,
		Wins:     h.Wins,
		Starts:   h.Starts,
		History:  append([]HistoryEntry{}, h.History...),
	}
	for _, key := range sortedKeys(doc.Entries) {
		if !contains(doc.Entries[key], h.ID) {
			continue
		}
		if d, err := ParseSeasonDate(key); err == nil {
			v.Entered = append(v.Entered, d)
		}
	}
	return v
}

func (e *Engine) HorseView(doc *Document, horseID string) (HorseView, error) {
	h, ok := doc.Horses[horseID]
	if !ok {
		return HorseView{}, reject(ReasonUnknownHorse, "horse %s does not exist", horseID)
	}
	return e.horseView(doc, h), nil
}

func (e *Engine) OwnerView(doc *Document, ownerID string) (OwnerView, error) {
	o, err := doc.owner(ownerID)
	if err != nil {
		return OwnerView{}, err
	}
	v := OwnerView{ID: o.ID, Balance: o.Balance, Wins: o.Wins, JoinedOn: o.JoinedOn, Horses: []HorseView{}}
	for _, id := range o.Horses {
		if h, ok := doc.Horses[id]; ok {
			v.Horses = append(v.Horses, e.horseView(doc, h))
		}
	}
	return v, nil
}

// SeasonView summarises the calendar with the next days' races.
func (e *Engine) SeasonView(doc *Document, upcoming int) SeasonView {
	today := doc.Today()
	v := SeasonView{
		Today:       today,
		LastTick:    doc.Clock.LastTick,
		LastTickAt:  doc.Clock.LastTickAt,
		Race:        e.Rules.RaceFor(doc.Schedule, today),
		Owners:      len(doc.Owners),
	}
	for _, h := range doc.Horses {
		if h.IsHouse() {
			v.HouseHorses++
		} else {
			v.Horses++
		}
	}
	for i := 1; i <= upcoming; i++ {
		v.Upcoming = append(v.Upcoming, e.Rules.RaceFor(doc.Schedule, today.AddDays(i, e.Rules.CycleDays)))
	}
	return v
}

// Results returns the recorded races, newest first, optionally for one day.
func (e *Engine) Results(doc *Document, day *SeasonDate, limit int) []RaceRecord {
	var out []RaceRecord
	for i := len(doc.Races) - 1; i >= 0; i-- {
		rec := doc.Races[i]
		if day != nil && rec.Date != *day {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (e *Engine) Leaderboard(doc *Document, by LeaderboardBy, limit int) []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(doc.Owners))
	for _, o := range doc.Owners {
		rows = append(rows, LeaderboardRow{OwnerID: o.ID, Balance: o.Balance, Wins: o.Wins, Horses: len(o.Horses)})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if by == LeaderboardWins && a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.Balance != b.Balance {
			return a.Balance > b.Balance
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.OwnerID < b.OwnerID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}
