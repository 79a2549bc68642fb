package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LegacyHouseOwnerID is the sentinel owner id legacy documents used for
// synthetic horses.
const LegacyHouseOwnerID = "999999999999999999"

// DecodeDocument reads a persisted document of any known layout and returns
// it in the current schema. migrated is true when the input was not already
// current, so the caller knows to write it back. Empty input yields a fresh
// season.
func DecodeDocument(raw []byte, rules Rules) (doc *Document, migrated bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("{}")) {
		return NewDocument(rules), true, nil
	}
	var head struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, false, fmt.Errorf("decode document: %w", err)
	}
	switch {
	case head.SchemaVersion > SchemaVersion:
		return nil, false, fmt.Errorf("decode document: schema version %d is newer than supported %d", head.SchemaVersion, SchemaVersion)
	case head.SchemaVersion >= 1:
		var d Document
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, false, fmt.Errorf("decode document: %w", err)
		}
		migrated = upgradeTyped(&d, rules)
		return &d, migrated, nil
	default:
		d, err := importLegacy(raw, rules)
		if err != nil {
			return nil, false, err
		}
		return d, true, nil
	}
}

func EncodeDocument(doc *Document) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

// upgradeTyped fills fields added after schema version 1 and repairs
// invariants a hand-edited document might break.
func upgradeTyped(d *Document, rules Rules) bool {
	changed := d.SchemaVersion != SchemaVersion
	d.ensureMaps()
	if d.Clock.Year == 0 {
		d.Clock = Clock{Year: rules.StartYear, Month: 1, Day: 1}
		changed = true
	}
	if d.NextID < 1 {
		d.NextID = 1
		changed = true
	}
	if d.Schedule == nil {
		d.Schedule = append([]ScheduledRace(nil), rules.Schedule...)
		changed = true
	}
	for id, h := range d.Horses {
		if h.ID == "" {
			h.ID = id
			changed = true
		}
		if h.Owner.Kind == "" {
			h.Owner.Kind = OwnerPlayer
			changed = true
		}
		if f := clampInt(h.Fatigue, 0, MaxFatigue); f != h.Fatigue {
			h.Fatigue = f
			changed = true
		}
	}
	for id, o := range d.Owners {
		if o.ID == "" {
			o.ID = id
			changed = true
		}
		live := o.Horses[:0:0]
		for _, hid := range o.Horses {
			if h, ok := d.Horses[hid]; ok && !h.IsHouse() && h.Owner.ID == o.ID {
				live = append(live, hid)
			}
		}
		if len(live) != len(o.Horses) {
			changed = true
		}
		o.Horses = live
		if o.Balance < 0 {
			o.Balance = 0
			changed = true
		}
	}
	d.SchemaVersion = SchemaVersion
	return changed
}

type legacyInt int

func (l *legacyInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*l = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*l = legacyInt(math.Round(f))
	return nil
}

type legacyHistory struct {
	Race  string    `json:"race"`
	Pos   legacyInt `json:"pos"`
	Prize legacyInt `json:"prize"`
	Year  legacyInt `json:"year"`
	Month legacyInt `json:"month"`
	Day   legacyInt `json:"day"`
}

type legacyHorse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Owner     json.RawMessage `json:"owner"`
	SP        legacyInt       `json:"SP"`
	ST        legacyInt       `json:"ST"`
	CND       legacyInt       `json:"CND"`
	GRW       legacyInt       `json:"GRW"`
	TrackPref string          `json:"track_pref"`
	Age       legacyInt       `json:"age"`
	Wins      legacyInt       `json:"wins"`
	Fatigue   legacyInt       `json:"fatigue"`
	Favorite  bool            `json:"favorite"`
	History   []legacyHistory `json:"history"`
}

type legacyOwner struct {
	Horses  []string  `json:"horses"`
	Balance legacyInt `json:"balance"`
	Wins    legacyInt `json:"wins"`
}

type legacyResult struct {
	HorseID string          `json:"horse_id"`
	Name    string          `json:"name"`
	Owner   json.RawMessage `json:"owner"`
	Score   float64         `json:"score"`
	Pos     legacyInt       `json:"pos"`
	Prize   legacyInt       `json:"prize"`
}

type legacyRace struct {
	Year     legacyInt      `json:"year"`
	Month    legacyInt      `json:"month"`
	Day      legacyInt      `json:"day"`
	Name     string         `json:"name"`
	Distance legacyInt      `json:"distance"`
	Track    string         `json:"track"`
	Results  []legacyResult `json:"results"`
}

type legacyBet struct {
	HorseID string    `json:"horse_id"`
	Amount  legacyInt `json:"amount"`
	Odds    float64   `json:"odds"`
}

type legacyDocument struct {
	Horses         map[string]legacyHorse          `json:"horses"`
	Owners         map[string]legacyOwner          `json:"owners"`
	Races          []legacyRace                    `json:"races"`
	PendingEntries map[string][]string             `json:"pending_entries"`
	Bets           map[string]map[string]legacyBet `json:"bets"`
	Season         struct {
		Year  legacyInt `json:"year"`
		Month legacyInt `json:"month"`
		Day   legacyInt `json:"day"`
		Week  legacyInt `json:"week"`
	} `json:"season"`
	NextID       legacyInt `json:"next_id"`
	LastRaceTime string    `json:"last_race_time"`
}

func legacyOwnerID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func legacyIsHouse(ownerID, horseID string) bool {
	return ownerID == LegacyHouseOwnerID || strings.HasPrefix(horseID, "BOT")
}

func legacySurface(track string) Surface {
	if strings.EqualFold(strings.TrimSpace(track), "dirt") {
		return SurfaceDirt
	}
	return SurfaceTurf
}

func importLegacy(raw []byte, rules Rules) (*Document, error) {
	var old legacyDocument
	if err := json.Unmarshal(raw, &old); err != nil {
		return nil, fmt.Errorf("import legacy document: %w", err)
	}
	d := NewDocument(rules)
	if y := int(old.Season.Year); y > 0 {
		d.Clock.Year = y
	}
	if m := int(old.Season.Month); m >= 1 && m <= MonthsPerYear {
		d.Clock.Month = m
	}
	if day := int(old.Season.Day); day >= 1 && day <= rules.CycleDays {
		d.Clock.Day = day
	}
	if old.Season.Month == 0 && old.Season.Week > 0 {
		// Oldest layout counted 52 weeks per year.
		w := int(old.Season.Week) - 1
		d.Clock.Month = clampInt(w/4+1, 1, MonthsPerYear)
		d.Clock.Day = clampInt((w%4)*7+1, 1, rules.CycleDays)
	}
	if old.NextID > 0 {
		d.NextID = int64(old.NextID)
	}
	if t, err := time.Parse(time.RFC3339Nano, old.LastRaceTime); err == nil {
		d.Clock.LastTickAt = t.UTC()
	} else if t, err := time.Parse("2006-01-02T15:04:05.999999", old.LastRaceTime); err == nil {
		d.Clock.LastTickAt = t.UTC()
	}

	ids := make([]string, 0, len(old.Horses))
	for id := range old.Horses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		lh := old.Horses[id]
		ownerID := legacyOwnerID(lh.Owner)
		h := &Horse{
			ID:       id,
			Name:     lh.Name,
			Age:      int(lh.Age),
			Fatigue:  clampInt(int(lh.Fatigue), 0, MaxFatigue),
			Favorite: lh.Favorite,
			Wins:     int(lh.Wins),
			Stats: Stats{
				Speed:   int(lh.SP),
				Stamina: int(lh.ST),
				Temper:  int(lh.CND),
				Growth:  clampInt(int(lh.GRW), 0, rules.Lifecycle.GrowthCap),
				Turf:    40,
				Dirt:    40,
			},
		}
		if legacySurface(lh.TrackPref) == SurfaceDirt {
			h.Stats.Dirt = 80
		} else {
			h.Stats.Turf = 80
		}
		if h.Name == "" {
			h.Name = id
		}
		if legacyIsHouse(ownerID, id) {
			h.Owner = HouseOwner()
			h.Class = ClassFeature
		} else {
			h.Owner = PlayerOwner(ownerID)
			for _, e := range lh.History {
				h.History = append(h.History, HistoryEntry{
					Date:     SeasonDate{Year: int(e.Year), Month: int(e.Month), Day: int(e.Day)},
					Race:     e.Race,
					Position: int(e.Pos),
					Prize:    int64(e.Prize),
				})
			}
			h.Starts = len(h.History)
		}
		d.Horses[id] = h
	}

	for id, lo := range old.Owners {
		if id == LegacyHouseOwnerID {
			continue
		}
		o := &Owner{ID: id, Balance: int64(lo.Balance), Wins: int(lo.Wins), Horses: []string{}}
		if o.Balance < 0 {
			o.Balance = 0
		}
		for _, hid := range lo.Horses {
			if h, ok := d.Horses[hid]; ok && !h.IsHouse() && h.Owner.ID == id && !contains(o.Horses, hid) {
				o.Horses = append(o.Horses, hid)
			}
		}
		d.Owners[id] = o
	}
	// Horses whose owner record is missing get one, so the roster stays consistent.
	for _, id := range ids {
		h := d.Horses[id]
		if h.IsHouse() {
			continue
		}
		o, ok := d.Owners[h.Owner.ID]
		if !ok {
			o = &Owner{ID: h.Owner.ID, Horses: []string{}}
			d.Owners[o.ID] = o
		}
		if !contains(o.Horses, id) {
			o.Horses = append(o.Horses, id)
		}
	}

	for i, lr := range old.Races {
		rec := RaceRecord{
			ID:       fmt.Sprintf("legacy-%04d", i+1),
			Date:     SeasonDate{Year: int(lr.Year), Month: int(lr.Month), Day: int(lr.Day)},
			Name:     lr.Name,
			Distance: int(lr.Distance),
			Surface:  legacySurface(lr.Track),
			Class:    ClassFiller,
			Held:     len(lr.Results) > 0,
		}
		for _, res := range lr.Results {
			ownerID := legacyOwnerID(res.Owner)
			owner := PlayerOwner(ownerID)
			if legacyIsHouse(ownerID, res.HorseID) {
				owner = HouseOwner()
			}
			rec.Results = append(rec.Results, Result{
				Position: int(res.Pos),
				HorseID:  res.HorseID,
				Name:     res.Name,
				Owner:    owner,
				Score:    res.Score,
				Prize:    int64(res.Prize),
			})
			rec.Purse += int64(res.Prize)
		}
		if _, ok := ScheduledRaceOn(d.Schedule, rec.Date, rules.CycleDays); ok {
			rec.Class = ClassFeature
		}
		d.Races = append(d.Races, rec)
	}

	// Legacy entries and bets were keyed by day of month only.
	today := d.Today()
	for dayStr, hids := range old.PendingEntries {
		day, err := strconv.Atoi(dayStr)
		if err != nil || day < today.Day || day > rules.CycleDays {
			continue
		}
		key := SeasonDate{Year: today.Year, Month: today.Month, Day: day}.Key()
		for _, hid := range hids {
			if h, ok := d.Horses[hid]; ok && !h.IsHouse() && !contains(d.Entries[key], hid) {
				d.Entries[key] = append(d.Entries[key], hid)
			}
		}
	}
	for dayStr, byBettor := range old.Bets {
		day, err := strconv.Atoi(dayStr)
		if err != nil {
			continue
		}
		date := SeasonDate{Year: today.Year, Month: today.Month, Day: day}
		for bettor, lb := range byBettor {
			o, ok := d.Owners[bettor]
			if !ok {
				o = &Owner{ID: bettor, Horses: []string{}}
				d.Owners[bettor] = o
			}
			if day != today.Day || !contains(d.Entries[date.Key()], lb.HorseID) {
				// Stake for a race that can no longer be settled goes back.
				o.Balance += int64(lb.Amount)
				continue
			}
			key := date.Key()
			if d.Bets[key] == nil {
				d.Bets[key] = map[string][]Bet{}
			}
			d.Bets[key][lb.HorseID] = append(d.Bets[key][lb.HorseID], Bet{Bettor: bettor, Stake: int64(lb.Amount), Odds: lb.Odds})
		}
	}
	return d, nil
}
