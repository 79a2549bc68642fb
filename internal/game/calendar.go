package game

import (
	"fmt"
	"time"
)

const MonthsPerYear = 12

// SeasonDate is an in-game date. Days run 1..Rules.CycleDays in every month.
type SeasonDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (d SeasonDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d SeasonDate) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d SeasonDate) String() string {
	return d.Key()
}

// Ordinal counts days since year 0 for a given cycle length.
func (d SeasonDate) Ordinal(cycleDays int) int {
	return ((d.Year*MonthsPerYear)+(d.Month-1))*cycleDays + (d.Day - 1)
}

func ParseSeasonDate(s string) (SeasonDate, error) {
	var d SeasonDate
	if _, err := fmt.Sscanf(s, "%d-%d-%d", &d.Year, &d.Month, &d.Day); err != nil {
		return SeasonDate{}, fmt.Errorf("parse season date %q: %w", s, err)
	}
	if d.Month < 1 || d.Month > MonthsPerYear || d.Day < 1 {
		return SeasonDate{}, fmt.Errorf("parse season date %q: out of range", s)
	}
	return d, nil
}

// Clock is the season calendar. A tick records LastTick and then advances
// the day, so a saved document normally has LastTick before Today; the
// wall-clock once-per-day guard is LastTickAt, checked by Service.TickIfDue.
type Clock struct {
	Year       int        `json:"year"`
	Month      int        `json:"month"`
	Day        int        `json:"day"`
	LastTick   SeasonDate `json:"last_tick"`
	LastTickAt time.Time  `json:"last_tick_at"`
}

func (c Clock) Today() SeasonDate {
	return SeasonDate{Year: c.Year, Month: c.Month, Day: c.Day}
}

// TickedToday reports whether today's race is already recorded without the
// day having advanced. Only documents saved between those two steps, such as
// hand-edited or imported ones, report true.
func (c Clock) TickedToday() bool {
	return c.LastTick == c.Today()
}

// Advance moves the clock forward one day. yearRolled is true when the move
// crossed into a new year.
func (c Clock) Advance(cycleDays int) (next Clock, yearRolled bool) {
	next = c
	next.Day++
	if next.Day > cycleDays {
		next.Day = 1
		next.Month++
	}
	if next.Month > MonthsPerYear {
		next.Month = 1
		next.Year++
		yearRolled = true
	}
	return next, yearRolled
}

func (d SeasonDate) AddDays(n, cycleDays int) SeasonDate {
	c := Clock{Year: d.Year, Month: d.Month, Day: d.Day}
	for i := 0; i < n; i++ {
		c, _ = c.Advance(cycleDays)
	}
	return c.Today()
}

// ScheduledRace is a static schedule entry. Month 0 applies to every month.
type ScheduledRace struct {
	Month    int     `json:"month,omitempty" yaml:"month"`
	Day      int     `json:"day" yaml:"day"`
	Name     string  `json:"name" yaml:"name"`
	Distance int     `json:"distance" yaml:"distance"`
	Surface  Surface `json:"surface" yaml:"surface"`
	Purse    int64   `json:"purse,omitempty" yaml:"purse"`
}

type RaceInfo struct {
	Date     SeasonDate `json:"date"`
	Name     string     `json:"name"`
	Distance int        `json:"distance"`
	Surface  Surface    `json:"surface"`
	Class    RaceClass  `json:"class"`
	Purse    int64      `json:"purse"`
}

func (r RaceInfo) Feature() bool {
	return r.Class == ClassFeature
}

// ScheduledRaceOn looks up the feature race for a date. Entries with an
// unknown day or a bad surface are ignored. A month-specific entry beats an
// every-month entry for the same day.
func ScheduledRaceOn(schedule []ScheduledRace, date SeasonDate, cycleDays int) (ScheduledRace, bool) {
	var fallback *ScheduledRace
	for i := range schedule {
		sr := schedule[i]
		if sr.Day < 1 || sr.Day > cycleDays || sr.Distance <= 0 || !sr.Surface.Valid() {
			continue
		}
		if sr.Day != date.Day {
			continue
		}
		if sr.Month == date.Month {
			return sr, true
		}
		if sr.Month == 0 && fallback == nil {
			fallback = &schedule[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return ScheduledRace{}, false
}

// RaceFor resolves the race run on date: the scheduled feature race or the
// lower-tier filler race.
func (r Rules) RaceFor(schedule []ScheduledRace, date SeasonDate) RaceInfo {
	if sr, ok := ScheduledRaceOn(schedule, date, r.CycleDays); ok {
		purse := sr.Purse
		if purse <= 0 {
			purse = r.Feature.Purse
		}
		return RaceInfo{
			Date:     date,
			Name:     sr.Name,
			Distance: sr.Distance,
			Surface:  sr.Surface,
			Class:    ClassFeature,
			Purse:    purse,
		}
	}
	if date.Day%2 == 0 {
		return RaceInfo{Date: date, Name: "Open Class (Dirt)", Distance: 1600, Surface: SurfaceDirt, Class: ClassFiller, Purse: r.Filler.Purse}
	}
	return RaceInfo{Date: date, Name: "Open Class (Turf)", Distance: 1800, Surface: SurfaceTurf, Class: ClassFiller, Purse: r.Filler.Purse}
}
