package game

import "testing"

func TestClockAdvance(t *testing.T) {
	tests := []struct {
		name   string
		from   Clock
		want   SeasonDate
		rolled bool
	}{
		{name: "mid month", from: Clock{Year: 2024, Month: 3, Day: 10}, want: SeasonDate{2024, 3, 11}},
		{name: "month wrap", from: Clock{Year: 2024, Month: 3, Day: 30}, want: SeasonDate{2024, 4, 1}},
		{name: "year wrap", from: Clock{Year: 2024, Month: 12, Day: 30}, want: SeasonDate{2025, 1, 1}, rolled: true},
	}
	for _, tc := range tests {
		next, rolled := tc.from.Advance(30)
		if next.Today() != tc.want || rolled != tc.rolled {
			t.Fatalf("%s: got %s rolled=%v, want %s rolled=%v", tc.name, next.Today(), rolled, tc.want, tc.rolled)
		}
	}
}

func TestSeasonDateKeyRoundTrip(t *testing.T) {
	d := SeasonDate{Year: 2024, Month: 5, Day: 25}
	if d.Key() != "2024-05-25" {
		t.Fatalf("unexpected key %q", d.Key())
	}
	got, err := ParseSeasonDate(d.Key())
	if err != nil || got != d {
		t.Fatalf("parse %q got=%v err=%v", d.Key(), got, err)
	}
	if _, err := ParseSeasonDate("2024-13-01"); err == nil {
		t.Fatalf("expected month 13 to fail")
	}
	if got := (SeasonDate{2024, 12, 29}).AddDays(3, 30); got != (SeasonDate{2025, 1, 2}) {
		t.Fatalf("AddDays across year got %s", got)
	}
}

func TestRaceFor(t *testing.T) {
	rules := DefaultRules()

	derby := rules.RaceFor(rules.Schedule, SeasonDate{2024, 5, 25})
	if derby.Class != ClassFeature || derby.Name != "Tokyo Yushun" || derby.Purse != 300_000 {
		t.Fatalf("unexpected feature race %+v", derby)
	}
	kinpai := rules.RaceFor(rules.Schedule, SeasonDate{2024, 1, 5})
	if kinpai.Purse != rules.Feature.Purse {
		t.Fatalf("expected default feature purse, got %d", kinpai.Purse)
	}
	every := rules.RaceFor(rules.Schedule, SeasonDate{2024, 7, 15})
	if every.Name != "Mid-Month Handicap" || !every.Feature() {
		t.Fatalf("expected every-month race, got %+v", every)
	}

	even := rules.RaceFor(rules.Schedule, SeasonDate{2024, 7, 2})
	odd := rules.RaceFor(rules.Schedule, SeasonDate{2024, 7, 3})
	if even.Class != ClassFiller || even.Surface != SurfaceDirt || even.Distance != 1600 {
		t.Fatalf("unexpected even-day filler %+v", even)
	}
	if odd.Class != ClassFiller || odd.Surface != SurfaceTurf || odd.Distance != 1800 {
		t.Fatalf("unexpected odd-day filler %+v", odd)
	}
}

func TestScheduledRaceOnIgnoresBadEntries(t *testing.T) {
	schedule := []ScheduledRace{
		{Month: 2, Day: 45, Name: "Out of cycle", Distance: 2000, Surface: SurfaceTurf},
		{Month: 2, Day: 3, Name: "Bad surface", Distance: 2000, Surface: "sand"},
		{Month: 0, Day: 4, Name: "Every month", Distance: 1600, Surface: SurfaceDirt},
		{Month: 2, Day: 4, Name: "February only", Distance: 2400, Surface: SurfaceTurf},
	}
	if _, ok := ScheduledRaceOn(schedule, SeasonDate{2024, 2, 3}, 30); ok {
		t.Fatalf("expected bad surface entry to be ignored")
	}
	sr, ok := ScheduledRaceOn(schedule, SeasonDate{2024, 2, 4}, 30)
	if !ok || sr.Name != "February only" {
		t.Fatalf("expected month-specific race to win, got %+v", sr)
	}
	sr, ok = ScheduledRaceOn(schedule, SeasonDate{2024, 3, 4}, 30)
	if !ok || sr.Name != "Every month" {
		t.Fatalf("expected every-month race, got %+v", sr)
	}
}
