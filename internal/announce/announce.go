// Package announce publishes race-day projections to players.
package announce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stables/internal/game"
)

type Announcer interface {
	PreRace(ctx context.Context, snap game.PreRaceSnapshot) error
	PostRace(ctx context.Context, rep game.PostRaceReport) error
}

// Log writes announcements as structured log records.
type Log struct {
	log *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{log: logger}
}

func (l *Log) PreRace(_ context.Context, snap game.PreRaceSnapshot) error {
	l.log.Info("pre-race", "date", snap.Race.Date.Key(), "race", snap.Race.Name, "entries", len(snap.Entries), "min_field", snap.MinField)
	return nil
}

func (l *Log) PostRace(_ context.Context, rep game.PostRaceReport) error {
	attrs := []any{"date", rep.Race.Date.Key(), "race", rep.Race.Name, "held", rep.Held, "payouts", len(rep.Payouts), "retired", len(rep.Retired)}
	if rep.Held && len(rep.Results) > 0 {
		attrs = append(attrs, "winner", rep.Results[0].Name)
	}
	l.log.Info("post-race", attrs...)
	return nil
}

// Multi fans out to every announcer and joins their errors.
type Multi []Announcer

func (m Multi) PreRace(ctx context.Context, snap game.PreRaceSnapshot) error {
	var errs []error
	for _, a := range m {
		errs = append(errs, a.PreRace(ctx, snap))
	}
	return errors.Join(errs...)
}

func (m Multi) PostRace(ctx context.Context, rep game.PostRaceReport) error {
	var errs []error
	for _, a := range m {
		errs = append(errs, a.PostRace(ctx, rep))
	}
	return errors.Join(errs...)
}

func raceTitle(r game.RaceInfo) string {
	return fmt.Sprintf("%s (%s %dm)", r.Name, r.Surface, r.Distance)
}

// FormatPreRace renders the entry list with current odds.
func FormatPreRace(snap game.PreRaceSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", snap.Race.Date.Key(), raceTitle(snap.Race))
	fmt.Fprintf(&b, "Purse %s, field of %d\n", comma(snap.Race.Purse), snap.MinField)
	if len(snap.Entries) == 0 {
		b.WriteString("No entries yet.\n")
		return b.String()
	}
	for i, e := range snap.Entries {
		fmt.Fprintf(&b, "%2d. %-20s %5.2f  fatigue %d  <@%s>\n", i+1, e.Name, e.Odds, e.Fatigue, e.Owner)
	}
	return b.String()
}

// FormatPostRace renders results, bet payouts and retirements.
func FormatPostRace(rep game.PostRaceReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", rep.Race.Date.Key(), raceTitle(rep.Race))
	if !rep.Held {
		b.WriteString("Race not held: the field was too small.\n")
	}
	for _, r := range rep.Results {
		line := fmt.Sprintf("%2d. %-20s %7.2f", r.Position, r.Name, r.Score)
		if r.Prize > 0 {
			line += "  +" + comma(r.Prize)
		}
		if !r.Owner.IsHouse() {
			line += fmt.Sprintf("  <@%s>", r.Owner.ID)
		}
		b.WriteString(line + "\n")
	}
	if len(rep.Payouts) > 0 {
		b.WriteString("Bets:\n")
		for _, p := range rep.Payouts {
			if p.Refund {
				fmt.Fprintf(&b, "  <@%s> refunded %s\n", p.Bettor, comma(p.Payout))
				continue
			}
			fmt.Fprintf(&b, "  <@%s> won %s (%s at %.2f)\n", p.Bettor, comma(p.Payout), comma(p.Stake), p.Odds)
		}
	}
	if len(rep.Retired) > 0 {
		fmt.Fprintf(&b, "Retired: %s\n", strings.Join(rep.Retired, ", "))
	}
	return b.String()
}

func comma(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return sign + string(out)
}
