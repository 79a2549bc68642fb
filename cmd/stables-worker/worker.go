package main

import (
	"context"
	"log/slog"

	"stables/internal/announce"
	"stables/internal/game"
)

type worker struct {
	svc       *game.Service
	trigger   game.Trigger
	announcer announce.Announcer
	log       *slog.Logger
}

// check runs the day's race when the trigger has fired since the last one,
// then posts the result and the next day's field. Announcer failures are
// logged and never fail the check.
func (w *worker) check(ctx context.Context) error {
	out, ran, err := w.svc.TickIfDue(ctx, w.trigger)
	if err != nil {
		return err
	}
	if !ran {
		w.log.Debug("race not due")
		return nil
	}
	w.log.Info("race day complete", "date", out.Record.Date.Key(), "race", out.Record.Name, "held", out.Record.Held, "retired", len(out.Retired))

	report, ok, err := w.svc.PostRaceReport(ctx, out.Record.Date)
	if err != nil {
		return err
	}
	if ok {
		if err := w.announcer.PostRace(ctx, report); err != nil {
			w.log.Warn("post-race announcement failed", "err", err)
		}
	}

	snap, err := w.svc.PreRaceSnapshot(ctx, game.SeasonDate{})
	if err != nil {
		return err
	}
	if err := w.announcer.PreRace(ctx, snap); err != nil {
		w.log.Warn("pre-race announcement failed", "err", err)
	}
	return nil
}
