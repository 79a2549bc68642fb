package game

import (
	"math"
	"sort"
)

type rankedRunner struct {
	horse *Horse
	score float64
}

// rank scores every runner once, in field order, and sorts by score
// descending. Ties keep field order.
func (e *Engine) rank(f Field, v Variance) []rankedRunner {
	out := make([]rankedRunner, len(f.Runner))
	for i, h := range f.Runner {
		out[i] = rankedRunner{horse: h, score: e.Rules.Scoring.Score(h, f.Race.Distance, f.Race.Surface, v)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

// PrizeFor is the prize paid to a finishing position (1-based) in a race of
// the given class and purse. Unpaid positions get 0.
func (e *Engine) PrizeFor(class RaceClass, purse int64, position int) int64 {
	fractions := e.Rules.Class(class).Payouts
	if position < 1 || position > len(fractions) {
		return 0
	}
	return int64(math.Floor(float64(purse)*fractions[position-1] + 1e-9))
}

// allocate turns a ranking into results and credits real owners. House
// horses take their finishing place but never receive a prize, a win or a
// history entry.
func (e *Engine) allocate(doc *Document, race RaceInfo, raceID string, ranked []rankedRunner) []Result {
	results := make([]Result, len(ranked))
	for i, rr := range ranked {
		h := rr.horse
		pos := i + 1
		res := Result{
			Position: pos,
			HorseID:  h.ID,
			Name:     h.Name,
			Owner:    h.Owner,
			Score:    math.Round(rr.score*100) / 100,
		}
		if !h.IsHouse() {
			res.Prize = e.PrizeFor(race.Class, race.Purse, pos)
			o := doc.Owners[h.Owner.ID]
			if o != nil {
				o.Balance += res.Prize
			}
			if pos == 1 {
				h.Wins++
				if o != nil {
					o.Wins++
				}
			}
			h.History = append(h.History, HistoryEntry{
				Date:      race.Date,
				RaceID:    raceID,
				Race:      race.Name,
				Position:  pos,
				FieldSize: len(ranked),
				Score:     res.Score,
				Prize:     res.Prize,
			})
		}
		results[i] = res
	}
	return results
}
