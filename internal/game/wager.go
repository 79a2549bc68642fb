package game

import (
	"math"
	"time"
)

type OddsLine struct {
	HorseID  string  `json:"horse_id"`
	Name     string  `json:"name"`
	Owner    string  `json:"owner"`
	Expected float64 `json:"expected"`
	Share    float64 `json:"share"`
	Odds     float64 `json:"odds"`
}

// Odds prices the day's real entrants from expected scores. A field short
// of its class minimum is padded with midpoint house horses for pricing only.
func (e *Engine) Odds(doc *Document, day SeasonDate) []OddsLine {
	race := e.Rules.RaceFor(doc.Schedule, day)
	real := realEntrants(doc, day)
	if len(real) == 0 {
		return nil
	}
	sc := e.Rules.Scoring
	lines := make([]OddsLine, len(real))
	total := 0.0
	for i, h := range real {
		exp := sc.ExpectedScore(h, race.Distance, race.Surface)
		lines[i] = OddsLine{HorseID: h.ID, Name: h.Name, Owner: h.Owner.ID, Expected: exp}
		total += exp
	}
	if pad := e.Rules.Class(race.Class).MinField - len(real); pad > 0 {
		total += float64(pad) * sc.ExpectedScore(e.midpointHouseHorse(race.Class), race.Distance, race.Surface)
	}
	for i := range lines {
		if total > 0 {
			lines[i].Share = lines[i].Expected / total
		}
		lines[i].Odds = e.Rules.Market.price(lines[i].Share)
	}
	return lines
}

func (m MarketRules) price(share float64) float64 {
	odds := m.MaxOdds
	if share > 0 {
		odds = 1 / (share * m.HouseMargin)
	}
	if m.MaxOdds > 0 && odds > m.MaxOdds {
		odds = m.MaxOdds
	}
	if odds < m.MinOdds {
		odds = m.MinOdds
	}
	return math.Round(odds*100) / 100
}

// PlaceBet debits the stake and locks the current odds into the bet.
func (e *Engine) PlaceBet(doc *Document, bettorID, horseID string, stake int64, now time.Time) (Bet, error) {
	today := doc.Today()
	if doc.Clock.TickedToday() {
		return Bet{}, reject(ReasonWindowClosed, "betting for %s is closed", today)
	}
	key := today.Key()
	if !contains(doc.Entries[key], horseID) {
		return Bet{}, reject(ReasonNotEntered, "horse %s is not running today", horseID)
	}
	if h, ok := doc.Horses[horseID]; !ok || h.IsHouse() {
		return Bet{}, reject(ReasonNotEntered, "horse %s is not running today", horseID)
	}
	if stake <= 0 {
		return Bet{}, reject(ReasonInvalidStake, "stake must be positive")
	}
	o, err := doc.owner(bettorID)
	if err != nil {
		return Bet{}, err
	}
	if o.Balance < stake {
		return Bet{}, reject(ReasonInsufficientBalance, "stake %d exceeds balance %d", stake, o.Balance)
	}
	for _, bets := range doc.Bets[key] {
		for _, b := range bets {
			if b.Bettor == bettorID {
				return Bet{}, reject(ReasonDuplicateBet, "you already placed a bet today")
			}
		}
	}

	var odds float64
	for _, line := range e.Odds(doc, today) {
		if line.HorseID == horseID {
			odds = line.Odds
			break
		}
	}
	bet := Bet{Bettor: bettorID, Stake: stake, Odds: odds, PlacedAt: now.UTC()}
	o.Balance -= stake
	if doc.Bets[key] == nil {
		doc.Bets[key] = map[string][]Bet{}
	}
	doc.Bets[key][horseID] = append(doc.Bets[key][horseID], bet)
	return bet, nil
}

// Payout is what a winning bet returns, computed only from its locked odds.
func (b Bet) Payout() int64 {
	return int64(math.Floor(float64(b.Stake)*b.Odds + 1e-9))
}

// settle pays every bet on the winner and clears the day's book. Losing
// stakes stay with the house.
func settle(doc *Document, day SeasonDate, winnerID string) []BetPayout {
	key := day.Key()
	var out []BetPayout
	for _, b := range doc.Bets[key][winnerID] {
		p := b.Payout()
		if o, ok := doc.Owners[b.Bettor]; ok {
			o.Balance += p
		}
		out = append(out, BetPayout{Bettor: b.Bettor, HorseID: winnerID, Stake: b.Stake, Odds: b.Odds, Payout: p})
	}
	delete(doc.Bets, key)
	return out
}

func refundDay(doc *Document, day SeasonDate) []BetPayout {
	key := day.Key()
	var out []BetPayout
	for _, id := range sortedKeys(doc.Bets[key]) {
		out = append(out, refundBets(doc, id, doc.Bets[key][id])...)
	}
	delete(doc.Bets, key)
	return out
}
