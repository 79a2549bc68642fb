package game

import "strings"

type BulkMode string

const (
	BulkAll       BulkMode = "all"
	BulkFavorites BulkMode = "favorites"
)

func ParseBulkMode(s string) (BulkMode, bool) {
	switch BulkMode(strings.ToLower(strings.TrimSpace(s))) {
	case BulkAll, "":
		return BulkAll, true
	case BulkFavorites, "favorite", "fav":
		return BulkFavorites, true
	default:
		return "", false
	}
}

// entryWindowOpen reports whether day is a date entries may still target:
// today (if its race has not run) up to EntryWindowDays ahead.
func (e *Engine) entryWindowOpen(doc *Document, day SeasonDate) bool {
	today := doc.Today()
	if day == today {
		return !doc.Clock.TickedToday()
	}
	cd := e.Rules.CycleDays
	o := day.Ordinal(cd)
	t := today.Ordinal(cd)
	return o > t && o <= t+e.Rules.EntryWindowDays
}

func (e *Engine) entriesByOwner(doc *Document, day SeasonDate, ownerID string) int {
	n := 0
	for _, id := range doc.Entries[day.Key()] {
		if h, ok := doc.Horses[id]; ok && h.Owner.ID == ownerID && !h.IsHouse() {
			n++
		}
	}
	return n
}

// Register enters one horse into the race on day.
func (e *Engine) Register(doc *Document, ownerID, horseID string, day SeasonDate) error {
	h, err := doc.playerHorse(ownerID, horseID)
	if err != nil {
		return err
	}
	if h.Fatigue >= e.Rules.FatigueCeiling {
		return reject(ReasonFatigueTooHigh, "%s has fatigue %d (limit %d)", h.Name, h.Fatigue, e.Rules.FatigueCeiling-1)
	}
	if !e.entryWindowOpen(doc, day) {
		return reject(ReasonWindowClosed, "entries for %s are not open", day)
	}
	key := day.Key()
	if contains(doc.Entries[key], horseID) {
		return reject(ReasonAlreadyEntered, "%s is already entered on %s", h.Name, day)
	}
	if n := e.entriesByOwner(doc, day, ownerID); n+1 > e.Rules.EntryCapPerOwner {
		return reject(ReasonEntryCapExceeded, "you already have %d of %d entries on %s", n, e.Rules.EntryCapPerOwner, day)
	}
	doc.Entries[key] = append(doc.Entries[key], horseID)
	return nil
}

// BulkRegister enters every eligible horse of the owner, or none of them.
// Horses that are too tired or already entered are skipped before the cap
// check; if the rest would exceed the cap the whole batch is rejected.
func (e *Engine) BulkRegister(doc *Document, ownerID string, mode BulkMode, day SeasonDate) ([]string, error) {
	o, err := doc.owner(ownerID)
	if err != nil {
		return nil, err
	}
	if !e.entryWindowOpen(doc, day) {
		return nil, reject(ReasonWindowClosed, "entries for %s are not open", day)
	}
	key := day.Key()
	var candidates []string
	for _, id := range o.Horses {
		h, ok := doc.Horses[id]
		if !ok {
			continue
		}
		if mode == BulkFavorites && !h.Favorite {
			continue
		}
		if h.Fatigue >= e.Rules.FatigueCeiling || contains(doc.Entries[key], id) {
			continue
		}
		candidates = append(candidates, id)
	}
	if len(candidates) == 0 {
		return nil, reject(ReasonNoEligibleHorses, "no eligible horses for %s", day)
	}
	existing := e.entriesByOwner(doc, day, ownerID)
	if existing+len(candidates) > e.Rules.EntryCapPerOwner {
		return nil, reject(ReasonEntryCapExceeded,
			"%d eligible horses plus %d existing entries exceed the cap of %d; nothing was registered",
			len(candidates), existing, e.Rules.EntryCapPerOwner)
	}
	doc.Entries[key] = append(doc.Entries[key], candidates...)
	return candidates, nil
}

func (e *Engine) Unregister(doc *Document, ownerID, horseID string, day SeasonDate) error {
	h, err := doc.playerHorse(ownerID, horseID)
	if err != nil {
		return err
	}
	key := day.Key()
	if !contains(doc.Entries[key], horseID) {
		return reject(ReasonNotEntered, "%s is not entered on %s", h.Name, day)
	}
	if day == doc.Today() && doc.Clock.TickedToday() {
		return reject(ReasonWindowClosed, "the race on %s has already run", day)
	}
	if bets := doc.Bets[key][horseID]; len(bets) > 0 {
		refundBets(doc, horseID, bets)
		delete(doc.Bets[key], horseID)
		if len(doc.Bets[key]) == 0 {
			delete(doc.Bets, key)
		}
	}
	rest := without(doc.Entries[key], horseID)
	if len(rest) == 0 {
		delete(doc.Entries, key)
	} else {
		doc.Entries[key] = rest
	}
	return nil
}

func refundBets(doc *Document, horseID string, bets []Bet) []BetPayout {
	out := make([]BetPayout, 0, len(bets))
	for _, b := range bets {
		if o, ok := doc.Owners[b.Bettor]; ok {
			o.Balance += b.Stake
		}
		out = append(out, BetPayout{Bettor: b.Bettor, HorseID: horseID, Stake: b.Stake, Odds: b.Odds, Payout: b.Stake, Refund: true})
	}
	return out
}
