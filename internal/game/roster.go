package game

import (
	"math/rand"
	"sort"
	"strings"
)

// Engine applies Rules to a Document. It keeps no state of its own; every
// method works on the document it is handed.
type Engine struct {
	Rules Rules
}

func NewEngine(rules Rules) *Engine {
	return &Engine{Rules: rules}
}

func (e *Engine) RegisterOwner(doc *Document, ownerID string) (*Owner, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, reject(ReasonUnknownOwner, "owner id is required")
	}
	if _, exists := doc.Owners[ownerID]; exists {
		return nil, reject(ReasonAlreadyRegistered, "owner %s is already registered", ownerID)
	}
	o := &Owner{
		ID:       ownerID,
		Balance:  e.Rules.StarterBalance,
		Horses:   []string{},
		JoinedOn: doc.Today(),
	}
	doc.Owners[ownerID] = o
	return o, nil
}

// BuyHorse creates a new horse with random stats for ownerID.
func (e *Engine) BuyHorse(doc *Document, ownerID, name string, r *rand.Rand) (*Horse, error) {
	o, err := doc.owner(ownerID)
	if err != nil {
		return nil, err
	}
	if err := validateHorseName(name); err != nil {
		return nil, err
	}
	if len(o.Horses) >= e.Rules.MaxHorsesPerOwner {
		return nil, reject(ReasonMaxHorsesReached, "owners may keep at most %d horses", e.Rules.MaxHorsesPerOwner)
	}
	if o.Balance < e.Rules.HorsePrice {
		return nil, reject(ReasonInsufficientBalance, "a horse costs %d, balance is %d", e.Rules.HorsePrice, o.Balance)
	}

	nh := e.Rules.NewHorse
	h := &Horse{
		ID:    doc.nextHorseID("H"),
		Name:  strings.TrimSpace(name),
		Owner: PlayerOwner(ownerID),
		Stats: Stats{
			Speed:   intBetween(r, nh.StatMin, nh.StatMax),
			Stamina: intBetween(r, nh.StatMin, nh.StatMax),
			Temper:  intBetween(r, nh.StatMin, nh.StatMax),
			Growth:  intBetween(r, nh.GrowthMin, nh.GrowthMax),
			Turf:    intBetween(r, nh.AffinityMin, nh.AffinityMax),
			Dirt:    intBetween(r, nh.AffinityMin, nh.AffinityMax),
		},
		Age: nh.StartAge,
	}
	doc.Horses[h.ID] = h
	o.Horses = append(o.Horses, h.ID)
	o.Balance -= e.Rules.HorsePrice
	return h, nil
}

func (e *Engine) SetFavorite(doc *Document, ownerID, horseID string, favorite bool) (*Horse, error) {
	h, err := doc.playerHorse(ownerID, horseID)
	if err != nil {
		return nil, err
	}
	h.Favorite = favorite
	return h, nil
}

// removeHorse deletes a player horse and everything that references it:
// the owner's roster, every day's pending entries and any live bets, whose
// stakes are refunded. Past race records are left untouched.
func removeHorse(doc *Document, horseID string) []BetPayout {
	h, ok := doc.Horses[horseID]
	if !ok {
		return nil
	}
	if o, ok := doc.Owners[h.Owner.ID]; ok {
		o.Horses = without(o.Horses, horseID)
	}
	for day, ids := range doc.Entries {
		rest := without(ids, horseID)
		if len(rest) == 0 {
			delete(doc.Entries, day)
			continue
		}
		doc.Entries[day] = rest
	}
	var refunds []BetPayout
	for _, day := range sortedKeys(doc.Bets) {
		byHorse := doc.Bets[day]
		bets, ok := byHorse[horseID]
		if !ok {
			continue
		}
		refunds = append(refunds, refundBets(doc, horseID, bets)...)
		delete(byHorse, horseID)
		if len(byHorse) == 0 {
			delete(doc.Bets, day)
		}
	}
	delete(doc.Horses, horseID)
	return refunds
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
