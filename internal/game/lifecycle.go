package game

import (
	"math"
	"math/rand"
	"strings"
)

type TrainStat string

const (
	TrainSpeed   TrainStat = "speed"
	TrainStamina TrainStat = "stamina"
	TrainTemper  TrainStat = "temper"
)

func ParseTrainStat(s string) (TrainStat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "speed", "sp", "spd":
		return TrainSpeed, true
	case "stamina", "st", "sta":
		return TrainStamina, true
	case "temper", "temperament", "tmp":
		return TrainTemper, true
	default:
		return "", false
	}
}

func (s *Stats) field(stat TrainStat) *int {
	switch stat {
	case TrainSpeed:
		return &s.Speed
	case TrainStamina:
		return &s.Stamina
	case TrainTemper:
		return &s.Temper
	default:
		return nil
	}
}

const (
	RetireReasonStarts  = "race limit"
	RetireReasonAge     = "age"
	RetireReasonWinless = "winless"
	RetireReasonOwner   = "owner"
)

// Rest recovers fatigue. Each horse may rest once per in-game day.
func (e *Engine) Rest(doc *Document, ownerID, horseID string) (*Horse, error) {
	h, err := doc.playerHorse(ownerID, horseID)
	if err != nil {
		return nil, err
	}
	today := doc.Today()
	if h.RestedOn == today {
		return nil, reject(ReasonAlreadyRested, "%s already rested today", h.Name)
	}
	h.Fatigue = clampInt(h.Fatigue-e.Rules.Lifecycle.RestRecovery, 0, MaxFatigue)
	h.RestedOn = today
	return h, nil
}

// Train spends growth reserve to raise a stat permanently.
func (e *Engine) Train(doc *Document, ownerID, horseID string, stat TrainStat, points int) (*Horse, error) {
	h, err := doc.playerHorse(ownerID, horseID)
	if err != nil {
		return nil, err
	}
	l := e.Rules.Lifecycle
	target := h.Stats.field(stat)
	if target == nil {
		return nil, reject(ReasonInvalidTraining, "unknown stat %q", stat)
	}
	if points < 1 || points > l.TrainMaxSpend {
		return nil, reject(ReasonInvalidTraining, "spend between 1 and %d growth points", l.TrainMaxSpend)
	}
	if points > h.Stats.Growth {
		return nil, reject(ReasonInsufficientGrowth, "%s has only %d growth points", h.Name, h.Stats.Growth)
	}
	if *target >= l.StatCeiling {
		return nil, reject(ReasonStatAtCeiling, "%s %s is already at %d", h.Name, stat, l.StatCeiling)
	}
	gain := int(math.Round(float64(points) * l.TrainRate))
	if gain < 1 {
		gain = 1
	}
	*target = clampInt(*target+gain, 0, l.StatCeiling)
	h.Stats.Growth -= points
	h.Fatigue = clampInt(h.Fatigue+l.TrainFatigue, 0, MaxFatigue)
	return h, nil
}

// RetireHorse is a voluntary retirement by the owner.
func (e *Engine) RetireHorse(doc *Document, ownerID, horseID string) (Retirement, []BetPayout, error) {
	h, err := doc.playerHorse(ownerID, horseID)
	if err != nil {
		return Retirement{}, nil, err
	}
	ret := retire(doc, h, RetireReasonOwner)
	return ret, removeHorse(doc, horseID), nil
}

func retire(doc *Document, h *Horse, reason string) Retirement {
	ret := Retirement{
		Date:    doc.Today(),
		HorseID: h.ID,
		Name:    h.Name,
		OwnerID: h.Owner.ID,
		Reason:  reason,
		Wins:    h.Wins,
		Starts:  h.Starts,
	}
	doc.Retirements = append(doc.Retirements, ret)
	return ret
}

// afterRace applies fatigue and growth to every real runner.
func (e *Engine) afterRace(runners []*Horse, r *rand.Rand) {
	l := e.Rules.Lifecycle
	for _, h := range runners {
		if h.IsHouse() {
			continue
		}
		h.Starts++
		h.Fatigue = clampInt(h.Fatigue+intBetween(r, l.RaceFatigueMin, l.RaceFatigueMax), 0, MaxFatigue)
		if h.Stats.Growth < l.GrowthCap {
			h.Stats.Growth = clampInt(h.Stats.Growth+intBetween(r, l.GrowthGainMin, l.GrowthGainMax), 0, l.GrowthCap)
		}
	}
}

func (e *Engine) retireReason(h *Horse) (string, bool) {
	l := e.Rules.Lifecycle
	switch {
	case l.RetireStarts > 0 && h.Starts > l.RetireStarts:
		return RetireReasonStarts, true
	case l.RetireAge > 0 && h.Age > l.RetireAge:
		return RetireReasonAge, true
	case l.WinlessRetireAge > 0 && h.Age >= l.WinlessRetireAge && h.Wins == 0:
		return RetireReasonWinless, true
	}
	return "", false
}

// sweep retires every real horse past a threshold. House horses are exempt.
func (e *Engine) sweep(doc *Document, raceID string) ([]Retirement, []BetPayout) {
	var (
		rets    []Retirement
		refunds []BetPayout
	)
	for _, id := range sortedKeys(doc.Horses) {
		h := doc.Horses[id]
		if h.IsHouse() {
			continue
		}
		reason, ok := e.retireReason(h)
		if !ok {
			continue
		}
		ret := retire(doc, h, reason)
		ret.AfterRace = raceID
		doc.Retirements[len(doc.Retirements)-1] = ret
		rets = append(rets, ret)
		refunds = append(refunds, removeHorse(doc, id)...)
	}
	return rets, refunds
}

func ageRealHorses(doc *Document) {
	for _, h := range doc.Horses {
		if !h.IsHouse() {
			h.Age++
		}
	}
}
