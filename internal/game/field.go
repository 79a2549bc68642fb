package game

import (
	"fmt"
	"math/rand"
)

var (
	houseNamePrefixes = []string{"Silent", "Crimson", "Northern", "Lucky", "Golden", "Iron", "Swift", "Midnight", "Royal", "Thunder", "Velvet", "Autumn"}
	houseNameSuffixes = []string{"Arrow", "Comet", "Dancer", "Echo", "Gale", "Harbor", "Lancer", "Meadow", "Rocket", "Summit", "Tempo", "Voyage"}
)

// Field is the ordered list of runners: real entries in registration order,
// then house horses in the order they were drawn.
type Field struct {
	Race   RaceInfo
	Real   []*Horse
	House  []*Horse
	Runner []*Horse
}

func (f Field) Size() int {
	return len(f.Runner)
}

// realEntrants resolves the day's entry list to live player horses, dropping
// ids that no longer exist.
func realEntrants(doc *Document, day SeasonDate) []*Horse {
	var out []*Horse
	for _, id := range doc.Entries[day.Key()] {
		h, ok := doc.Horses[id]
		if !ok || h.IsHouse() {
			continue
		}
		out = append(out, h)
	}
	return out
}

// BuildField pads the day's real entries with house horses up to the class
// minimum. Existing house horses of the same class are reused first; new ones
// are generated into the document only when the stable is short.
func (e *Engine) BuildField(doc *Document, race RaceInfo, rng *tickRNG) Field {
	f := Field{Race: race, Real: realEntrants(doc, race.Date)}
	need := e.Rules.Class(race.Class).MinField - len(f.Real)
	if need > 0 {
		pool := doc.houseHorses(race.Class)
		shuffle := rng.stream(streamField)
		shuffle.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		if len(pool) > need {
			pool = pool[:need]
		}
		f.House = pool
		gen := rng.stream(streamStable)
		for len(f.House) < need {
			f.House = append(f.House, e.newHouseHorse(doc, race.Class, gen))
		}
	}
	f.Runner = make([]*Horse, 0, len(f.Real)+len(f.House))
	f.Runner = append(f.Runner, f.Real...)
	f.Runner = append(f.Runner, f.House...)
	return f
}

func (e *Engine) newHouseHorse(doc *Document, class RaceClass, r *rand.Rand) *Horse {
	cr := e.Rules.Class(class)
	nh := e.Rules.NewHorse
	h := &Horse{
		ID:    doc.nextHorseID("X"),
		Name:  fmt.Sprintf("%s %s", houseNamePrefixes[r.Intn(len(houseNamePrefixes))], houseNameSuffixes[r.Intn(len(houseNameSuffixes))]),
		Owner: HouseOwner(),
		Stats: Stats{
			Speed:   intBetween(r, cr.HouseStatMin, cr.HouseStatMax),
			Stamina: intBetween(r, cr.HouseStatMin, cr.HouseStatMax),
			Temper:  intBetween(r, cr.HouseStatMin, cr.HouseStatMax),
			Growth:  intBetween(r, nh.GrowthMin, nh.GrowthMax),
			Turf:    intBetween(r, nh.AffinityMin, nh.AffinityMax),
			Dirt:    intBetween(r, nh.AffinityMin, nh.AffinityMax),
		},
		Age:   nh.StartAge,
		Class: class,
	}
	doc.Horses[h.ID] = h
	return h
}

// midpointHouseHorse is the ephemeral stand-in used when pricing a field
// that is still short of its minimum.
func (e *Engine) midpointHouseHorse(class RaceClass) *Horse {
	cr := e.Rules.Class(class)
	nh := e.Rules.NewHorse
	mid := (cr.HouseStatMin + cr.HouseStatMax) / 2
	return &Horse{
		Owner: HouseOwner(),
		Stats: Stats{
			Speed:   mid,
			Stamina: mid,
			Temper:  mid,
			Growth:  (nh.GrowthMin + nh.GrowthMax) / 2,
			Turf:    (nh.AffinityMin + nh.AffinityMax) / 2,
			Dirt:    (nh.AffinityMin + nh.AffinityMax) / 2,
		},
		Class: class,
	}
}
