package game

import (
	"errors"
	"fmt"
)

type DistanceWeights struct {
	Speed   float64 `yaml:"speed"`
	Stamina float64 `yaml:"stamina"`
}

type ScoringRules struct {
	ShortMax      int             `yaml:"short_max"`
	MediumMax     int             `yaml:"medium_max"`
	Short         DistanceWeights `yaml:"short"`
	Medium        DistanceWeights `yaml:"medium"`
	Long          DistanceWeights `yaml:"long"`
	AffinityFloor float64         `yaml:"affinity_floor"`
	SecondaryMax  float64         `yaml:"secondary_max"`
	FatigueK      float64         `yaml:"fatigue_k"`
	FatigueFloor  float64         `yaml:"fatigue_floor"`
	VarianceMin   float64         `yaml:"variance_min"`
	VarianceMax   float64         `yaml:"variance_max"`
}

type ClassRules struct {
	MinField     int       `yaml:"min_field"`
	Purse        int64     `yaml:"purse"`
	Payouts      []float64 `yaml:"payouts"`
	HouseStatMin int       `yaml:"house_stat_min"`
	HouseStatMax int       `yaml:"house_stat_max"`
}

type MarketRules struct {
	HouseMargin float64 `yaml:"house_margin"`
	MinOdds     float64 `yaml:"min_odds"`
	MaxOdds     float64 `yaml:"max_odds"`
}

type LifecycleRules struct {
	RaceFatigueMin   int     `yaml:"race_fatigue_min"`
	RaceFatigueMax   int     `yaml:"race_fatigue_max"`
	GrowthGainMin    int     `yaml:"growth_gain_min"`
	GrowthGainMax    int     `yaml:"growth_gain_max"`
	GrowthCap        int     `yaml:"growth_cap"`
	RestRecovery     int     `yaml:"rest_recovery"`
	TrainMaxSpend    int     `yaml:"train_max_spend"`
	TrainRate        float64 `yaml:"train_rate"`
	TrainFatigue     int     `yaml:"train_fatigue"`
	StatCeiling      int     `yaml:"stat_ceiling"`
	RetireStarts     int     `yaml:"retire_starts"`
	RetireAge        int     `yaml:"retire_age"`
	WinlessRetireAge int     `yaml:"winless_retire_age"`
}

type NewHorseRules struct {
	StatMin     int `yaml:"stat_min"`
	StatMax     int `yaml:"stat_max"`
	AffinityMin int `yaml:"affinity_min"`
	AffinityMax int `yaml:"affinity_max"`
	GrowthMin   int `yaml:"growth_min"`
	GrowthMax   int `yaml:"growth_max"`
	StartAge    int `yaml:"start_age"`
}

type Rules struct {
	StartYear         int             `yaml:"start_year"`
	CycleDays         int             `yaml:"cycle_days"`
	StarterBalance    int64           `yaml:"starter_balance"`
	HorsePrice        int64           `yaml:"horse_price"`
	MaxHorsesPerOwner int             `yaml:"max_horses_per_owner"`
	FatigueCeiling    int             `yaml:"fatigue_ceiling"`
	EntryCapPerOwner  int             `yaml:"entry_cap_per_owner"`
	EntryWindowDays   int             `yaml:"entry_window_days"`
	Scoring           ScoringRules    `yaml:"scoring"`
	Feature           ClassRules      `yaml:"feature"`
	Filler            ClassRules      `yaml:"filler"`
	Market            MarketRules     `yaml:"market"`
	Lifecycle         LifecycleRules  `yaml:"lifecycle"`
	NewHorse          NewHorseRules   `yaml:"new_horse"`
	Schedule          []ScheduledRace `yaml:"schedule"`
}

const MaxFatigue = 10

func DefaultRules() Rules {
	return Rules{
		StartYear:         2024,
		CycleDays:         30,
		StarterBalance:    100_000,
		HorsePrice:        10_000,
		MaxHorsesPerOwner: 5,
		FatigueCeiling:    8,
		EntryCapPerOwner:  3,
		EntryWindowDays:   6,
		Scoring: ScoringRules{
			ShortMax:      1400,
			MediumMax:     2200,
			Short:         DistanceWeights{Speed: 0.7, Stamina: 0.3},
			Medium:        DistanceWeights{Speed: 0.5, Stamina: 0.5},
			Long:          DistanceWeights{Speed: 0.3, Stamina: 0.7},
			AffinityFloor: 0.5,
			SecondaryMax:  0.05,
			FatigueK:      0.03,
			FatigueFloor:  0.75,
			VarianceMin:   0.85,
			VarianceMax:   1.15,
		},
		Feature: ClassRules{
			MinField:     18,
			Purse:        200_000,
			Payouts:      []float64{0.55, 0.20, 0.12, 0.08, 0.05},
			HouseStatMin: 80,
			HouseStatMax: 140,
		},
		Filler: ClassRules{
			MinField:     8,
			Purse:        40_000,
			Payouts:      []float64{0.50, 0.30, 0.20},
			HouseStatMin: 50,
			HouseStatMax: 110,
		},
		Market: MarketRules{
			HouseMargin: 1.2,
			MinOdds:     1.1,
			MaxOdds:     100,
		},
		Lifecycle: LifecycleRules{
			RaceFatigueMin:   2,
			RaceFatigueMax:   4,
			GrowthGainMin:    1,
			GrowthGainMax:    3,
			GrowthCap:        100,
			RestRecovery:     3,
			TrainMaxSpend:    10,
			TrainRate:        1.0,
			TrainFatigue:     1,
			StatCeiling:      200,
			RetireStarts:     40,
			RetireAge:        7,
			WinlessRetireAge: 5,
		},
		NewHorse: NewHorseRules{
			StatMin:     50,
			StatMax:     150,
			AffinityMin: 20,
			AffinityMax: 100,
			GrowthMin:   40,
			GrowthMax:   85,
			StartAge:    2,
		},
		Schedule: DefaultSchedule(),
	}
}

func DefaultSchedule() []ScheduledRace {
	return []ScheduledRace{
		{Month: 1, Day: 5, Name: "Nakayama Kinpai", Distance: 2000, Surface: SurfaceTurf},
		{Month: 2, Day: 20, Name: "February Stakes", Distance: 1600, Surface: SurfaceDirt},
		{Month: 3, Day: 25, Name: "Takamatsunomiya Kinen", Distance: 1200, Surface: SurfaceTurf},
		{Month: 4, Day: 1, Name: "Osaka Hai", Distance: 2000, Surface: SurfaceTurf},
		{Month: 5, Day: 1, Name: "Tenno Sho (Spring)", Distance: 3200, Surface: SurfaceTurf},
		{Month: 5, Day: 25, Name: "Tokyo Yushun", Distance: 2400, Surface: SurfaceTurf, Purse: 300_000},
		{Month: 6, Day: 25, Name: "Takarazuka Kinen", Distance: 2200, Surface: SurfaceTurf},
		{Month: 9, Day: 30, Name: "Sprinters Stakes", Distance: 1200, Surface: SurfaceTurf},
		{Month: 10, Day: 20, Name: "Kikuka Sho", Distance: 3000, Surface: SurfaceTurf},
		{Month: 11, Day: 25, Name: "Japan Cup", Distance: 2400, Surface: SurfaceTurf, Purse: 300_000},
		{Month: 12, Day: 5, Name: "Champions Cup", Distance: 1800, Surface: SurfaceDirt},
		{Month: 12, Day: 25, Name: "Arima Kinen", Distance: 2500, Surface: SurfaceTurf},
		{Day: 15, Name: "Mid-Month Handicap", Distance: 1600, Surface: SurfaceDirt},
	}
}

func (r Rules) Class(class RaceClass) ClassRules {
	if class == ClassFeature {
		return r.Feature
	}
	return r.Filler
}

// Validate rejects rule sets that would break the document invariants.
func (r Rules) Validate() error {
	var errs []error
	if r.CycleDays < 1 {
		errs = append(errs, fmt.Errorf("cycle_days must be >= 1"))
	}
	if r.StartYear < 1 {
		errs = append(errs, fmt.Errorf("start_year must be >= 1"))
	}
	if r.FatigueCeiling < 1 || r.FatigueCeiling > MaxFatigue {
		errs = append(errs, fmt.Errorf("fatigue_ceiling must be within 1..%d", MaxFatigue))
	}
	if r.EntryCapPerOwner < 1 {
		errs = append(errs, fmt.Errorf("entry_cap_per_owner must be >= 1"))
	}
	if r.EntryWindowDays < 0 {
		errs = append(errs, fmt.Errorf("entry_window_days must be >= 0"))
	}
	if r.MaxHorsesPerOwner < 1 {
		errs = append(errs, fmt.Errorf("max_horses_per_owner must be >= 1"))
	}
	if r.StarterBalance < 0 || r.HorsePrice < 0 {
		errs = append(errs, fmt.Errorf("starter_balance and horse_price must be >= 0"))
	}
	sc := r.Scoring
	if sc.ShortMax <= 0 || sc.MediumMax <= sc.ShortMax {
		errs = append(errs, fmt.Errorf("scoring: need 0 < short_max < medium_max"))
	}
	for _, nw := range []struct {
		name string
		w    DistanceWeights
	}{{"short", sc.Short}, {"medium", sc.Medium}, {"long", sc.Long}} {
		name, w := nw.name, nw.w
		if w.Speed < 0 || w.Stamina < 0 || !approxEqual(w.Speed+w.Stamina, 1) {
			errs = append(errs, fmt.Errorf("scoring: %s weights must be non-negative and sum to 1", name))
		}
	}
	if sc.FatigueFloor <= 0 || sc.FatigueFloor > 1 || sc.FatigueK < 0 {
		errs = append(errs, fmt.Errorf("scoring: fatigue_floor must be in (0,1] and fatigue_k >= 0"))
	}
	if sc.VarianceMin <= 0 || sc.VarianceMax < sc.VarianceMin {
		errs = append(errs, fmt.Errorf("scoring: need 0 < variance_min <= variance_max"))
	}
	if sc.AffinityFloor < 0 || sc.AffinityFloor > 1 || sc.SecondaryMax < 0 {
		errs = append(errs, fmt.Errorf("scoring: affinity_floor must be in [0,1] and secondary_max >= 0"))
	}
	for _, nc := range []struct {
		name string
		cr   ClassRules
	}{{"feature", r.Feature}, {"filler", r.Filler}} {
		name, cr := nc.name, nc.cr
		if cr.MinField < 0 || cr.Purse < 0 {
			errs = append(errs, fmt.Errorf("%s: min_field and purse must be >= 0", name))
		}
		if cr.HouseStatMin < 1 || cr.HouseStatMax < cr.HouseStatMin {
			errs = append(errs, fmt.Errorf("%s: need 1 <= house_stat_min <= house_stat_max", name))
		}
		total := 0.0
		for _, p := range cr.Payouts {
			if p < 0 {
				errs = append(errs, fmt.Errorf("%s: payout fractions must be >= 0", name))
			}
			total += p
		}
		if total > 1+1e-9 {
			errs = append(errs, fmt.Errorf("%s: payout fractions sum to %.3f > 1", name, total))
		}
	}
	m := r.Market
	if m.HouseMargin <= 0 || m.MinOdds < 1 || (m.MaxOdds != 0 && m.MaxOdds < m.MinOdds) {
		errs = append(errs, fmt.Errorf("market: need house_margin > 0, min_odds >= 1, max_odds >= min_odds"))
	}
	l := r.Lifecycle
	if l.RaceFatigueMin < 0 || l.RaceFatigueMax < l.RaceFatigueMin || l.GrowthGainMin < 0 || l.GrowthGainMax < l.GrowthGainMin {
		errs = append(errs, fmt.Errorf("lifecycle: random ranges must be non-negative and ordered"))
	}
	if l.GrowthCap < 1 || l.StatCeiling < 1 || l.TrainMaxSpend < 1 || l.TrainRate <= 0 || l.RestRecovery < 0 || l.TrainFatigue < 0 {
		errs = append(errs, fmt.Errorf("lifecycle: caps, train_max_spend and train_rate must be positive"))
	}
	n := r.NewHorse
	if n.StatMin < 1 || n.StatMax < n.StatMin || n.AffinityMin < 0 || n.AffinityMax < n.AffinityMin || n.GrowthMin < 0 || n.GrowthMax < n.GrowthMin {
		errs = append(errs, fmt.Errorf("new_horse: stat ranges must be ordered"))
	}
	return errors.Join(errs...)
}

func approxEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
