package game

import (
	"math"
	"math/rand"
)

// DistanceWeightsFor picks the Speed/Stamina blend for a race distance.
func (s ScoringRules) DistanceWeightsFor(distance int) DistanceWeights {
	switch {
	case distance <= s.ShortMax:
		return s.Short
	case distance <= s.MediumMax:
		return s.Medium
	default:
		return s.Long
	}
}

// ExpectedScore runs the deterministic part of the scoring pipeline: distance
// blend, surface affinity, surface-dependent secondary stat and fatigue.
func (s ScoringRules) ExpectedScore(h *Horse, distance int, surface Surface) float64 {
	w := s.DistanceWeightsFor(distance)
	score := float64(h.Stats.Speed)*w.Speed + float64(h.Stats.Stamina)*w.Stamina

	affinity := float64(clampInt(h.Stats.Affinity(surface), 0, 100)) / 100
	score *= s.AffinityFloor + (1-s.AffinityFloor)*affinity

	secondary := h.Stats.Growth
	if surface == SurfaceDirt {
		secondary = h.Stats.Temper
	}
	score *= 1 + s.SecondaryMax*float64(clampInt(secondary, 0, 100))/100

	score *= s.FatigueFactor(h.Fatigue)
	return score
}

func (s ScoringRules) FatigueFactor(fatigue int) float64 {
	return math.Max(s.FatigueFloor, 1-float64(fatigue)*s.FatigueK)
}

// Score is ExpectedScore times the race-day variance factor.
func (s ScoringRules) Score(h *Horse, distance int, surface Surface, v Variance) float64 {
	return s.ExpectedScore(h, distance, surface) * v.Factor()
}

func (s ScoringRules) variance(r *rand.Rand) Variance {
	return uniformVariance{r: r, min: s.VarianceMin, max: s.VarianceMax}
}
