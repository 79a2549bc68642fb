package game

import (
	"math"
	"testing"
)

func TestDistanceWeightsFor(t *testing.T) {
	sc := DefaultRules().Scoring
	tests := []struct {
		distance int
		want     DistanceWeights
	}{
		{distance: 1200, want: sc.Short},
		{distance: 1400, want: sc.Short},
		{distance: 2000, want: sc.Medium},
		{distance: 3200, want: sc.Long},
	}
	for _, tc := range tests {
		if got := sc.DistanceWeightsFor(tc.distance); got != tc.want {
			t.Fatalf("distance=%d got=%+v want=%+v", tc.distance, got, tc.want)
		}
	}
}

func TestExpectedScorePipeline(t *testing.T) {
	sc := DefaultRules().Scoring
	h := &Horse{Stats: Stats{Speed: 100, Stamina: 100, Temper: 100, Growth: 0, Turf: 100, Dirt: 0}}

	// Full turf affinity, zero growth secondary, no fatigue.
	if got := sc.ExpectedScore(h, 2000, SurfaceTurf); math.Abs(got-100) > 1e-9 {
		t.Fatalf("turf score got=%f want=100", got)
	}
	// Zero dirt affinity halves the blend, temper 100 adds the full secondary bonus.
	want := 100 * 0.5 * 1.05
	if got := sc.ExpectedScore(h, 2000, SurfaceDirt); math.Abs(got-want) > 1e-9 {
		t.Fatalf("dirt score got=%f want=%f", got, want)
	}
}

func TestFatigueFactorFloor(t *testing.T) {
	sc := DefaultRules().Scoring
	if got := sc.FatigueFactor(0); got != 1 {
		t.Fatalf("fatigue 0 got=%f", got)
	}
	if got := sc.FatigueFactor(5); math.Abs(got-0.85) > 1e-9 {
		t.Fatalf("fatigue 5 got=%f", got)
	}
	if got := sc.FatigueFactor(MaxFatigue); got != sc.FatigueFloor {
		t.Fatalf("fatigue 10 should hit the floor, got=%f", got)
	}
}

func TestScoreOnlyVarianceIsRandom(t *testing.T) {
	sc := DefaultRules().Scoring
	h := &Horse{Stats: evenStats(120), Fatigue: 3}
	base := sc.ExpectedScore(h, 1600, SurfaceDirt)
	if got := sc.Score(h, 1600, SurfaceDirt, FixedVariance(1)); got != base {
		t.Fatalf("unit variance should equal expected score: %f vs %f", got, base)
	}
	if got := sc.Score(h, 1600, SurfaceDirt, FixedVariance(1.1)); math.Abs(got-base*1.1) > 1e-9 {
		t.Fatalf("variance factor not applied: %f", got)
	}

	rng := newTickRNG(42)
	v := sc.variance(rng.stream(streamVariance))
	for i := 0; i < 1000; i++ {
		f := v.Factor()
		if f < sc.VarianceMin || f > sc.VarianceMax {
			t.Fatalf("variance %f outside [%f,%f]", f, sc.VarianceMin, sc.VarianceMax)
		}
	}
}
