package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand"
)

// RNG subsystems. Each gets its own stream so that, for example, generating
// one more house horse does not shift the race-day variance draws.
const (
	streamField     = "field"
	streamVariance  = "variance"
	streamLifecycle = "lifecycle"
	streamStable    = "stable"
)

// tickRNG hands out deterministic per-subsystem generators derived from one
// seed. Not safe for concurrent use.
type tickRNG struct {
	seed    int64
	streams map[string]*rand.Rand
}

func newTickRNG(seed int64) *tickRNG {
	return &tickRNG{seed: seed, streams: make(map[string]*rand.Rand)}
}

func (t *tickRNG) stream(name string) *rand.Rand {
	if r, ok := t.streams[name]; ok {
		return r
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	r := rand.New(rand.NewSource(t.seed ^ int64(h.Sum64())))
	t.streams[name] = r
	return r
}

func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func intBetween(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Variance produces the race-day luck multiplier. It is the only random input
// to scoring.
type Variance interface {
	Factor() float64
}

type uniformVariance struct {
	r        *rand.Rand
	min, max float64
}

func (u uniformVariance) Factor() float64 {
	return u.min + u.r.Float64()*(u.max-u.min)
}

type FixedVariance float64

func (f FixedVariance) Factor() float64 {
	return float64(f)
}
