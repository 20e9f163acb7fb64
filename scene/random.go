package scene

import (
	"math/rand"
	"time"
)

type RNG struct {
	source *rand.Rand
}

// NewRNG seeds a generator; a seed of 0 seeds from the current time.
func NewRNG(seed int64) *RNG {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RNG{source: rand.New(rand.NewSource(seed))}
}

// Float returns a value in [min, max).
func (r *RNG) Float(min, max float32) float32 {
	return min + r.source.Float32()*(max-min)
}

// Int returns a value in [min, max). It panics if max <= min.
func (r *RNG) Int(min, max int) int {
	return min + r.source.Intn(max-min)
}
