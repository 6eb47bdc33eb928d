package game

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is a mutex-guarded rand.Rand. Engines take one at construction so
// combat outcomes are reproducible under a fixed seed in tests while
// staying safe for concurrent handlers.
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a Rand seeded with the given seed.
func NewRand(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

// NewTimeRand returns a Rand seeded from the wall clock.
func NewTimeRand() *Rand {
	return NewRand(time.Now().UnixNano())
}

// Intn returns a uniform int in [0, n). n must be > 0.
func (r *Rand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Intn(n)
}

// Between returns a uniform int in [lo, hi], inclusive on both ends.
func (r *Rand) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Int64Between returns a uniform int64 in [lo, hi], inclusive.
func (r *Rand) Int64Between(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.r.Int63n(hi-lo+1)
}

// Chance returns true with probability p (clamped to [0, 1]).
func (r *Rand) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Float64() < p
}
