package gacha

import (
	"math/rand"
	"sync"
)

// LockedRand is a mutex-guarded math/rand source satisfying RNG, safe for
// concurrent request handlers.
type LockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}
