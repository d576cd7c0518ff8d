package randutil

import (
	rand "math/rand/v2"
	"sync"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// NewSeeded returns a *rand.Rand seeded from the wall clock, for
// callers that do not need reproducibility.
func NewSeeded() *rand.Rand {
	return New(time.Now().UnixNano())
}

// NewLocked returns a *rand.Rand whose source is guarded by a mutex.
// rand.Rand itself holds no state beyond its Source, so serializing
// Uint64 makes the whole Rand safe to share across goroutines. Same
// seed derivation as New, so sequences match.
func NewLocked(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(&lockedSource{src: rand.NewPCG(mix(u), mix(u+goldenRatio64))})
}

// NewLockedSeeded is NewLocked seeded from the wall clock.
func NewLockedSeeded() *rand.Rand {
	return NewLocked(time.Now().UnixNano())
}

type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
