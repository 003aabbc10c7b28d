// Package rng provides the injectable random source used by every
// stochastic computation.
package rng

import "math/rand/v2"

// Source is the subset of *rand.Rand the simulations draw from.
type Source interface {
	Float64() float64
	NormFloat64() float64
}

// New returns a deterministic PCG-backed generator for seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
