// Package rand provides the seeded pseudo-random source handed to simulations.
// Every simulation takes one explicitly so that a seed reproduces a scenario.
package rand

import "github.com/MichaelTJones/pcg"

// stream selects the PCG sequence; any odd constant works
const stream = 0xda3e39cb94b95bdb

// Rand is a PCG32 generator. It is not safe for concurrent use.
type Rand struct {
	r    *pcg.PCG32
	seed int64
}

// New returns a generator seeded with seed.
func New(seed int64) *Rand {
	r := &Rand{r: pcg.NewPCG32()}
	r.Seed(seed)
	return r
}

// Seed resets the generator state.
func (r *Rand) Seed(s int64) {
	r.seed = s
	r.r.Seed(uint64(s), stream)
}

// SeedValue returns the seed the generator was last reset with.
func (r *Rand) SeedValue() int64 {
	return r.seed
}

// Intn returns a value in [0,n). It panics if n <= 0.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		panic("rand: invalid argument to Intn")
	}
	return int(r.r.Bounded(uint32(n)))
}

// Float64 returns a value in [0,1).
func (r *Rand) Float64() float64 {
	return float64(r.r.Random()) / (1 << 32)
}

// Bool returns true with probability 1/2.
func (r *Rand) Bool() bool {
	return r.r.Random()&1 == 1
}

// Chance returns true with probability p.
func (r *Rand) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	return r.Float64() < p
}

// Uint32 returns the next raw 32-bit value.
func (r *Rand) Uint32() uint32 {
	return r.r.Random()
}
