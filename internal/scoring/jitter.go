package scoring

import (
	"math/rand/v2"
	"sync"
)

// DefaultJitterAmplitude is the perturbation range the rule-based scorer historically used
const DefaultJitterAmplitude = 5.0

// Jitter perturbs a category base score before clamping
type Jitter interface {
	// Perturb returns the offset added to one category's base score
	Perturb() float64
}

// NoJitter leaves scores untouched, making the scorer a pure function of its input
type NoJitter struct{}

// Perturb always returns 0
func (NoJitter) Perturb() float64 { return 0 }

// SeededJitter draws a uniform perturbation in [-amplitude, +amplitude] from a seeded generator
type SeededJitter struct {
	mu        sync.Mutex
	rng       *rand.Rand
	amplitude float64
}

// NewSeededJitter creates a reproducible jitter source
func NewSeededJitter(seed uint64, amplitude float64) *SeededJitter {
	if amplitude < 0 {
		amplitude = -amplitude
	}
	return &SeededJitter{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		amplitude: amplitude,
	}
}

// Perturb returns the next offset in [-amplitude, +amplitude]. Safe for concurrent use.
func (j *SeededJitter) Perturb() float64 {
	if j.amplitude == 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rng.Float64()*2*j.amplitude - j.amplitude
}

// JitterFunc adapts a plain function to the Jitter interface
type JitterFunc func() float64

// Perturb calls f
func (f JitterFunc) Perturb() float64 { return f() }
