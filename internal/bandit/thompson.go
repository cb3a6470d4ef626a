package bandit

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler names for Thompson sampling.
const (
	// SamplerBeta draws from Beta(alpha, beta).
	SamplerBeta = "beta"
	// SamplerApprox draws mean + std*N(0,1) clamped to [0,1]. It matches the
	// Beta mean and variance but not its skew, so arms with few pulls near the
	// edges of [0,1] are sampled with a bias toward the clamp.
	SamplerApprox = "approx"
)

// #region thompson
// Thompson samples each arm's success rate from its pseudo-count posterior
// and plays the arm with the highest draw.
type Thompson struct {
	sampler string
	alpha   []float64
	beta    []float64
	counts  []int
	total   int
	rng     *rand.Rand
}

// NewThompson creates a Thompson sampler over n arms with a Beta(1,1) prior.
// Unknown sampler names fall back to SamplerBeta.
func NewThompson(n int, sampler string, rng *rand.Rand) *Thompson {
	if rng == nil {
		rng = newRand(1, 2)
	}
	if sampler != SamplerApprox {
		sampler = SamplerBeta
	}
	t := &Thompson{
		sampler: sampler,
		alpha:   make([]float64, n),
		beta:    make([]float64, n),
		counts:  make([]int, n),
		rng:     rng,
	}
	for i := 0; i < n; i++ {
		t.alpha[i] = 1
		t.beta[i] = 1
	}
	return t
}

func (t *Thompson) Name() string { return StrategyThompson }

func (t *Thompson) SelectArm() int {
	samples := make([]float64, len(t.alpha))
	for a := range samples {
		samples[a] = t.sample(t.alpha[a], t.beta[a])
	}
	return argmax(samples)
}

func (t *Thompson) sample(a, b float64) float64 {
	if t.sampler == SamplerBeta {
		d := distuv.Beta{Alpha: a, Beta: b, Src: t.rng}
		return d.Rand()
	}
	sum := a + b
	mean := a / sum
	std := math.Sqrt(a * b / (sum * sum * (sum + 1)))
	x := mean + std*t.rng.NormFloat64()
	return math.Max(0, math.Min(1, x))
}

// Update counts a success when reward > 0.5 and a failure otherwise.
func (t *Thompson) Update(arm int, reward float64) {
	if !acceptUpdate(StrategyThompson, len(t.alpha), arm, reward) {
		return
	}
	t.counts[arm]++
	t.total++
	if reward > 0.5 {
		t.alpha[arm]++
	} else {
		t.beta[arm]++
	}
}

// Mean returns the posterior mean alpha/(alpha+beta) per arm.
func (t *Thompson) Mean() []float64 {
	out := make([]float64, len(t.alpha))
	for a := range out {
		out[a] = t.alpha[a] / (t.alpha[a] + t.beta[a])
	}
	return out
}

func (t *Thompson) Stats() Stats {
	return Stats{
		Strategy:   StrategyThompson,
		Counts:     append([]int(nil), t.counts...),
		Values:     t.Mean(),
		Alpha:      append([]float64(nil), t.alpha...),
		Beta:       append([]float64(nil), t.beta...),
		TotalPulls: t.total,
	}
}

func (t *Thompson) Restore(s Stats) error {
	if err := checkRestore(s, StrategyThompson, len(t.alpha)); err != nil {
		return err
	}
	if len(s.Alpha) != len(t.alpha) || len(s.Beta) != len(t.beta) {
		return fmt.Errorf("restore %s: pseudo-count length mismatch", StrategyThompson)
	}
	for i := range s.Alpha {
		if s.Alpha[i] <= 0 || s.Beta[i] <= 0 {
			return fmt.Errorf("restore %s: non-positive pseudo-count at arm %d", StrategyThompson, i)
		}
	}
	copy(t.alpha, s.Alpha)
	copy(t.beta, s.Beta)
	copy(t.counts, s.Counts)
	t.total = s.TotalPulls
	return nil
}

// #endregion thompson
