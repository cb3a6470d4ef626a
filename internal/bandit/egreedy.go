package bandit

import (
	"fmt"
	"math/rand/v2"
)

// #region epsilon-greedy
// EpsilonGreedy explores uniformly with probability epsilon and otherwise
// exploits the best running mean.
type EpsilonGreedy struct {
	epsilon float64
	counts  []int
	values  []float64
	total   int
	rng     *rand.Rand
}

// NewEpsilonGreedy creates an epsilon-greedy strategy over n arms.
func NewEpsilonGreedy(n int, epsilon float64, rng *rand.Rand) *EpsilonGreedy {
	if rng == nil {
		rng = newRand(1, 3)
	}
	return &EpsilonGreedy{
		epsilon: epsilon,
		counts:  make([]int, n),
		values:  make([]float64, n),
		rng:     rng,
	}
}

func (e *EpsilonGreedy) Name() string { return StrategyEGreedy }

func (e *EpsilonGreedy) SelectArm() int {
	if e.rng.Float64() < e.epsilon {
		return e.rng.IntN(len(e.counts))
	}
	return argmax(e.values)
}

// Update applies the incremental mean value += (reward - value) / count.
func (e *EpsilonGreedy) Update(arm int, reward float64) {
	if !acceptUpdate(StrategyEGreedy, len(e.counts), arm, reward) {
		return
	}
	e.counts[arm]++
	e.total++
	e.values[arm] += (reward - e.values[arm]) / float64(e.counts[arm])
}

func (e *EpsilonGreedy) Stats() Stats {
	return Stats{
		Strategy:   StrategyEGreedy,
		Counts:     append([]int(nil), e.counts...),
		Values:     append([]float64(nil), e.values...),
		TotalPulls: e.total,
	}
}

func (e *EpsilonGreedy) Restore(s Stats) error {
	if err := checkRestore(s, StrategyEGreedy, len(e.counts)); err != nil {
		return err
	}
	if len(s.Values) != len(e.values) {
		return errValuesLen(StrategyEGreedy, len(s.Values), len(e.values))
	}
	copy(e.counts, s.Counts)
	copy(e.values, s.Values)
	e.total = s.TotalPulls
	return nil
}

// #endregion epsilon-greedy

func errValuesLen(strategy string, got, want int) error {
	return fmt.Errorf("restore %s: %d values, want %d", strategy, got, want)
}
