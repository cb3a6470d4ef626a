package bandit

import "math"

// #region ucb1
// UCB1 is the upper-confidence-bound strategy. Untried arms are pulled first,
// in index order, so the confidence term never divides by zero.
type UCB1 struct {
	c      float64
	counts []int
	values []float64
	total  int
}

// NewUCB1 creates a UCB1 strategy over n arms with exploration constant c.
func NewUCB1(n int, c float64) *UCB1 {
	return &UCB1{
		c:      c,
		counts: make([]int, n),
		values: make([]float64, n),
	}
}

func (u *UCB1) Name() string { return StrategyUCB }

// SelectArm returns the first untried arm, else argmax of mean + c*sqrt(2 ln N / n).
func (u *UCB1) SelectArm() int {
	for a, n := range u.counts {
		if n == 0 {
			return a
		}
	}
	scores := make([]float64, len(u.counts))
	logTotal := math.Log(float64(u.total))
	for a := range scores {
		scores[a] = u.values[a] + u.c*math.Sqrt(2*logTotal/float64(u.counts[a]))
	}
	return argmax(scores)
}

// Update folds reward into the arm's running mean.
func (u *UCB1) Update(arm int, reward float64) {
	if !acceptUpdate(StrategyUCB, len(u.counts), arm, reward) {
		return
	}
	u.counts[arm]++
	u.total++
	u.values[arm] += (reward - u.values[arm]) / float64(u.counts[arm])
}

func (u *UCB1) Stats() Stats {
	return Stats{
		Strategy:   StrategyUCB,
		Counts:     append([]int(nil), u.counts...),
		Values:     append([]float64(nil), u.values...),
		TotalPulls: u.total,
	}
}

func (u *UCB1) Restore(s Stats) error {
	if err := checkRestore(s, StrategyUCB, len(u.counts)); err != nil {
		return err
	}
	if len(s.Values) != len(u.values) {
		return errValuesLen(StrategyUCB, len(s.Values), len(u.values))
	}
	copy(u.counts, s.Counts)
	copy(u.values, s.Values)
	u.total = s.TotalPulls
	return nil
}

// #endregion ucb1
