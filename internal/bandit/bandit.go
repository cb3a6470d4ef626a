// Package bandit implements per-arm online estimators (UCB1, Thompson
// sampling, epsilon-greedy) and a per-context ensemble of them.
//
// Rewards are general float64 scalars. The estimators assume rewards roughly
// in [0,1]: UCB and epsilon-greedy keep running means of whatever they are
// given, and Thompson sampling only looks at reward > 0.5. NaN and Inf
// rewards are dropped with a warning.
package bandit

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
)

// Strategy names accepted by NewStrategy and Ensemble.SetActive.
const (
	StrategyUCB      = "ucb"
	StrategyThompson = "thompson"
	StrategyEGreedy  = "egreedy"
)

// #region strategy
// Strategy selects among a fixed number of arms and learns from rewards.
// Implementations are not safe for concurrent use.
type Strategy interface {
	Name() string
	SelectArm() int
	Update(arm int, reward float64)
	Stats() Stats
	Restore(Stats) error
}

// Stats is a JSON-serializable snapshot of a strategy's counters.
type Stats struct {
	Strategy   string    `json:"strategy"`
	Counts     []int     `json:"counts"`
	Values     []float64 `json:"values,omitempty"`
	Alpha      []float64 `json:"alpha,omitempty"`
	Beta       []float64 `json:"beta,omitempty"`
	TotalPulls int       `json:"total_pulls"`
}

// #endregion strategy

// #region config
// Config holds tunables shared by every strategy instance.
type Config struct {
	Arms    int     `json:"arms" yaml:"arms"`
	UCBC    float64 `json:"ucb_c" yaml:"ucb_c"`
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`
	Sampler string  `json:"sampler" yaml:"sampler"` // "beta" | "approx"
	Seed    uint64  `json:"seed" yaml:"seed"`
}

// DefaultConfig returns 10 arms, c=2.0, epsilon=0.1 and the exact Beta sampler.
func DefaultConfig() Config {
	return Config{
		Arms:    10,
		UCBC:    2.0,
		Epsilon: 0.1,
		Sampler: SamplerBeta,
		Seed:    1,
	}
}

// NewStrategy builds a strategy by name.
func NewStrategy(name string, cfg Config, rng *rand.Rand) (Strategy, error) {
	switch name {
	case StrategyUCB:
		return NewUCB1(cfg.Arms, cfg.UCBC), nil
	case StrategyThompson:
		return NewThompson(cfg.Arms, cfg.Sampler, rng), nil
	case StrategyEGreedy:
		return NewEpsilonGreedy(cfg.Arms, cfg.Epsilon, rng), nil
	default:
		return nil, fmt.Errorf("unknown bandit strategy %q", name)
	}
}

// #endregion config

// #region helpers
func newRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// argmax returns the first index of the largest value.
func argmax(values []float64) int {
	if len(values) == 0 {
		return 0
	}
	return floats.MaxIdx(values)
}

// acceptUpdate reports whether (arm, reward) may be applied to an n-armed strategy.
func acceptUpdate(strategy string, n, arm int, reward float64) bool {
	if arm < 0 || arm >= n {
		logging.New("bandit").Warn("ignoring update for out-of-range arm",
			slog.String("strategy", strategy), slog.Int("arm", arm), slog.Int("arms", n))
		return false
	}
	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		logging.New("bandit").Warn("ignoring non-finite reward",
			slog.String("strategy", strategy), slog.Int("arm", arm))
		return false
	}
	return true
}

func checkRestore(s Stats, want string, n int) error {
	if s.Strategy != want {
		return fmt.Errorf("restore %s: snapshot is for %q", want, s.Strategy)
	}
	if len(s.Counts) != n {
		return fmt.Errorf("restore %s: %d counts, want %d", want, len(s.Counts), n)
	}
	sum := 0
	for i, c := range s.Counts {
		if c < 0 {
			return fmt.Errorf("restore %s: negative count at arm %d", want, i)
		}
		sum += c
	}
	// UCB takes log(TotalPulls); a total that disagrees with the counts
	// turns every score into NaN or Inf
	if s.TotalPulls != sum {
		return fmt.Errorf("restore %s: total pulls %d, counts sum to %d", want, s.TotalPulls, sum)
	}
	return nil
}

func loggerFor(component string) *slog.Logger {
	return logging.New("bandit").With("part", component)
}

// #endregion helpers
