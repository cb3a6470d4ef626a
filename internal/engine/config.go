package engine

import (
	"fmt"
	"slices"

	"github.com/danielpatrickdp/adaptive-layout/internal/bandit"
	"github.com/danielpatrickdp/adaptive-layout/internal/eval"
	"github.com/danielpatrickdp/adaptive-layout/internal/gate"
	"github.com/danielpatrickdp/adaptive-layout/internal/qnet"
)

// #region config
// Config holds every engine tunable. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	Actions           int     `json:"actions" yaml:"actions"`
	StateSize         int     `json:"state_size" yaml:"state_size"`
	Hidden            int     `json:"hidden" yaml:"hidden"`
	Gamma             float64 `json:"gamma" yaml:"gamma"`
	LearningRate      float64 `json:"learning_rate" yaml:"learning_rate"`
	BatchSize         int     `json:"batch_size" yaml:"batch_size"`
	BufferCapacity    int     `json:"buffer_capacity" yaml:"buffer_capacity"`
	TrainEvery        int     `json:"train_every" yaml:"train_every"`
	UpdateTargetEvery int     `json:"update_target_every" yaml:"update_target_every"`

	Epsilon      float64 `json:"epsilon" yaml:"epsilon"`
	EpsilonDecay float64 `json:"epsilon_decay" yaml:"epsilon_decay"`
	EpsilonMin   float64 `json:"epsilon_min" yaml:"epsilon_min"`

	// BanditBlend is the probability that a decision comes from the bandit
	// ensemble instead of the value network.
	BanditBlend    float64  `json:"bandit_blend" yaml:"bandit_blend"`
	ActiveStrategy string   `json:"active_strategy" yaml:"active_strategy"`
	Contexts       []string `json:"contexts" yaml:"contexts"`
	DefaultContext string   `json:"default_context" yaml:"default_context"`

	SaveEvery  int    `json:"save_every" yaml:"save_every"` // 0 disables periodic saves
	WeightsKey string `json:"weights_key" yaml:"weights_key"`
	StateKey   string `json:"state_key" yaml:"state_key"`
	Seed       uint64 `json:"seed" yaml:"seed"`

	Bandit bandit.Config   `json:"bandit" yaml:"bandit"`
	Gate   gate.GateConfig `json:"gate" yaml:"gate"`
	Eval   eval.EvalConfig `json:"eval" yaml:"eval"`
}

// DefaultConfig returns the standard 20-feature, 10-action engine.
func DefaultConfig() Config {
	return Config{
		Actions:           10,
		StateSize:         20,
		Hidden:            32,
		Gamma:             0.95,
		LearningRate:      0.01,
		BatchSize:         32,
		BufferCapacity:    1000,
		TrainEvery:        4,
		UpdateTargetEvery: 100,
		Epsilon:           1.0,
		EpsilonDecay:      0.995,
		EpsilonMin:        0.05,
		BanditBlend:       0.5,
		ActiveStrategy:    bandit.StrategyUCB,
		Contexts:          []string{"dashboard", "blog", "ecommerce"},
		DefaultContext:    "dashboard",
		SaveEvery:         50,
		WeightsKey:        "engine/weights",
		StateKey:          "engine/state",
		Seed:              1,
		Bandit:            bandit.DefaultConfig(),
		Gate:              gate.DefaultGateConfig(),
		Eval:              eval.DefaultEvalConfig(),
	}
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch {
	case c.Actions <= 0:
		return fmt.Errorf("engine: actions must be positive, got %d", c.Actions)
	case c.StateSize <= 0:
		return fmt.Errorf("engine: state size must be positive, got %d", c.StateSize)
	case c.Bandit.Arms != c.Actions:
		return fmt.Errorf("engine: bandit arms %d != actions %d", c.Bandit.Arms, c.Actions)
	case c.Gate.Actions != c.Actions || c.Gate.StateSize != c.StateSize:
		return fmt.Errorf("engine: gate bounds %dx%d do not match %d actions, %d features",
			c.Gate.Actions, c.Gate.StateSize, c.Actions, c.StateSize)
	case c.BatchSize <= 0:
		return fmt.Errorf("engine: batch size must be positive, got %d", c.BatchSize)
	case c.BufferCapacity < c.BatchSize:
		return fmt.Errorf("engine: buffer capacity %d below batch size %d", c.BufferCapacity, c.BatchSize)
	case c.TrainEvery <= 0:
		return fmt.Errorf("engine: train interval must be positive, got %d", c.TrainEvery)
	case c.Epsilon < 0 || c.Epsilon > 1:
		return fmt.Errorf("engine: epsilon %v outside [0,1]", c.Epsilon)
	case c.EpsilonMin < 0 || c.EpsilonMin > 1:
		return fmt.Errorf("engine: epsilon floor %v outside [0,1]", c.EpsilonMin)
	case c.EpsilonDecay <= 0 || c.EpsilonDecay > 1:
		return fmt.Errorf("engine: epsilon decay %v outside (0,1]", c.EpsilonDecay)
	case c.BanditBlend < 0 || c.BanditBlend > 1:
		return fmt.Errorf("engine: bandit blend %v outside [0,1]", c.BanditBlend)
	case c.SaveEvery < 0:
		return fmt.Errorf("engine: save interval must not be negative, got %d", c.SaveEvery)
	case c.WeightsKey == "" || c.StateKey == "":
		return fmt.Errorf("engine: persistence keys must be set")
	case c.WeightsKey == c.StateKey:
		return fmt.Errorf("engine: weights and state keys must differ")
	case !slices.Contains(c.Contexts, c.DefaultContext):
		return fmt.Errorf("engine: default context %q not in %v", c.DefaultContext, c.Contexts)
	}
	return c.qnetConfig().Validate()
}

func (c Config) qnetConfig() qnet.Config {
	return qnet.Config{
		StateSize:         c.StateSize,
		Actions:           c.Actions,
		Hidden:            c.Hidden,
		Gamma:             c.Gamma,
		LearningRate:      c.LearningRate,
		UpdateTargetEvery: c.UpdateTargetEvery,
		Seed:              c.Seed,
	}
}

// #endregion config
