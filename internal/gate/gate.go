package gate

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/adaptive-layout/internal/experience"
)

// #region gate
// Gate decides whether a transition may be recorded.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Config returns the gate configuration.
func (g *Gate) Config() GateConfig { return g.config }

// Evaluate runs every hard veto. Any hit rejects the experience; the
// decision lists all vetoes in check order and its Reason names the first.
func (g *Gate) Evaluate(e experience.Experience) GateDecision {
	var vetoes []VetoSignal

	// 1. State width
	if len(e.State) != g.config.StateSize {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoShape,
			Reason: fmt.Sprintf("state has %d features, want %d", len(e.State), g.config.StateSize),
		})
	}

	// 2. Next-state width (non-terminal transitions bootstrap from it)
	if !e.Terminal && len(e.NextState) != g.config.StateSize {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoShape,
			Reason: fmt.Sprintf("next state has %d features, want %d", len(e.NextState), g.config.StateSize),
		})
	}

	// 3. Action range
	if e.Action < 0 || e.Action >= g.config.Actions {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoAction,
			Reason: fmt.Sprintf("action %d outside [0,%d]", e.Action, g.config.Actions-1),
		})
	}

	// 4. Reward must be finite and bounded
	switch {
	case math.IsNaN(e.Reward) || math.IsInf(e.Reward, 0):
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoReward,
			Reason: fmt.Sprintf("reward %v is not finite", e.Reward),
		})
	case g.config.MaxAbsReward > 0 && math.Abs(e.Reward) > g.config.MaxAbsReward:
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoReward,
			Reason: fmt.Sprintf("reward %.4f exceeds cap %.4f", e.Reward, g.config.MaxAbsReward),
		})
	}

	// 5. Non-finite features
	if i, ok := firstNonFinite(e.State); ok {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoShape,
			Reason: fmt.Sprintf("state feature %d is not finite", i),
		})
	}
	if i, ok := firstNonFinite(e.NextState); ok {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoShape,
			Reason: fmt.Sprintf("next state feature %d is not finite", i),
		})
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      ActionReject,
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
		}
	}

	return GateDecision{
		Action: ActionCommit,
		Reason: "passed gate",
	}
}

// #endregion gate

// #region helpers
func firstNonFinite(v []float64) (int, bool) {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i, true
		}
	}
	return 0, false
}

// #endregion helpers
