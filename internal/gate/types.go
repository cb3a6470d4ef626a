package gate

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoShape  VetoType = "shape_violation"
	VetoAction VetoType = "action_out_of_range"
	VetoReward VetoType = "reward_invalid"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType `json:"type"`
	Reason string   `json:"reason"`
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds the bounds a transition must satisfy before it reaches
// the replay buffer or the bandits.
type GateConfig struct {
	StateSize    int     `json:"state_size" yaml:"state_size"`
	Actions      int     `json:"actions" yaml:"actions"`
	MaxAbsReward float64 `json:"max_abs_reward" yaml:"max_abs_reward"`
}

// DefaultGateConfig returns the bounds for 20-wide states and 10 actions.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		StateSize:    20,
		Actions:      10,
		MaxAbsReward: 10,
	}
}

// #endregion gate-config

// #region gate-decision
// Decision actions.
const (
	ActionCommit = "commit"
	ActionReject = "reject"
)

// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      string       `json:"action"` // "commit" | "reject"
	Reason      string       `json:"reason"`
	Vetoed      bool         `json:"vetoed"`
	VetoSignals []VetoSignal `json:"veto_signals,omitempty"` // non-empty if vetoed
}

// #endregion gate-decision
