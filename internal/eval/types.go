package eval

// #region eval-config
// EvalConfig holds thresholds for post-train validation.
type EvalConfig struct {
	MaxWeightNorm float64 `json:"max_weight_norm" yaml:"max_weight_norm"` // reject if L2 norm of all weights exceeds this
	MaxAbsQ       float64 `json:"max_abs_q" yaml:"max_abs_q"`             // reject if any probed action value exceeds this in magnitude
}

// DefaultEvalConfig returns defaults sized for rewards in [-0.5, 1] and gamma 0.95.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxWeightNorm: 1e3,
		MaxAbsQ:       100,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of post-train validation.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result

// #region probe
// Probe is what the harness inspects after a training step: the flattened
// weights and the action values predicted for a set of probe states.
type Probe struct {
	Params  []float64
	QValues [][]float64
}

// #endregion probe
