package eval

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// #region eval-harness
// EvalHarness runs lightweight post-train validation on the value network.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks that every weight is finite, the weight norm is bounded and the
// probed action values stay within range.
func (h *EvalHarness) Run(p Probe) EvalResult {
	var metrics []EvalMetric
	var failReasons []string

	// 1. Finite weights
	nonFinite := countNonFinite(p.Params)
	finitePass := nonFinite == 0
	metrics = append(metrics, EvalMetric{
		Name:  "non_finite_weights",
		Value: float64(nonFinite),
		Pass:  finitePass,
	})
	if !finitePass {
		failReasons = append(failReasons, fmt.Sprintf("%d non-finite weights", nonFinite))
	}

	// 2. Weight norm bound
	norm := 0.0
	if finitePass && len(p.Params) > 0 {
		norm = floats.Norm(p.Params, 2)
	}
	normPass := finitePass && norm <= h.config.MaxWeightNorm
	metrics = append(metrics, EvalMetric{
		Name:  "weight_norm",
		Value: norm,
		Pass:  normPass,
	})
	if finitePass && !normPass {
		failReasons = append(failReasons, fmt.Sprintf("weight norm %.4f exceeds %.4f", norm, h.config.MaxWeightNorm))
	}

	// 3. Q-value range over probe states
	maxQ := 0.0
	qFinite := true
	for _, q := range p.QValues {
		for _, v := range q {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				qFinite = false
				continue
			}
			maxQ = math.Max(maxQ, math.Abs(v))
		}
	}
	qPass := qFinite && maxQ <= h.config.MaxAbsQ
	metrics = append(metrics, EvalMetric{
		Name:  "max_abs_q",
		Value: maxQ,
		Pass:  qPass,
	})
	if !qPass {
		if !qFinite {
			failReasons = append(failReasons, "non-finite action value")
		} else {
			failReasons = append(failReasons, fmt.Sprintf("action value %.4f exceeds %.4f", maxQ, h.config.MaxAbsQ))
		}
	}

	passed := len(failReasons) == 0
	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
func countNonFinite(v []float64) int {
	n := 0
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			n++
		}
	}
	return n
}

// #endregion helpers
