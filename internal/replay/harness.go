// Package replay re-runs recorded feedback through a fresh engine, for
// regression checks and offline what-if runs.
package replay

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/danielpatrickdp/adaptive-layout/internal/bandit"
	"github.com/danielpatrickdp/adaptive-layout/internal/engine"
	"github.com/danielpatrickdp/adaptive-layout/internal/eval"
	"github.com/danielpatrickdp/adaptive-layout/internal/experience"
	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
	"github.com/danielpatrickdp/adaptive-layout/internal/signals"
	"github.com/danielpatrickdp/adaptive-layout/internal/state"
)

// Per-turn outcomes.
const (
	ActionCommit      = "commit"
	ActionGateReject  = "gate_reject"
	ActionSignalError = "signal_error"
)

// #region types

// ReplayResult captures the outcome of replaying one turn.
type ReplayResult struct {
	TurnID     string
	Action     string // "commit" | "gate_reject" | "signal_error"
	Reason     string
	Context    string
	Arm        int
	Reward     float64
	Trained    bool
	RolledBack bool
	Loss       float64
	Epsilon    float64
	EvalResult *eval.EvalResult
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTurns   int
	Commits      int
	GateRejects  int
	SignalErrors int
	TrainSteps   int
	Rollbacks    int
	MeanReward   float64
	FinalEpsilon float64
	BestArms     map[string]int // -1 when a context saw no feedback
}

// Mismatch is a difference between a replay and its fixture's expectations.
type Mismatch struct {
	TurnID string
	Want   string
	Got    string
}

// String implements fmt.Stringer.
func (m Mismatch) String() string {
	return fmt.Sprintf("%s: want %s, got %s", m.TurnID, m.Want, m.Got)
}

// #endregion types

// #region replay

// Replay feeds every turn of f through a fresh in-memory engine, in order.
// The engine is returned for inspection.
func Replay(f *Fixture) ([]ReplayResult, *engine.Engine, error) {
	cfg := engine.DefaultConfig()
	if f.Config != nil {
		cfg = *f.Config
	}
	cfg.SaveEvery = 0
	eng, err := engine.New(cfg, state.NewMemStore())
	if err != nil {
		return nil, nil, fmt.Errorf("replay engine: %w", err)
	}
	producer := signals.NewProducer(signals.DefaultProducerConfig())

	results := make([]ReplayResult, 0, len(f.Turns))
	for _, turn := range f.Turns {
		st := turn.State
		ctx := turn.Context
		if len(st) == 0 || ctx == "" {
			in, _ := intent.Normalize(turn.Intent)
			if len(st) == 0 {
				st = intent.Vectorize(in)
			}
			if ctx == "" {
				ctx = string(in.Domain)
			}
		}
		ctx = eng.ResolveContext(ctx)
		res := ReplayResult{TurnID: turn.TurnID, Context: ctx, Arm: turn.Action}

		sig, err := producer.Produce(signals.ProduceInput{
			Reward:          turn.Reward,
			Rating:          turn.Rating,
			ConfusionEvents: turn.ConfusionEvents,
		})
		if err != nil {
			res.Action = ActionSignalError
			res.Reason = err.Error()
			results = append(results, res)
			continue
		}
		res.Reward = sig.Reward

		next := turn.NextState
		if len(next) == 0 {
			next = st
		}
		rec, err := eng.RecordExperience(experience.Experience{
			State:     st,
			Action:    turn.Action,
			Reward:    sig.Reward,
			NextState: next,
			Terminal:  turn.Terminal,
		}, ctx)
		res.Epsilon = rec.Epsilon
		if errors.Is(err, engine.ErrRejected) {
			res.Action = ActionGateReject
			res.Reason = rec.Decision.Reason
			results = append(results, res)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("replay %s: %w", turn.TurnID, err)
		}
		if turn.Terminal {
			eng.EndEpisode()
		}

		res.Action = ActionCommit
		res.Reason = rec.Decision.Reason
		res.Trained = rec.Trained
		res.RolledBack = rec.RolledBack
		res.Loss = rec.Loss
		res.EvalResult = rec.Eval
		results = append(results, res)
	}
	return results, eng, nil
}

// Summarize computes aggregate stats from replay results and the engine
// that produced them.
func Summarize(results []ReplayResult, eng *engine.Engine) ReplaySummary {
	stats := eng.Stats()
	s := ReplaySummary{
		TotalTurns:   len(results),
		TrainSteps:   stats.TrainSteps,
		Rollbacks:    stats.Rollbacks,
		FinalEpsilon: stats.Epsilon,
		BestArms:     make(map[string]int, len(stats.Bandits.Contexts)),
	}
	var rewards []float64
	for _, r := range results {
		switch r.Action {
		case ActionCommit:
			s.Commits++
			rewards = append(rewards, r.Reward)
		case ActionGateReject:
			s.GateRejects++
		case ActionSignalError:
			s.SignalErrors++
		}
	}
	if len(rewards) > 0 {
		s.MeanReward = stat.Mean(rewards, nil)
	}
	for ctx, set := range stats.Bandits.Contexts {
		s.BestArms[ctx] = BestArm(set[stats.Bandits.Active])
	}
	return s
}

// BestArm returns the pulled arm with the highest estimate, or -1 when no
// arm was pulled. Thompson estimates are posterior means.
func BestArm(st bandit.Stats) int {
	best, bestVal := -1, 0.0
	for arm, n := range st.Counts {
		if n == 0 {
			continue
		}
		var v float64
		switch {
		case arm < len(st.Values):
			v = st.Values[arm]
		case arm < len(st.Alpha) && arm < len(st.Beta):
			v = st.Alpha[arm] / (st.Alpha[arm] + st.Beta[arm])
		default:
			continue
		}
		if best < 0 || v > bestVal {
			best, bestVal = arm, v
		}
	}
	return best
}

// Check compares results and summary with the fixture's expectations.
func Check(f *Fixture, results []ReplayResult, summary ReplaySummary) []Mismatch {
	var out []Mismatch
	byTurn := make(map[string]ReplayResult, len(results))
	for _, r := range results {
		byTurn[r.TurnID] = r
	}
	for _, want := range f.ExpectedResults {
		got, ok := byTurn[want.TurnID]
		switch {
		case !ok:
			out = append(out, Mismatch{TurnID: want.TurnID, Want: want.Action, Got: "missing"})
		case got.Action != want.Action:
			out = append(out, Mismatch{TurnID: want.TurnID, Want: want.Action, Got: got.Action})
		}
	}
	for ctx, arm := range f.ExpectedBestArms {
		got, ok := summary.BestArms[ctx]
		if !ok {
			got = -1
		}
		if got != arm {
			out = append(out, Mismatch{
				TurnID: "best-arm/" + ctx,
				Want:   fmt.Sprintf("arm %d", arm),
				Got:    fmt.Sprintf("arm %d", got),
			})
		}
	}
	return out
}

// #endregion replay
