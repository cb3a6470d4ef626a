// Package engine is the decision engine: a hybrid policy that blends a
// per-context bandit ensemble with a value network, records feedback into a
// replay buffer, trains on a schedule and persists itself.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/danielpatrickdp/adaptive-layout/internal/bandit"
	"github.com/danielpatrickdp/adaptive-layout/internal/eval"
	"github.com/danielpatrickdp/adaptive-layout/internal/experience"
	"github.com/danielpatrickdp/adaptive-layout/internal/gate"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
	"github.com/danielpatrickdp/adaptive-layout/internal/ports"
	"github.com/danielpatrickdp/adaptive-layout/internal/qnet"
)

// ErrRejected wraps gate vetoes returned by RecordExperience.
var ErrRejected = errors.New("experience rejected")

// Decision sources.
const (
	SourceBandit = "bandit"
	SourceQNet   = "qnet"
)

// #region types
// Selection is the outcome of SelectAction.
type Selection struct {
	Action  int     `json:"action"`
	Source  string  `json:"source"`
	Epsilon float64 `json:"epsilon"`
	Context string  `json:"context"`
}

// RecordResult describes what RecordExperience did.
type RecordResult struct {
	Decision   gate.GateDecision `json:"decision"`
	Step       int               `json:"step"`
	Trained    bool              `json:"trained"`
	Loss       float64           `json:"loss,omitempty"`
	RolledBack bool              `json:"rolled_back,omitempty"`
	Eval       *eval.EvalResult  `json:"eval,omitempty"`
	Saved      bool              `json:"saved,omitempty"`
	Epsilon    float64           `json:"epsilon"`
}

// Stats is a point-in-time view of the engine.
type Stats struct {
	Steps          int             `json:"steps"`
	Episodes       int             `json:"episodes"`
	TrainSteps     int             `json:"train_steps"`
	Epsilon        float64         `json:"epsilon"`
	TotalReward    float64         `json:"total_reward"`
	AverageReward  float64         `json:"average_reward"`
	LastLoss       float64         `json:"last_loss"`
	Rejected       int             `json:"rejected"`
	Rollbacks      int             `json:"rollbacks"`
	BufferSize     int             `json:"buffer_size"`
	ActiveStrategy string          `json:"active_strategy"`
	Bandits        bandit.Snapshot `json:"bandits"`
}

// #endregion types

// #region engine
// Engine serializes every operation behind one mutex.
type Engine struct {
	mu sync.Mutex

	cfg      Config
	store    ports.BlobStore
	learner  *qnet.Learner
	ensemble *bandit.Ensemble
	buffer   *experience.Buffer
	gate     *gate.Gate
	harness  *eval.EvalHarness
	rng      *rand.Rand
	log      *slog.Logger

	epsilon     float64
	steps       int
	episodes    int
	totalReward float64
	lastLoss    float64
	rejected    int
	rollbacks   int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger replaces the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New builds a ready engine or returns an error; it never returns a
// partially initialized engine.
func New(cfg Config, store ports.BlobStore, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("engine: nil blob store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	learner, err := qnet.NewLearner(cfg.qnetConfig())
	if err != nil {
		return nil, fmt.Errorf("engine: value network: %w", err)
	}
	ensemble, err := bandit.NewEnsemble(cfg.Bandit, cfg.Contexts, cfg.DefaultContext, cfg.ActiveStrategy)
	if err != nil {
		return nil, fmt.Errorf("engine: bandits: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		store:    store,
		learner:  learner,
		ensemble: ensemble,
		buffer:   experience.NewBuffer(cfg.BufferCapacity, rand.New(rand.NewPCG(cfg.Seed, 0xb0ffe7))),
		gate:     gate.NewGate(cfg.Gate),
		harness:  eval.NewEvalHarness(cfg.Eval),
		rng:      rand.New(rand.NewPCG(cfg.Seed, 0xb1e4d)),
		log:      logging.New("engine"),
		epsilon:  cfg.Epsilon,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Epsilon returns the current exploration rate.
func (e *Engine) Epsilon() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epsilon
}

// ResolveContext maps context to a known bandit context.
func (e *Engine) ResolveContext(context string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensemble.Resolve(context)
}

// #endregion engine

// #region select
// SelectAction picks an action for state in context. With probability
// BanditBlend the context's bandit answers; otherwise the value network
// answers epsilon-greedily with the global epsilon.
func (e *Engine) SelectAction(state []float64, context string) Selection {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx := e.ensemble.Resolve(context)
	sel := Selection{Epsilon: e.epsilon, Context: ctx}
	if e.rng.Float64() < e.cfg.BanditBlend {
		sel.Action = e.ensemble.SelectArm(ctx)
		sel.Source = SourceBandit
	} else {
		sel.Action = e.learner.SelectAction(state, e.epsilon)
		sel.Source = SourceQNet
	}
	e.log.Debug("action selected",
		slog.String("context", ctx), slog.Int("action", sel.Action),
		slog.String("source", sel.Source), slog.Float64("epsilon", e.epsilon))
	return sel
}

// QValues returns the value network's estimates for state.
func (e *Engine) QValues(state []float64) []float64 {
	return e.learner.Predict(state)
}

// #endregion select

// #region record
// RecordExperience ingests one transition. Vetoed transitions change nothing
// and return an error wrapping ErrRejected.
func (e *Engine) RecordExperience(exp experience.Experience, context string) (RecordResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	decision := e.gate.Evaluate(exp)
	if decision.Vetoed {
		e.rejected++
		e.log.Warn("experience rejected", slog.String("reason", decision.Reason))
		return RecordResult{Decision: decision, Step: e.steps, Epsilon: e.epsilon},
			fmt.Errorf("%w: %s", ErrRejected, decision.Reason)
	}

	ctx := e.ensemble.Resolve(context)
	e.buffer.Add(exp)
	e.ensemble.Update(ctx, exp.Action, exp.Reward)
	e.steps++
	e.totalReward += exp.Reward

	res := RecordResult{Decision: decision, Step: e.steps}
	if e.steps%e.cfg.TrainEvery == 0 && e.buffer.Len() >= e.cfg.BatchSize {
		e.trainLocked(&res)
	}

	e.epsilon = math.Max(e.cfg.EpsilonMin, e.epsilon*e.cfg.EpsilonDecay)
	res.Epsilon = e.epsilon

	if e.cfg.SaveEvery > 0 && e.steps%e.cfg.SaveEvery == 0 {
		if err := e.saveLocked(); err != nil {
			e.log.Error("periodic save failed", slog.Int("step", e.steps), slog.Any("error", err))
		} else {
			res.Saved = true
		}
	}
	return res, nil
}

// trainLocked runs one training step and rolls it back if the post-train
// checks fail.
func (e *Engine) trainLocked(res *RecordResult) {
	before := e.learner.Snapshot()
	batch := e.buffer.Sample(e.cfg.BatchSize)
	loss := e.learner.TrainOnBatch(batch)

	probe := eval.Probe{Params: e.learner.Params(), QValues: make([][]float64, 0, len(batch))}
	for _, b := range batch {
		probe.QValues = append(probe.QValues, e.learner.Predict(b.State))
	}
	result := e.harness.Run(probe)

	res.Trained = true
	res.Loss = loss
	res.Eval = &result
	if result.Passed && !math.IsNaN(loss) && !math.IsInf(loss, 0) {
		e.lastLoss = loss
		e.log.Debug("trained", slog.Int("train_steps", e.learner.TrainSteps()), slog.Float64("loss", loss))
		return
	}

	if err := e.learner.Restore(before); err != nil {
		e.log.Error("rollback failed", slog.Any("error", err))
		return
	}
	// a sync on this step copied the rejected weights into the target
	if e.learner.TrainSteps()%e.cfg.UpdateTargetEvery == 0 {
		e.learner.SyncTarget()
	}
	e.rollbacks++
	res.RolledBack = true
	e.log.Warn("training step rolled back", slog.String("reason", result.Reason), slog.Float64("loss", loss))
}

// EndEpisode marks the end of a session.
func (e *Engine) EndEpisode() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.episodes++
}

// SetActiveStrategy switches the authoritative bandit strategy.
func (e *Engine) SetActiveStrategy(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensemble.SetActive(name)
}

// #endregion record

// #region stats
// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statsLocked()
}

func (e *Engine) statsLocked() Stats {
	s := Stats{
		Steps:          e.steps,
		Episodes:       e.episodes,
		TrainSteps:     e.learner.TrainSteps(),
		Epsilon:        e.epsilon,
		TotalReward:    e.totalReward,
		LastLoss:       e.lastLoss,
		Rejected:       e.rejected,
		Rollbacks:      e.rollbacks,
		BufferSize:     e.buffer.Len(),
		ActiveStrategy: e.ensemble.Active(),
		Bandits:        e.ensemble.Snapshot(),
	}
	if e.steps > 0 {
		s.AverageReward = e.totalReward / float64(e.steps)
	}
	return s
}

// #endregion stats
