package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/danielpatrickdp/adaptive-layout/internal/bandit"
	"github.com/danielpatrickdp/adaptive-layout/internal/ports"
	"github.com/danielpatrickdp/adaptive-layout/internal/qnet"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("engine: no saved state")

const snapshotVersion = 1

// #region snapshot
// persisted is the JSON engine state stored next to the weights.
type persisted struct {
	Version      int             `json:"version"`
	Config       Config          `json:"config"`
	Epsilon      float64         `json:"epsilon"`
	StepCount    int             `json:"step_count"`
	EpisodeCount int             `json:"episode_count"`
	TrainSteps   int             `json:"train_steps"`
	Stats        Stats           `json:"stats"`
	Bandits      bandit.Snapshot `json:"bandits"`
	BanditRNG    bandit.RNGState `json:"bandit_rng,omitempty"`
	SavedAt      time.Time       `json:"saved_at"`
}

// #endregion snapshot

// #region save
// Save writes the weights and the engine state. A failed save leaves the
// in-memory engine untouched.
func (e *Engine) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveLocked()
}

func (e *Engine) saveLocked() error {
	rng, err := e.ensemble.RNGState()
	if err != nil {
		return fmt.Errorf("engine save: %w", err)
	}
	stats := e.statsLocked()
	p := persisted{
		Version:      snapshotVersion,
		Config:       e.cfg,
		Epsilon:      e.epsilon,
		StepCount:    e.steps,
		EpisodeCount: e.episodes,
		TrainSteps:   stats.TrainSteps,
		Stats:        stats,
		Bandits:      stats.Bandits,
		BanditRNG:    rng,
		SavedAt:      time.Now().UTC(),
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("engine save: marshal state: %w", err)
	}

	if bs, ok := e.store.(ports.BatchSaver); ok {
		var weights []byte
		if weights, err = e.learner.MarshalBinary(); err == nil {
			err = bs.SaveBlobs(map[string][]byte{e.cfg.WeightsKey: weights, e.cfg.StateKey: data})
		}
	} else if err = e.learner.Save(e.store, e.cfg.WeightsKey); err == nil {
		// state last: a state blob never points at weights that were not written
		err = e.store.SaveBlob(e.cfg.StateKey, data)
	}
	if err != nil {
		return fmt.Errorf("engine save: %w", err)
	}
	e.log.Info("engine saved", slog.Int("step", e.steps), slog.Float64("epsilon", e.epsilon))
	return nil
}

// #endregion save

// #region load
// Load restores weights, counters and bandits. Either everything is restored
// or nothing is: on any error the engine keeps its current state, which the
// caller treats as a cold start.
func (e *Engine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.store.LoadBlob(e.cfg.StateKey)
	if err != nil {
		return fmt.Errorf("engine load: %w", err)
	}
	if data == nil {
		return ErrNoSnapshot
	}
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("engine load: decode state: %w", err)
	}
	if p.Version != snapshotVersion {
		return fmt.Errorf("engine load: unsupported snapshot version %d", p.Version)
	}

	// fresh sources would repeat the exploration draws of the saved run
	seed := resumeSeed(e.cfg.Seed, p.StepCount)
	qcfg := e.cfg.qnetConfig()
	qcfg.Seed = seed
	learner, err := qnet.NewLearner(qcfg)
	if err != nil {
		return fmt.Errorf("engine load: %w", err)
	}
	if err := learner.Load(e.store, e.cfg.WeightsKey); err != nil {
		return fmt.Errorf("engine load: %w", err)
	}
	ensemble, err := bandit.NewEnsemble(e.cfg.Bandit, e.cfg.Contexts, e.cfg.DefaultContext, e.cfg.ActiveStrategy)
	if err != nil {
		return fmt.Errorf("engine load: %w", err)
	}
	if err := ensemble.Restore(p.Bandits); err != nil {
		return fmt.Errorf("engine load: %w", err)
	}
	if err := ensemble.RestoreRNG(p.BanditRNG); err != nil {
		return fmt.Errorf("engine load: %w", err)
	}

	e.learner = learner
	e.ensemble = ensemble
	e.rng = rand.New(rand.NewPCG(seed, 0xb1e4d))
	e.epsilon = clampEpsilon(p.Epsilon, e.cfg.EpsilonMin)
	e.steps = p.StepCount
	e.episodes = p.EpisodeCount
	e.totalReward = p.Stats.TotalReward
	e.lastLoss = p.Stats.LastLoss
	e.rejected = p.Stats.Rejected
	e.rollbacks = p.Stats.Rollbacks
	e.log.Info("engine loaded",
		slog.Int("step", e.steps), slog.Int("train_steps", learner.TrainSteps()),
		slog.Float64("epsilon", e.epsilon))
	return nil
}

func resumeSeed(seed uint64, steps int) uint64 {
	return seed ^ (uint64(max(steps, 0)) * 0xbf58476d1ce4e5b9)
}

func clampEpsilon(eps, floor float64) float64 {
	if math.IsNaN(eps) || eps > 1 {
		return 1
	}
	if eps < floor {
		return floor
	}
	return eps
}

// #endregion load
