package qnet

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/adaptive-layout/internal/experience"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
)

// #region config
// Config holds the learner's shape and training hyperparameters.
type Config struct {
	StateSize         int     `json:"state_size"`
	Actions           int     `json:"actions"`
	Hidden            int     `json:"hidden"`
	Gamma             float64 `json:"gamma"`
	LearningRate      float64 `json:"learning_rate"`
	UpdateTargetEvery int     `json:"update_target_every"`
	Seed              uint64  `json:"seed"`
}

// DefaultConfig returns the default learner configuration.
func DefaultConfig() Config {
	return Config{
		StateSize:         20,
		Actions:           10,
		Hidden:            32,
		Gamma:             0.95,
		LearningRate:      0.01,
		UpdateTargetEvery: 100,
		Seed:              1,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.StateSize <= 0:
		return fmt.Errorf("qnet: state size must be positive, got %d", c.StateSize)
	case c.Actions <= 0:
		return fmt.Errorf("qnet: actions must be positive, got %d", c.Actions)
	case c.Hidden <= 0:
		return fmt.Errorf("qnet: hidden width must be positive, got %d", c.Hidden)
	case c.Gamma < 0 || c.Gamma > 1:
		return fmt.Errorf("qnet: gamma %v outside [0,1]", c.Gamma)
	case c.LearningRate <= 0:
		return fmt.Errorf("qnet: learning rate must be positive, got %v", c.LearningRate)
	case c.UpdateTargetEvery <= 0:
		return fmt.Errorf("qnet: update target interval must be positive, got %d", c.UpdateTargetEvery)
	}
	return nil
}

// #endregion config

// ErrShapeMismatch is returned by Load and Restore when persisted weights do
// not match the learner's configured shape.
var ErrShapeMismatch = errors.New("qnet: weight shape mismatch")

// #region learner
// Learner owns the online and target networks. Predict may run concurrently
// with other predictions; TrainOnBatch, Load and Restore take the write lock.
type Learner struct {
	cfg Config

	mu         sync.RWMutex
	online     *Network
	target     *Network
	trainSteps int

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewLearner builds a learner with freshly initialized weights. The target
// network starts as an exact copy of the online network.
func NewLearner(cfg Config) (*Learner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, 0x9e3779b97f4a7c15))
	online := newNetwork(cfg.StateSize, cfg.Hidden, cfg.Actions, rng)
	return &Learner{
		cfg:    cfg,
		online: online,
		target: online.clone(),
		rng:    rng,
	}, nil
}

// Config returns the learner configuration.
func (l *Learner) Config() Config { return l.cfg }

// Predict returns the online network's value estimate for every action.
func (l *Learner) Predict(state []float64) []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.online.predict(state)
}

// predictTarget returns the target network's estimates.
func (l *Learner) predictTarget(state []float64) []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.target.predict(state)
}

// SelectAction is epsilon-greedy over Predict.
func (l *Learner) SelectAction(state []float64, epsilon float64) int {
	l.rngMu.Lock()
	explore := l.rng.Float64() < epsilon
	var arm int
	if explore {
		arm = l.rng.IntN(l.cfg.Actions)
	}
	l.rngMu.Unlock()
	if explore {
		return arm
	}
	return floats.MaxIdx(l.Predict(state))
}

// TrainSteps returns the number of gradient steps taken.
func (l *Learner) TrainSteps() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.trainSteps
}

// TrainOnBatch takes one gradient step on the batch and returns the mean
// squared TD error before the step. Targets are r for terminal transitions
// and r + gamma*max_a' Q_target(s', a') otherwise; only the taken action's
// output contributes to the loss. Experiences with an out-of-range action
// are skipped.
func (l *Learner) TrainOnBatch(batch []experience.Experience) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.online
	gw1 := mat.NewDense(n.hidden, n.in, nil)
	gb1 := mat.NewVecDense(n.hidden, nil)
	gw2 := mat.NewDense(n.out, n.hidden, nil)
	gb2 := mat.NewVecDense(n.out, nil)

	var loss float64
	used := 0
	for _, e := range batch {
		if e.Action < 0 || e.Action >= n.out {
			continue
		}
		target := e.Reward
		if !e.Terminal {
			target += l.cfg.Gamma * floats.Max(l.target.predict(e.NextState))
		}

		x := n.input(e.State)
		pre, h, q := n.forward(x)
		tdErr := q.AtVec(e.Action) - target
		loss += tdErr * tdErr

		// masked gradient: only the taken action's output has non-zero error
		dq := mat.NewVecDense(n.out, nil)
		dq.SetVec(e.Action, clip(tdErr, -1, 1))

		gw2.RankOne(gw2, 1, dq, h)
		gb2.AddVec(gb2, dq)

		dh := mat.NewVecDense(n.hidden, nil)
		dh.MulVec(n.w2.T(), dq)
		for i := 0; i < n.hidden; i++ {
			if pre.AtVec(i) <= 0 {
				dh.SetVec(i, 0)
			}
		}
		gw1.RankOne(gw1, 1, dh, x)
		gb1.AddVec(gb1, dh)
		used++
	}
	if used == 0 {
		return 0
	}

	step := -l.cfg.LearningRate / float64(used)
	gw1.Scale(step, gw1)
	n.w1.Add(n.w1, gw1)
	gb1.ScaleVec(step, gb1)
	n.b1.AddVec(n.b1, gb1)
	gw2.Scale(step, gw2)
	n.w2.Add(n.w2, gw2)
	gb2.ScaleVec(step, gb2)
	n.b2.AddVec(n.b2, gb2)

	l.trainSteps++
	if l.trainSteps%l.cfg.UpdateTargetEvery == 0 {
		l.target.copyFrom(l.online)
		logging.New("qnet").Debug("target network synced", "train_steps", l.trainSteps)
	}
	return loss / float64(used)
}

// SyncTarget copies the online weights into the target network.
func (l *Learner) SyncTarget() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.target.copyFrom(l.online)
}

// Params returns a flat copy of the online weights.
func (l *Learner) Params() []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.online.params()
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// #endregion learner

// #region snapshot
// Weights is a detached copy of the online network.
type Weights struct {
	net *Network
}

// Snapshot copies the online weights.
func (l *Learner) Snapshot() *Weights {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Weights{net: l.online.clone()}
}

// Restore replaces the online weights with w. The target network and the
// train step counter are left untouched.
func (l *Learner) Restore(w *Weights) error {
	if w == nil || w.net == nil {
		return errors.New("qnet: nil snapshot")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !sameShape(l.online, w.net) {
		return ErrShapeMismatch
	}
	l.online.copyFrom(w.net)
	return nil
}

func sameShape(a, b *Network) bool {
	return a.in == b.in && a.hidden == b.hidden && a.out == b.out
}

// #endregion snapshot
