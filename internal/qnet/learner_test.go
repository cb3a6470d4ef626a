package qnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/danielpatrickdp/adaptive-layout/internal/experience"
)

type mapStore map[string][]byte

func (m mapStore) SaveBlob(key string, data []byte) error {
	m[key] = append([]byte(nil), data...)
	return nil
}

func (m mapStore) LoadBlob(key string) ([]byte, error) { return m[key], nil }

func oneHot(i int) []float64 {
	s := make([]float64, 20)
	s[i] = 1
	return s
}

func newTestLearner(t *testing.T, mutate func(*Config)) *Learner {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	l, err := NewLearner(cfg)
	require.NoError(t, err)
	return l
}

func TestNewLearner_RejectsInvalidConfig(t *testing.T) {
	_, err := NewLearner(Config{})
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.Gamma = 1.5
	_, err = NewLearner(cfg)
	require.ErrorContains(t, err, "gamma")
}

func TestPredict_ShapeAndDeterminism(t *testing.T) {
	a := newTestLearner(t, nil)
	b := newTestLearner(t, nil)

	qa := a.Predict(oneHot(2))
	require.Len(t, qa, 10)
	assert.Equal(t, qa, b.Predict(oneHot(2)), "same seed gives same weights")
	assert.Equal(t, qa, a.predictTarget(oneHot(2)), "target starts as a copy")

	// short input is zero-padded rather than rejected
	assert.Len(t, a.Predict([]float64{1}), 10)
}

func TestSelectAction(t *testing.T) {
	l := newTestLearner(t, nil)
	s := oneHot(5)
	assert.Equal(t, floats.MaxIdx(l.Predict(s)), l.SelectAction(s, 0))

	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		a := l.SelectAction(s, 1)
		require.GreaterOrEqual(t, a, 0)
		require.Less(t, a, 10)
		seen[a] = true
	}
	assert.Len(t, seen, 10, "full exploration should visit every action")
}

func TestTrainOnBatch_ReportsTDErrorAgainstTarget(t *testing.T) {
	l := newTestLearner(t, nil)
	s, next := oneHot(0), oneHot(7)

	q := l.Predict(s)
	tq := l.predictTarget(next)
	want := q[4] - (0.5 + 0.95*floats.Max(tq))

	loss := l.TrainOnBatch([]experience.Experience{{State: s, Action: 4, Reward: 0.5, NextState: next}})
	assert.InDelta(t, want*want, loss, 1e-9)
	assert.Equal(t, 1, l.TrainSteps())
}

func TestTrainOnBatch_FitsTerminalReward(t *testing.T) {
	l := newTestLearner(t, func(c *Config) { c.LearningRate = 0.05 })
	batch := []experience.Experience{
		{State: oneHot(0), Action: 3, Reward: 1, Terminal: true},
		{State: oneHot(1), Action: 3, Reward: 0, Terminal: true},
	}
	first := l.TrainOnBatch(batch)
	var last float64
	for i := 0; i < 800; i++ {
		last = l.TrainOnBatch(batch)
	}
	assert.Less(t, last, first)
	assert.InDelta(t, 1.0, l.Predict(oneHot(0))[3], 0.1)
	assert.InDelta(t, 0.0, l.Predict(oneHot(1))[3], 0.1)
}

func TestTrainOnBatch_SkipsInvalidActions(t *testing.T) {
	l := newTestLearner(t, nil)
	before := l.Params()
	loss := l.TrainOnBatch([]experience.Experience{{State: oneHot(0), Action: 10, Reward: 1, Terminal: true}})
	assert.Zero(t, loss)
	assert.Zero(t, l.TrainSteps())
	assert.Equal(t, before, l.Params())
}

func TestTargetSync_EveryNSteps(t *testing.T) {
	l := newTestLearner(t, func(c *Config) { c.UpdateTargetEvery = 5 })
	batch := []experience.Experience{{State: oneHot(3), Action: 1, Reward: 1, Terminal: true}}
	s := oneHot(3)

	for i := 0; i < 4; i++ {
		l.TrainOnBatch(batch)
	}
	assert.NotEqual(t, l.Predict(s), l.predictTarget(s), "target lags before the sync step")

	l.TrainOnBatch(batch)
	assert.Equal(t, l.Predict(s), l.predictTarget(s))

	l.TrainOnBatch(batch)
	assert.NotEqual(t, l.Predict(s), l.predictTarget(s))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := mapStore{}
	a := newTestLearner(t, nil)
	a.TrainOnBatch([]experience.Experience{{State: oneHot(2), Action: 6, Reward: 1, Terminal: true}})
	require.NoError(t, a.Save(store, "weights"))

	b := newTestLearner(t, func(c *Config) { c.Seed = 99 })
	require.NotEqual(t, a.Predict(oneHot(2)), b.Predict(oneHot(2)))
	require.NoError(t, b.Load(store, "weights"))

	assert.Equal(t, a.Predict(oneHot(2)), b.Predict(oneHot(2)))
	assert.Equal(t, a.predictTarget(oneHot(2)), b.predictTarget(oneHot(2)))
	assert.Equal(t, 1, b.TrainSteps())
}

func TestLoad_FailuresLeaveWeightsUntouched(t *testing.T) {
	store := mapStore{}
	l := newTestLearner(t, nil)
	before := l.Params()

	require.ErrorIs(t, l.Load(store, "missing"), ErrNoWeights)

	store["junk"] = []byte("not weights")
	require.ErrorIs(t, l.Load(store, "junk"), ErrCorrupt)

	small := newTestLearner(t, func(c *Config) { c.Hidden = 8 })
	require.NoError(t, small.Save(store, "small"))
	require.ErrorIs(t, l.Load(store, "small"), ErrShapeMismatch)

	assert.Equal(t, before, l.Params())
}

func TestSnapshotRestore(t *testing.T) {
	l := newTestLearner(t, nil)
	snap := l.Snapshot()
	before := l.Params()

	l.TrainOnBatch([]experience.Experience{{State: oneHot(9), Action: 0, Reward: 1, Terminal: true}})
	require.NotEqual(t, before, l.Params())

	require.NoError(t, l.Restore(snap))
	assert.Equal(t, before, l.Params())
	assert.Equal(t, 1, l.TrainSteps(), "restore only rewinds weights")

	other := newTestLearner(t, func(c *Config) { c.Hidden = 4 })
	assert.ErrorIs(t, l.Restore(other.Snapshot()), ErrShapeMismatch)
	assert.Error(t, l.Restore(nil))
}
