package bandit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contexts = []string{"dashboard", "blog", "ecommerce"}

func newTestEnsemble(t *testing.T, active string) *Ensemble {
	t.Helper()
	e, err := NewEnsemble(DefaultConfig(), contexts, "dashboard", active)
	require.NoError(t, err)
	return e
}

func TestEnsemble_UpdateReachesEveryStrategyOfContext(t *testing.T) {
	e := newTestEnsemble(t, StrategyUCB)
	e.Update("blog", 3, 1)

	for _, name := range []string{StrategyUCB, StrategyThompson, StrategyEGreedy} {
		s, ok := e.Strategy("blog", name)
		require.True(t, ok)
		assert.Equal(t, 1, s.Stats().Counts[3], name)

		other, _ := e.Strategy("ecommerce", name)
		assert.Equal(t, 0, other.Stats().TotalPulls, "contexts are independent")
	}
}

func TestEnsemble_ValueForArmIncreasesAfterPositiveFeedback(t *testing.T) {
	e := newTestEnsemble(t, StrategyUCB)
	e.Update("dashboard", 3, 0)

	before := map[string]float64{}
	for _, name := range []string{StrategyUCB, StrategyEGreedy} {
		s, _ := e.Strategy("dashboard", name)
		before[name] = s.Stats().Values[3]
	}

	e.Update("dashboard", 3, 1)

	for name, prev := range before {
		s, _ := e.Strategy("dashboard", name)
		assert.Greater(t, s.Stats().Values[3], prev, name)
	}
}

func TestEnsemble_UnknownContextFallsBackToDefault(t *testing.T) {
	e := newTestEnsemble(t, StrategyUCB)
	assert.Equal(t, "dashboard", e.Resolve("spaceship"))

	assert.NotPanics(t, func() {
		e.SelectArm("spaceship")
		e.Update("spaceship", 1, 1)
	})
	s, _ := e.Strategy("dashboard", StrategyUCB)
	assert.Equal(t, 1, s.Stats().Counts[1])
}

func TestEnsemble_SwitchingActiveKeepsHistory(t *testing.T) {
	e := newTestEnsemble(t, StrategyUCB)
	for i := 0; i < 20; i++ {
		e.Update("ecommerce", 6, 1)
	}
	require.NoError(t, e.SetActive(StrategyEGreedy))
	assert.Equal(t, StrategyEGreedy, e.Active())

	picks := 0
	for i := 0; i < 100; i++ {
		if e.SelectArm("ecommerce") == 6 {
			picks++
		}
	}
	assert.Greater(t, picks, 80)
	assert.Error(t, e.SetActive("softmax"))
}

func TestEnsemble_SnapshotRestore(t *testing.T) {
	e := newTestEnsemble(t, StrategyThompson)
	e.Update("blog", 2, 1)
	e.Update("blog", 2, 0)
	e.Update("ecommerce", 9, 0.5)

	f := newTestEnsemble(t, StrategyUCB)
	require.NoError(t, f.Restore(e.Snapshot()))
	assert.Equal(t, StrategyThompson, f.Active())
	assert.Equal(t, e.Snapshot(), f.Snapshot())
}

func drawArms(e *Ensemble, context string, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = e.SelectArm(context)
	}
	return out
}

func TestEnsemble_RestoreDoesNotReplayFreshStream(t *testing.T) {
	e := newTestEnsemble(t, StrategyThompson)
	e.Update("blog", 2, 1)
	e.Update("blog", 5, 0)
	snap := e.Snapshot()

	fresh := newTestEnsemble(t, StrategyThompson)
	fresh.Update("blog", 2, 1)
	fresh.Update("blog", 5, 0)

	restored := newTestEnsemble(t, StrategyThompson)
	require.NoError(t, restored.Restore(snap))
	assert.NotEqual(t, drawArms(fresh, "blog", 40), drawArms(restored, "blog", 40))
}

func TestEnsemble_RNGStateContinuesStream(t *testing.T) {
	e := newTestEnsemble(t, StrategyThompson)
	e.Update("blog", 2, 1)
	drawArms(e, "blog", 10)
	snap := e.Snapshot()
	rng, err := e.RNGState()
	require.NoError(t, err)

	f := newTestEnsemble(t, StrategyThompson)
	require.NoError(t, f.Restore(snap))
	require.NoError(t, f.RestoreRNG(rng))
	assert.Equal(t, drawArms(e, "blog", 40), drawArms(f, "blog", 40))

	bad := RNGState{"blog": {StrategyThompson: []byte("junk")}}
	before, _ := f.RNGState()
	assert.Error(t, f.RestoreRNG(bad))
	after, _ := f.RNGState()
	assert.Equal(t, before, after)
}

func TestEnsemble_RestoreFailureLeavesStateUntouched(t *testing.T) {
	e := newTestEnsemble(t, StrategyUCB)
	e.Update("blog", 1, 1)
	before := e.Snapshot()

	bad := e.Snapshot()
	st := bad.Contexts["blog"][StrategyUCB]
	st.Counts = []int{1, 2}
	bad.Contexts["blog"][StrategyUCB] = st

	assert.Error(t, e.Restore(bad))
	assert.Equal(t, before, e.Snapshot())
}

func TestNewEnsemble_Validation(t *testing.T) {
	_, err := NewEnsemble(DefaultConfig(), contexts, "news", StrategyUCB)
	assert.Error(t, err)
	_, err = NewEnsemble(DefaultConfig(), nil, "dashboard", StrategyUCB)
	assert.Error(t, err)
	_, err = NewEnsemble(DefaultConfig(), contexts, "dashboard", "softmax")
	assert.Error(t, err)
	cfg := DefaultConfig()
	cfg.Arms = 0
	_, err = NewEnsemble(cfg, contexts, "dashboard", StrategyUCB)
	assert.Error(t, err)
}
