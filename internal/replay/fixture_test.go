package replay

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/adaptive-layout/internal/engine"
	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
)

// #region fixture-tests

// TestFixture_Session is the primary regression test: if gate bounds,
// reward shaping or bandit updates drift, a turn outcome or a best arm
// changes.
func TestFixture_Session(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "session.yaml"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	results, eng, err := Replay(f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(results) != len(f.ExpectedResults) {
		t.Fatalf("expected %d results, got %d", len(f.ExpectedResults), len(results))
	}
	for i, expected := range f.ExpectedResults {
		actual := results[i]
		if actual.TurnID != expected.TurnID {
			t.Errorf("turn %d: expected turn_id=%s, got %s", i, expected.TurnID, actual.TurnID)
		}
		if actual.Action != expected.Action {
			t.Errorf("turn %d (%s): expected action=%s, got action=%s (reason: %s)",
				i, expected.TurnID, expected.Action, actual.Action, actual.Reason)
		}
	}

	summary := Summarize(results, eng)
	if mm := Check(f, results, summary); len(mm) != 0 {
		t.Fatalf("mismatches: %v", mm)
	}
	if summary.Commits != 6 || summary.GateRejects != 2 || summary.SignalErrors != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if math.Abs(summary.MeanReward-3.1/6) > 1e-9 {
		t.Errorf("mean reward = %v, want %v", summary.MeanReward, 3.1/6)
	}
	if want := math.Pow(0.995, 6); math.Abs(summary.FinalEpsilon-want) > 1e-12 {
		t.Errorf("final epsilon = %v, want %v", summary.FinalEpsilon, want)
	}
	if summary.BestArms["ecommerce"] != -1 {
		t.Errorf("ecommerce saw no feedback, best arm = %d", summary.BestArms["ecommerce"])
	}
	if eng.Stats().Episodes != 1 {
		t.Errorf("episodes = %d, want 1", eng.Stats().Episodes)
	}
}

func TestParseFixture_JSONAndDefaultTurnIDs(t *testing.T) {
	f, err := ParseFixture([]byte(`{"turns":[{"context":"blog","action":1,"reward":0.5},{"turn_id":"x","action":2,"rating":"up"}]}`), "")
	if err != nil {
		t.Fatal(err)
	}
	if f.Turns[0].TurnID != "turn-1" || f.Turns[1].TurnID != "x" {
		t.Errorf("turn ids = %q, %q", f.Turns[0].TurnID, f.Turns[1].TurnID)
	}
	if f.Turns[0].Reward == nil || *f.Turns[0].Reward != 0.5 {
		t.Errorf("reward = %v", f.Turns[0].Reward)
	}

	if _, err := ParseFixture([]byte(`{"turns": [`), ".json"); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestFixtureFromFeedback(t *testing.T) {
	st := intent.Vectorize(intent.Intent{Domain: intent.DomainEcommerce, Goal: intent.GoalBrowse})
	records := []logging.FeedbackRecord{
		{
			FeedbackEntry: logging.FeedbackEntry{DecisionID: "d1", Context: "ecommerce", Action: 5, Reward: 1, Decision: "commit", CreatedAt: time.Now()},
			IntentJSON:    `{"domain":"ecommerce","goal":"browse","density":"","persona":"","device":"","accent":""}`,
			StateJSON:     `[0,0,1,1,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0]`,
		},
		{FeedbackEntry: logging.FeedbackEntry{Context: "ecommerce", Action: 6, Reward: 0, Decision: "commit"}},
	}

	f, err := FixtureFromFeedback("export", records)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Turns) != 2 || f.Turns[1].TurnID != "feedback-2" {
		t.Fatalf("turns = %+v", f.Turns)
	}
	if len(f.Turns[0].State) != intent.VectorLen || f.Turns[0].Intent.Goal != "browse" {
		t.Errorf("turn 0 = %+v", f.Turns[0])
	}
	if len(st) != len(f.Turns[0].State) {
		t.Errorf("state width %d", len(f.Turns[0].State))
	}

	results, eng, err := Replay(f)
	if err != nil {
		t.Fatal(err)
	}
	if mm := Check(f, results, Summarize(results, eng)); len(mm) != 0 {
		t.Errorf("exported fixture does not replay cleanly: %v", mm)
	}

	bad := []logging.FeedbackRecord{{FeedbackEntry: logging.FeedbackEntry{DecisionID: "z"}, StateJSON: "{"}}
	if _, err := FixtureFromFeedback("bad", bad); err == nil {
		t.Error("expected decode error")
	}
}

// #endregion fixture-tests

// #region config-tests

func TestReplay_UsesFixtureConfig(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.BatchSize = 2
	cfg.TrainEvery = 2
	cfg.BufferCapacity = 10
	f := &Fixture{Config: &cfg}
	for i := 0; i < 6; i++ {
		r := 1.0
		f.Turns = append(f.Turns, FixtureTurn{TurnID: "t", Context: "blog", State: make([]float64, intent.VectorLen), Action: 3, Reward: &r})
	}

	results, eng, err := Replay(f)
	if err != nil {
		t.Fatal(err)
	}
	s := Summarize(results, eng)
	if s.TrainSteps+s.Rollbacks == 0 {
		t.Errorf("expected training with batch size 2, summary = %+v", s)
	}
	if s.BestArms["blog"] != 3 {
		t.Errorf("best blog arm = %d, want 3", s.BestArms["blog"])
	}

	cfg.BatchSize = 0
	if _, _, err := Replay(&Fixture{Config: &cfg}); err == nil {
		t.Error("invalid config should fail")
	}
}

// #endregion config-tests
