package orchestrator

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestProvenance(t *testing.T) *logging.Provenance {
	t.Helper()
	prov, err := logging.NewProvenance(newTestDB(t))
	if err != nil {
		t.Fatal(err)
	}
	return prov
}

func TestDecisionMemory_RememberAndRecall(t *testing.T) {
	mem := NewDecisionMemory(2, nil)
	state := []float64{1, 0, 1}
	mem.Remember(DecisionRecord{DecisionID: "a", Context: "blog", Action: 4, State: state})
	state[0] = 9

	rec, err := mem.Recall("a")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Action != 4 || rec.Context != "blog" {
		t.Errorf("recall = %+v", rec)
	}
	if rec.State[0] != 1 {
		t.Errorf("memory aliases caller state: %v", rec.State)
	}
	rec.State[1] = 7
	again, _ := mem.Recall("a")
	if again.State[1] != 0 {
		t.Errorf("recall aliases stored state: %v", again.State)
	}
}

func TestDecisionMemory_EvictsOldest(t *testing.T) {
	mem := NewDecisionMemory(2, nil)
	for _, id := range []string{"a", "b", "c"} {
		mem.Remember(DecisionRecord{DecisionID: id})
	}
	if mem.Len() != 2 {
		t.Fatalf("len = %d, want 2", mem.Len())
	}
	if _, err := mem.Recall("a"); !errors.Is(err, ErrUnknownDecision) {
		t.Errorf("oldest decision should be evicted, err = %v", err)
	}
	if _, err := mem.Recall("c"); err != nil {
		t.Errorf("newest decision missing: %v", err)
	}

	// re-remembering an ID does not grow the memory
	mem.Remember(DecisionRecord{DecisionID: "c", Action: 2})
	if mem.Len() != 2 {
		t.Errorf("len = %d after overwrite", mem.Len())
	}
}

func TestDecisionMemory_FallsBackToProvenance(t *testing.T) {
	prov := newTestProvenance(t)
	err := prov.LogDecision(logging.DecisionEntry{
		DecisionID: "d-1",
		Context:    "ecommerce",
		Action:     6,
		Source:     "qnet",
		Epsilon:    0.4,
		IntentJSON: `{"domain":"ecommerce","goal":"browse","density":"","persona":"","device":"mobile","accent":""}`,
		StateJSON:  `[0,0,1]`,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	mem := NewDecisionMemory(0, prov)
	rec, err := mem.Recall("d-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Action != 6 || rec.Context != "ecommerce" || rec.Source != "qnet" {
		t.Errorf("recall = %+v", rec)
	}
	if len(rec.State) != 3 || rec.State[2] != 1 {
		t.Errorf("state = %v", rec.State)
	}
	if rec.Intent.Device != intent.DeviceMobile {
		t.Errorf("intent = %+v", rec.Intent)
	}

	if _, err := mem.Recall("missing"); !errors.Is(err, ErrUnknownDecision) {
		t.Errorf("missing decision err = %v", err)
	}
}

func TestDecisionMemory_CorruptProvenanceRow(t *testing.T) {
	prov := newTestProvenance(t)
	if err := prov.LogDecision(logging.DecisionEntry{DecisionID: "bad", Context: "blog", StateJSON: "{not json"}); err != nil {
		t.Fatal(err)
	}
	_, err := NewDecisionMemory(0, prov).Recall("bad")
	if err == nil || errors.Is(err, ErrUnknownDecision) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestDecisionMemory_ClaimOnce(t *testing.T) {
	mem := NewDecisionMemory(2, nil)
	mem.Remember(DecisionRecord{DecisionID: "a", Action: 1})
	mem.Remember(DecisionRecord{DecisionID: "b", Action: 2})
	if mem.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", mem.Pending())
	}

	rec, err := mem.Claim("a")
	if err != nil || rec.Action != 1 {
		t.Fatalf("claim = %+v, %v", rec, err)
	}
	if _, err := mem.Claim("a"); !errors.Is(err, ErrDuplicateFeedback) {
		t.Fatalf("second claim err = %v", err)
	}
	if mem.Pending() != 1 || mem.Len() != 2 {
		t.Fatalf("pending = %d len = %d after claim", mem.Pending(), mem.Len())
	}

	mem.Release("a")
	if mem.Pending() != 2 {
		t.Fatalf("pending = %d after release", mem.Pending())
	}
	if _, err := mem.Claim("a"); err != nil {
		t.Fatalf("claim after release: %v", err)
	}

	// evicting an answered decision leaves the pending count alone
	mem.Remember(DecisionRecord{DecisionID: "c"})
	if mem.Pending() != 2 || mem.Len() != 2 {
		t.Fatalf("pending = %d len = %d after eviction", mem.Pending(), mem.Len())
	}
	if _, err := mem.Claim("missing"); !errors.Is(err, ErrUnknownDecision) {
		t.Fatalf("missing claim err = %v", err)
	}
}

func TestDecisionMemory_ClaimAnsweredInProvenance(t *testing.T) {
	prov := newTestProvenance(t)
	prov.LogDecision(logging.DecisionEntry{DecisionID: "d-1", Context: "blog", Action: 3, Source: "bandit"})
	prov.LogFeedback(logging.FeedbackEntry{DecisionID: "d-1", Context: "blog", Action: 3, Reward: 1, Decision: "commit"})
	prov.LogDecision(logging.DecisionEntry{DecisionID: "d-2", Context: "blog", Action: 4, Source: "bandit"})

	mem := NewDecisionMemory(0, prov)
	if _, err := mem.Claim("d-1"); !errors.Is(err, ErrDuplicateFeedback) {
		t.Fatalf("answered decision err = %v", err)
	}
	if _, err := mem.Claim("d-2"); err != nil {
		t.Fatalf("claim d-2: %v", err)
	}
	if _, err := mem.Claim("d-2"); !errors.Is(err, ErrDuplicateFeedback) {
		t.Fatalf("second claim of d-2 err = %v", err)
	}
	if mem.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", mem.Pending())
	}
}
