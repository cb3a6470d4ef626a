package orchestrator

// #region imports
import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
)

// #endregion

// DefaultMemorySize bounds the number of decisions kept awaiting feedback.
const DefaultMemorySize = 4096

var (
	// ErrUnknownDecision is returned when a decision ID is neither remembered
	// nor in the provenance log.
	ErrUnknownDecision = errors.New("unknown decision")
	// ErrDuplicateFeedback is returned when a decision already had its
	// feedback recorded.
	ErrDuplicateFeedback = errors.New("duplicate feedback")
)

// #region memory-struct

// DecisionMemory keeps recent decisions in process, oldest evicted first,
// and falls back to the provenance log for older ones. Answered decisions
// stay until evicted so that repeated feedback is refused.
type DecisionMemory struct {
	mu      sync.Mutex
	max     int
	byID    map[string]DecisionRecord
	order   []string
	pending int
	prov    ProvenanceLog
}

// NewDecisionMemory creates a memory holding at most size decisions
// (DefaultMemorySize if size <= 0). prov may be nil.
func NewDecisionMemory(size int, prov ProvenanceLog) *DecisionMemory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &DecisionMemory{max: size, byID: make(map[string]DecisionRecord), prov: prov}
}

// #endregion

// #region remember

// Remember stores rec, evicting the oldest decision when full.
func (m *DecisionMemory) Remember(rec DecisionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.State = slices.Clone(rec.State)
	m.putLocked(rec)
}

func (m *DecisionMemory) putLocked(rec DecisionRecord) {
	if old, ok := m.byID[rec.DecisionID]; !ok {
		m.order = append(m.order, rec.DecisionID)
	} else if !old.Answered {
		m.pending--
	}
	if !rec.Answered {
		m.pending++
	}
	m.byID[rec.DecisionID] = rec
	for len(m.order) > m.max {
		if !m.byID[m.order[0]].Answered {
			m.pending--
		}
		delete(m.byID, m.order[0])
		m.order = m.order[1:]
	}
}

// Len returns the number of decisions held in process.
func (m *DecisionMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Pending returns the number of decisions held in process that still await
// feedback.
func (m *DecisionMemory) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// #endregion

// #region recall

// Recall returns the decision with the given ID, from process memory first
// and the provenance log second.
func (m *DecisionMemory) Recall(decisionID string) (DecisionRecord, error) {
	m.mu.Lock()
	rec, ok := m.byID[decisionID]
	m.mu.Unlock()
	if ok {
		rec.State = slices.Clone(rec.State)
		return rec, nil
	}
	if m.prov == nil {
		return DecisionRecord{}, fmt.Errorf("decision %s: %w", decisionID, ErrUnknownDecision)
	}

	entry, err := m.prov.Decision(decisionID)
	if errors.Is(err, logging.ErrDecisionNotFound) {
		return DecisionRecord{}, fmt.Errorf("decision %s: %w", decisionID, ErrUnknownDecision)
	}
	if err != nil {
		return DecisionRecord{}, fmt.Errorf("recall decision: %w", err)
	}
	return recordFromEntry(entry)
}

// Claim recalls a decision and marks it answered. A decision can be claimed
// once; later claims fail with ErrDuplicateFeedback until Release.
func (m *DecisionMemory) Claim(decisionID string) (DecisionRecord, error) {
	rec, err := m.Recall(decisionID)
	if err != nil {
		return DecisionRecord{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.byID[decisionID]; ok {
		rec.Answered = cur.Answered
	}
	if rec.Answered {
		return DecisionRecord{}, fmt.Errorf("decision %s: %w", decisionID, ErrDuplicateFeedback)
	}
	stored := rec
	stored.Answered = true
	stored.State = slices.Clone(rec.State)
	m.putLocked(stored)
	return rec, nil
}

// Release returns a claimed decision to pending, for feedback that was not
// recorded.
func (m *DecisionMemory) Release(decisionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.byID[decisionID]; ok && rec.Answered {
		rec.Answered = false
		m.putLocked(rec)
	}
}

func recordFromEntry(e logging.DecisionEntry) (DecisionRecord, error) {
	rec := DecisionRecord{
		DecisionID: e.DecisionID,
		Context:    e.Context,
		Action:     e.Action,
		Source:     e.Source,
		LayoutID:   e.LayoutID,
		CreatedAt:  e.CreatedAt,
		Answered:   e.Answered,
	}
	if e.StateJSON != "" {
		if err := json.Unmarshal([]byte(e.StateJSON), &rec.State); err != nil {
			return DecisionRecord{}, fmt.Errorf("decode decision %s state: %w", e.DecisionID, err)
		}
	}
	if e.IntentJSON != "" {
		var in intent.Intent
		if err := json.Unmarshal([]byte(e.IntentJSON), &in); err != nil {
			return DecisionRecord{}, fmt.Errorf("decode decision %s intent: %w", e.DecisionID, err)
		}
		rec.Intent = in
	}
	return rec, nil
}

// #endregion
