package logging

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// #region schema
const provenanceSchema = `
CREATE TABLE IF NOT EXISTS decision_log (
	decision_id   TEXT PRIMARY KEY,
	context       TEXT NOT NULL,
	action        INTEGER NOT NULL,
	source        TEXT NOT NULL,
	epsilon       REAL NOT NULL,
	layout_id     TEXT,
	intent_json   TEXT,
	state_json    TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	decision_id   TEXT,
	context       TEXT NOT NULL,
	action        INTEGER NOT NULL,
	reward        REAL NOT NULL,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_log_decision ON feedback_log(decision_id);
`

// #endregion schema

// ErrDecisionNotFound is returned by Decision when no row matches.
var ErrDecisionNotFound = errors.New("decision not found")

// #region provenance
// Provenance writes decision and feedback rows to SQLite.
type Provenance struct {
	db *sql.DB
}

// NewProvenance creates the provenance tables if needed.
func NewProvenance(db *sql.DB) (*Provenance, error) {
	if _, err := db.Exec(provenanceSchema); err != nil {
		return nil, fmt.Errorf("migrate provenance: %w", err)
	}
	return &Provenance{db: db}, nil
}

// #endregion provenance

// #region log-decision
// LogDecision writes a decision row.
func (p *Provenance) LogDecision(entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := p.db.Exec(
		`INSERT INTO decision_log (decision_id, context, action, source, epsilon, layout_id, intent_json, state_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.DecisionID,
		entry.Context,
		entry.Action,
		entry.Source,
		entry.Epsilon,
		nullIfEmpty(entry.LayoutID),
		nullIfEmpty(entry.IntentJSON),
		nullIfEmpty(entry.StateJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region log-feedback
// LogFeedback writes a feedback row.
func (p *Provenance) LogFeedback(entry FeedbackEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := p.db.Exec(
		`INSERT INTO feedback_log (decision_id, context, action, reward, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.DecisionID),
		entry.Context,
		entry.Action,
		entry.Reward,
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log feedback: %w", err)
	}
	return nil
}

// #endregion log-feedback

// #region decision-lookup
// Decision returns the decision row with the given ID, and whether feedback
// for it was committed.
func (p *Provenance) Decision(decisionID string) (DecisionEntry, error) {
	var e DecisionEntry
	var layoutID, intentJSON, stateJSON sql.NullString
	var createdStr string

	err := p.db.QueryRow(
		`SELECT d.decision_id, d.context, d.action, d.source, d.epsilon, d.layout_id, d.intent_json, d.state_json, d.created_at,
		        EXISTS (SELECT 1 FROM feedback_log f WHERE f.decision_id = d.decision_id AND f.decision = 'commit')
		 FROM decision_log d WHERE d.decision_id = ?`, decisionID,
	).Scan(&e.DecisionID, &e.Context, &e.Action, &e.Source, &e.Epsilon, &layoutID, &intentJSON, &stateJSON, &createdStr, &e.Answered)
	if errors.Is(err, sql.ErrNoRows) {
		return DecisionEntry{}, fmt.Errorf("decision %s: %w", decisionID, ErrDecisionNotFound)
	}
	if err != nil {
		return DecisionEntry{}, fmt.Errorf("get decision %s: %w", decisionID, err)
	}
	e.LayoutID = layoutID.String
	e.IntentJSON = intentJSON.String
	e.StateJSON = stateJSON.String
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return e, nil
}

// #endregion decision-lookup

// #region list-feedback
// ListFeedback returns committed feedback rows in insertion order, joined
// with their decisions. limit <= 0 means no limit.
func (p *Provenance) ListFeedback(limit int) ([]FeedbackRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := p.db.Query(
		`SELECT f.decision_id, f.context, f.action, f.reward, f.decision, f.reason, f.created_at,
		        d.intent_json, d.state_json
		 FROM feedback_log f
		 LEFT JOIN decision_log d ON d.decision_id = f.decision_id
		 WHERE f.decision = 'commit'
		 ORDER BY f.id ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []FeedbackRecord
	for rows.Next() {
		var rec FeedbackRecord
		var decisionID, reason, intentJSON, stateJSON sql.NullString
		var createdStr string
		if err := rows.Scan(&decisionID, &rec.Context, &rec.Action, &rec.Reward, &rec.Decision,
			&reason, &createdStr, &intentJSON, &stateJSON); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		rec.DecisionID = decisionID.String
		rec.Reason = reason.String
		rec.IntentJSON = intentJSON.String
		rec.StateJSON = stateJSON.String
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion list-feedback

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
