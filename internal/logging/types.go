package logging

import "time"

// #region decision-entry
// DecisionEntry is a single row in the decision_log table.
type DecisionEntry struct {
	DecisionID string
	Context    string
	Action     int
	Source     string // "bandit" | "qnet" | "forced"
	Epsilon    float64
	LayoutID   string
	IntentJSON string
	StateJSON  string
	CreatedAt  time.Time
	// Answered is set by Decision when committed feedback exists for the row.
	Answered bool
}

// #endregion decision-entry

// #region feedback-entry
// FeedbackEntry is a single row in the feedback_log table.
type FeedbackEntry struct {
	DecisionID string
	Context    string
	Action     int
	Reward     float64
	Decision   string // gate outcome: "commit" | "reject"
	Reason     string
	CreatedAt  time.Time
}

// #endregion feedback-entry

// #region feedback-record
// FeedbackRecord joins a feedback row with the decision that produced it.
// Used by offline replay and fixture export.
type FeedbackRecord struct {
	FeedbackEntry
	IntentJSON string
	StateJSON  string
}

// #endregion feedback-record
