package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/adaptive-layout/internal/engine"
	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
)

// #region fixture-types

// Fixture is a recorded feedback session plus what replaying it must yield.
type Fixture struct {
	Description     string                  `json:"description" yaml:"description"`
	Config          *engine.Config          `json:"config,omitempty" yaml:"config,omitempty"` // nil = engine defaults
	Turns           []FixtureTurn           `json:"turns" yaml:"turns"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results,omitempty" yaml:"expected_results,omitempty"`
	// ExpectedBestArms maps a context to the arm the active strategy should
	// rate highest after the replay.
	ExpectedBestArms map[string]int `json:"expected_best_arms,omitempty" yaml:"expected_best_arms,omitempty"`
}

// FixtureTurn is one feedback event. State wins over Intent; Context
// defaults to the intent's domain.
type FixtureTurn struct {
	TurnID          string     `json:"turn_id" yaml:"turn_id"`
	Intent          intent.Raw `json:"intent,omitempty" yaml:"intent,omitempty"`
	State           []float64  `json:"state,omitempty" yaml:"state,omitempty"`
	NextState       []float64  `json:"next_state,omitempty" yaml:"next_state,omitempty"`
	Context         string     `json:"context,omitempty" yaml:"context,omitempty"`
	Action          int        `json:"action" yaml:"action"`
	Reward          *float64   `json:"reward,omitempty" yaml:"reward,omitempty"`
	Rating          string     `json:"rating,omitempty" yaml:"rating,omitempty"`
	ConfusionEvents int        `json:"confusion_events,omitempty" yaml:"confusion_events,omitempty"`
	Terminal        bool       `json:"terminal,omitempty" yaml:"terminal,omitempty"`
}

// FixtureExpectedResult captures the expected outcome per turn.
type FixtureExpectedResult struct {
	TurnID string `json:"turn_id" yaml:"turn_id"`
	Action string `json:"action" yaml:"action"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a JSON or YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := ParseFixture(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}

// ParseFixture decodes fixture bytes; ext is a format hint and may be empty.
func ParseFixture(data []byte, ext string) (*Fixture, error) {
	ext = strings.ToLower(ext)
	if ext == "" && strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		ext = ".json"
	}
	var f Fixture
	if ext == ".json" {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	for i, t := range f.Turns {
		if t.TurnID == "" {
			f.Turns[i].TurnID = fmt.Sprintf("turn-%d", i+1)
		}
	}
	return &f, nil
}

// #endregion fixture-loader

// #region fixture-export

// FixtureFromFeedback builds a fixture from committed feedback rows. Each
// row's outcome becomes an expected "commit".
func FixtureFromFeedback(description string, records []logging.FeedbackRecord) (*Fixture, error) {
	f := &Fixture{Description: description}
	for i, r := range records {
		turn := FixtureTurn{
			TurnID:  r.DecisionID,
			Context: r.Context,
			Action:  r.Action,
		}
		if turn.TurnID == "" {
			turn.TurnID = fmt.Sprintf("feedback-%d", i+1)
		}
		reward := r.Reward
		turn.Reward = &reward
		if r.StateJSON != "" {
			if err := json.Unmarshal([]byte(r.StateJSON), &turn.State); err != nil {
				return nil, fmt.Errorf("decode state of %s: %w", turn.TurnID, err)
			}
		}
		if r.IntentJSON != "" {
			var in intent.Intent
			if err := json.Unmarshal([]byte(r.IntentJSON), &in); err != nil {
				return nil, fmt.Errorf("decode intent of %s: %w", turn.TurnID, err)
			}
			turn.Intent = in.Raw()
		}
		f.Turns = append(f.Turns, turn)
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{TurnID: turn.TurnID, Action: ActionCommit})
	}
	return f, nil
}

// #endregion fixture-export
