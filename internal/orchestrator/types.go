package orchestrator

// #region imports
import (
	"time"

	"github.com/danielpatrickdp/adaptive-layout/internal/compose"
	"github.com/danielpatrickdp/adaptive-layout/internal/engine"
	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
	"github.com/danielpatrickdp/adaptive-layout/internal/layout"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
	"github.com/danielpatrickdp/adaptive-layout/internal/signals"
	"github.com/danielpatrickdp/adaptive-layout/internal/telemetry"
)

// #endregion

// #region sources

// Decision sources added on top of the engine's bandit/qnet.
const (
	SourceForced    = "forced"
	SourceHeuristic = "heuristic"
)

// #endregion

// #region decision-request

// DecisionRequest is a raw rendering request. Action, when present, forces a
// layout action; anything ParseAction rejects falls back to engine selection.
type DecisionRequest struct {
	Domain  string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Goal    string `json:"goal,omitempty" yaml:"goal,omitempty"`
	Density string `json:"density,omitempty" yaml:"density,omitempty"`
	Persona string `json:"persona,omitempty" yaml:"persona,omitempty"`
	Device  string `json:"device,omitempty" yaml:"device,omitempty"`
	Accent  string `json:"accent,omitempty" yaml:"accent,omitempty"`
	Action  any    `json:"action,omitempty" yaml:"action,omitempty"`
}

// Raw returns the intent part of the request.
func (r DecisionRequest) Raw() intent.Raw {
	return intent.Raw{
		Domain:  r.Domain,
		Goal:    r.Goal,
		Density: r.Density,
		Persona: r.Persona,
		Device:  r.Device,
		Accent:  r.Accent,
	}
}

// #endregion

// #region response

// Response is everything a client needs to render one decision.
type Response struct {
	DecisionID  string              `json:"decision_id"`
	Layout      *layout.Layout      `json:"layout"`
	Composition compose.Composition `json:"composition"`
	Action      int                 `json:"action"`
	State       []float64           `json:"state"`
	Debug       Debug               `json:"debug"`
}

// Debug explains how the decision was made.
type Debug struct {
	Context         string              `json:"context"`
	VariationParams layout.Params       `json:"variation_params"`
	ExplorationRate float64             `json:"exploration_rate"`
	Source          string              `json:"source"`
	Diagnostics     []intent.Diagnostic `json:"diagnostics,omitempty"`
}

// #endregion

// #region feedback

// FeedbackRequest reports the outcome of a decision. With a known DecisionID
// the missing Action, PriorState and Context are taken from the decision.
// NextState defaults to PriorState.
type FeedbackRequest struct {
	DecisionID       string    `json:"decision_id,omitempty" yaml:"decision_id,omitempty"`
	Action           *int      `json:"action,omitempty" yaml:"action,omitempty"`
	Reward           *float64  `json:"reward,omitempty" yaml:"reward,omitempty"`
	Rating           string    `json:"rating,omitempty" yaml:"rating,omitempty"`
	ConfusionEvents  int       `json:"confusion_events,omitempty" yaml:"confusion_events,omitempty"`
	ConfusionPenalty float64   `json:"confusion_penalty,omitempty" yaml:"confusion_penalty,omitempty"`
	PriorState       []float64 `json:"prior_state,omitempty" yaml:"prior_state,omitempty"`
	NextState        []float64 `json:"next_state,omitempty" yaml:"next_state,omitempty"`
	Terminal         bool      `json:"terminal,omitempty" yaml:"terminal,omitempty"`
	Context          string    `json:"context,omitempty" yaml:"context,omitempty"`
}

// FeedbackResponse is what Feedback did with the report.
type FeedbackResponse struct {
	DecisionID string              `json:"decision_id,omitempty"`
	Context    string              `json:"context"`
	Action     int                 `json:"action"`
	Signals    signals.Signals     `json:"signals"`
	Result     engine.RecordResult `json:"result"`
}

// #endregion

// #region stats

// Stats combines engine and cache counters. Remembered counts decisions held
// in process; Pending counts those without feedback yet.
type Stats struct {
	Engine     engine.Stats      `json:"engine"`
	Layouts    layout.CacheStats `json:"layouts"`
	Pending    int               `json:"pending_decisions"`
	Remembered int               `json:"remembered_decisions"`
}

// #endregion

// #region decision-record

// DecisionRecord is what the orchestrator remembers about a decision.
// Answered is set once its feedback has been recorded.
type DecisionRecord struct {
	DecisionID string
	Context    string
	Action     int
	Source     string
	State      []float64
	Intent     intent.Intent
	LayoutID   string
	CreatedAt  time.Time
	Answered   bool
}

// #endregion

// #region interfaces

// ProvenanceLog persists decisions and feedback. *logging.Provenance
// implements it.
type ProvenanceLog interface {
	LogDecision(logging.DecisionEntry) error
	LogFeedback(logging.FeedbackEntry) error
	Decision(decisionID string) (logging.DecisionEntry, error)
}

// Publisher receives telemetry events. *telemetry.Bus implements it.
type Publisher interface {
	Publish(telemetry.Event)
}

// #endregion
