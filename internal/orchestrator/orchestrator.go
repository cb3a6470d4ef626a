// Package orchestrator runs the decide/feedback loop: intent normalization,
// action selection, layout generation, composition, and reward routing back
// into the engine.
package orchestrator

// #region imports
import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/adaptive-layout/internal/compose"
	"github.com/danielpatrickdp/adaptive-layout/internal/engine"
	"github.com/danielpatrickdp/adaptive-layout/internal/experience"
	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
	"github.com/danielpatrickdp/adaptive-layout/internal/layout"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
	"github.com/danielpatrickdp/adaptive-layout/internal/signals"
	"github.com/danielpatrickdp/adaptive-layout/internal/telemetry"
)

// #endregion

// ErrIncompleteFeedback is returned when feedback names no action and no
// known decision.
var ErrIncompleteFeedback = errors.New("incomplete feedback")

// #region orchestrator-struct

// Orchestrator is the top-level coordinator for decisions and feedback.
type Orchestrator struct {
	engine   *engine.Engine
	layouts  *layout.Generator
	composer *compose.Composer
	producer *signals.Producer
	memory   *DecisionMemory
	defaults intent.Defaults
	prov     ProvenanceLog
	events   Publisher
	adaptive bool
	memSize  int
	log      *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithProvenance records decisions and feedback and lets feedback refer to
// decisions made by an earlier process.
func WithProvenance(p ProvenanceLog) Option {
	return func(o *Orchestrator) { o.prov = p }
}

// WithPublisher emits telemetry events.
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) { o.events = p }
}

// WithDefaults replaces the fill-ins for absent intent fields.
func WithDefaults(d intent.Defaults) Option {
	return func(o *Orchestrator) { o.defaults = d }
}

// WithProducer replaces the reward shaping.
func WithProducer(p *signals.Producer) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.producer = p
		}
	}
}

// WithMemorySize bounds the in-process decision memory.
func WithMemorySize(n int) Option {
	return func(o *Orchestrator) { o.memSize = n }
}

// WithAdaptive turns engine selection on or off. When off every request
// gets the heuristic layout, and its feedback is credited to the action
// whose layout is closest to the heuristic one.
func WithAdaptive(on bool) Option {
	return func(o *Orchestrator) { o.adaptive = on }
}

// #endregion

// #region constructor

// NewOrchestrator wires the decision loop. All three collaborators are required.
func NewOrchestrator(eng *engine.Engine, layouts *layout.Generator, composer *compose.Composer, opts ...Option) (*Orchestrator, error) {
	if eng == nil || layouts == nil || composer == nil {
		return nil, errors.New("orchestrator: engine, layout generator and composer are required")
	}
	o := &Orchestrator{
		engine:   eng,
		layouts:  layouts,
		composer: composer,
		producer: signals.NewProducer(signals.DefaultProducerConfig()),
		defaults: intent.DefaultDefaults(),
		adaptive: true,
		log:      logging.New("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.memory = NewDecisionMemory(o.memSize, o.prov)
	return o, nil
}

// Adaptive reports whether the engine picks actions.
func (o *Orchestrator) Adaptive() bool { return o.adaptive }

// #endregion

// #region decide

// Decide turns a raw request into a layout and its composition. It does not
// fail: unknown values degrade to defaults and are reported in Debug.
func (o *Orchestrator) Decide(req DecisionRequest) Response {
	in, diags := intent.Normalize(intent.ApplyDefaults(req.Raw(), o.defaults))
	state := intent.Vectorize(in)
	sel := o.selectAction(req, in, state)

	l := o.layouts.Generate(in, sel.Action)
	comp := o.composer.Compose(l, in)

	id := uuid.NewString()
	now := time.Now().UTC()
	o.memory.Remember(DecisionRecord{
		DecisionID: id,
		Context:    sel.Context,
		Action:     sel.Action,
		Source:     sel.Source,
		State:      state,
		Intent:     in,
		LayoutID:   l.ID,
		CreatedAt:  now,
	})
	o.logDecision(id, sel, in, state, l.ID, now)
	o.publish(telemetry.Event{
		Type:       telemetry.EventActionSelected,
		DecisionID: id,
		Context:    sel.Context,
		Action:     sel.Action,
		Source:     sel.Source,
		Epsilon:    sel.Epsilon,
		At:         now,
	})

	o.log.Info("decide",
		slog.String("decision_id", id), slog.String("context", sel.Context),
		slog.Int("action", sel.Action), slog.String("source", sel.Source),
		slog.String("structure", l.Structure.Type))

	return Response{
		DecisionID:  id,
		Layout:      l,
		Composition: comp,
		Action:      sel.Action,
		State:       state,
		Debug: Debug{
			Context:         sel.Context,
			VariationParams: l.Metadata.Params,
			ExplorationRate: sel.Epsilon,
			Source:          sel.Source,
			Diagnostics:     diags,
		},
	}
}

func (o *Orchestrator) selectAction(req DecisionRequest, in intent.Intent, state []float64) engine.Selection {
	context := string(in.Domain)
	if req.Action != nil {
		if a := layout.ParseAction(req.Action); a != layout.NoAction {
			return engine.Selection{
				Action:  a,
				Source:  SourceForced,
				Epsilon: o.engine.Epsilon(),
				Context: o.engine.ResolveContext(context),
			}
		}
		o.log.Warn("ignoring invalid forced action", slog.Any("action", req.Action))
	}
	if !o.adaptive {
		return engine.Selection{
			Action:  layout.NoAction,
			Source:  SourceHeuristic,
			Epsilon: o.engine.Epsilon(),
			Context: o.engine.ResolveContext(context),
		}
	}
	return o.engine.SelectAction(state, context)
}

func (o *Orchestrator) logDecision(id string, sel engine.Selection, in intent.Intent, state []float64, layoutID string, at time.Time) {
	if o.prov == nil {
		return
	}
	intentJSON, _ := json.Marshal(in)
	stateJSON, _ := json.Marshal(state)
	err := o.prov.LogDecision(logging.DecisionEntry{
		DecisionID: id,
		Context:    sel.Context,
		Action:     sel.Action,
		Source:     sel.Source,
		Epsilon:    sel.Epsilon,
		LayoutID:   layoutID,
		IntentJSON: string(intentJSON),
		StateJSON:  string(stateJSON),
		CreatedAt:  at,
	})
	if err != nil {
		o.log.Warn("provenance write failed", slog.String("decision_id", id), slog.Any("error", err))
	}
}

// #endregion

// #region feedback

// Feedback shapes the reported outcome into a reward and records the
// transition. Gate rejections come back wrapping engine.ErrRejected; a
// decision whose feedback was already recorded yields ErrDuplicateFeedback.
func (o *Orchestrator) Feedback(req FeedbackRequest) (resp FeedbackResponse, err error) {
	if req.DecisionID != "" {
		rec, claimErr := o.memory.Claim(req.DecisionID)
		switch {
		case claimErr == nil:
			defer func() {
				if err != nil {
					o.memory.Release(req.DecisionID)
				}
			}()
			if req.Action == nil {
				a := rec.Action
				if !layout.Valid(a) {
					a = layout.NearestAction(rec.Intent)
				}
				req.Action = &a
			}
			if len(req.PriorState) == 0 {
				req.PriorState = rec.State
			}
			if req.Context == "" {
				req.Context = rec.Context
			}
		case errors.Is(claimErr, ErrUnknownDecision):
			o.log.Warn("feedback for unknown decision", slog.String("decision_id", req.DecisionID))
		default:
			return FeedbackResponse{}, fmt.Errorf("feedback: %w", claimErr)
		}
	}
	if req.Action == nil {
		return FeedbackResponse{}, fmt.Errorf("feedback: %w: no action and no known decision", ErrIncompleteFeedback)
	}

	sig, err := o.producer.Produce(signals.ProduceInput{
		Reward:           req.Reward,
		Rating:           req.Rating,
		ConfusionEvents:  req.ConfusionEvents,
		ConfusionPenalty: req.ConfusionPenalty,
	})
	if err != nil {
		return FeedbackResponse{}, fmt.Errorf("feedback: %w", err)
	}

	next := req.NextState
	if len(next) == 0 {
		next = slices.Clone(req.PriorState)
	}
	exp := experience.Experience{
		State:     req.PriorState,
		Action:    *req.Action,
		Reward:    sig.Reward,
		NextState: next,
		Terminal:  req.Terminal,
	}
	context := o.engine.ResolveContext(req.Context)
	res, recErr := o.engine.RecordExperience(exp, context)
	if recErr == nil && req.Terminal {
		o.engine.EndEpisode()
	}

	o.logFeedback(req.DecisionID, context, exp, res)
	o.publish(telemetry.Event{
		Type:       telemetry.EventFeedbackRecorded,
		DecisionID: req.DecisionID,
		Context:    context,
		Action:     exp.Action,
		Epsilon:    res.Epsilon,
		Reward:     sig.Reward,
		Committed:  recErr == nil,
		Trained:    res.Trained,
	})

	out := FeedbackResponse{
		DecisionID: req.DecisionID,
		Context:    context,
		Action:     exp.Action,
		Signals:    sig,
		Result:     res,
	}
	if recErr != nil {
		return out, fmt.Errorf("feedback: %w", recErr)
	}
	o.log.Info("feedback",
		slog.String("decision_id", req.DecisionID), slog.String("context", context),
		slog.Int("action", exp.Action), slog.Float64("reward", sig.Reward),
		slog.Bool("trained", res.Trained))
	return out, nil
}

func (o *Orchestrator) logFeedback(decisionID, context string, exp experience.Experience, res engine.RecordResult) {
	if o.prov == nil {
		return
	}
	err := o.prov.LogFeedback(logging.FeedbackEntry{
		DecisionID: decisionID,
		Context:    context,
		Action:     exp.Action,
		Reward:     exp.Reward,
		Decision:   res.Decision.Action,
		Reason:     res.Decision.Reason,
	})
	if err != nil {
		o.log.Warn("provenance write failed", slog.String("decision_id", decisionID), slog.Any("error", err))
	}
}

// #endregion

// #region stats

// Stats returns engine, cache and memory counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Engine:     o.engine.Stats(),
		Layouts:    o.layouts.Stats(),
		Pending:    o.memory.Pending(),
		Remembered: o.memory.Len(),
	}
}

func (o *Orchestrator) publish(e telemetry.Event) {
	if o.events != nil {
		o.events.Publish(e)
	}
}

// #endregion
