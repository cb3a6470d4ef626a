package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// #region prom-listener
// PromListener turns events into Prometheus series.
type PromListener struct {
	selected *prometheus.CounterVec
	feedback *prometheus.CounterVec
	rewards  *prometheus.HistogramVec
}

// NewPromListener registers the decision metrics on reg. When bus is not
// nil its drop counter is exported too.
func NewPromListener(reg prometheus.Registerer, bus *Bus) (*PromListener, error) {
	p := &PromListener{
		selected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "layout",
			Name:      "actions_selected_total",
			Help:      "Layout actions selected, by context and decision source.",
		}, []string{"context", "source"}),
		feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "layout",
			Name:      "feedback_total",
			Help:      "Feedback events, by context and gate outcome.",
		}, []string{"context", "outcome"}),
		rewards: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "layout",
			Name:      "reward",
			Help:      "Shaped rewards of committed feedback.",
			Buckets:   []float64{-0.5, -0.25, 0, 0.25, 0.5, 0.75, 1},
		}, []string{"context"}),
	}
	collectors := []prometheus.Collector{p.selected, p.feedback, p.rewards}
	if bus != nil {
		collectors = append(collectors, prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "layout",
			Name:      "telemetry_dropped_total",
			Help:      "Telemetry events dropped because a listener queue was full.",
		}, func() float64 { return float64(bus.Dropped()) }))
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Handle implements Listener.
func (p *PromListener) Handle(e Event) {
	switch e.Type {
	case EventActionSelected:
		p.selected.WithLabelValues(e.Context, e.Source).Inc()
	case EventFeedbackRecorded:
		outcome := "reject"
		if e.Committed {
			outcome = "commit"
			p.rewards.WithLabelValues(e.Context).Observe(e.Reward)
		}
		p.feedback.WithLabelValues(e.Context, outcome).Inc()
	}
}

// #endregion prom-listener
