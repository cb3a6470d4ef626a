package bandit

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
)

var strategyNames = []string{StrategyUCB, StrategyThompson, StrategyEGreedy}

// #region ensemble
// Ensemble holds one instance of every strategy per context. The active
// strategy answers SelectArm; Update reaches all instances of the context so
// switching the active strategy later loses no history.
//
// Not safe for concurrent use; the engine serializes access.
type Ensemble struct {
	cfg            Config
	active         string
	defaultContext string
	contexts       map[string]map[string]Strategy
	sources        map[string]map[string]*rand.PCG
	order          []string
	log            *slog.Logger
}

// Snapshot is the persisted form of an ensemble.
type Snapshot struct {
	Active   string                      `json:"active"`
	Contexts map[string]map[string]Stats `json:"contexts"`
}

// RNGState holds the encoded random source of every strategy, by context
// and strategy name.
type RNGState map[string]map[string][]byte

// NewEnsemble creates strategies for each context. defaultContext must be
// one of contexts; it receives decisions for unknown contexts.
func NewEnsemble(cfg Config, contexts []string, defaultContext, active string) (*Ensemble, error) {
	return newEnsemble(cfg, cfg.Seed, contexts, defaultContext, active)
}

func newEnsemble(cfg Config, seed uint64, contexts []string, defaultContext, active string) (*Ensemble, error) {
	if cfg.Arms <= 0 {
		return nil, fmt.Errorf("ensemble: arms must be positive, got %d", cfg.Arms)
	}
	if len(contexts) == 0 {
		return nil, fmt.Errorf("ensemble: no contexts")
	}
	if !slices.Contains(contexts, defaultContext) {
		return nil, fmt.Errorf("ensemble: default context %q not in %v", defaultContext, contexts)
	}
	if !slices.Contains(strategyNames, active) {
		return nil, fmt.Errorf("ensemble: unknown active strategy %q", active)
	}

	e := &Ensemble{
		cfg:            cfg,
		active:         active,
		defaultContext: defaultContext,
		contexts:       make(map[string]map[string]Strategy, len(contexts)),
		sources:        make(map[string]map[string]*rand.PCG, len(contexts)),
		log:            loggerFor("ensemble"),
	}
	for ci, name := range contexts {
		if _, dup := e.contexts[name]; dup {
			continue
		}
		set := make(map[string]Strategy, len(strategyNames))
		srcs := make(map[string]*rand.PCG, len(strategyNames))
		for si, sname := range strategyNames {
			src := rand.NewPCG(seed, uint64(ci*len(strategyNames)+si+1))
			s, err := NewStrategy(sname, cfg, rand.New(src))
			if err != nil {
				return nil, err
			}
			set[sname] = s
			srcs[sname] = src
		}
		e.contexts[name] = set
		e.sources[name] = srcs
		e.order = append(e.order, name)
	}
	return e, nil
}

// #endregion ensemble

// #region resolve
// Resolve maps a context to a known one, falling back to the default context.
func (e *Ensemble) Resolve(context string) string {
	if _, ok := e.contexts[context]; ok {
		return context
	}
	e.log.Warn("unknown bandit context, using default",
		slog.String("context", context), slog.String("default", e.defaultContext))
	return e.defaultContext
}

// #endregion resolve

// #region select-update
// SelectArm asks the active strategy of the context for an arm.
func (e *Ensemble) SelectArm(context string) int {
	return e.contexts[e.Resolve(context)][e.active].SelectArm()
}

// Update feeds the reward to every strategy of the context.
func (e *Ensemble) Update(context string, arm int, reward float64) {
	for _, s := range e.contexts[e.Resolve(context)] {
		s.Update(arm, reward)
	}
}

// #endregion select-update

// #region accessors
// Active returns the authoritative strategy name.
func (e *Ensemble) Active() string { return e.active }

// SetActive switches the authoritative strategy.
func (e *Ensemble) SetActive(name string) error {
	if !slices.Contains(strategyNames, name) {
		return fmt.Errorf("unknown bandit strategy %q", name)
	}
	e.active = name
	return nil
}

// Contexts returns the context names in construction order.
func (e *Ensemble) Contexts() []string {
	return append([]string(nil), e.order...)
}

// DefaultContext returns the fallback context.
func (e *Ensemble) DefaultContext() string { return e.defaultContext }

// Strategy returns one strategy instance, for inspection.
func (e *Ensemble) Strategy(context, name string) (Strategy, bool) {
	set, ok := e.contexts[context]
	if !ok {
		return nil, false
	}
	s, ok := set[name]
	return s, ok
}

// #endregion accessors

// #region snapshot
// Snapshot captures all counters.
func (e *Ensemble) Snapshot() Snapshot {
	snap := Snapshot{Active: e.active, Contexts: make(map[string]map[string]Stats, len(e.contexts))}
	for ctx, set := range e.contexts {
		m := make(map[string]Stats, len(set))
		for name, s := range set {
			m[name] = s.Stats()
		}
		snap.Contexts[ctx] = m
	}
	return snap
}

// Restore replaces all counters with the snapshot. Contexts or strategies
// missing from the snapshot start fresh; unknown ones are ignored. On error
// the ensemble is left unchanged.
//
// The random sources are reseeded from the configured seed and the number of
// pulls in the snapshot, so a restored ensemble does not replay the draws of
// a fresh one. RestoreRNG continues the saved streams exactly.
func (e *Ensemble) Restore(snap Snapshot) error {
	active := e.active
	if snap.Active != "" {
		active = snap.Active
	}
	fresh, err := newEnsemble(e.cfg, restoreSeed(e.cfg.Seed, snap), e.order, e.defaultContext, active)
	if err != nil {
		return fmt.Errorf("restore ensemble: %w", err)
	}
	for ctx, stats := range snap.Contexts {
		set, ok := fresh.contexts[ctx]
		if !ok {
			e.log.Warn("snapshot has unknown context", slog.String("context", ctx))
			continue
		}
		for name, st := range stats {
			s, ok := set[name]
			if !ok {
				continue
			}
			if err := s.Restore(st); err != nil {
				return fmt.Errorf("restore ensemble %s/%s: %w", ctx, name, err)
			}
		}
	}
	e.active = fresh.active
	e.contexts = fresh.contexts
	e.sources = fresh.sources
	return nil
}

func restoreSeed(seed uint64, snap Snapshot) uint64 {
	var pulls uint64
	for _, set := range snap.Contexts {
		for _, st := range set {
			pulls += uint64(max(st.TotalPulls, 0))
		}
	}
	return seed ^ (pulls * 0x9e3779b97f4a7c15)
}

// RNGState encodes the random source of every strategy.
func (e *Ensemble) RNGState() (RNGState, error) {
	out := make(RNGState, len(e.sources))
	for ctx, srcs := range e.sources {
		m := make(map[string][]byte, len(srcs))
		for name, src := range srcs {
			b, err := src.MarshalBinary()
			if err != nil {
				return nil, fmt.Errorf("encode rng %s/%s: %w", ctx, name, err)
			}
			m[name] = b
		}
		out[ctx] = m
	}
	return out, nil
}

// RestoreRNG resumes the random sources saved by RNGState. Sources missing
// from st keep their current state. On error nothing changes.
func (e *Ensemble) RestoreRNG(st RNGState) error {
	decoded := make(map[*rand.PCG]*rand.PCG)
	for ctx, states := range st {
		srcs, ok := e.sources[ctx]
		if !ok {
			continue
		}
		for name, b := range states {
			src, ok := srcs[name]
			if !ok {
				continue
			}
			var next rand.PCG
			if err := next.UnmarshalBinary(b); err != nil {
				return fmt.Errorf("restore rng %s/%s: %w", ctx, name, err)
			}
			decoded[src] = &next
		}
	}
	for src, next := range decoded {
		*src = *next
	}
	return nil
}

// #endregion snapshot
