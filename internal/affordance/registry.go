// Package affordance is the typed registry of UI component capabilities.
// Components are registered once at startup; lookups are indexed by
// capability, context and goal.
package affordance

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
)

// #region registry
// Registry stores affordances and three inverted indices over them.
type Registry struct {
	mu           sync.RWMutex
	entries      map[string]Affordance
	order        []string
	byCapability map[string][]string
	byContext    map[string][]string
	byGoal       map[string][]string
	log          *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:      make(map[string]Affordance),
		byCapability: make(map[string][]string),
		byContext:    make(map[string][]string),
		byGoal:       make(map[string][]string),
		log:          logging.New("affordance"),
	}
}

// Register adds a component. It rejects, logs and returns false for a nil
// descriptor, an empty tag, an empty capability set or an already
// registered tag. A descriptor Tag that disagrees with tag is overridden.
func (r *Registry) Register(tag string, a *Affordance) bool {
	if a == nil {
		r.log.Warn("rejecting component without affordance", slog.String("tag", tag))
		return false
	}
	if tag == "" {
		r.log.Warn("rejecting component with empty tag")
		return false
	}
	if len(a.Capabilities) == 0 {
		r.log.Warn("rejecting component without capabilities", slog.String("tag", tag))
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.entries[tag]; dup {
		r.log.Warn("component already registered", slog.String("tag", tag))
		return false
	}
	entry := a.clone()
	entry.Tag = tag
	r.entries[tag] = entry
	r.order = append(r.order, tag)
	index(r.byCapability, entry.Capabilities, tag)
	index(r.byContext, entry.Contexts, tag)
	index(r.byGoal, entry.Goals, tag)
	return true
}

// RegisterAll registers every entry under its own Tag and returns how many
// were accepted.
func (r *Registry) RegisterAll(entries []Affordance) int {
	n := 0
	for i := range entries {
		if r.Register(entries[i].Tag, &entries[i]) {
			n++
		}
	}
	return n
}

func index(idx map[string][]string, keys []string, tag string) {
	for _, k := range keys {
		if !slices.Contains(idx[k], tag) {
			idx[k] = append(idx[k], tag)
		}
	}
}

// #endregion registry

// #region lookup
// Lookup returns the affordance registered under tag.
func (r *Registry) Lookup(tag string) (Affordance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.entries[tag]
	if !ok {
		return Affordance{}, false
	}
	return a.clone(), true
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// All returns every affordance in registration order.
func (r *Registry) All() []Affordance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Affordance, 0, len(r.order))
	for _, tag := range r.order {
		out = append(out, r.entries[tag].clone())
	}
	return out
}

// ByCapability returns the tags declaring capability, in registration order.
func (r *Registry) ByCapability(capability string) []string {
	return r.indexed(r.byCapability, capability)
}

// ByContext returns the tags declaring context.
func (r *Registry) ByContext(context string) []string {
	return r.indexed(r.byContext, context)
}

// ByGoal returns the tags declaring goal.
func (r *Registry) ByGoal(goal string) []string {
	return r.indexed(r.byGoal, goal)
}

func (r *Registry) indexed(idx map[string][]string, key string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), idx[key]...)
}

// Snapshot returns a read-only copy for the composer.
func (r *Registry) Snapshot() Snapshot {
	return NewSnapshot(r.All())
}

// #endregion lookup

// #region find-best-match
// FindBestMatch picks a component for a slot outside the composer. Tags
// indexed under the slot name itself win; otherwise candidates come from
// the capabilities inferred from the slot name. Candidates are ranked by
// capability overlap, then context and goal match, then priority; ties keep
// registration order. With no candidates it returns FallbackTag.
func (r *Registry) FindBestMatch(slotName string, in intent.Intent) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if direct := r.byCapability[slotName]; len(direct) > 0 {
		return r.rankLocked(slices.Clone(direct), []string{slotName}, in)
	}

	caps := InferCapabilities(slotName)
	var candidates []string
	for _, c := range caps {
		for _, tag := range r.byCapability[c] {
			if !slices.Contains(candidates, tag) {
				candidates = append(candidates, tag)
			}
		}
	}
	if len(candidates) == 0 {
		return FallbackTag
	}
	return r.rankLocked(candidates, caps, in)
}

func (r *Registry) rankLocked(candidates, caps []string, in intent.Intent) string {
	pos := make(map[string]int, len(r.order))
	for i, tag := range r.order {
		pos[tag] = i
	}
	slices.SortStableFunc(candidates, func(a, b string) int { return pos[a] - pos[b] })

	best, bestScore := candidates[0], -1
	for _, tag := range candidates {
		a := r.entries[tag]
		score := 0
		for _, c := range caps {
			if slices.Contains(a.Capabilities, c) {
				score += 100
			}
		}
		if slices.Contains(a.Contexts, string(in.Domain)) {
			score += 20
		}
		if slices.Contains(a.Goals, string(in.Goal)) {
			score += 10
		}
		score += min(a.Priority, 9)
		if score > bestScore {
			best, bestScore = tag, score
		}
	}
	return best
}

// #endregion find-best-match
