// Package compose assigns a registered component to every slot of a
// layout, by explicit override for well-known slots and by multi-criteria
// scoring otherwise.
package compose

import (
	"fmt"
	"slices"
	"strings"

	"github.com/danielpatrickdp/adaptive-layout/internal/affordance"
	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
	"github.com/danielpatrickdp/adaptive-layout/internal/layout"
)

// FallbackScore is the score reported for fallback assignments.
const FallbackScore = 1

// #region types
// Assignment binds one slot to one component.
type Assignment struct {
	Slot      string         `json:"slot"`
	Component string         `json:"component"`
	Props     map[string]any `json:"props"`
	Priority  int            `json:"priority"`
	Metadata  AssignmentMeta `json:"metadata"`
}

// AssignmentMeta explains an assignment.
type AssignmentMeta struct {
	Score        float64  `json:"score"`
	Capabilities []string `json:"capabilities"`
	Reasoning    string   `json:"reasoning"`
}

// Composition is the ordered result of Compose, highest priority first.
type Composition []Assignment

// Source provides the registry snapshot the composer reads.
type Source interface {
	Snapshot() affordance.Snapshot
}

// #endregion types

// #region overrides
// overrides resolve well-known slots without scoring, when the tag is registered.
var overrides = map[string]string{
	"products": "ui-product-grid",
	"feed":     "ui-content-feed",
	"filters":  "ui-filter-panel",
	"navbar":   "ui-nav-bar",
	"hero":     "ui-hero-banner",
	"header":   "ui-site-header",
}

// slotBase strips a numeric suffix from a slot name ("kpi-2" -> "kpi").
func slotBase(name string) string {
	return strings.Trim(numericSuffix.ReplaceAllString(strings.ToLower(name), ""), "-")
}

// #endregion overrides

// #region composer
// Composer matches layout slots to components.
type Composer struct {
	source Source
}

// NewComposer returns a composer reading from source.
func NewComposer(source Source) *Composer {
	return &Composer{source: source}
}

// Compose assigns a component to every slot of l. It reads one registry
// snapshot and has no side effects.
func (c *Composer) Compose(l *layout.Layout, in intent.Intent) Composition {
	if l == nil {
		return Composition{}
	}
	var snap affordance.Snapshot
	if c.source != nil {
		snap = c.source.Snapshot()
	}

	out := make(Composition, 0, len(l.Slots))
	for _, slot := range l.Slots {
		out = append(out, assign(slot, in, snap))
	}
	slices.SortStableFunc(out, func(a, b Assignment) int { return b.Priority - a.Priority })
	return out
}

type scored struct {
	entry affordance.Affordance
	score float64
}

func assign(slot layout.Slot, in intent.Intent, snap affordance.Snapshot) Assignment {
	if tag, ok := overrides[slotBase(slot.Name)]; ok {
		if a, ok := snap.Get(tag); ok {
			return newAssignment(slot, in, a, Score(slot, a, in), "override: "+slotBase(slot.Name)+" -> "+tag)
		}
	}

	var candidates []scored
	for _, a := range snap.Entries {
		if overlap(slot.Capabilities, a.Capabilities) == 0 && NameBonus(slot.Name, a.Tag) == 0 {
			continue
		}
		candidates = append(candidates, scored{entry: a, score: Score(slot, a, in)})
	}
	if len(candidates) == 0 {
		return Assignment{
			Slot:      slot.Name,
			Component: affordance.FallbackTag,
			Props:     props(slot, in, nil),
			Priority:  slot.Priority,
			Metadata: AssignmentMeta{
				Score:        FallbackScore,
				Capabilities: append([]string(nil), slot.Capabilities...),
				Reasoning:    "no candidates; fallback",
			},
		}
	}

	// stable: equal scores keep registration order
	slices.SortStableFunc(candidates, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})
	best := candidates[0]
	reason := fmt.Sprintf("best of %d candidates: %s", len(candidates), explain(slot, best.entry, in))
	return newAssignment(slot, in, best.entry, best.score, reason)
}

func newAssignment(slot layout.Slot, in intent.Intent, a affordance.Affordance, score float64, reason string) Assignment {
	return Assignment{
		Slot:      slot.Name,
		Component: a.Tag,
		Props:     props(slot, in, a.StyleTokens),
		Priority:  slot.Priority,
		Metadata: AssignmentMeta{
			Score:        score,
			Capabilities: append([]string(nil), a.Capabilities...),
			Reasoning:    reason,
		},
	}
}

func props(slot layout.Slot, in intent.Intent, style map[string]string) map[string]any {
	p := map[string]any{
		"size":         slot.Size,
		"min_width":    slot.MinWidth,
		"aspect_ratio": slot.AspectRatio,
	}
	if slot.MaxWidth > 0 {
		p["max_width"] = slot.MaxWidth
	}
	if slot.Count > 0 {
		p["count"] = slot.Count
	}
	if in.Density != intent.DensityUnknown {
		p["density"] = string(in.Density)
	}
	if in.Accent != intent.AccentUnknown {
		p["accent"] = string(in.Accent)
	}
	if len(style) > 0 {
		s := make(map[string]string, len(style))
		for k, v := range style {
			s[k] = v
		}
		p["style"] = s
	}
	return p
}

// #endregion composer

// #region scoring
// Score rates how well component a fits slot for in, in [0, 100]:
// capability overlap (40), context (25, or 10 if a declares none),
// goal (20, or 8 if a declares none), priority (up to 15) and name
// resemblance (up to 25).
func Score(slot layout.Slot, a affordance.Affordance, in intent.Intent) float64 {
	var s float64
	if n := len(slot.Capabilities); n > 0 {
		s += float64(overlap(slot.Capabilities, a.Capabilities)) / float64(n) * 40
	}
	switch {
	case len(a.Contexts) == 0:
		s += 10
	case slices.Contains(a.Contexts, string(in.Domain)):
		s += 25
	}
	switch {
	case len(a.Goals) == 0:
		s += 8
	case slices.Contains(a.Goals, string(in.Goal)):
		s += 20
	}
	s += float64(max(0, min(a.Priority, 15)))
	s += NameBonus(slot.Name, a.Tag)
	return max(0, min(s, 100))
}

func overlap(want, have []string) int {
	n := 0
	for _, c := range want {
		if slices.Contains(have, c) {
			n++
		}
	}
	return n
}

func explain(slot layout.Slot, a affordance.Affordance, in intent.Intent) string {
	parts := []string{fmt.Sprintf("overlap %d/%d", overlap(slot.Capabilities, a.Capabilities), len(slot.Capabilities))}
	if slices.Contains(a.Contexts, string(in.Domain)) {
		parts = append(parts, "context match")
	}
	if slices.Contains(a.Goals, string(in.Goal)) {
		parts = append(parts, "goal match")
	}
	if b := NameBonus(slot.Name, a.Tag); b > 0 {
		parts = append(parts, fmt.Sprintf("name bonus %.0f", b))
	}
	return strings.Join(parts, ", ")
}

// #endregion scoring
