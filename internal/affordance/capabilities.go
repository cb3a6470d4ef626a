package affordance

import "strings"

// FallbackTag is the component used when nothing else matches.
const FallbackTag = "ui-generic-card"

// DefaultCapability is inferred for slot names that match no rule.
const DefaultCapability = "display-content"

// #region inference
type capabilityRule struct {
	substr string
	caps   []string
}

// capabilityRules maps slot-name substrings to capabilities, in match order.
var capabilityRules = []capabilityRule{
	{"kpi", []string{"display-metric", "real-time-update", "sparkline"}},
	{"chart", []string{"data-visualization", "time-series", "interactive"}},
	{"product", []string{"display-product", "add-to-cart", "image"}},
	{"feed", []string{"content-list", "infinite-scroll", "timeline"}},
	{"filter", []string{"filter-controls", "faceted-search"}},
	{"nav", []string{"navigation", "links"}},
	{"header", []string{"branding", "navigation"}},
	{"hero", []string{"hero-media", "call-to-action"}},
	{"cart", []string{"cart-summary", "checkout-action"}},
	{"compare", []string{"comparison", "tabular-data"}},
	{"table", []string{"tabular-data", "sortable"}},
	{"article", []string{"long-form-text", "typography"}},
	{"sidebar", []string{"secondary-content", "links"}},
	{"activity", []string{"content-list", "timeline", "real-time-update"}},
	{"recommend", []string{"display-product", "personalization"}},
	{"newsletter", []string{"form-input", "call-to-action"}},
}

// InferCapabilities returns the capabilities implied by a slot name. Every
// matching rule contributes, duplicates are dropped, and a name matching no
// rule yields DefaultCapability.
func InferCapabilities(slotName string) []string {
	name := strings.ToLower(slotName)
	var out []string
	seen := map[string]bool{}
	for _, r := range capabilityRules {
		if !strings.Contains(name, r.substr) {
			continue
		}
		for _, c := range r.caps {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	if len(out) == 0 {
		return []string{DefaultCapability}
	}
	return out
}

// #endregion inference
