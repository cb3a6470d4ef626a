package compose

import (
	"regexp"
	"slices"
	"strings"
)

// #region normalize
var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	numericSuffix = regexp.MustCompile(`-?[0-9]+$`)
	namePrefixes  = []string{"ui-", "x-", "app-", "my-"}
)

// Normalize lowercases a slot name or component tag, converts camelCase to
// kebab-case, and strips well-known prefixes and any numeric suffix.
func Normalize(s string) string {
	s = camelBoundary.ReplaceAllString(strings.TrimSpace(s), "$1-$2")
	s = strings.ToLower(strings.ReplaceAll(s, "_", "-"))
	for _, p := range namePrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimPrefix(s, p)
			break
		}
	}
	return strings.Trim(numericSuffix.ReplaceAllString(s, ""), "-")
}

// tokens splits a normalized name into singular tokens.
func tokens(s string) []string {
	var out []string
	for _, t := range strings.Split(Normalize(s), "-") {
		t = singular(t)
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

var irregular = map[string]string{
	"stories":    "story",
	"categories": "category",
	"entries":    "entry",
	"news":       "news",
	"status":     "status",
	"analytics":  "analytics",
}

func singular(t string) string {
	if s, ok := irregular[t]; ok {
		return s
	}
	switch {
	case strings.HasSuffix(t, "ies") && len(t) > 4:
		return strings.TrimSuffix(t, "ies") + "y"
	case strings.HasSuffix(t, "ss"):
		return t
	case strings.HasSuffix(t, "s") && len(t) > 3:
		return strings.TrimSuffix(t, "s")
	}
	return t
}

// #endregion normalize

// #region synonyms
// synonymGroups maps a token to the head of its semantic group.
var synonymGroups = func() map[string]string {
	groups := [][]string{
		{"kpi", "metric", "stat"},
		{"product", "tile", "card", "item"},
		{"feed", "list", "stream"},
		{"chart", "graph", "plot"},
		{"nav", "navbar", "navigation", "menu"},
		{"filter", "facet"},
		{"article", "post", "story"},
		{"hero", "banner"},
		{"header", "masthead"},
	}
	m := make(map[string]string)
	for _, g := range groups {
		for _, t := range g {
			m[t] = g[0]
		}
	}
	return m
}()

func canonical(t string) string {
	if head, ok := synonymGroups[t]; ok {
		return head
	}
	return t
}

// #endregion synonyms

// #region name-bonus
const maxNameBonus = 25

// NameBonus rewards a component tag whose name resembles the slot name:
// exact token matches, synonym matches and two golden pairings
// (products with a product grid, feeds with grid or masonry layouts).
// The result is in [0, 25].
func NameBonus(slotName, tag string) float64 {
	st, tt := tokens(slotName), tokens(tag)
	if len(st) == 0 || len(tt) == 0 {
		return 0
	}
	if slices.Contains(st, "product") && slices.Contains(tt, "product") && slices.Contains(tt, "grid") {
		return maxNameBonus
	}

	bonus := 0
	if slices.Contains(st, "feed") && (slices.Contains(tt, "grid") || slices.Contains(tt, "masonry")) {
		bonus += 15
	}
	for _, s := range st {
		for _, t := range tt {
			switch {
			case s == t:
				bonus += 12
			case canonical(s) == canonical(t):
				bonus += 8
			}
		}
	}
	return float64(min(bonus, maxNameBonus))
}

// #endregion name-bonus
