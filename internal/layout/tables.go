package layout

import (
	"math"

	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
)

// #region action-tables
// variation is one row of a per-domain action table.
type variation struct {
	Count   int
	Size    string
	Columns int
	Style   string
}

// actionTables holds ten variations per domain, indexed by action.
var actionTables = map[intent.Domain][NumActions]variation{
	intent.DomainDashboard: {
		{2, SizeLarge, 2, "hero-kpis"},
		{3, SizeMedium, 3, "kpi-row"},
		{4, SizeMedium, 2, "grid-2x2"},
		{4, SizeSmall, 4, "kpi-strip"},
		{6, SizeSmall, 3, "grid-3x2"},
		{6, SizeMedium, 2, "grid-2x3"},
		{8, SizeSmall, 4, "dense-grid"},
		{1, SizeXLarge, 1, "focus-single"},
		{3, SizeLarge, 1, "stacked"},
		{5, SizeSmall, 5, "ticker"},
	},
	intent.DomainEcommerce: {
		{3, SizeLarge, 3, "showcase"},
		{4, SizeMedium, 2, "grid-2x2"},
		{6, SizeMedium, 3, "grid-3x2"},
		{8, SizeSmall, 4, "catalog"},
		{9, SizeSmall, 3, "grid-3x3"},
		{12, SizeSmall, 4, "dense-catalog"},
		{2, SizeLarge, 2, "comparison"},
		{1, SizeXLarge, 1, "spotlight"},
		{4, SizeMedium, 4, "carousel-row"},
		{6, SizeSmall, 2, "list"},
	},
	intent.DomainBlog: {
		{1, SizeXLarge, 1, "featured"},
		{3, SizeMedium, 1, "list"},
		{4, SizeMedium, 2, "grid-2x2"},
		{6, SizeSmall, 3, "magazine"},
		{2, SizeLarge, 2, "split"},
		{5, SizeSmall, 1, "compact-list"},
		{6, SizeMedium, 2, "grid-2x3"},
		{9, SizeSmall, 3, "masonry"},
		{1, SizeLarge, 1, "reader"},
		{4, SizeSmall, 4, "card-strip"},
	},
}

// NearestAction returns the action whose table row is closest to the
// heuristic layout for in. Item count weighs most, then columns, then item
// size; ties go to the lower action.
func NearestAction(in intent.Intent) int {
	domain := resolveDomain(in.Domain)
	h := heuristic(domain, deviceOf(in), densityOf(in))
	best, bestScore := 0, math.MaxInt
	for a, v := range actionTables[domain] {
		score := 4*absInt(v.Count-h.PrimaryCount) + 2*absInt(v.Columns-h.Columns)
		if v.Size != h.ItemSize {
			score++
		}
		if score < bestScore {
			best, bestScore = a, score
		}
	}
	return best
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// #endregion action-tables

// #region size-tiers
type sizeTier struct {
	MinWidth    int
	MaxWidth    int
	AspectRatio string
}

var sizeTiers = map[string]sizeTier{
	SizeSmall:  {160, 320, "1:1"},
	SizeMedium: {240, 480, "4:3"},
	SizeLarge:  {360, 720, "16:9"},
	SizeXLarge: {480, 1200, "21:9"},
	SizeFull:   {320, 0, "auto"},
}

// #endregion size-tiers

// #region spacing
var spacingScale = map[intent.Density]Spacing{
	intent.DensityCompact: {Base: 4, Section: 16, Component: 8, Element: 4},
	intent.DensityMedium:  {Base: 8, Section: 32, Component: 16, Element: 8},
	intent.DensityCozy:    {Base: 12, Section: 48, Component: 24, Element: 12},
}

// #endregion spacing
