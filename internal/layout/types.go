package layout

import "github.com/danielpatrickdp/adaptive-layout/internal/intent"

// Size tiers.
const (
	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeLarge  = "large"
	SizeXLarge = "xlarge"
	SizeFull   = "full"
)

// #region layout
// Layout is the generated structural description of a page. Layouts are
// cached and shared between callers; treat them as read-only.
type Layout struct {
	ID        string    `json:"id"`
	Structure Structure `json:"structure"`
	Slots     []Slot    `json:"slots"`
	Grid      Grid      `json:"grid"`
	Spacing   Spacing   `json:"spacing"`
	Metadata  Metadata  `json:"metadata"`
}

// Structure is the named arrangement and its ordered regions.
type Structure struct {
	Type    string   `json:"type"`
	Regions []Region `json:"regions"`
}

// Region is one named area of the page.
type Region struct {
	Name     string `json:"name"`
	Size     string `json:"size"`
	Priority int    `json:"priority"`
	Count    int    `json:"count,omitempty"`
	Columns  int    `json:"columns,omitempty"`
}

// Slot is a region as seen by the composer: a placeholder for exactly one
// component, with the capabilities and sizing it needs.
type Slot struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
	Size         string   `json:"size"`
	Priority     int      `json:"priority"`
	MinWidth     int      `json:"min_width"`
	MaxWidth     int      `json:"max_width,omitempty"` // 0 means unbounded
	AspectRatio  string   `json:"aspect_ratio"`
	Count        int      `json:"count,omitempty"`
}

// Grid describes the primary item grid.
type Grid struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
	Gap  int `json:"gap"`
}

// Spacing is the spacing scale in pixels.
type Spacing struct {
	Base      int `json:"base"`
	Section   int `json:"section"`
	Component int `json:"component"`
	Element   int `json:"element"`
}

// Metadata records what the layout was generated from. Intent is the
// request that first populated the cache entry.
type Metadata struct {
	Intent   intent.Intent `json:"intent"`
	Action   int           `json:"action"`
	Params   Params        `json:"params"`
	CacheKey string        `json:"cache_key"`
}

// Params are the variation parameters that shaped the primary content.
type Params struct {
	Variation    bool   `json:"variation"`
	PrimaryCount int    `json:"primary_count"`
	ItemSize     string `json:"item_size"`
	Columns      int    `json:"columns"`
	Style        string `json:"style"`
}

// #endregion layout
