package affordance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// #region default-catalog
// DefaultCatalog returns the built-in component set, in registration order.
func DefaultCatalog() []Affordance {
	all := []string{"dashboard", "blog", "ecommerce"}
	return []Affordance{
		{Tag: "ui-site-header", Capabilities: []string{"branding", "navigation"}, Contexts: all, Priority: 10},
		{Tag: "ui-nav-bar", Capabilities: []string{"navigation", "links"}, Contexts: []string{"ecommerce", "blog"}, Priority: 10},
		{Tag: "ui-hero-banner", Capabilities: []string{"hero-media", "call-to-action"}, Contexts: []string{"ecommerce", "blog"}, Goals: []string{"browse"}, Priority: 8},
		{Tag: "ui-kpi-card", Capabilities: []string{"display-metric", "real-time-update", "sparkline"}, Contexts: []string{"dashboard"}, Goals: []string{"kpi-focus", "browse"}, Priority: 12,
			StyleTokens: map[string]string{"emphasis": "numeric"}},
		{Tag: "ui-metric-tile", Capabilities: []string{"display-metric"}, Contexts: []string{"dashboard"}, Goals: []string{"compare"}, Priority: 6},
		{Tag: "ui-chart-panel", Capabilities: []string{"data-visualization", "time-series", "interactive"}, Contexts: []string{"dashboard"}, Priority: 11},
		{Tag: "ui-data-table", Capabilities: []string{"tabular-data", "sortable"}, Contexts: []string{"dashboard", "ecommerce"}, Goals: []string{"compare", "browse"}, Priority: 7},
		{Tag: "ui-activity-feed", Capabilities: []string{"content-list", "timeline", "real-time-update"}, Contexts: []string{"dashboard"}, Priority: 6},
		{Tag: "ui-product-grid", Capabilities: []string{"display-product", "add-to-cart", "image"}, Contexts: []string{"ecommerce"}, Goals: []string{"browse", "compare", "checkout"}, Priority: 14},
		{Tag: "ui-product-card", Capabilities: []string{"display-product", "image"}, Contexts: []string{"ecommerce"}, Goals: []string{"browse"}, Priority: 9},
		{Tag: "ui-filter-panel", Capabilities: []string{"filter-controls", "faceted-search"}, Contexts: []string{"ecommerce"}, Goals: []string{"browse", "compare"}, Priority: 8},
		{Tag: "ui-cart-summary", Capabilities: []string{"cart-summary", "checkout-action"}, Contexts: []string{"ecommerce"}, Goals: []string{"checkout"}, Priority: 9},
		{Tag: "ui-compare-table", Capabilities: []string{"comparison", "tabular-data"}, Contexts: []string{"ecommerce"}, Goals: []string{"compare"}, Priority: 9},
		{Tag: "ui-recommendation-strip", Capabilities: []string{"display-product", "personalization"}, Contexts: []string{"ecommerce"}, Priority: 5},
		{Tag: "ui-content-feed", Capabilities: []string{"content-list", "infinite-scroll", "timeline"}, Contexts: []string{"blog"}, Goals: []string{"browse", "read"}, Priority: 12},
		{Tag: "ui-masonry-grid", Capabilities: []string{"content-list", "image"}, Contexts: []string{"blog"}, Goals: []string{"browse"}, Priority: 6},
		{Tag: "ui-article-view", Capabilities: []string{"long-form-text", "typography"}, Contexts: []string{"blog"}, Goals: []string{"read"}, Priority: 11},
		{Tag: "ui-sidebar", Capabilities: []string{"secondary-content", "links"}, Contexts: []string{"blog"}, Priority: 4},
		{Tag: "ui-newsletter-form", Capabilities: []string{"form-input", "call-to-action"}, Contexts: []string{"blog"}, Priority: 3},
		{Tag: FallbackTag, Capabilities: []string{DefaultCapability}, Priority: 1},
	}
}

// #endregion default-catalog

// #region load-catalog
// Catalog is the on-disk catalog format.
type Catalog struct {
	Components []Affordance `json:"components" yaml:"components"`
}

// LoadCatalog reads a catalog file. The format is chosen by extension
// (.yaml/.yml or .json) or, failing that, by the first non-blank character.
func LoadCatalog(path string) ([]Affordance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data, filepath.Ext(path))
}

// ParseCatalog parses catalog bytes; ext is a format hint and may be empty.
func ParseCatalog(data []byte, ext string) ([]Affordance, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == "" && strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		ext = ".json"
	}

	var c Catalog
	if ext == ".json" {
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse catalog json: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	for i, a := range c.Components {
		if a.Tag == "" {
			return nil, fmt.Errorf("parse catalog: component %d has no tag", i)
		}
	}
	return c.Components, nil
}

// #endregion load-catalog
