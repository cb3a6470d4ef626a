package affordance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	catalog := DefaultCatalog()
	require.Equal(t, len(catalog), r.RegisterAll(catalog))
	return r
}

func TestRegister_Rejections(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.Register("ui-x", nil))
	assert.False(t, r.Register("", &Affordance{Capabilities: []string{"a"}}))
	assert.False(t, r.Register("ui-x", &Affordance{}))
	assert.True(t, r.Register("ui-x", &Affordance{Capabilities: []string{"a"}}))
	assert.False(t, r.Register("ui-x", &Affordance{Capabilities: []string{"b"}}), "duplicate tag")

	assert.Equal(t, 1, r.Len())
	a, ok := r.Lookup("ui-x")
	require.True(t, ok)
	assert.Equal(t, "ui-x", a.Tag)
	assert.Equal(t, []string{"a"}, a.Capabilities)
}

func TestIndices_KeepRegistrationOrder(t *testing.T) {
	r := defaultRegistry(t)

	assert.Equal(t, []string{"ui-product-grid", "ui-product-card", "ui-recommendation-strip"}, r.ByCapability("display-product"))
	assert.Contains(t, r.ByContext("blog"), "ui-article-view")
	assert.Equal(t, []string{"ui-compare-table"}, r.ByGoal("compare")[len(r.ByGoal("compare"))-1:])
	assert.Empty(t, r.ByCapability("teleport"))

	all := r.All()
	require.Len(t, all, len(DefaultCatalog()))
	assert.Equal(t, "ui-site-header", all[0].Tag)
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	r := defaultRegistry(t)

	a, _ := r.Lookup("ui-kpi-card")
	a.Capabilities[0] = "mutated"
	a.StyleTokens["emphasis"] = "mutated"

	again, _ := r.Lookup("ui-kpi-card")
	assert.Equal(t, "display-metric", again.Capabilities[0])
	assert.Equal(t, "numeric", again.StyleTokens["emphasis"])

	idx := r.ByCapability("display-metric")
	idx[0] = "mutated"
	assert.Equal(t, "ui-kpi-card", r.ByCapability("display-metric")[0])
}

func TestSnapshot(t *testing.T) {
	r := defaultRegistry(t)
	snap := r.Snapshot()

	assert.Equal(t, r.Len(), snap.Len())
	assert.True(t, snap.Has("ui-product-grid"))
	assert.False(t, snap.Has("ui-missing"))
	got, ok := snap.Get("ui-chart-panel")
	require.True(t, ok)
	assert.Equal(t, 11, got.Priority)

	r.Register("ui-late", &Affordance{Capabilities: []string{"x"}})
	assert.False(t, snap.Has("ui-late"), "snapshot is detached from later registrations")
}

func TestInferCapabilities(t *testing.T) {
	assert.Equal(t, []string{"display-metric", "real-time-update", "sparkline"}, InferCapabilities("kpi-1"))
	assert.Equal(t,
		[]string{"content-list", "infinite-scroll", "timeline", "real-time-update"},
		InferCapabilities("activity-feed"))
	assert.Equal(t, []string{"comparison", "tabular-data", "sortable"}, InferCapabilities("compare-table"))
	assert.Equal(t, []string{DefaultCapability}, InferCapabilities("mystery-box"))
}

func TestFindBestMatch(t *testing.T) {
	r := defaultRegistry(t)
	dash := intent.Intent{Domain: intent.DomainDashboard, Goal: intent.GoalKPIFocus}
	shop := intent.Intent{Domain: intent.DomainEcommerce, Goal: intent.GoalBrowse}

	assert.Equal(t, "ui-kpi-card", r.FindBestMatch("kpi-2", dash))
	assert.Equal(t, "ui-chart-panel", r.FindBestMatch("chart-main", dash))
	assert.Equal(t, "ui-product-grid", r.FindBestMatch("products", shop))
	assert.Equal(t, "ui-cart-summary", r.FindBestMatch("cart-summary", shop))
	assert.Equal(t, FallbackTag, r.FindBestMatch("mystery-box", shop))
}

func TestFindBestMatch_DirectIndexHit(t *testing.T) {
	r := NewRegistry()
	r.Register("x-banner", &Affordance{Capabilities: []string{"hero-media"}})
	r.Register("x-splash", &Affordance{Capabilities: []string{"splash"}})

	assert.Equal(t, "x-splash", r.FindBestMatch("splash", intent.Intent{}))
	assert.Equal(t, "x-banner", r.FindBestMatch("hero", intent.Intent{}))
}

func TestFindBestMatch_EmptyRegistry(t *testing.T) {
	assert.Equal(t, FallbackTag, NewRegistry().FindBestMatch("products", intent.Intent{}))
}

func TestParseCatalog(t *testing.T) {
	yamlDoc := `
components:
  - tag: x-stat
    capabilities: [display-metric]
    contexts: [dashboard]
    priority: 4
  - tag: x-list
    capabilities: [content-list]
`
	got, err := ParseCatalog([]byte(yamlDoc), ".yml")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "x-stat", got[0].Tag)
	assert.Equal(t, 4, got[0].Priority)

	jsonDoc := `{"components":[{"tag":"x-json","capabilities":["a"],"goals":["read"]}]}`
	got, err = ParseCatalog([]byte(jsonDoc), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, got[0].Goals)

	_, err = ParseCatalog([]byte(`components: [{capabilities: [a]}]`), ".yaml")
	require.ErrorContains(t, err, "no tag")
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"components":[{"tag":"x-a","capabilities":["a"]}]}`), 0o644))

	got, err := LoadCatalog(path)
	require.NoError(t, err)
	r := NewRegistry()
	assert.Equal(t, 1, r.RegisterAll(got))

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
