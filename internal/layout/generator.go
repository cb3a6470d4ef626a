// Package layout turns an intent and an optional action into a structural
// page layout: regions, slots, grid and spacing. Generation is deterministic
// and cached per (domain, goal, density, device, action).
package layout

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
)

const (
	// NumActions is the number of layout actions per domain.
	NumActions = 10
	// NoAction selects the heuristic layout with no variation.
	NoAction = -1
)

var layoutNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:adaptive-layout:layout"))

// #region actions
// Valid reports whether action indexes an action table row.
func Valid(action int) bool { return action >= 0 && action < NumActions }

// ParseAction maps a loosely typed action (typically decoded JSON) to an
// action index. Only integral numbers in [0, NumActions) are accepted;
// everything else, including 3.7, "3" and nil, yields NoAction.
func ParseAction(v any) int {
	var f float64
	switch x := v.(type) {
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case float32:
		f = float64(x)
	case float64:
		f = x
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return NoAction
		}
		f = n
	case *int:
		if x == nil {
			return NoAction
		}
		f = float64(*x)
	default:
		return NoAction
	}
	if math.IsNaN(f) || f != math.Trunc(f) || !Valid(int(f)) {
		return NoAction
	}
	return int(f)
}

// #endregion actions

// #region generator
// CacheStats reports cache activity.
type CacheStats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Generator builds and caches layouts. Safe for concurrent use; concurrent
// misses on one key build the layout once.
type Generator struct {
	mu         sync.RWMutex
	cache      map[string]*Layout
	order      []string
	maxEntries int
	stats      CacheStats
	group      singleflight.Group
	log        *slog.Logger
}

// Option customizes a Generator.
type Option func(*Generator)

// WithMaxEntries bounds the cache; the oldest entry is evicted first.
// 0 means unbounded.
func WithMaxEntries(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxEntries = n
		}
	}
}

// NewGenerator returns an empty generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		cache: make(map[string]*Layout),
		log:   logging.New("layout"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CacheKey returns the cache key for an intent and action. Persona and
// accent are not part of it: they do not affect structure.
func CacheKey(in intent.Intent, action int) string {
	if !Valid(action) {
		action = NoAction
	}
	return fmt.Sprintf("%s|%s|%s|%s|%d", resolveDomain(in.Domain), in.Goal, in.Density, in.Device, action)
}

// Generate returns the layout for (in, action). Invalid actions fall back
// to the heuristic layout. Repeated calls with the same cache key return the
// same *Layout.
func (g *Generator) Generate(in intent.Intent, action int) *Layout {
	if !Valid(action) {
		action = NoAction
	}
	key := CacheKey(in, action)

	g.mu.RLock()
	l, ok := g.cache[key]
	g.mu.RUnlock()
	if ok {
		g.mu.Lock()
		g.stats.Hits++
		g.mu.Unlock()
		return l
	}

	built := false
	v, _, _ := g.group.Do(key, func() (any, error) {
		g.mu.RLock()
		l, ok := g.cache[key]
		g.mu.RUnlock()
		if ok {
			return l, nil
		}

		l = g.build(in, action, key)
		built = true

		g.mu.Lock()
		defer g.mu.Unlock()
		g.stats.Misses++
		g.cache[key] = l
		g.order = append(g.order, key)
		if g.maxEntries > 0 && len(g.order) > g.maxEntries {
			oldest := g.order[0]
			g.order = g.order[1:]
			delete(g.cache, oldest)
			g.stats.Evictions++
		}
		return l, nil
	})
	if !built {
		g.mu.Lock()
		g.stats.Hits++
		g.mu.Unlock()
	}
	return v.(*Layout)
}

// Len returns the number of cached layouts.
func (g *Generator) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cache)
}

// Stats returns cache counters.
func (g *Generator) Stats() CacheStats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.stats
	s.Entries = len(g.cache)
	return s
}

// #endregion generator

// #region build
func resolveDomain(d intent.Domain) intent.Domain {
	if _, ok := actionTables[d]; ok {
		return d
	}
	return intent.DomainDashboard
}

func (g *Generator) build(in intent.Intent, action int, key string) *Layout {
	domain := resolveDomain(in.Domain)
	if domain != in.Domain {
		g.log.Warn("unknown domain, using dashboard", slog.String("domain", string(in.Domain)))
	}

	p := paramsFor(domain, in, action)
	regions := regionsFor(domain, in, p)
	spacing := spacingScale[densityOf(in)]

	cols := max(p.Columns, 1)
	return &Layout{
		ID: uuid.NewSHA1(layoutNamespace, []byte(key)).String(),
		Structure: Structure{
			Type:    p.Style,
			Regions: regions,
		},
		Slots: slotsFor(regions),
		Grid: Grid{
			Cols: cols,
			Rows: (p.PrimaryCount + cols - 1) / cols,
			Gap:  spacing.Component,
		},
		Spacing: spacing,
		Metadata: Metadata{
			Intent:   in,
			Action:   action,
			Params:   p,
			CacheKey: key,
		},
	}
}

// #endregion build
