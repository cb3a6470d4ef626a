package intent

import (
	"log/slog"
	"strings"

	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
)

// #region field-metadata

// FieldSpec describes one field's slice of the state vector.
type FieldSpec struct {
	Name       string
	Categories []string
	Offset     int
}

var fields = buildFields([]FieldSpec{
	{Name: "domain", Categories: []string{"dashboard", "blog", "ecommerce"}},
	{Name: "goal", Categories: []string{"browse", "compare", "checkout", "kpi-focus", "read"}},
	{Name: "density", Categories: []string{"compact", "medium", "cozy"}},
	{Name: "persona", Categories: []string{"new", "returning", "power"}},
	{Name: "device", Categories: []string{"mobile", "tablet", "desktop"}},
	{Name: "accent", Categories: []string{"cool", "warm", "neutral"}},
})

// VectorLen is the constant state vector length (3+5+3+3+3+3).
var VectorLen = fields[len(fields)-1].Offset + len(fields[len(fields)-1].Categories)

func buildFields(specs []FieldSpec) []FieldSpec {
	off := 0
	for i := range specs {
		specs[i].Offset = off
		off += len(specs[i].Categories)
	}
	return specs
}

// Fields returns the canonical field order with category lists and offsets.
func Fields() []FieldSpec {
	out := make([]FieldSpec, len(fields))
	for i, f := range fields {
		out[i] = FieldSpec{Name: f.Name, Categories: append([]string(nil), f.Categories...), Offset: f.Offset}
	}
	return out
}

// SliceBounds returns the [lo, hi) range of a field in the state vector.
func SliceBounds(field string) (lo, hi int, ok bool) {
	for _, f := range fields {
		if f.Name == field {
			return f.Offset, f.Offset + len(f.Categories), true
		}
	}
	return 0, 0, false
}

// #endregion field-metadata

// #region normalize

// Canonicalize lowercases, trims and joins words with hyphens.
func Canonicalize(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.NewReplacer("_", "-", " ", "-").Replace(v)
	return v
}

func lookup(field, raw string) (string, bool) {
	if raw == "" {
		return "", true
	}
	v := Canonicalize(raw)
	for _, f := range fields {
		if f.Name != field {
			continue
		}
		for _, c := range f.Categories {
			if c == v {
				return c, true
			}
		}
	}
	if mapped, ok := synonyms[field][v]; ok {
		return mapped, true
	}
	return "", false
}

// Normalize maps a raw intent onto the closed category sets. Unmapped values
// become the unknown variant and are reported as diagnostics; this never fails.
func Normalize(r Raw) (Intent, []Diagnostic) {
	var diags []Diagnostic
	get := func(field, raw string) string {
		v, ok := lookup(field, raw)
		if !ok {
			diags = append(diags, Diagnostic{Field: field, Value: raw})
		}
		return v
	}
	in := Intent{
		Domain:  Domain(get("domain", r.Domain)),
		Goal:    Goal(get("goal", r.Goal)),
		Density: Density(get("density", r.Density)),
		Persona: Persona(get("persona", r.Persona)),
		Device:  Device(get("device", r.Device)),
		Accent:  Accent(get("accent", r.Accent)),
	}
	if len(diags) > 0 {
		log := logging.New("intent")
		for _, d := range diags {
			log.Warn("unknown intent value", slog.String("field", d.Field), slog.String("value", d.Value))
		}
	}
	return in, diags
}

// #endregion normalize

// #region vectorize

// Vectorize one-hot encodes the intent. Unknown fields encode as zero slices;
// the result always has length VectorLen.
func Vectorize(in Intent) []float64 {
	vec := make([]float64, VectorLen)
	values := [...]string{
		string(in.Domain), string(in.Goal), string(in.Density),
		string(in.Persona), string(in.Device), string(in.Accent),
	}
	for i, f := range fields {
		for j, c := range f.Categories {
			if values[i] == c {
				vec[f.Offset+j] = 1
				break
			}
		}
	}
	return vec
}

// VectorizeRaw normalizes then vectorizes.
func VectorizeRaw(r Raw) ([]float64, []Diagnostic) {
	in, diags := Normalize(r)
	return Vectorize(in), diags
}

// #endregion vectorize
