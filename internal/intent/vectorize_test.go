package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorLenMatchesCategorySets(t *testing.T) {
	assert.Equal(t, 20, VectorLen)

	total := 0
	for _, f := range Fields() {
		lo, hi, ok := SliceBounds(f.Name)
		require.True(t, ok, f.Name)
		assert.Equal(t, f.Offset, lo)
		assert.Equal(t, len(f.Categories), hi-lo)
		total += len(f.Categories)
	}
	assert.Equal(t, VectorLen, total)

	_, _, ok := SliceBounds("mood")
	assert.False(t, ok)
}

func TestVectorize_AllValidIntentsAreOneHotPerField(t *testing.T) {
	fs := Fields()
	count := 0
	for _, d := range fs[0].Categories {
		for _, g := range fs[1].Categories {
			for _, dev := range fs[4].Categories {
				in, diags := Normalize(Raw{Domain: d, Goal: g, Density: "medium", Persona: "power", Device: dev, Accent: "warm"})
				require.Empty(t, diags)
				vec := Vectorize(in)
				require.Len(t, vec, VectorLen)
				for _, f := range fs {
					sum := 0.0
					for _, x := range vec[f.Offset : f.Offset+len(f.Categories)] {
						sum += x
					}
					assert.Equal(t, 1.0, sum, "field %s", f.Name)
				}
				count++
			}
		}
	}
	assert.Equal(t, 3*5*3, count)
}

func TestVectorize_UnknownFieldIsZeroSlice(t *testing.T) {
	vec, diags := VectorizeRaw(Raw{Domain: "spaceship", Goal: "read", Density: "cozy", Persona: "new", Device: "toaster", Accent: "cool"})
	require.Len(t, vec, VectorLen)
	require.Len(t, diags, 2)
	assert.Equal(t, Diagnostic{Field: "domain", Value: "spaceship"}, diags[0])
	assert.Equal(t, Diagnostic{Field: "device", Value: "toaster"}, diags[1])

	for _, name := range []string{"domain", "device"} {
		lo, hi, _ := SliceBounds(name)
		for i := lo; i < hi; i++ {
			assert.Zero(t, vec[i], "%s[%d]", name, i-lo)
		}
	}
	lo, _, _ := SliceBounds("goal")
	assert.Equal(t, 1.0, vec[lo+4]) // read
}

func TestVectorize_EmptyIntentIsAllZero(t *testing.T) {
	vec := Vectorize(Intent{})
	require.Len(t, vec, VectorLen)
	for _, x := range vec {
		assert.Zero(t, x)
	}
}

func TestNormalize_Synonyms(t *testing.T) {
	in, diags := Normalize(Raw{
		Domain:  "E-Commerce",
		Goal:    "KPI Focus",
		Density: "spacious",
		Persona: "Expert",
		Device:  "PC",
		Accent:  " blue ",
	})
	assert.Empty(t, diags)
	assert.Equal(t, Intent{
		Domain:  DomainEcommerce,
		Goal:    GoalKPIFocus,
		Density: DensityCozy,
		Persona: PersonaPower,
		Device:  DeviceDesktop,
		Accent:  AccentCool,
	}, in)
}

func TestApplyDefaults_FillsOnlyAbsentFields(t *testing.T) {
	r := ApplyDefaults(Raw{Domain: "blog", Device: "hologram"}, DefaultDefaults())
	assert.Equal(t, "blog", r.Domain)
	assert.Equal(t, "browse", r.Goal)
	assert.Equal(t, "hologram", r.Device, "present but unknown values are not defaulted")

	in, diags := Normalize(r)
	assert.Equal(t, DeviceUnknown, in.Device)
	assert.Len(t, diags, 1)
}

func TestIntentRawRoundTrip(t *testing.T) {
	in := Intent{Domain: DomainBlog, Goal: GoalRead, Density: DensityCompact, Persona: PersonaReturning, Device: DeviceTablet, Accent: AccentWarm}
	back, diags := Normalize(in.Raw())
	assert.Empty(t, diags)
	assert.Equal(t, in, back)
}
