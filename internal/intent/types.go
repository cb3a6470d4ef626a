// Package intent normalizes loose user-intent input into closed category
// sets and encodes it as a fixed-length one-hot state vector.
package intent

// #region enums

// Domain is the product surface a layout is generated for. It doubles as the
// bandit context.
type Domain string

const (
	DomainUnknown   Domain = ""
	DomainDashboard Domain = "dashboard"
	DomainBlog      Domain = "blog"
	DomainEcommerce Domain = "ecommerce"
)

// Goal is what the user is trying to do on the page.
type Goal string

const (
	GoalUnknown  Goal = ""
	GoalBrowse   Goal = "browse"
	GoalCompare  Goal = "compare"
	GoalCheckout Goal = "checkout"
	GoalKPIFocus Goal = "kpi-focus"
	GoalRead     Goal = "read"
)

// Density is the requested information density.
type Density string

const (
	DensityUnknown Density = ""
	DensityCompact Density = "compact"
	DensityMedium  Density = "medium"
	DensityCozy    Density = "cozy"
)

// Persona is the user's familiarity with the product.
type Persona string

const (
	PersonaUnknown   Persona = ""
	PersonaNew       Persona = "new"
	PersonaReturning Persona = "returning"
	PersonaPower     Persona = "power"
)

// Device is the rendering device class.
type Device string

const (
	DeviceUnknown Device = ""
	DeviceMobile  Device = "mobile"
	DeviceTablet  Device = "tablet"
	DeviceDesktop Device = "desktop"
)

// Accent is the color temperature of the theme.
type Accent string

const (
	AccentUnknown Accent = ""
	AccentCool    Accent = "cool"
	AccentWarm    Accent = "warm"
	AccentNeutral Accent = "neutral"
)

// #endregion enums

// #region intent

// Intent is a normalized rendering request. Every field is either one of the
// declared constants or the empty "unknown" variant.
type Intent struct {
	Domain  Domain  `json:"domain"`
	Goal    Goal    `json:"goal"`
	Density Density `json:"density"`
	Persona Persona `json:"persona"`
	Device  Device  `json:"device"`
	Accent  Accent  `json:"accent"`
}

// Raw is the loose boundary shape: free-form strings, any of which may be empty.
type Raw struct {
	Domain  string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Goal    string `json:"goal,omitempty" yaml:"goal,omitempty"`
	Density string `json:"density,omitempty" yaml:"density,omitempty"`
	Persona string `json:"persona,omitempty" yaml:"persona,omitempty"`
	Device  string `json:"device,omitempty" yaml:"device,omitempty"`
	Accent  string `json:"accent,omitempty" yaml:"accent,omitempty"`
}

// Raw converts a normalized intent back to the boundary shape.
func (in Intent) Raw() Raw {
	return Raw{
		Domain:  string(in.Domain),
		Goal:    string(in.Goal),
		Density: string(in.Density),
		Persona: string(in.Persona),
		Device:  string(in.Device),
		Accent:  string(in.Accent),
	}
}

// Diagnostic reports a field value that could not be mapped to its category set.
type Diagnostic struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// #endregion intent

// #region defaults

// Defaults are applied to absent fields before normalization.
type Defaults = Raw

// DefaultDefaults returns the stock fill-ins used by the decision service.
func DefaultDefaults() Defaults {
	return Defaults{
		Domain:  string(DomainDashboard),
		Goal:    string(GoalBrowse),
		Density: string(DensityMedium),
		Persona: string(PersonaNew),
		Device:  string(DeviceDesktop),
		Accent:  string(AccentNeutral),
	}
}

// ApplyDefaults fills empty fields of r from d. Present values are kept as-is,
// including values that will later fail to normalize.
func ApplyDefaults(r Raw, d Defaults) Raw {
	fill := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return Raw{
		Domain:  fill(r.Domain, d.Domain),
		Goal:    fill(r.Goal, d.Goal),
		Density: fill(r.Density, d.Density),
		Persona: fill(r.Persona, d.Persona),
		Device:  fill(r.Device, d.Device),
		Accent:  fill(r.Accent, d.Accent),
	}
}

// #endregion defaults
