package intent

// synonyms maps canonicalized free-form values to category members, per field.
// Review this table whenever a category list in fields changes: an unmapped
// synonym silently becomes "unknown" and encodes as a zero slice.
var synonyms = map[string]map[string]string{
	"domain": {
		"e-commerce": "ecommerce",
		"ecom":       "ecommerce",
		"shop":       "ecommerce",
		"store":      "ecommerce",
		"shopping":   "ecommerce",
		"dash":       "dashboard",
		"analytics":  "dashboard",
		"admin":      "dashboard",
		"news":       "blog",
		"articles":   "blog",
		"journal":    "blog",
	},
	"goal": {
		"kpi":        "kpi-focus",
		"kpis":       "kpi-focus",
		"kpifocus":   "kpi-focus",
		"metrics":    "kpi-focus",
		"monitor":    "kpi-focus",
		"buy":        "checkout",
		"purchase":   "checkout",
		"pay":        "checkout",
		"explore":    "browse",
		"discover":   "browse",
		"comparison": "compare",
		"versus":     "compare",
		"vs":         "compare",
		"reading":    "read",
		"article":    "read",
	},
	"density": {
		"dense":       "compact",
		"tight":       "compact",
		"small":       "compact",
		"normal":      "medium",
		"default":     "medium",
		"regular":     "medium",
		"spacious":    "cozy",
		"comfortable": "cozy",
		"relaxed":     "cozy",
		"roomy":       "cozy",
	},
	"persona": {
		"first-time": "new",
		"newcomer":   "new",
		"guest":      "new",
		"repeat":     "returning",
		"regular":    "returning",
		"expert":     "power",
		"advanced":   "power",
		"pro":        "power",
	},
	"device": {
		"phone":      "mobile",
		"smartphone": "mobile",
		"handheld":   "mobile",
		"ipad":       "tablet",
		"tab":        "tablet",
		"pc":         "desktop",
		"laptop":     "desktop",
		"computer":   "desktop",
		"web":        "desktop",
	},
	"accent": {
		"blue":    "cool",
		"cold":    "cool",
		"orange":  "warm",
		"red":     "warm",
		"grey":    "neutral",
		"gray":    "neutral",
		"default": "neutral",
	},
}
