package affordance

// #region affordance
// Affordance is the static capability descriptor of one UI component.
type Affordance struct {
	Tag          string            `json:"tag" yaml:"tag"`
	Capabilities []string          `json:"capabilities" yaml:"capabilities"`
	Contexts     []string          `json:"contexts,omitempty" yaml:"contexts,omitempty"`
	Goals        []string          `json:"goals,omitempty" yaml:"goals,omitempty"`
	Priority     int               `json:"priority" yaml:"priority"`
	StyleTokens  map[string]string `json:"style_tokens,omitempty" yaml:"style_tokens,omitempty"`
}

func (a Affordance) clone() Affordance {
	a.Capabilities = append([]string(nil), a.Capabilities...)
	a.Contexts = append([]string(nil), a.Contexts...)
	a.Goals = append([]string(nil), a.Goals...)
	if a.StyleTokens != nil {
		tokens := make(map[string]string, len(a.StyleTokens))
		for k, v := range a.StyleTokens {
			tokens[k] = v
		}
		a.StyleTokens = tokens
	}
	return a
}

// #endregion affordance

// #region snapshot
// Snapshot is a read-only copy of a registry, in registration order.
type Snapshot struct {
	Entries []Affordance `json:"entries"`
	index   map[string]int
}

// Get returns the entry for tag.
func (s Snapshot) Get(tag string) (Affordance, bool) {
	i, ok := s.index[tag]
	if !ok {
		return Affordance{}, false
	}
	return s.Entries[i], true
}

// Has reports whether tag is registered.
func (s Snapshot) Has(tag string) bool {
	_, ok := s.index[tag]
	return ok
}

// Len returns the number of entries.
func (s Snapshot) Len() int { return len(s.Entries) }

// NewSnapshot builds a snapshot from entries, keeping the first of any
// duplicate tags.
func NewSnapshot(entries []Affordance) Snapshot {
	s := Snapshot{index: make(map[string]int, len(entries))}
	for _, a := range entries {
		if _, dup := s.index[a.Tag]; dup {
			continue
		}
		s.index[a.Tag] = len(s.Entries)
		s.Entries = append(s.Entries, a.clone())
	}
	return s
}

// #endregion snapshot
