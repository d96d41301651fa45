package suggest

import (
	"sort"

	"github.com/oklog/ulid/v2"

	"github.com/HendryAvila/docsmith/internal/document"
)

// Generator runs an ordered list of rules over a document snapshot.
type Generator struct {
	rules []Rule
	newID func() string
}

// Option configures a Generator.
type Option func(*Generator)

// WithIDFunc overrides the suggestion id source. Ids must never repeat
// for the lifetime of the process.
func WithIDFunc(fn func() string) Option {
	return func(g *Generator) { g.newID = fn }
}

// NewGenerator creates a generator over rules, applied in the given order.
func NewGenerator(rules []Rule, opts ...Option) *Generator {
	g := &Generator{
		rules: rules,
		newID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Default returns the baseline generator: contraction expansion, then
// long-passage shortening with the given word thresholds.
func Default(longPassageWords, keepWords int, opts ...Option) *Generator {
	return NewGenerator([]Rule{
		NewContractionRule(),
		NewShortenRule(longPassageWords, keepWords),
	}, opts...)
}

// Rules returns the names of the registered rules in order.
func (g *Generator) Rules() []string {
	names := make([]string, len(g.rules))
	for i, r := range g.rules {
		names[i] = r.Name()
	}
	return names
}

// Generate returns suggestions ordered by unit index, then start offset,
// then rule registration order. Every suggestion gets a fresh id. Findings
// a rule reports outside the unit bounds are dropped, so every returned
// suggestion validates against snap.Units.
func (g *Generator) Generate(snap document.Snapshot, instruction string) []Suggestion {
	var active []Rule
	for _, r := range g.rules {
		if r.Triggered(instruction) {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return []Suggestion{}
	}

	out := []Suggestion{}
	for idx, text := range snap.Units {
		var unit []Suggestion
		for _, r := range active {
			for _, m := range r.Match(text) {
				s := Suggestion{
					UnitIndex: idx,
					Start:     m.Start,
					End:       m.End,
					Original:  m.Original,
					Proposed:  m.Proposed,
					Rationale: m.Rationale,
					Rule:      r.Name(),
				}
				if s.checkSpan(snap.Units) != nil {
					continue
				}
				unit = append(unit, s)
			}
		}
		sort.SliceStable(unit, func(i, j int) bool { return unit[i].Start < unit[j].Start })
		out = append(out, unit...)
	}

	for i := range out {
		out[i].ID = g.newID()
	}
	return out
}
