package session

import (
	"slices"
	"time"

	"github.com/HendryAvila/docsmith/internal/suggest"
)

// Edit is one applied replacement, recorded in the coordinates of the
// generation that produced it.
type Edit struct {
	SuggestionID string
	Unit         int
	Start        int
	End          int
	Delta        int // len(proposed) - len(original)
}

// Generation is the suggestion set produced by one analyze call, plus the
// bookkeeping of which of its suggestions have since been applied.
type Generation struct {
	Number      int
	Instruction string
	CreatedAt   time.Time

	// Units are the unit texts the suggestions were generated against.
	Units       []string
	Suggestions []suggest.Suggestion

	byID    map[string]int
	applied map[string]bool
	edits   map[int][]Edit
}

func newGeneration(number int, instruction string, units []string, suggestions []suggest.Suggestion, at time.Time) *Generation {
	g := &Generation{
		Number:      number,
		Instruction: instruction,
		CreatedAt:   at,
		Units:       slices.Clone(units),
		Suggestions: slices.Clone(suggestions),
		byID:        make(map[string]int, len(suggestions)),
		applied:     make(map[string]bool),
		edits:       make(map[int][]Edit),
	}
	for i, s := range g.Suggestions {
		g.byID[s.ID] = i
	}
	return g
}

// Lookup returns the suggestion with the given id and its position in the
// generation.
func (g *Generation) Lookup(id string) (suggest.Suggestion, int, bool) {
	i, ok := g.byID[id]
	if !ok {
		return suggest.Suggestion{}, -1, false
	}
	return g.Suggestions[i], i, true
}

// Ledger is a copy of a generation's apply history.
type Ledger struct {
	Applied map[string]bool
	Edits   map[int][]Edit // per unit, ascending Start
}

func (g *Generation) ledger() Ledger {
	l := Ledger{
		Applied: make(map[string]bool, len(g.applied)),
		Edits:   make(map[int][]Edit, len(g.edits)),
	}
	for id := range g.applied {
		l.Applied[id] = true
	}
	for u, es := range g.edits {
		l.Edits[u] = slices.Clone(es)
	}
	return l
}

func (g *Generation) record(edits []Edit) {
	for _, e := range edits {
		g.applied[e.SuggestionID] = true
		es := append(g.edits[e.Unit], e)
		slices.SortStableFunc(es, func(a, b Edit) int { return a.Start - b.Start })
		g.edits[e.Unit] = es
	}
}

// Entry is a suggestion together with its apply state.
type Entry struct {
	suggest.Suggestion
	Applied bool `json:"applied"`
}

func (g *Generation) entries() []Entry {
	out := make([]Entry, len(g.Suggestions))
	for i, s := range g.Suggestions {
		out[i] = Entry{Suggestion: s, Applied: g.applied[s.ID]}
	}
	return out
}
