package changes

import (
	"fmt"
	"slices"

	"github.com/HendryAvila/docsmith/internal/docerr"
	"github.com/HendryAvila/docsmith/internal/session"
	"github.com/HendryAvila/docsmith/internal/suggest"
)

// Conflict reasons reported per suggestion.
const (
	ReasonAlreadyApplied = "already applied"
	ReasonOverlap        = "overlaps suggestion %s"
	ReasonMissing        = "original text no longer present"
)

// plan is the outcome of laying a batch of accepted suggestions over the
// current units. Nothing in it has been committed.
type plan struct {
	units     []string
	edits     []session.Edit
	applied   []string
	conflicts []docerr.ConflictError
	changes   []UnitChange
}

// planBatch computes the mutated unit sequence for accepted, which must be
// listed in generation order. Offsets of accepted and of ledger edits are
// in generation coordinates; each suggestion is shifted by the length
// change of every earlier edit in its unit before it is checked verbatim
// against the current text.
func planBatch(current []string, genUnits []string, accepted []suggest.Suggestion, ledger session.Ledger) plan {
	p := plan{units: slices.Clone(current)}

	byUnit := make(map[int][]suggest.Suggestion)
	var order []int
	for _, s := range accepted {
		if _, seen := byUnit[s.UnitIndex]; !seen {
			order = append(order, s.UnitIndex)
		}
		byUnit[s.UnitIndex] = append(byUnit[s.UnitIndex], s)
	}
	slices.Sort(order)

	for _, u := range order {
		group := byUnit[u]
		// Stable, so equal starts keep generation order.
		slices.SortStableFunc(group, func(a, b suggest.Suggestion) int { return a.Start - b.Start })

		before := p.units[u]
		text := before
		prior := ledger.Edits[u]
		var batch []session.Edit

		for _, s := range group {
			if ledger.Applied[s.ID] {
				p.conflict(s, ReasonAlreadyApplied)
				continue
			}
			if err := s.Validate(genUnits); err != nil {
				p.conflict(s, err.Error())
				continue
			}
			if other, hit := overlapping(s, prior, batch); hit {
				p.conflict(s, fmt.Sprintf(ReasonOverlap, other))
				continue
			}

			pos := s.Start + shift(s.Start, prior) + shift(s.Start, batch)
			end := pos + len(s.Original)
			if pos < 0 || end > len(text) || text[pos:end] != s.Original {
				p.conflict(s, ReasonMissing)
				continue
			}

			text = text[:pos] + s.Proposed + text[end:]
			batch = append(batch, session.Edit{
				SuggestionID: s.ID,
				Unit:         u,
				Start:        s.Start,
				End:          s.End,
				Delta:        len(s.Proposed) - len(s.Original),
			})
			p.applied = append(p.applied, s.ID)
		}

		if len(batch) > 0 {
			p.units[u] = text
			p.edits = append(p.edits, batch...)
			p.changes = append(p.changes, UnitChange{Index: u, Before: before, After: text})
		}
	}
	return p
}

func (p *plan) conflict(s suggest.Suggestion, reason string) {
	p.conflicts = append(p.conflicts, docerr.ConflictError{
		SuggestionID: s.ID,
		UnitIndex:    s.UnitIndex,
		Reason:       reason,
	})
}

// overlapping returns the id of the first edit whose span intersects s.
// All logs belong to the unit of s.
func overlapping(s suggest.Suggestion, logs ...[]session.Edit) (string, bool) {
	for _, es := range logs {
		for _, e := range es {
			if s.Overlaps(e.Start, e.End) {
				return e.SuggestionID, true
			}
		}
	}
	return "", false
}

// shift sums the length change of edits that end at or before start.
func shift(start int, edits []session.Edit) int {
	d := 0
	for _, e := range edits {
		if e.End <= start {
			d += e.Delta
		}
	}
	return d
}
