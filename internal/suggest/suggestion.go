// Package suggest generates location-addressed edit suggestions from a
// document snapshot and a free-text instruction.
//
// Generation is a pure function of (snapshot, instruction) apart from the
// suggestion identifiers, which are fresh on every call. Rules are small
// pluggable strategies registered in a fixed order; the generator runs
// every rule whose triggers match the instruction over every unit.
package suggest

import (
	"fmt"
)

// Suggestion is one proposed replacement of a byte span inside a unit.
// Start and End are byte offsets into the unit text as it was when the
// suggestion was generated; Original == unit[Start:End].
type Suggestion struct {
	ID        string `json:"id"`
	UnitIndex int    `json:"paragraph_index"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Original  string `json:"original"`
	Proposed  string `json:"suggested"`
	Rationale string `json:"reason"`
	Rule      string `json:"rule"`
}

// Validate checks the suggestion against the unit texts it was generated
// from. Every field is checked; the first violation is returned.
func (s Suggestion) Validate(units []string) error {
	if s.ID == "" {
		return fmt.Errorf("suggestion has no id")
	}
	return s.checkSpan(units)
}

func (s Suggestion) checkSpan(units []string) error {
	switch {
	case s.UnitIndex < 0 || s.UnitIndex >= len(units):
		return fmt.Errorf("suggestion %s: unit index %d out of range [0,%d)", s.ID, s.UnitIndex, len(units))
	case s.Start < 0 || s.End <= s.Start || s.End > len(units[s.UnitIndex]):
		return fmt.Errorf("suggestion %s: span [%d,%d) invalid for unit of length %d",
			s.ID, s.Start, s.End, len(units[s.UnitIndex]))
	case units[s.UnitIndex][s.Start:s.End] != s.Original:
		return fmt.Errorf("suggestion %s: original text does not match unit %d at [%d,%d)",
			s.ID, s.UnitIndex, s.Start, s.End)
	case s.Proposed == s.Original:
		return fmt.Errorf("suggestion %s: proposed text equals original", s.ID)
	}
	return nil
}

// Overlaps reports whether the span of s intersects [start, end) in the
// same unit.
func (s Suggestion) Overlaps(start, end int) bool {
	return s.Start < end && start < s.End
}
