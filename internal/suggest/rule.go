package suggest

import "strings"

// Match is a rule's finding inside one unit, before an id is assigned.
type Match struct {
	Start     int
	End       int
	Original  string
	Proposed  string
	Rationale string
}

// Rule is one suggestion strategy. Triggered decides from the instruction
// whether the rule participates; Match inspects a single unit and returns
// zero or more independent findings in ascending Start order.
type Rule interface {
	Name() string
	Triggered(instruction string) bool
	Match(text string) []Match
}

// keywordTrigger fires when the lowercased instruction contains any keyword.
type keywordTrigger []string

func (k keywordTrigger) Triggered(instruction string) bool {
	lower := strings.ToLower(instruction)
	for _, kw := range k {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
