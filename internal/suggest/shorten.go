package suggest

import "strings"

// RationaleShorten is the reason attached to long-passage rewrites.
const RationaleShorten = "shorten long passage"

const (
	DefaultLongPassageWords = 30
	DefaultShortenKeepWords = 20
)

// ShortenRule proposes a truncated rewrite of units longer than MaxWords.
// The span covers the whole unit; the proposal keeps the first KeepWords
// words followed by an ellipsis.
type ShortenRule struct {
	keywordTrigger
	MaxWords  int
	KeepWords int
}

// NewShortenRule builds the rule; non-positive arguments fall back to the
// defaults.
func NewShortenRule(maxWords, keepWords int) *ShortenRule {
	if maxWords <= 0 {
		maxWords = DefaultLongPassageWords
	}
	if keepWords <= 0 {
		keepWords = DefaultShortenKeepWords
	}
	if keepWords > maxWords {
		keepWords = maxWords
	}
	return &ShortenRule{
		keywordTrigger: keywordTrigger{"concise", "shorter", "shorten", "brief", "condense", "tighten", "trim"},
		MaxWords:       maxWords,
		KeepWords:      keepWords,
	}
}

func (r *ShortenRule) Name() string { return "shorten" }

func (r *ShortenRule) Match(text string) []Match {
	words := strings.Fields(text)
	if len(words) <= r.MaxWords {
		return nil
	}
	return []Match{{
		Start:     0,
		End:       len(text),
		Original:  text,
		Proposed:  strings.Join(words[:r.KeepWords], " ") + "...",
		Rationale: RationaleShorten,
	}}
}
