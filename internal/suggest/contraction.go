package suggest

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// RationaleContraction is the reason attached to contraction expansions.
const RationaleContraction = "expand contraction"

// contractions maps unambiguous contractions to their expansion. Forms
// ending in 's or 'd are left out: "that's" and "he'd" each have two
// readings and expanding them needs grammar the rule does not have.
var contractions = map[string]string{
	"don't": "do not", "doesn't": "does not", "didn't": "did not",
	"can't": "cannot", "won't": "will not", "shan't": "shall not",
	"isn't": "is not", "aren't": "are not", "wasn't": "was not", "weren't": "were not",
	"haven't": "have not", "hasn't": "has not", "hadn't": "had not",
	"wouldn't": "would not", "shouldn't": "should not", "couldn't": "could not",
	"mustn't": "must not", "needn't": "need not",
	"i'm": "I am", "let's": "let us",
	"you're": "you are", "we're": "we are", "they're": "they are",
	"i've": "I have", "you've": "you have", "we've": "we have", "they've": "they have",
	"i'll": "I will", "you'll": "you will", "we'll": "we will", "they'll": "they will",
}

// ContractionRule proposes one expansion per contraction occurrence.
type ContractionRule struct {
	keywordTrigger
	pattern *regexp.Regexp
}

// NewContractionRule builds the rule with the default formality triggers.
func NewContractionRule() *ContractionRule {
	keys := make([]string, 0, len(contractions))
	for k := range contractions {
		keys = append(keys, k)
	}
	// Longest first so the alternation never stops at a shorter prefix.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	alts := make([]string, len(keys))
	for i, k := range keys {
		head, tail, _ := strings.Cut(k, "'")
		alts[i] = regexp.QuoteMeta(head) + "['’]" + regexp.QuoteMeta(tail)
	}
	return &ContractionRule{
		keywordTrigger: keywordTrigger{"formal", "professional", "contraction", "expand"},
		pattern:        regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`),
	}
}

func (r *ContractionRule) Name() string { return "contraction" }

func (r *ContractionRule) Match(text string) []Match {
	locs := r.pattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Match, 0, len(locs))
	for _, loc := range locs {
		orig := text[loc[0]:loc[1]]
		key := strings.ToLower(strings.ReplaceAll(orig, "’", "'"))
		exp, ok := contractions[key]
		if !ok {
			continue
		}
		out = append(out, Match{
			Start:     loc[0],
			End:       loc[1],
			Original:  orig,
			Proposed:  matchCase(orig, exp),
			Rationale: RationaleContraction,
		})
	}
	return out
}

// matchCase carries the capitalization of orig over to repl: all-caps
// stays all-caps and a leading capital stays a leading capital.
func matchCase(orig, repl string) string {
	letters, upper := 0, 0
	for _, r := range orig {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters > 1 && upper == letters {
		return strings.ToUpper(repl)
	}
	first := []rune(orig)[0]
	if unicode.IsUpper(first) {
		r := []rune(repl)
		r[0] = unicode.ToUpper(r[0])
		return string(r)
	}
	return repl
}
