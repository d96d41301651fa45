// Package document holds uploaded documents as ordered sequences of text
// units and converts them to and from their file formats.
//
// A document is immutable once stored: every mutation goes through
// Store.ReplaceUnits, which swaps the whole unit sequence in one step.
// Readers always receive a Snapshot that owns its own copy of the units,
// so they can never observe a half-applied change.
package document

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// previewLen is the maximum number of characters in Metadata.Preview.
const previewLen = 200

// Snapshot is a read-only copy of a document at one revision.
type Snapshot struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Format    Format    `json:"format"`
	Units     []string  `json:"units"`
	Revision  int       `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Metadata is the derived, read-only summary of a document.
type Metadata struct {
	Filename       string `json:"filename"`
	Format         Format `json:"format"`
	WordCount      int    `json:"word_count"`
	ParagraphCount int    `json:"paragraph_count"`
	UnitCount      int    `json:"unit_count"`
	Preview        string `json:"preview"`
}

// Metadata derives word and unit counts from the snapshot.
// ParagraphCount counts only units with visible text.
func (s Snapshot) Metadata() Metadata {
	m := Metadata{
		Filename:  s.Filename,
		Format:    s.Format,
		UnitCount: len(s.Units),
	}
	for _, u := range s.Units {
		if strings.TrimSpace(u) == "" {
			continue
		}
		m.ParagraphCount++
		m.WordCount += WordCount(u)
		if m.Preview == "" {
			m.Preview = truncate(u, previewLen)
		}
	}
	return m
}

// Clone returns a deep copy that shares nothing with s.
func (s Snapshot) Clone() Snapshot {
	s.Units = slices.Clone(s.Units)
	return s
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
