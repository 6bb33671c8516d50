// Package affiliation matches author affiliation strings against the
// school's identifying terms.
package affiliation

import "strings"

// DefaultTerms identify the Research School of Astronomy and Astrophysics:
// every term must appear in a single affiliation fragment. "2611" is the
// Mount Stromlo Observatory postcode.
var DefaultTerms = []string{"astronomy", "2611"}

// Matcher decides whether an affiliation string belongs to the school.
type Matcher struct {
	terms []string
}

// NewMatcher builds a Matcher for the given terms. With no terms it falls
// back to DefaultTerms.
func NewMatcher(terms ...string) *Matcher {
	if len(terms) == 0 {
		terms = DefaultTerms
	}
	lowered := make([]string, len(terms))
	for i, term := range terms {
		lowered[i] = strings.ToLower(term)
	}
	return &Matcher{terms: lowered}
}

// Match pairs an author-list index with the author's name.
type Match struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// splitFragments normalizes an author's affiliation string into comparable
// fragments. ADS packs multiple affiliations into one string separated by
// semicolons; commas and colons carry no signal and are dropped.
func splitFragments(affiliation string) []string {
	affiliation = strings.ReplaceAll(affiliation, "&amp;", "&")
	parts := strings.Split(affiliation, ";")
	fragments := make([]string, len(parts))
	for i, part := range parts {
		part = strings.ReplaceAll(part, ",", "")
		part = strings.ReplaceAll(part, ":", "")
		fragments[i] = strings.TrimSpace(strings.ToLower(part))
	}
	return fragments
}

// Matches reports whether any fragment of the affiliation string contains
// every configured term.
func (m *Matcher) Matches(affiliation string) bool {
	for _, fragment := range splitFragments(affiliation) {
		if containsAll(fragment, m.terms) {
			return true
		}
	}
	return false
}

// MatchingAuthors returns the authors whose affiliation matches, in author
// list order. The authors and affiliations slices are parallel arrays from
// the same document.
func (m *Matcher) MatchingAuthors(authors, affiliations []string) []Match {
	n := len(affiliations)
	if len(authors) < n {
		n = len(authors)
	}

	var matches []Match
	for i := 0; i < n; i++ {
		if m.Matches(affiliations[i]) {
			matches = append(matches, Match{Index: i, Name: authors[i]})
		}
	}
	return matches
}

// containsAll reports whether s contains every term.
func containsAll(s string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(s, term) {
			return false
		}
	}
	return true
}
