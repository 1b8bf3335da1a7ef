package filter

import (
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"
	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// ============================================================================
// Normalisation
// ============================================================================

var english = stopwords.MustGet("en")

// Normalize lowercases s and turns punctuation into single spaces.
func Normalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	for _, ch := range s {
		c := unicode.ToLower(ch)

		// Curly apostrophe -> straight
		if c == '’' {
			out.WriteRune('\'')
			continue
		}
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '\'' {
			out.WriteRune(c)
		} else {
			out.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(out.String()), " ")
}

// Terms splits a query into normalised search terms, dropping English stop
// words and duplicates. A query made only of stop words keeps them, so
// searching for "to do" still narrows the view.
func Terms(query string) []string {
	words := strings.Fields(Normalize(query))

	seen := make(map[string]bool, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if seen[w] || english.Contains(w) {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	if len(terms) == 0 {
		for _, w := range words {
			if !seen[w] {
				seen[w] = true
				terms = append(terms, w)
			}
		}
	}
	return dropContained(terms)
}

// dropContained removes terms that occur inside another term; finding the
// longer one implies the shorter.
func dropContained(terms []string) []string {
	out := terms[:0:0]
	for i, t := range terms {
		contained := false
		for j, u := range terms {
			if i != j && len(u) > len(t) && strings.Contains(u, t) {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, t)
		}
	}
	return out
}

// ============================================================================
// Matcher
// ============================================================================

// Matcher reports whether a text contains every term of a query. All terms
// are found in one pass of an Aho-Corasick automaton.
type Matcher struct {
	ac    ahocorasick.AhoCorasick
	terms []string
}

// NewMatcher compiles a query. An empty query matches everything.
func NewMatcher(query string) *Matcher {
	m := &Matcher{terms: Terms(query)}
	if len(m.terms) == 0 {
		return m
	}

	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	m.ac = builder.Build(m.terms)
	return m
}

// Terms returns the compiled terms.
func (m *Matcher) Terms() []string { return m.terms }

// Match reports whether every term occurs somewhere in texts.
func (m *Matcher) Match(texts ...string) bool {
	if len(m.terms) == 0 {
		return true
	}

	found := make([]bool, len(m.terms))
	remaining := len(m.terms)
	for _, text := range texts {
		for _, hit := range m.ac.FindAll(Normalize(text)) {
			if !found[hit.Pattern()] {
				found[hit.Pattern()] = true
				remaining--
			}
		}
		if remaining == 0 {
			return true
		}
	}
	return false
}
