package enrich

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/matsen/biblio/internal/entry"
)

// ErrMissingInput is returned when a required argument is empty.
var ErrMissingInput = errors.New("missing input")

// AnnotateOptions controls author annotation.
type AnnotateOptions struct {
	// Overwrite replaces an existing role. Without it the first matching
	// author wins; with it the last one does.
	Overwrite bool

	// Partial matches the query against the start of the author name
	// instead of the whole name.
	Partial bool
}

// Position describes where an author sits in an author list.
type Position struct {
	Position     int // 1-based
	Rank         int // distance from the front (>= 0) or, negated, from the back
	Significance float64
	Role         entry.Role
}

// AuthorPosition computes the position of author i (0-based) in a list of n.
func AuthorPosition(i, n int) Position {
	rank := -(n - i)
	if float64(i+1) < float64(n)/2 {
		rank = i
	}

	var role entry.Role
	switch {
	case i == 0 && n == 1:
		role = entry.RoleSole
	case i == 0:
		role = entry.RoleLead
	case i == n-1:
		role = entry.RoleSenior
	case i == n-2 && n >= 8:
		role = entry.RoleCoSenior
	case i == n-3 && n >= 20:
		role = entry.RoleCoSenior
	case i == 1 && n >= 8:
		role = entry.RoleCoLead
	default:
		role = entry.RoleContributor
	}

	return Position{
		Position:     i + 1,
		Rank:         rank,
		Significance: 1 - (math.Abs(float64(rank))-1)/float64(n),
		Role:         role,
	}
}

// Annotate returns copies of entries with num_authors set and, for entries
// with an author matching query, position, rank, significance and role.
// These four are written only when Overwrite is set or the entry has no
// role yet. Entries without a match are otherwise unchanged.
func Annotate(entries []entry.Entry, query string, opts AnnotateOptions) ([]entry.Entry, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: author query is required", ErrMissingInput)
	}
	m := newAuthorMatcher(query, opts.Partial)

	out := make([]entry.Entry, len(entries))
	for k, e := range entries {
		c := e.Clone()
		n := len(c.Authors)
		c.NumAuthors = entry.IntPtr(n)

		for i, a := range c.Authors {
			if !m.matches(a) {
				continue
			}
			if !opts.Overwrite && c.Role != "" {
				continue
			}
			p := AuthorPosition(i, n)
			c.Position = entry.IntPtr(p.Position)
			c.Rank = entry.IntPtr(p.Rank)
			c.Significance = entry.FloatPtr(p.Significance)
			c.Role = p.Role
		}
		out[k] = c
	}
	return out, nil
}

// authorMatcher compares author names against an exact string or a regular
// expression.
type authorMatcher struct {
	query string
	re    *regexp.Regexp // nil if the query is not a valid expression
}

func newAuthorMatcher(query string, partial bool) authorMatcher {
	pattern := "^(?:" + query + ")"
	if !partial {
		pattern += "$"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		re = nil
	}
	return authorMatcher{query: query, re: re}
}

func (m authorMatcher) matches(author string) bool {
	if author == m.query {
		return true
	}
	return m.re != nil && m.re.MatchString(author)
}

// AuthorMatches reports whether author equals query or matches it as a
// regular expression anchored at both ends (only at the start if partial).
//
//	AuthorMatches("Foo, CJ", "Foo, C", false)   // false
//	AuthorMatches("Foo, CJ", "Foo, CJ?", false) // true
//	AuthorMatches("Foo, C", "Foo, CJ?", false)  // true
func AuthorMatches(author, query string, partial bool) bool {
	return newAuthorMatcher(query, partial).matches(author)
}
