// Package author parses and formats author names in the "Last Initials"
// form used by Paperpile exports ("Smith JQ").
package author

import (
	"strings"
	"unicode"
)

// Name is an author split into last name and first-name initials.
type Name struct {
	Last     string // Last name, possibly several words ("van der Berg")
	Initials string // Upper-case initials without separators (may be empty)
}

// MaxInitials is the longest trailing token treated as initials.
const MaxInitials = 4

// Parse splits a "Last Initials" name. A trailing token counts as initials
// when it is at most MaxInitials upper-case letters; otherwise the whole
// name is the last name.
//
//   - "Smith JQ"        → last="Smith", initials="JQ"
//   - "van der Berg A"  → last="van der Berg", initials="A"
//   - "Jane Smith"      → last="Jane Smith"
//   - "Consortium"      → last="Consortium"
func Parse(s string) Name {
	parts := strings.Fields(s)
	if len(parts) < 2 || !isInitials(parts[len(parts)-1]) {
		return Name{Last: strings.TrimSpace(s)}
	}
	return Name{
		Last:     strings.Join(parts[:len(parts)-1], " "),
		Initials: parts[len(parts)-1],
	}
}

// FromParts builds a Name from separate first and last names, reducing
// the first name to initials. Words are split on spaces, hyphens and
// periods: "Jean-Luc" → "JL", "J. R. R." → "JRR".
func FromParts(first, last string) Name {
	var initials strings.Builder
	for _, part := range strings.FieldsFunc(first, func(r rune) bool { return r == ' ' || r == '-' || r == '.' }) {
		for _, r := range part {
			initials.WriteRune(r)
			break
		}
	}
	return Name{Last: strings.TrimSpace(last), Initials: initials.String()}
}

// String renders the name as "Last Initials".
func (n Name) String() string {
	switch {
	case n.Last == "":
		return n.Initials
	case n.Initials == "":
		return n.Last
	}
	return n.Last + " " + n.Initials
}

// BibTeX renders the name as "Last, J. Q.".
func (n Name) BibTeX() string {
	if n.Initials == "" {
		return n.Last
	}
	var first []string
	for _, r := range n.Initials {
		first = append(first, string(r)+".")
	}
	return n.Last + ", " + strings.Join(first, " ")
}

func isInitials(s string) bool {
	if len(s) > MaxInitials {
		return false
	}
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
