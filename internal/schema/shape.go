package schema

import (
	"fmt"
	"strings"

	"github.com/matsen/biblio/internal/entry"
)

// Severity grades a shape problem.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Problem is one shape violation found on an entry.
type Problem struct {
	Message  string
	Severity Severity
}

// ShapeValidator checks a single entry against structural constraints.
type ShapeValidator interface {
	ValidateShape(e entry.Entry) []Problem
}

// ValidateShape checks required fields, enum membership and URI patterns.
// It returns nil for a conforming entry.
func (s *Schema) ValidateShape(e entry.Entry) []Problem {
	var problems []Problem

	for _, name := range s.Required {
		if !e.IsSet(name) {
			problems = append(problems, Problem{
				Message:  fmt.Sprintf("'%s' is a required property", name),
				Severity: SeverityError,
			})
		}
	}

	if e.Type != "" && !e.Type.Valid() {
		problems = append(problems, Problem{
			Message:  fmt.Sprintf("'%s' is not one of %s in /type", e.Type, enumList(entry.Types)),
			Severity: SeverityError,
		})
	}
	if e.Role != "" && !e.Role.Valid() {
		problems = append(problems, Problem{
			Message:  fmt.Sprintf("'%s' is not one of %s in /role", e.Role, enumList(entry.Roles)),
			Severity: SeverityError,
		})
	}

	for _, u := range s.URIFields {
		v, ok := e.KeyValue(u.Name)
		if !ok {
			continue
		}
		if !u.Pattern.MatchString(v) {
			problems = append(problems, Problem{
				Message:  fmt.Sprintf("'%s' does not match '%s' in /%s", v, u.Pattern, u.Name),
				Severity: SeverityError,
			})
		}
	}

	if e.Position != nil && e.NumAuthors != nil {
		if *e.Position < 1 || *e.Position > *e.NumAuthors {
			problems = append(problems, Problem{
				Message:  fmt.Sprintf("position %d out of range for %d authors in /position", *e.Position, *e.NumAuthors),
				Severity: SeverityError,
			})
		}
	}

	return problems
}

func enumList[T ~string](values []T) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + string(v) + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
