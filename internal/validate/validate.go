// Package validate reports shape problems, duplicate keys and journal
// heuristics across an entry collection without modifying it.
package validate

import (
	"fmt"
	"iter"
	"strings"

	"github.com/matsen/biblio/internal/entry"
	"github.com/matsen/biblio/internal/index"
	"github.com/matsen/biblio/internal/schema"
)

// DiagnosticType classifies a diagnostic.
type DiagnosticType string

const (
	TypeShape             DiagnosticType = "shape"
	TypeDuplicate         DiagnosticType = "duplicate"
	TypePreprintInJournal DiagnosticType = "preprint_in_journal"
)

// Diagnostic is one validation finding.
type Diagnostic struct {
	Type     DiagnosticType  `json:"type"`
	Severity schema.Severity `json:"severity"`
	Message  string          `json:"message"`

	// Index is the position of the offending entry in the input.
	Index int `json:"index"`

	// Key and Values are set for duplicates.
	Key    schema.Key `json:"key,omitempty"`
	Values []string   `json:"values,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s", d.Severity, d.Message)
}

// Options controls validation.
type Options struct {
	// ReportFields are appended to duplicate messages to help locate the
	// colliding entry.
	ReportFields []string

	// Partial skips shape checks, for collections that are not yet complete.
	Partial bool

	// EnforceTitleUniqueness checks (title,) whether or not the schema
	// declares it. When false, (title,) is not checked even if declared.
	EnforceTitleUniqueness bool

	// Shape checks individual entries. Nil means the schema itself.
	Shape schema.ShapeValidator
}

// DefaultOptions returns options that run every check.
func DefaultOptions() Options {
	return Options{EnforceTitleUniqueness: true}
}

// titleKey is the key controlled by EnforceTitleUniqueness.
var titleKey = schema.Key{"title"}

// Validate returns a lazy sequence of diagnostics for entries: shape
// problems per entry (unless Partial), then every duplicate under each
// unique key, then journal-field warnings. The sequence is finite and never
// fails; all problems are reported rather than stopping at the first.
//
// The sequence reads entries as it is consumed; entries must not be
// modified while iterating.
func Validate(entries []entry.Entry, sch *schema.Schema, opts Options) iter.Seq[Diagnostic] {
	if sch == nil {
		sch = schema.Default()
	}
	shape := opts.Shape
	if shape == nil {
		shape = sch
	}

	var keys []schema.Key
	for _, k := range sch.UniqueKeys {
		if !opts.EnforceTitleUniqueness && k.Equal(titleKey) {
			continue
		}
		keys = append(keys, k)
	}
	if opts.EnforceTitleUniqueness && !sch.HasUniqueKey(titleKey) {
		keys = append(keys, titleKey)
	}

	return func(yield func(Diagnostic) bool) {
		if !opts.Partial {
			for i, e := range entries {
				for _, p := range shape.ValidateShape(e) {
					if !yield(Diagnostic{Type: TypeShape, Severity: p.Severity, Message: p.Message, Index: i}) {
						return
					}
				}
			}
		}

		for _, key := range keys {
			seen := make(map[string]bool)
			for i := range entries {
				values, ok := index.Tuple(&entries[i], key)
				if !ok {
					continue
				}
				tk := strings.Join(values, "\x1f")
				if !seen[tk] {
					seen[tk] = true
					continue
				}
				if !yield(duplicate(&entries[i], i, key, values, opts.ReportFields)) {
					return
				}
			}
		}

		for i, e := range entries {
			if d, ok := preprintInJournal(e, i); ok {
				if !yield(d) {
					return
				}
			}
		}
	}
}

func duplicate(e *entry.Entry, i int, key schema.Key, values, reportFields []string) Diagnostic {
	msg := fmt.Sprintf("Duplicate entries for %s: %s", key, schema.FormatTuple(values))
	if len(reportFields) > 0 {
		parts := make([]string, len(reportFields))
		for j, f := range reportFields {
			parts[j], _ = e.KeyValue(entry.NormalizeKey(f))
		}
		msg += " (" + strings.Join(parts, ", ") + ")"
	}
	return Diagnostic{
		Type:     TypeDuplicate,
		Severity: schema.SeverityError,
		Message:  msg,
		Index:    i,
		Key:      key,
		Values:   values,
	}
}

// preprintJournals are journal names that indicate a preprint server.
var preprintJournals = []string{"medrxiv", "biorxiv"}

// preprintInJournal flags journal articles whose journal is a preprint server.
func preprintInJournal(e entry.Entry, i int) (Diagnostic, bool) {
	if e.Type != entry.TypeJournalArticle || e.Journal == "" {
		return Diagnostic{}, false
	}
	j := strings.ToLower(e.Journal)
	match := strings.HasPrefix(j, "f1000")
	for _, p := range preprintJournals {
		if j == p {
			match = true
		}
	}
	if !match {
		return Diagnostic{}, false
	}
	return Diagnostic{
		Type:     TypePreprintInJournal,
		Severity: schema.SeverityWarning,
		Message:  fmt.Sprintf("Preprint in journal field: %s, %s", e.Journal, e.Title),
		Index:    i,
	}, true
}

// Collect drains seq into a slice.
func Collect(seq iter.Seq[Diagnostic]) []Diagnostic {
	var out []Diagnostic
	for d := range seq {
		out = append(out, d)
	}
	return out
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == schema.SeverityError {
			return true
		}
	}
	return false
}
