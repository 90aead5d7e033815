package enrich

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/matsen/biblio/internal/entry"
)

// DOI prefixes registered by preprint servers.
const (
	ArXivDOIPrefix    = "10.48550"
	BioRxivDOIPrefix  = "10.1101"
	ChemRxivDOIPrefix = "10.26434"
)

// Names of the built-in rules and passes. Passes run after all rules and can
// be selected in RepairOptions.Rules like any rule.
const (
	RuleDOIFromArXiv = "doi_from_arxiv"
	RulePMCFromPMID  = "PMC_from_PMID"
	PassInferURLs    = "infer_urls"
	PassInferJournal = "infer_journal"
)

var (
	// ErrInvalidRule is returned when a rule declaration is malformed.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrUnknownRule is returned when RepairOptions names a rule the engine
	// does not have.
	ErrUnknownRule = errors.New("unknown rule")
)

// Value is the right-hand side of an assignment: a Literal or a Computed.
type Value interface {
	isValue()
}

// Literal is a template with {field} placeholders filled from the rule's
// source values.
type Literal struct {
	Template     string
	placeholders []string
}

func (Literal) isValue() {}

// ComputeFunc derives a target value from the rule's source values, keyed by
// normalized source name. An empty result means "no value" and leaves the
// target unset.
type ComputeFunc func(ctx context.Context, vars map[string]string) (string, error)

// Computed is an assignment whose value comes from a function.
type Computed struct {
	Func ComputeFunc
}

func (Computed) isValue() {}

// Assignment sets one target field.
type Assignment struct {
	Target string
	Value  Value
}

// Rule derives target fields from source fields. It fires when at least one
// source is set.
type Rule struct {
	Name    string
	Sources []string
	Assigns []Assignment
}

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// NewLiteral parses a template. Placeholders are normalized like field names.
func NewLiteral(template string) Literal {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		names = append(names, entry.NormalizeKey(m[1]))
	}
	return Literal{Template: template, placeholders: names}
}

// Render fills the template. It returns false if a placeholder has no value.
func (l Literal) Render(vars map[string]string) (string, bool) {
	ok := true
	out := placeholderRe.ReplaceAllStringFunc(l.Template, func(m string) string {
		v, found := vars[entry.NormalizeKey(m[1:len(m)-1])]
		if !found || v == "" {
			ok = false
		}
		return v
	})
	return out, ok
}

// NewRule builds a rule and checks that every source and target is a
// declared field and every literal placeholder names a source.
func NewRule(name string, sources []string, assigns ...Assignment) (Rule, error) {
	if name == "" {
		return Rule{}, fmt.Errorf("%w: empty name", ErrInvalidRule)
	}
	if len(assigns) == 0 {
		return Rule{}, fmt.Errorf("%w: %s assigns nothing", ErrInvalidRule, name)
	}

	assigns = append([]Assignment(nil), assigns...)
	declared := make(map[string]bool, len(sources))
	normalized := make([]string, len(sources))
	for i, s := range sources {
		n := entry.NormalizeKey(s)
		if !entry.HasField(n) {
			return Rule{}, fmt.Errorf("%w: %s source %q: %w", ErrInvalidRule, name, s, entry.ErrUnknownField)
		}
		declared[n] = true
		normalized[i] = n
	}

	for i, a := range assigns {
		if !entry.HasField(a.Target) {
			return Rule{}, fmt.Errorf("%w: %s target %q: %w", ErrInvalidRule, name, a.Target, entry.ErrUnknownField)
		}
		switch v := a.Value.(type) {
		case Literal:
			if v.placeholders == nil {
				v = NewLiteral(v.Template)
				assigns[i].Value = v
			}
			for _, p := range v.placeholders {
				if !declared[p] {
					return Rule{}, fmt.Errorf("%w: %s template %q references undeclared source %q",
						ErrInvalidRule, name, v.Template, p)
				}
			}
		case Computed:
			if v.Func == nil {
				return Rule{}, fmt.Errorf("%w: %s target %q has nil function", ErrInvalidRule, name, a.Target)
			}
		default:
			return Rule{}, fmt.Errorf("%w: %s target %q has value of type %T", ErrInvalidRule, name, a.Target, a.Value)
		}
	}

	return Rule{Name: name, Sources: normalized, Assigns: assigns}, nil
}

// MustRule is NewRule for static declarations; it panics on error.
func MustRule(name string, sources []string, assigns ...Assignment) Rule {
	r, err := NewRule(name, sources, assigns...)
	if err != nil {
		panic(err)
	}
	return r
}

// PMCIDResolver maps a PMID to a PMCID, returning "" when none exists.
type PMCIDResolver interface {
	PMCID(ctx context.Context, pmid string) (string, error)
}

// DOIFromArXiv derives the DataCite DOI arXiv assigns every preprint.
func DOIFromArXiv() Rule {
	return MustRule(RuleDOIFromArXiv, []string{"arxiv_id"},
		Assignment{Target: "doi", Value: NewLiteral(ArXivDOIPrefix + "/{arxiv_id}")})
}

// PMCFromPMID looks up the PubMed Central ID for an entry's PMID.
func PMCFromPMID(r PMCIDResolver) Rule {
	return MustRule(RulePMCFromPMID, []string{"pmid"},
		Assignment{Target: "pmcid", Value: Computed{Func: func(ctx context.Context, vars map[string]string) (string, error) {
			return r.PMCID(ctx, vars["pmid"])
		}}})
}

// DefaultRules returns the built-in rules in evaluation order. The PMID rule
// is included only when a resolver is given.
func DefaultRules(r PMCIDResolver) []Rule {
	rules := []Rule{DOIFromArXiv()}
	if r != nil {
		rules = append(rules, PMCFromPMID(r))
	}
	return rules
}

// NormalizeDOI strips resolver prefixes and lower-cases a DOI.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "https://dx.doi.org/")
	doi = strings.TrimPrefix(doi, "http://dx.doi.org/")
	doi = strings.TrimPrefix(doi, "doi.org/")
	doi = strings.TrimPrefix(doi, "DOI:")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(doi)
}

// hasDOIPrefix reports whether doi belongs to the registrant prefix.
func hasDOIPrefix(doi, prefix string) bool {
	return strings.HasPrefix(NormalizeDOI(doi), prefix+"/")
}
