// Package enrich derives missing entry fields from the ones present and
// annotates entries with the position and role of a queried author.
package enrich

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/matsen/biblio/internal/entry"
	"github.com/matsen/biblio/internal/schema"
)

// Engine applies rules to entries. It holds no per-entry state and is safe
// for concurrent use.
type Engine struct {
	schema   *schema.Schema
	rules    []Rule
	custom   bool
	resolver PMCIDResolver
	log      logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver enables the PMC_from_PMID rule.
func WithResolver(r PMCIDResolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithRules replaces the built-in rules.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) {
		e.rules = rules
		e.custom = true
	}
}

// WithLogger sets the logger used for per-field tracing.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// New creates an engine over sch. A nil schema means schema.Default().
func New(sch *schema.Schema, opts ...Option) *Engine {
	if sch == nil {
		sch = schema.Default()
	}
	e := &Engine{
		schema: sch,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if !e.custom {
		e.rules = DefaultRules(e.resolver)
	}
	return e
}

// RuleNames returns the selectable rule and pass names in evaluation order.
func (e *Engine) RuleNames() []string {
	names := make([]string, 0, len(e.rules)+2)
	for _, r := range e.rules {
		names = append(names, r.Name)
	}
	return append(names, PassInferURLs, PassInferJournal)
}

// RepairOptions controls a repair.
type RepairOptions struct {
	// Replace overwrites targets that already have a value.
	Replace bool

	// Rules restricts the repair to the named rules and passes. Empty means all.
	Rules []string
}

// selection returns a predicate for the rules selected by names.
func (e *Engine) selection(names []string) (func(string) bool, error) {
	if len(names) == 0 {
		return func(string) bool { return true }, nil
	}
	known := make(map[string]bool)
	for _, n := range e.RuleNames() {
		known[n] = true
	}
	selected := make(map[string]bool, len(names))
	for _, n := range names {
		if !known[n] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRule, n)
		}
		selected[n] = true
	}
	return func(name string) bool { return selected[name] }, nil
}

// Repair returns a copy of in with derivable fields filled in. Rules run in
// declaration order, then URL inference, then journal inference. Without
// Replace, a field that already has a value is never changed, so repairing
// twice gives the same result as repairing once.
//
// Missing or unusable source data never produces an error; only a failing
// computed value (such as a PMCID lookup transport error) does.
func (e *Engine) Repair(ctx context.Context, in entry.Entry, opts RepairOptions) (entry.Entry, error) {
	selected, err := e.selection(opts.Rules)
	if err != nil {
		return entry.Entry{}, err
	}
	return e.repair(ctx, in, opts.Replace, selected)
}

func (e *Engine) repair(ctx context.Context, in entry.Entry, replace bool, selected func(string) bool) (entry.Entry, error) {
	out := in.Clone()

	for _, r := range e.rules {
		if !selected(r.Name) {
			continue
		}
		if err := e.apply(ctx, &out, r, replace); err != nil {
			return entry.Entry{}, err
		}
	}

	if selected(PassInferURLs) {
		if err := e.inferURLs(&out, replace); err != nil {
			return entry.Entry{}, err
		}
	}
	if selected(PassInferJournal) {
		inferJournal(&out)
	}

	return out, nil
}

// apply runs one rule against out.
func (e *Engine) apply(ctx context.Context, out *entry.Entry, r Rule, replace bool) error {
	vars := make(map[string]string, len(r.Sources))
	for _, s := range r.Sources {
		if v, ok := out.KeyValue(s); ok {
			vars[s] = v
		}
	}
	if len(vars) == 0 {
		return nil
	}

	for _, a := range r.Assigns {
		if !replace && out.IsSet(a.Target) {
			continue
		}

		var value string
		switch v := a.Value.(type) {
		case Literal:
			s, ok := v.Render(vars)
			if !ok {
				continue
			}
			value = s
		case Computed:
			s, err := v.Func(ctx, vars)
			if err != nil {
				return fmt.Errorf("rule %s on %q: %w", r.Name, out.Label(), err)
			}
			value = s
		}
		if value == "" {
			continue
		}

		if err := out.Set(a.Target, value); err != nil {
			return fmt.Errorf("rule %s on %q: %w", r.Name, out.Label(), err)
		}
		e.log.WithFields(logrus.Fields{
			"rule":  r.Name,
			"field": a.Target,
			"value": value,
		}).Debug("repaired field")
	}
	return nil
}

// inferURLs assigns each URI field the first entry URL matching its pattern.
func (e *Engine) inferURLs(out *entry.Entry, replace bool) error {
	for _, f := range e.schema.URIFields {
		if !replace && out.IsSet(f.Name) {
			continue
		}
		for _, u := range out.URLs {
			if !f.Pattern.MatchString(u) {
				continue
			}
			if err := out.Set(f.Name, u); err != nil {
				return fmt.Errorf("%s on %q: %w", PassInferURLs, out.Label(), err)
			}
			e.log.WithFields(logrus.Fields{"field": f.Name, "value": u}).Debug("inferred URL")
			break
		}
	}
	return nil
}

// inferJournal names the preprint server for entries without a journal.
func inferJournal(out *entry.Entry) {
	if out.Journal != "" {
		return
	}
	switch {
	case out.ArXivID != "" || hasDOIPrefix(out.DOI, ArXivDOIPrefix):
		out.Journal = "arXiv"
	case out.BioRxivID != "" || hasDOIPrefix(out.DOI, BioRxivDOIPrefix):
		out.Journal = "bioRxiv"
	case out.ChemRxivID != "" || hasDOIPrefix(out.DOI, ChemRxivDOIPrefix):
		out.Journal = "chemRxiv"
	}
}

// RepairAll repairs entries on up to workers goroutines. The result keeps
// input order. The first error cancels outstanding repairs and is returned.
func (e *Engine) RepairAll(ctx context.Context, entries []entry.Entry, opts RepairOptions, workers int) ([]entry.Entry, error) {
	selected, err := e.selection(opts.Rules)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	out := make([]entry.Entry, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := e.repair(ctx, entries[i], opts.Replace, selected)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RepairMap repairs a generic key/value record, as read from a partial
// input row, and returns the repaired set fields.
func (e *Engine) RepairMap(ctx context.Context, m map[string]any, opts RepairOptions) (map[string]any, error) {
	in, err := entry.FromMap(m)
	if err != nil {
		return nil, err
	}
	out, err := e.Repair(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	return out.ToMap(), nil
}
