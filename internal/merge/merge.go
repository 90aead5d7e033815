// Package merge copies field values from a source entry collection into the
// matching entries of a target collection.
package merge

import (
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/matsen/biblio/internal/entry"
	"github.com/matsen/biblio/internal/index"
	"github.com/matsen/biblio/internal/schema"
)

// Options controls a merge.
type Options struct {
	// Fields restricts the copied fields. Empty means every declared field
	// except those making up the key the pair was matched on.
	Fields []string

	// Overwrite replaces target values that differ from the source.
	Overwrite bool

	Logger logrus.FieldLogger
}

// DefaultOptions returns options that copy all fields and overwrite.
func DefaultOptions() Options {
	return Options{Overwrite: true}
}

// FieldConflict records a target value kept over a differing source value
// because Overwrite was off.
type FieldConflict struct {
	Key    schema.Key
	Values []string
	Field  string
	Target string
	Source string
}

func (c FieldConflict) String() string {
	return fmt.Sprintf("%s = %s: %s: keeping %q over %q",
		c.Key, schema.FormatTuple(c.Values), c.Field, c.Target, c.Source)
}

// Result summarizes a merge.
type Result struct {
	// Matches counts matched entry pairs per unique key (keyed by Key.String()).
	Matches     map[string]int
	FieldsSet   int // previously unset target fields now set
	Overwritten int // differing target values replaced
	Conflicts   []FieldConflict
}

// Merge updates target in place from source. Both collections are indexed
// strictly on sch's unique keys first; a duplicate in either fails with an
// *index.DuplicateKeyError before anything changes. Source entries with no
// target counterpart are ignored, so merge never adds entries.
//
// Each unique key is processed independently. A pair matched under several
// keys is merged once per key, and when keys match different target entries
// the later key's values win.
func Merge(target, source []entry.Entry, sch *schema.Schema, opts Options) (Result, error) {
	if sch == nil {
		sch = schema.Default()
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	fields := make([]string, len(opts.Fields))
	for i, f := range opts.Fields {
		n := entry.NormalizeKey(f)
		if !entry.HasField(n) {
			return Result{}, fmt.Errorf("merge field %q: %w", f, entry.ErrUnknownField)
		}
		fields[i] = n
	}

	targetIx, err := index.Build(target, sch.UniqueKeys, true)
	if err != nil {
		return Result{}, fmt.Errorf("indexing target: %w", err)
	}
	sourceIx, err := index.Build(source, sch.UniqueKeys, true)
	if err != nil {
		return Result{}, fmt.Errorf("indexing source: %w", err)
	}

	res := Result{Matches: make(map[string]int)}

	for _, key := range sch.UniqueKeys {
		copied := fields
		if len(copied) == 0 {
			copied = fieldsExcept(key)
		}

		for _, values := range sourceIx.Tuples(key) {
			dst := targetIx.Lookup(key, values...)
			if len(dst) == 0 {
				continue
			}
			src := sourceIx.Lookup(key, values...)[0]
			res.Matches[key.String()]++

			m := merger{key: key, values: values, overwrite: opts.Overwrite, log: log, res: &res}
			for _, f := range copied {
				if err := m.copyField(dst[0], src, f); err != nil {
					return res, err
				}
			}
		}
	}

	return res, nil
}

// fieldsExcept returns every declared field not in key.
func fieldsExcept(key schema.Key) []string {
	var out []string
	for _, f := range entry.FieldNames() {
		if !key.Contains(f) {
			out = append(out, f)
		}
	}
	return out
}

// merger copies fields for one matched pair.
type merger struct {
	key       schema.Key
	values    []string
	overwrite bool
	log       logrus.FieldLogger
	res       *Result
}

func (m merger) copyField(dst, src *entry.Entry, field string) error {
	sv, ok := src.Get(field)
	if !ok {
		return nil
	}
	tv, set := dst.Get(field)
	if set && reflect.DeepEqual(tv, sv) {
		return nil
	}

	log := m.log.WithFields(logrus.Fields{
		"key":   m.key.String(),
		"value": schema.FormatTuple(m.values),
		"field": field,
	})

	if set && !m.overwrite {
		c := FieldConflict{
			Key:    m.key,
			Values: m.values,
			Field:  field,
			Target: entry.FormatValue(tv),
			Source: entry.FormatValue(sv),
		}
		m.res.Conflicts = append(m.res.Conflicts, c)
		log.WithFields(logrus.Fields{"target": c.Target, "source": c.Source}).Warn("conflicting value, keeping target")
		return nil
	}

	if err := dst.Set(field, sv); err != nil {
		return fmt.Errorf("merging %s into %q: %w", field, dst.Label(), err)
	}
	if set {
		m.res.Overwritten++
		log.WithFields(logrus.Fields{
			"old": entry.FormatValue(tv),
			"new": entry.FormatValue(sv),
		}).Info("overwriting value")
	} else {
		m.res.FieldsSet++
		log.Debug("setting value")
	}
	return nil
}
