// Package index builds lookup tables over entry collections keyed by the
// schema's unique keys.
package index

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/biblio/internal/entry"
	"github.com/matsen/biblio/internal/schema"
)

// ErrDuplicateKey matches any *DuplicateKeyError via errors.Is.
var ErrDuplicateKey = errors.New("duplicate key")

// DuplicateKeyError reports a second entry for an already occupied value
// tuple during a strict build.
type DuplicateKeyError struct {
	Key    schema.Key
	Values []string
	First  string // label of the entry already holding the tuple
	Second string // label of the colliding entry
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("multiple entries with key %s = %s found: %q and %q",
		e.Key, schema.FormatTuple(e.Values), e.First, e.Second)
}

// Is lets errors.Is(err, ErrDuplicateKey) match.
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// tupleSep separates components of a value tuple in bucket keys. It cannot
// occur in field values read from text formats.
const tupleSep = "\x1f"

// bucket holds the entries sharing one value tuple.
type bucket struct {
	values  []string
	entries []*entry.Entry
}

// keyIndex maps value tuples to entries for a single unique key.
type keyIndex struct {
	key     schema.Key
	buckets map[string]*bucket
	order   []string // tuple keys in first-seen order
}

// Index maps each unique key to the entries bearing each value tuple.
type Index struct {
	keys []*keyIndex
}

// Build indexes entries under every key. Entries whose tuple has an unset
// component are skipped for that key. When strict is true, the first
// collision returns a *DuplicateKeyError, so every bucket holds at most one
// entry.
//
// Buckets point into entries; mutating a looked-up entry mutates the
// caller's slice element.
func Build(entries []entry.Entry, keys []schema.Key, strict bool) (*Index, error) {
	ix := &Index{}

	for _, key := range keys {
		ki := &keyIndex{key: key, buckets: make(map[string]*bucket)}
		ix.keys = append(ix.keys, ki)

		for i := range entries {
			e := &entries[i]
			values, ok := Tuple(e, key)
			if !ok {
				continue
			}

			tk := strings.Join(values, tupleSep)
			b, exists := ki.buckets[tk]
			if !exists {
				b = &bucket{values: values}
				ki.buckets[tk] = b
				ki.order = append(ki.order, tk)
			} else if strict {
				return nil, &DuplicateKeyError{
					Key:    key,
					Values: values,
					First:  b.entries[0].Label(),
					Second: e.Label(),
				}
			}
			b.entries = append(b.entries, e)
		}
	}

	return ix, nil
}

// Tuple returns the values of key's fields on e, or false if any is unset.
func Tuple(e *entry.Entry, key schema.Key) ([]string, bool) {
	values := make([]string, len(key))
	for i, f := range key {
		v, ok := e.KeyValue(f)
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

// Keys returns the indexed keys in build order.
func (ix *Index) Keys() []schema.Key {
	keys := make([]schema.Key, len(ix.keys))
	for i, ki := range ix.keys {
		keys[i] = ki.key
	}
	return keys
}

// Lookup returns the entries indexed under key with the given value tuple.
func (ix *Index) Lookup(key schema.Key, values ...string) []*entry.Entry {
	ki := ix.find(key)
	if ki == nil {
		return nil
	}
	if b, ok := ki.buckets[strings.Join(values, tupleSep)]; ok {
		return b.entries
	}
	return nil
}

// Tuples returns every value tuple indexed under key in first-seen order.
func (ix *Index) Tuples(key schema.Key) [][]string {
	ki := ix.find(key)
	if ki == nil {
		return nil
	}
	tuples := make([][]string, len(ki.order))
	for i, tk := range ki.order {
		tuples[i] = ki.buckets[tk].values
	}
	return tuples
}

// Len returns the number of distinct value tuples under key.
func (ix *Index) Len(key schema.Key) int {
	ki := ix.find(key)
	if ki == nil {
		return 0
	}
	return len(ki.buckets)
}

func (ix *Index) find(key schema.Key) *keyIndex {
	for _, ki := range ix.keys {
		if ki.key.Equal(key) {
			return ki
		}
	}
	return nil
}
