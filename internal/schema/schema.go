// Package schema holds the read-only configuration that describes what a
// valid entry collection looks like: unique keys, URI-typed fields and
// required fields.
//
// A Schema is built once at startup and passed by pointer to every component
// that needs it.
package schema

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matsen/biblio/internal/entry"
)

// Key is an ordered tuple of field names whose values must not repeat
// across a collection.
type Key []string

// String renders a key as a tuple, e.g. "(doi,)" or "(journal, volume)".
func (k Key) String() string {
	return FormatTuple(k)
}

// Equal reports whether two keys name the same fields in the same order.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// Contains reports whether field is one of the key's components.
func (k Key) Contains(field string) bool {
	for _, f := range k {
		if f == field {
			return true
		}
	}
	return false
}

// FormatTuple renders values as a tuple; a single value keeps a trailing
// comma so "(doi,)" is distinguishable from a bare parenthesized string.
func FormatTuple(values []string) string {
	if len(values) == 1 {
		return "(" + values[0] + ",)"
	}
	return "(" + strings.Join(values, ", ") + ")"
}

// URIField pairs a URI-valued entry field with the pattern its values must
// match. URL inference assigns the first matching entry URL to the field.
type URIField struct {
	Name    string
	Pattern *regexp.Regexp
}

// CEURPattern is the pattern for CEUR Workshop Proceedings URLs.
const CEURPattern = `^https?://ceur-ws\.org/`

// Schema is the collection-level configuration.
type Schema struct {
	UniqueKeys []Key
	URIFields  []URIField
	Required   []string
}

// Default returns the built-in schema.
func Default() *Schema {
	return &Schema{
		UniqueKeys: []Key{
			{"doi"},
			{"pmid"},
			{"pmcid"},
			{"arxiv_id"},
			{"title"},
		},
		URIFields: []URIField{
			{Name: "ceur_ws_url", Pattern: regexp.MustCompile(CEURPattern)},
		},
		Required: []string{"title"},
	}
}

// overlay is the YAML file format accepted by Load.
type overlay struct {
	UniqueKeys [][]string        `yaml:"unique_keys"`
	URIFields  map[string]string `yaml:"uri_fields"`
	Required   []string          `yaml:"required"`
}

// Load returns the default schema extended with the declarations in the
// YAML file at path. An empty path returns Default().
func Load(path string) (*Schema, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema overlay: %w", err)
	}

	var ov overlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("parsing schema overlay: %w", err)
	}

	for _, k := range ov.UniqueKeys {
		s.AddUniqueKey(Key(k))
	}
	for name, pattern := range ov.URIFields {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("uri field %q: invalid pattern: %w", name, err)
		}
		s.setURIField(URIField{Name: name, Pattern: re})
	}
	for _, r := range ov.Required {
		if !contains(s.Required, r) {
			s.Required = append(s.Required, r)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// AddUniqueKey appends k unless an identical key is already declared.
func (s *Schema) AddUniqueKey(k Key) {
	if s.HasUniqueKey(k) {
		return
	}
	s.UniqueKeys = append(s.UniqueKeys, k)
}

// HasUniqueKey reports whether k is declared.
func (s *Schema) HasUniqueKey(k Key) bool {
	for _, existing := range s.UniqueKeys {
		if existing.Equal(k) {
			return true
		}
	}
	return false
}

func (s *Schema) setURIField(f URIField) {
	for i, existing := range s.URIFields {
		if existing.Name == f.Name {
			s.URIFields[i] = f
			return
		}
	}
	s.URIFields = append(s.URIFields, f)
}

// Validate checks that every field the schema refers to is declared on
// entry.Entry.
func (s *Schema) Validate() error {
	for _, k := range s.UniqueKeys {
		if len(k) == 0 {
			return fmt.Errorf("unique key must name at least one field")
		}
		for _, f := range k {
			if !entry.HasField(f) {
				return fmt.Errorf("unique key %s: %w: %q", k, entry.ErrUnknownField, f)
			}
		}
	}
	for _, u := range s.URIFields {
		if !entry.HasField(u.Name) {
			return fmt.Errorf("uri field: %w: %q", entry.ErrUnknownField, u.Name)
		}
		if u.Pattern == nil {
			return fmt.Errorf("uri field %q has no pattern", u.Name)
		}
	}
	for _, r := range s.Required {
		if !entry.HasField(r) {
			return fmt.Errorf("required field: %w: %q", entry.ErrUnknownField, r)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
