// Package importer converts rows from external bibliographic exports into
// entries.
package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/matsen/biblio/internal/entry"
)

// Schema names the column convention of an input file.
type Schema string

const (
	// SchemaPaperpile is the Paperpile CSV/JSON export format.
	SchemaPaperpile Schema = "paperpile"
	// SchemaBIBM uses entry field names directly.
	SchemaBIBM Schema = "bibm"
	// SchemaMinimal is an alias of SchemaBIBM for hand-written files.
	SchemaMinimal Schema = "minimal"
)

// Schemas lists every supported input schema.
var Schemas = []Schema{SchemaPaperpile, SchemaBIBM, SchemaMinimal}

// ErrUnsupportedSchema is returned for an unknown input schema name.
var ErrUnsupportedSchema = errors.New("unsupported schema")

// ParseSchema validates a schema name. An empty name means SchemaPaperpile.
func ParseSchema(s string) (Schema, error) {
	if s == "" {
		return SchemaPaperpile, nil
	}
	for _, v := range Schemas {
		if Schema(strings.ToLower(s)) == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedSchema, s)
}

// Multivalued column separators per schema.
var (
	PaperpileSeparators = map[string]string{
		"Authors":  ",",
		"Keywords": ";",
		"URLs":     ";",
	}
	BIBMSeparators = map[string]string{
		"authors": entry.ListSeparator,
		"urls":    entry.ListSeparator,
	}
)

// Separators returns the multivalued column separators for s.
func (s Schema) Separators() map[string]string {
	if s == SchemaPaperpile {
		return PaperpileSeparators
	}
	return BIBMSeparators
}

// SplitMultivalued returns a copy of row with each column named in seps
// split into a list. The raw string is kept under "<column>_verbatim". An
// empty string splits to an empty list. Items are trimmed.
func SplitMultivalued(row map[string]any, seps map[string]string) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	for col, sep := range seps {
		raw, ok := row[col].(string)
		if !ok {
			continue
		}
		out[col+"_verbatim"] = raw
		var items []string
		for _, item := range strings.Split(raw, sep) {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		out[col] = items
	}
	return out
}

// Importer converts text rows to entries.
type Importer struct {
	Schema Schema
	Log    logrus.FieldLogger
}

// New creates an importer for schema s.
func New(s Schema, log logrus.FieldLogger) *Importer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Importer{Schema: s, Log: log}
}

// ToEntry converts one row of a delimited file: multivalued columns are
// split, empty cells dropped, and Paperpile columns mapped to entry fields.
func (im *Importer) ToEntry(row map[string]string) (entry.Entry, error) {
	generic := make(map[string]any, len(row))
	for k, v := range row {
		generic[k] = v
	}
	generic = SplitMultivalued(generic, im.Schema.Separators())
	for k, v := range generic {
		if s, ok := v.(string); ok && s == "" {
			delete(generic, k)
		}
	}

	if im.Schema == SchemaPaperpile {
		mapped, err := MapPaperpile(generic, im.Log)
		if err != nil {
			return entry.Entry{}, err
		}
		generic = mapped
	}

	return entry.FromMap(generic)
}
