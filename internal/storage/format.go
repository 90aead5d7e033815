// Package storage reads and writes entry collections in tabular and
// structured file formats, with optional gzip or zstd compression.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/matsen/biblio/internal/importer"
)

// Format is a file syntax.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatTSV      Format = "tsv"
	FormatJSON     Format = "json"
	FormatJSONL    Format = "jsonl"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatBibTeX   Format = "bibtex"
)

// ErrUnsupportedFormat is returned for a format that cannot be read or
// written by the requested operation.
var ErrUnsupportedFormat = errors.New("unsupported format")

var formatAliases = map[string]Format{
	"csv":      FormatCSV,
	"tsv":      FormatTSV,
	"tab":      FormatTSV,
	"json":     FormatJSON,
	"jsonl":    FormatJSONL,
	"ndjson":   FormatJSONL,
	"yaml":     FormatYAML,
	"yml":      FormatYAML,
	"markdown": FormatMarkdown,
	"md":       FormatMarkdown,
	"bibtex":   FormatBibTeX,
	"bib":      FormatBibTeX,
}

// ParseFormat resolves a format name or file extension.
func ParseFormat(s string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimPrefix(s, "."))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatFromPath infers the format from a file name, ignoring a trailing
// compression extension.
func FormatFromPath(path string) (Format, error) {
	base := stripCompression(filepath.Base(path))
	ext := filepath.Ext(base)
	if ext == "" {
		return "", fmt.Errorf("%w: cannot infer format of %s", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// Readable reports whether entries can be loaded from f.
func (f Format) Readable() bool {
	switch f {
	case FormatCSV, FormatTSV, FormatJSON, FormatJSONL, FormatYAML:
		return true
	}
	return false
}

// DefaultSchema is the input schema assumed for f when none is given:
// delimited files are Paperpile exports, structured files use entry field
// names.
func (f Format) DefaultSchema() importer.Schema {
	switch f {
	case FormatCSV, FormatTSV:
		return importer.SchemaPaperpile
	}
	return importer.SchemaBIBM
}

// ResolveFormat returns format, or the format inferred from path when empty.
func ResolveFormat(path string, format Format) (Format, error) {
	if format != "" {
		return ParseFormat(string(format))
	}
	return FormatFromPath(path)
}
