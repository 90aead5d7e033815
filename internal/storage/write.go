package storage

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/matsen/biblio/internal/entry"
)

// Write encodes entries to path. An empty format is inferred from the file
// name.
func Write(path string, entries []entry.Entry, format Format) (err error) {
	format, err = ResolveFormat(path, format)
	if err != nil {
		return err
	}
	if !format.Writable() {
		return fmt.Errorf("%w for writing: %s", ErrUnsupportedFormat, format)
	}

	w, err := Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	return Encode(w, entries, format)
}

// Writable reports whether Encode supports f.
func (f Format) Writable() bool {
	return f.Readable()
}

// Encode writes entries to w in the given format. Delimited output has one
// column per field set on any entry, in field declaration order, with list
// values joined by entry.ListSeparator.
func Encode(w io.Writer, entries []entry.Entry, format Format) error {
	switch format {
	case FormatCSV, FormatTSV:
		return writeDelimited(w, entries, format)

	case FormatJSON:
		if entries == nil {
			entries = []entry.Entry{}
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
		return nil

	case FormatJSONL:
		return writeJSONL(w, entries)

	case FormatYAML:
		if entries == nil {
			entries = []entry.Entry{}
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	}

	return fmt.Errorf("%w for writing: %s", ErrUnsupportedFormat, format)
}

// Columns returns the names of fields set on at least one entry, in field
// declaration order.
func Columns(entries []entry.Entry) []string {
	var cols []string
	for _, name := range entry.FieldNames() {
		for i := range entries {
			if entries[i].IsSet(name) {
				cols = append(cols, name)
				break
			}
		}
	}
	return cols
}

func writeDelimited(w io.Writer, entries []entry.Entry, format Format) error {
	cw := csv.NewWriter(w)
	if format == FormatTSV {
		cw.Comma = '\t'
	}

	cols := Columns(entries)
	if err := cw.Write(cols); err != nil {
		return err
	}

	record := make([]string, len(cols))
	for i := range entries {
		for j, col := range cols {
			record[j], _ = entries[i].KeyValue(col)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
