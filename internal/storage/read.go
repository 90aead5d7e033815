package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/segmentio/encoding/json"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/matsen/biblio/internal/entry"
	"github.com/matsen/biblio/internal/importer"
)

// Load reads entries from path. An empty format is inferred from the file
// name; an empty schema defaults per format (see Format.DefaultSchema).
func Load(path string, format Format, schema importer.Schema, log logrus.FieldLogger) ([]entry.Entry, error) {
	format, err := ResolveFormat(path, format)
	if err != nil {
		return nil, err
	}

	r, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer r.Close()

	entries, err := Read(r, format, schema, log)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return entries, nil
}

// Read decodes entries in the given format.
func Read(r io.Reader, format Format, schema importer.Schema, log logrus.FieldLogger) ([]entry.Entry, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if !format.Readable() {
		return nil, fmt.Errorf("%w for reading: %s", ErrUnsupportedFormat, format)
	}
	if schema == "" {
		schema = format.DefaultSchema()
	}

	switch format {
	case FormatCSV, FormatTSV:
		return readDelimited(r, format, importer.New(schema, log))

	case FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		if schema == importer.SchemaPaperpile {
			return readPaperpileJSON(data, log)
		}
		var rows []map[string]any
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		return fromMaps(rows)

	case FormatJSONL:
		rows, err := readJSONL(r)
		if err != nil {
			return nil, err
		}
		return fromMaps(rows)

	case FormatYAML:
		var rows []map[string]any
		if err := yaml.NewDecoder(r).Decode(&rows); err != nil && err != io.EOF {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		return fromMaps(rows)
	}

	return nil, fmt.Errorf("%w for reading: %s", ErrUnsupportedFormat, format)
}

// readDelimited reads a CSV or TSV file with a header row.
func readDelimited(r io.Reader, format Format, im *importer.Importer) ([]entry.Entry, error) {
	cr := csv.NewReader(r)
	if format == FormatTSV {
		cr.Comma = '\t'
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var entries []entry.Entry
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		e, err := im.ToEntry(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// readPaperpileJSON reads a Paperpile JSON export, skipping entries that
// cannot be converted.
func readPaperpileJSON(data []byte, log logrus.FieldLogger) ([]entry.Entry, error) {
	entries, errs := importer.ParsePaperpileJSON(data)
	if entries == nil && len(errs) == 1 {
		return nil, errs[0]
	}
	for _, err := range errs {
		log.WithError(err).Warn("skipping Paperpile entry")
	}
	return entries, nil
}

func fromMaps(rows []map[string]any) ([]entry.Entry, error) {
	entries := make([]entry.Entry, 0, len(rows))
	for i, row := range rows {
		e, err := entry.FromMap(row)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
