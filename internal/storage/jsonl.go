package storage

import (
	"bufio"
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"

	"github.com/matsen/biblio/internal/entry"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// readJSONL reads one JSON object per line. Blank lines are skipped.
func readJSONL(r io.Reader) ([]map[string]any, error) {
	var rows []map[string]any
	scanner := bufio.NewScanner(r)

	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var row map[string]any
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading JSONL: %w", err)
	}
	return rows, nil
}

// writeJSONL writes one entry per line.
func writeJSONL(w io.Writer, entries []entry.Entry) error {
	for i, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding entry %d: %w", i, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	return nil
}
