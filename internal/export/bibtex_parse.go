package export

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/matsen/biblio/internal/enrich"
	"github.com/matsen/biblio/internal/entry"
)

var (
	entryStartRegex = regexp.MustCompile(`@\w+\{([^,]+),`)
	doiFieldRegex   = regexp.MustCompile(`(?i)^\s*doi\s*=\s*[\{"]([^\}"]+)[\}"]`)
)

// BibTeXIndex indexes existing BibTeX entries for deduplication.
type BibTeXIndex struct {
	// Keys maps citation keys to true for existence check
	Keys map[string]bool
	// DOIs maps normalized DOI values to citation keys
	DOIs map[string]string
}

// NewBibTeXIndex creates an empty BibTeX index.
func NewBibTeXIndex() *BibTeXIndex {
	return &BibTeXIndex{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
}

// HasEntry returns true if the entry already exists (by DOI or key).
// DOI is the primary match; citation key is the fallback if no DOI.
func (idx *BibTeXIndex) HasEntry(key, doi string) bool {
	if doi != "" {
		_, exists := idx.DOIs[enrich.NormalizeDOI(doi)]
		return exists
	}
	return idx.Keys[key]
}

// Add records a citation key and its DOI.
func (idx *BibTeXIndex) Add(key, doi string) {
	idx.Keys[key] = true
	if doi = enrich.NormalizeDOI(doi); doi != "" {
		idx.DOIs[doi] = key
	}
}

// ParseBibTeXFile builds an index from an existing .bib file.
// Returns an empty index if the file doesn't exist or is empty.
func ParseBibTeXFile(path string) (*BibTeXIndex, error) {
	idx := NewBibTeXIndex()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var currentKey string

	for scanner.Scan() {
		line := scanner.Text()

		if matches := entryStartRegex.FindStringSubmatch(line); len(matches) > 1 {
			currentKey = strings.TrimSpace(matches[1])
			idx.Keys[currentKey] = true
		}

		if matches := doiFieldRegex.FindStringSubmatch(line); len(matches) > 1 && currentKey != "" {
			idx.Add(currentKey, matches[1])
		}
	}

	return idx, scanner.Err()
}

// AppendBibTeX appends the entries not already present in the .bib file at
// path, creating it if needed. Citation keys avoid those already in the
// file. It returns the number of entries written.
func AppendBibTeX(path string, entries []entry.Entry) (int, error) {
	idx, err := ParseBibTeXFile(path)
	if err != nil {
		return 0, err
	}

	keys := NewKeyer()
	for k := range idx.Keys {
		keys.Reserve(k)
	}

	var out []string
	for _, e := range entries {
		if idx.HasEntry(CitationKey(e), e.DOI) {
			continue
		}
		key := keys.Key(e)
		idx.Add(key, e.DOI)
		out = append(out, ToBibTeX(e, key))
	}
	if len(out) == 0 {
		return 0, nil
	}

	if err := appendToBibFile(path, strings.Join(out, "\n")); err != nil {
		return 0, err
	}
	return len(out), nil
}

// appendToBibFile appends BibTeX content to a file.
func appendToBibFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}

	// Ensure we start on a new line
	if _, err := file.WriteString("\n" + content); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
