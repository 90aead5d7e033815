// Package export renders entries as BibTeX and Markdown.
package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/matsen/biblio/internal/author"
	"github.com/matsen/biblio/internal/entry"
)

// ToBibTeX converts an entry to BibTeX format under the given citation key.
func ToBibTeX(e entry.Entry, key string) string {
	entryType := determineEntryType(e)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, key))

	if len(e.Authors) > 0 {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", formatAuthors(e.Authors)))
	}

	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(e.Title)))

	if venue := venueOf(e); venue != "" {
		fieldName := "journal"
		switch entryType {
		case "inproceedings", "incollection":
			fieldName = "booktitle"
		case "misc", "phdthesis":
			fieldName = "howpublished"
		}
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", fieldName, escapeLatex(venue)))
	}

	writeOptional(&b, "year", e.Year)
	writeOptional(&b, "volume", e.Volume)
	writeOptional(&b, "number", e.Issue)
	writeOptional(&b, "pages", strings.ReplaceAll(e.Pages, "-", "--"))
	writeOptional(&b, "doi", e.DOI)
	if e.ArXivID != "" {
		writeOptional(&b, "eprint", e.ArXivID)
		writeOptional(&b, "archiveprefix", "arXiv")
	}
	writeOptional(&b, "pmid", e.PMID)
	writeOptional(&b, "pmcid", e.PMCID)
	if len(e.URLs) > 0 {
		writeOptional(&b, "url", e.URLs[0])
	}

	b.WriteString("}\n")

	return b.String()
}

func writeOptional(b *strings.Builder, name, value string) {
	if value != "" {
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", name, value))
	}
}

// ToBibTeXList converts entries to BibTeX, assigning each a unique
// citation key.
func ToBibTeXList(entries []entry.Entry) string {
	keys := NewKeyer()
	var out []string
	for _, e := range entries {
		out = append(out, ToBibTeX(e, keys.Key(e)))
	}
	return strings.Join(out, "\n")
}

// Keyer assigns citation keys, disambiguating repeats with a letter suffix
// (Smith2020, Smith2020a, Smith2020b, ...).
type Keyer struct {
	next map[string]int
	used map[string]bool
}

// NewKeyer creates an empty Keyer.
func NewKeyer() *Keyer {
	return &Keyer{next: make(map[string]int), used: make(map[string]bool)}
}

// Reserve marks key as taken.
func (k *Keyer) Reserve(key string) {
	k.used[key] = true
}

// Key returns the next unused citation key for e.
func (k *Keyer) Key(e entry.Entry) string {
	base := CitationKey(e)
	for {
		n := k.next[base]
		k.next[base] = n + 1
		key := base + suffix(n)
		if !k.used[key] {
			k.used[key] = true
			return key
		}
	}
}

// suffix maps 1 -> "a", 26 -> "z", 27 -> "aa".
func suffix(n int) string {
	var s []byte
	for n > 0 {
		n--
		s = append([]byte{byte('a' + n%26)}, s...)
		n /= 26
	}
	return string(s)
}

// CitationKey is the first author's last name followed by the year. Entries
// without authors fall back to the local id, then to "entry".
func CitationKey(e entry.Entry) string {
	var key string
	if len(e.Authors) > 0 {
		key = keyChars(author.Parse(e.Authors[0]).Last) + keyChars(e.Year)
	}
	if key == "" {
		key = keyChars(e.LocalID)
	}
	if key == "" {
		key = "entry" + keyChars(e.Year)
	}
	return key
}

func keyChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, s)
}

// determineEntryType returns the BibTeX entry type for an entry.
func determineEntryType(e entry.Entry) string {
	switch e.Type {
	case entry.TypeJournalArticle, entry.TypePreprint:
		return "article"
	case entry.TypeConferencePaper:
		return "inproceedings"
	case entry.TypeBookChapter:
		return "incollection"
	case entry.TypeDissertation:
		return "phdthesis"
	}

	venue := strings.ToLower(venueOf(e))
	if strings.Contains(venue, "proceedings") ||
		strings.Contains(venue, "conference") ||
		strings.Contains(venue, "workshop") ||
		strings.Contains(venue, "symposium") {
		return "inproceedings"
	}
	if e.Journal != "" {
		return "article"
	}
	return "misc"
}

// venueOf returns the first of journal, proceedings title, or repository.
func venueOf(e entry.Entry) string {
	for _, v := range []string{e.Journal, e.ConferenceProceedings, e.Repository} {
		if v != "" {
			return v
		}
	}
	return ""
}

// formatAuthors formats authors in BibTeX style: "Last, J. Q. and Last, A."
func formatAuthors(authors []string) string {
	formatted := make([]string, 0, len(authors))
	for _, a := range authors {
		formatted = append(formatted, escapeLatex(author.Parse(a).BibTeX()))
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
