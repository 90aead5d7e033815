package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/segmentio/encoding/json"
	"github.com/sirupsen/logrus"

	"github.com/matsen/biblio/internal/author"
	"github.com/matsen/biblio/internal/entry"
)

// paperpileColumns maps entry fields to Paperpile CSV columns. A field
// with several columns takes their non-empty values joined by a space.
var paperpileColumns = []struct {
	field   string
	columns []string
}{
	{"type", []string{"Item type"}},
	{"title", []string{"Title", "Dataset name"}},
	{"authors", []string{"Authors"}},
	{"authors_verbatim", []string{"Authors_verbatim"}},
	{"journal", []string{"Journal"}},
	{"repository", []string{"Source"}},
	{"conference_proceedings", []string{"Proceedings title"}},
	{"urls", []string{"URLs"}},
	{"urls_verbatim", []string{"URLs_verbatim"}},
	{"doi", []string{"DOI"}},
	{"pmid", []string{"PMID"}},
	{"pmcid", []string{"PMC ID"}},
	{"arxiv_id", []string{"Arxiv ID"}},
	{"year", []string{"Publication year"}},
	{"volume", []string{"Volume"}},
	{"issue", []string{"Issue"}},
	{"pages", []string{"Pages"}},
}

// dateColumns are consulted for the year when "Publication year" is empty.
var dateColumns = []string{"Publication date", "Date"}

// typeAliases maps Paperpile item types onto entry types.
var typeAliases = map[string]entry.Type{
	"Preprint Manuscript": entry.TypePreprint,
	"Journal Article":     entry.TypeJournalArticle,
	"Review":              entry.TypeJournalArticle,
	"Conference Paper":    entry.TypeConferencePaper,
	"Book Chapter":        entry.TypeBookChapter,
	"Thesis":              entry.TypeDissertation,
	"Computer Program":    entry.TypeSoftware,
	"Video or Film":       entry.TypeAudiovisual,
}

// ResolveType maps a Paperpile item type or entry type name to an entry
// type. Unknown names return TypeOther and false.
func ResolveType(name string) (entry.Type, bool) {
	if t := entry.Type(name); t.Valid() {
		return t, true
	}
	if t, ok := typeAliases[name]; ok {
		return t, true
	}
	return entry.TypeOther, false
}

// MapPaperpile maps a Paperpile row, with multivalued columns already split,
// onto entry field names. The item type is required.
func MapPaperpile(row map[string]any, log logrus.FieldLogger) (map[string]any, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	out := make(map[string]any)
	for _, m := range paperpileColumns {
		if v, ok := lookup(row, m.columns); ok {
			out[m.field] = v
		}
	}

	if _, ok := out["year"]; !ok {
		if year, ok := yearFromDate(row); ok {
			out["year"] = year
		}
	}

	raw, ok := out["type"].(string)
	if !ok {
		return nil, fmt.Errorf("missing type in entry %q", out["title"])
	}
	typ, known := ResolveType(raw)
	if !known {
		log.WithField("type", raw).Warn("unknown article type")
	}
	out["type"] = string(typ)

	volume, _ := out["volume"].(string)
	issue, _ := out["issue"].(string)
	pages, _ := out["pages"].(string)
	if volume == "" && issue != "" && pages != "" {
		volume, _ = out["year"].(string)
	}
	switch {
	case volume != "" && issue != "" && pages != "":
		out["local_id"] = LocalID(volume, issue, pages)
	case (volume != "" || issue != "" || pages != "") && typ == entry.TypeJournalArticle:
		log.WithFields(logrus.Fields{
			"title":  out["title"],
			"volume": volume,
			"issue":  issue,
			"pages":  pages,
		}).Warn("missing volume, issue, or pages")
	}

	return out, nil
}

// LocalID formats a journal locator as volume(issue):pages.
func LocalID(volume, issue, pages string) string {
	return fmt.Sprintf("%s(%s):%s", volume, issue, pages)
}

func lookup(row map[string]any, columns []string) (any, bool) {
	if len(columns) == 1 {
		v, ok := row[columns[0]]
		return v, ok && v != nil
	}
	var parts []string
	for _, c := range columns {
		if s, ok := row[c].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil, false
	}
	return strings.Join(parts, " "), true
}

func yearFromDate(row map[string]any) (string, bool) {
	for _, c := range dateColumns {
		s, ok := row[c].(string)
		if !ok || s == "" {
			continue
		}
		t, err := dateparse.ParseAny(s)
		if err != nil {
			continue
		}
		return strconv.Itoa(t.Year()), true
	}
	return "", false
}

// FlexibleString can unmarshal from either string or number JSON values.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	// Numbers keep their literal form ("2026", "2026.0").
	if _, err := strconv.ParseFloat(string(data), 64); err == nil {
		*f = FlexibleString(data)
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// PaperpileEntry is a single entry from a Paperpile JSON export.
type PaperpileEntry struct {
	ID        string         `json:"_id"`
	Citekey   string         `json:"citekey"`
	DOI       string         `json:"doi"`
	PMID      FlexibleString `json:"pmid"`
	ArXivID   string         `json:"arxiv_id"`
	Title     string         `json:"title"`
	Journal   string         `json:"journal"`
	Volume    FlexibleString `json:"volume"`
	Issue     FlexibleString `json:"issue"`
	Pages     string         `json:"pages"`
	Published struct {
		Year FlexibleString `json:"year"`
	} `json:"published"`
	Author []struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"author"`
	URL []string `json:"url"`
}

// ParsePaperpileJSON parses a Paperpile JSON export. Entries that cannot be
// converted are reported in the error slice and skipped.
func ParsePaperpileJSON(data []byte) ([]entry.Entry, []error) {
	var raw []PaperpileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, []error{fmt.Errorf("parsing Paperpile JSON: %w", err)}
	}

	var entries []entry.Entry
	var errs []error
	for i, pe := range raw {
		e, err := pe.toEntry()
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i+1, pe.Citekey, err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, errs
}

func (pe PaperpileEntry) toEntry() (entry.Entry, error) {
	if pe.Title == "" {
		return entry.Entry{}, fmt.Errorf("missing required field 'title'")
	}

	e := entry.Entry{
		Title:   pe.Title,
		DOI:     pe.DOI,
		PMID:    pe.PMID.String(),
		ArXivID: pe.ArXivID,
		Journal: pe.Journal,
		Year:    pe.Published.Year.String(),
		Volume:  pe.Volume.String(),
		Issue:   pe.Issue.String(),
		Pages:   pe.Pages,
		URLs:    pe.URL,
	}
	if e.Year != "" {
		if _, err := strconv.Atoi(e.Year); err != nil {
			return entry.Entry{}, fmt.Errorf("invalid year: %s", e.Year)
		}
	}

	for _, a := range pe.Author {
		if name := author.FromParts(a.First, a.Last).String(); name != "" {
			e.Authors = append(e.Authors, name)
		}
	}
	if e.Volume != "" && e.Issue != "" && e.Pages != "" {
		e.LocalID = LocalID(e.Volume, e.Issue, e.Pages)
	}
	return e, nil
}
