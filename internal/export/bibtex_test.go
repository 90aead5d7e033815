package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/biblio/internal/entry"
)

func TestToBibTeX_BasicArticle(t *testing.T) {
	e := entry.Entry{
		Type:    entry.TypeJournalArticle,
		DOI:     "10.1234/test",
		Title:   "Test Paper Title",
		Authors: []string{"Smith J", "Doe JQ"},
		Journal: "Nature",
		Year:    "2026",
		Volume:  "12",
		Issue:   "3",
		Pages:   "1-10",
	}

	got := ToBibTeX(e, "Smith2026")

	for _, want := range []string{
		"@article{Smith2026,",
		`author = {Smith, J. and Doe, J. Q.}`,
		`title = {Test Paper Title}`,
		`journal = {Nature}`,
		`year = {2026}`,
		`volume = {12}`,
		`number = {3}`,
		`pages = {1--10}`,
		`doi = {10.1234/test}`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ToBibTeX() missing %q, got:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(got), "}") {
		t.Errorf("ToBibTeX() should end with }, got:\n%s", got)
	}
}

func TestToBibTeX_Inproceedings(t *testing.T) {
	e := entry.Entry{
		Type:                  entry.TypeConferencePaper,
		Title:                 "A Conference Paper",
		Authors:               []string{"Brown A"},
		ConferenceProceedings: "Proceedings of ICML 2026",
		Year:                  "2026",
	}

	got := ToBibTeX(e, "Brown2026")

	if !strings.HasPrefix(got, "@inproceedings{Brown2026,") {
		t.Errorf("ToBibTeX() should be inproceedings, got:\n%s", got)
	}
	if !strings.Contains(got, `booktitle = {Proceedings of ICML 2026}`) {
		t.Errorf("ToBibTeX() should use booktitle, got:\n%s", got)
	}
}

func TestToBibTeX_Preprint(t *testing.T) {
	e := entry.Entry{
		Type:       entry.TypePreprint,
		Title:      "On arXiv",
		Journal:    "arXiv",
		ArXivID:    "2101.00001",
		URLs:       []string{"https://arxiv.org/abs/2101.00001", "https://example.org"},
		PMID:       "123",
		PMCID:      "PMC456",
		Repository: "ignored",
	}

	got := ToBibTeX(e, "k")

	for _, want := range []string{
		"@article{k,",
		`journal = {arXiv}`,
		`eprint = {2101.00001}`,
		`archiveprefix = {arXiv}`,
		`pmid = {123}`,
		`pmcid = {PMC456}`,
		`url = {https://arxiv.org/abs/2101.00001}`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ToBibTeX() missing %q, got:\n%s", want, got)
		}
	}
	if strings.Contains(got, "ignored") {
		t.Errorf("ToBibTeX() should prefer journal over repository, got:\n%s", got)
	}
}

func TestDetermineEntryType(t *testing.T) {
	tests := []struct {
		name  string
		entry entry.Entry
		want  string
	}{
		{"journal article", entry.Entry{Type: entry.TypeJournalArticle}, "article"},
		{"preprint", entry.Entry{Type: entry.TypePreprint}, "article"},
		{"conference paper", entry.Entry{Type: entry.TypeConferencePaper}, "inproceedings"},
		{"book chapter", entry.Entry{Type: entry.TypeBookChapter}, "incollection"},
		{"dissertation", entry.Entry{Type: entry.TypeDissertation}, "phdthesis"},
		{"other with workshop venue", entry.Entry{Type: entry.TypeOther, Journal: "Workshop on Things"}, "inproceedings"},
		{"other with symposium venue", entry.Entry{ConferenceProceedings: "Annual Symposium"}, "inproceedings"},
		{"other with journal", entry.Entry{Type: entry.TypeOther, Journal: "Science"}, "article"},
		{"software", entry.Entry{Type: entry.TypeSoftware, Repository: "GitHub"}, "misc"},
		{"no venue", entry.Entry{}, "misc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := determineEntryType(tt.entry); got != tt.want {
				t.Errorf("determineEntryType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		name    string
		authors []string
		want    string
	}{
		{"single", []string{"Smith J"}, "Smith, J."},
		{"two initials", []string{"Smith JQ"}, "Smith, J. Q."},
		{"multiple", []string{"Smith J", "Doe A"}, "Smith, J. and Doe, A."},
		{"compound last name", []string{"van der Berg AB"}, "van der Berg, A. B."},
		{"no initials", []string{"Consortium"}, "Consortium"},
		{"full first name kept whole", []string{"Jane Smith"}, "Jane Smith"},
		{"escaped", []string{"R&D Team"}, `R\&D Team`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAuthors(tt.authors); got != tt.want {
				t.Errorf("formatAuthors(%v) = %q, want %q", tt.authors, got, tt.want)
			}
		})
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello World", "Hello World"},
		{"Q&A", `Q\&A`},
		{"100%", `100\%`},
		{"$5", `\$5`},
		{"#1", `\#1`},
		{"a_b", `a\_b`},
		{"{x}", `\{x\}`},
		{"~", `\textasciitilde{}`},
		{"x^2", `x\textasciicircum{}2`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapeLatex(tt.input); got != tt.want {
				t.Errorf("escapeLatex(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCitationKey(t *testing.T) {
	tests := []struct {
		name  string
		entry entry.Entry
		want  string
	}{
		{"author and year", entry.Entry{Authors: []string{"Smith JQ"}, Year: "2020"}, "Smith2020"},
		{"compound name", entry.Entry{Authors: []string{"van der Berg A"}, Year: "2019"}, "vanderBerg2019"},
		{"no authors uses local id", entry.Entry{LocalID: "12(3):45-67"}, "1234567"},
		{"nothing", entry.Entry{Year: "2021"}, "entry2021"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CitationKey(tt.entry); got != tt.want {
				t.Errorf("CitationKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyer(t *testing.T) {
	e := entry.Entry{Authors: []string{"Smith J"}, Year: "2020"}
	k := NewKeyer()
	k.Reserve("Smith2020a")

	var got []string
	for range 3 {
		got = append(got, k.Key(e))
	}
	want := []string{"Smith2020", "Smith2020b", "Smith2020c"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Key() #%d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSuffix(t *testing.T) {
	for n, want := range map[int]string{0: "", 1: "a", 26: "z", 27: "aa", 28: "ab"} {
		if got := suffix(n); got != want {
			t.Errorf("suffix(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestToBibTeXList(t *testing.T) {
	entries := []entry.Entry{
		{Title: "First", Authors: []string{"Smith J"}, Year: "2020"},
		{Title: "Second", Authors: []string{"Smith A"}, Year: "2020"},
	}

	got := ToBibTeXList(entries)

	if !strings.Contains(got, "{Smith2020,") || !strings.Contains(got, "{Smith2020a,") {
		t.Errorf("ToBibTeXList() should disambiguate keys, got:\n%s", got)
	}
	if strings.Count(got, "@") != 2 {
		t.Errorf("ToBibTeXList() should contain 2 entries, got:\n%s", got)
	}
}

func TestToBibTeXList_Empty(t *testing.T) {
	if got := ToBibTeXList(nil); got != "" {
		t.Errorf("ToBibTeXList(nil) = %q, want empty", got)
	}
}

func TestToBibTeX_NoAuthors(t *testing.T) {
	got := ToBibTeX(entry.Entry{Title: "Anonymous"}, "entry")
	if strings.Contains(got, "author") {
		t.Errorf("ToBibTeX() should omit author field, got:\n%s", got)
	}
}

func TestParseBibTeXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	content := `@article{Smith2020,
  title = {A},
  doi = {https://doi.org/10.1234/ABC},
}

@misc{Doe2021,
  title = {B},
}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	idx, err := ParseBibTeXFile(path)
	if err != nil {
		t.Fatalf("ParseBibTeXFile() error = %v", err)
	}
	if !idx.Keys["Smith2020"] || !idx.Keys["Doe2021"] {
		t.Errorf("Keys = %v", idx.Keys)
	}
	if idx.DOIs["10.1234/abc"] != "Smith2020" {
		t.Errorf("DOIs = %v", idx.DOIs)
	}

	tests := []struct {
		key, doi string
		want     bool
	}{
		{"Other", "10.1234/abc", true},
		{"Smith2020", "10.9/other", false},
		{"Doe2021", "", true},
		{"Nobody", "", false},
	}
	for _, tt := range tests {
		if got := idx.HasEntry(tt.key, tt.doi); got != tt.want {
			t.Errorf("HasEntry(%q, %q) = %v, want %v", tt.key, tt.doi, got, tt.want)
		}
	}
}

func TestParseBibTeXFile_Missing(t *testing.T) {
	idx, err := ParseBibTeXFile(filepath.Join(t.TempDir(), "none.bib"))
	if err != nil {
		t.Fatalf("ParseBibTeXFile() error = %v", err)
	}
	if len(idx.Keys) != 0 {
		t.Errorf("Keys = %v, want empty", idx.Keys)
	}
}

func TestAppendBibTeX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	entries := []entry.Entry{
		{Title: "One", Authors: []string{"Smith J"}, Year: "2020", DOI: "10.1/one"},
		{Title: "Two", Authors: []string{"Smith J"}, Year: "2020", DOI: "10.1/two"},
	}

	n, err := AppendBibTeX(path, entries)
	if err != nil {
		t.Fatalf("AppendBibTeX() error = %v", err)
	}
	if n != 2 {
		t.Errorf("AppendBibTeX() wrote %d, want 2", n)
	}

	entries = append(entries, entry.Entry{Title: "Three", Authors: []string{"Smith J"}, Year: "2020", DOI: "10.1/three"})
	n, err = AppendBibTeX(path, entries)
	if err != nil {
		t.Fatalf("second AppendBibTeX() error = %v", err)
	}
	if n != 1 {
		t.Errorf("second AppendBibTeX() wrote %d, want 1", n)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"{Smith2020,", "{Smith2020a,", "{Smith2020b,"} {
		if strings.Count(string(data), key) != 1 {
			t.Errorf("file should contain %s once, got:\n%s", key, data)
		}
	}
}
