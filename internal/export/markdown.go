package export

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/matsen/biblio/internal/enrich"
	"github.com/matsen/biblio/internal/entry"
)

// DefaultMarkdownTemplate lists entries grouped under year headings.
const DefaultMarkdownTemplate = `{{range .Years}}## {{.Year}}

{{range .Entries}}- {{join .Authors ", "}}{{if .Authors}}. {{end}}**{{.Title}}**.{{with venue .}} *{{.}}*{{end}}{{with .LocalID}} {{.}}{{end}}{{with .DOI}} [doi:{{.}}](https://doi.org/{{.}}){{end}}
{{end}}
{{end}}`

// MarkdownOptions controls Markdown rendering.
type MarkdownOptions struct {
	// Template is a text/template file; empty uses DefaultMarkdownTemplate.
	Template string
	// Authors are exact names or regular expressions to highlight in bold.
	Authors []string
}

// YearGroup is the entries of one publication year.
type YearGroup struct {
	Year    string
	Entries []entry.Entry
}

// MarkdownData is the value passed to the template.
type MarkdownData struct {
	Entries []entry.Entry
	Years   []YearGroup
}

var templateFuncs = template.FuncMap{
	"join":  strings.Join,
	"venue": venueOf,
}

// HighlightAuthors returns a copy of e with every author matching one of
// patterns wrapped in "**". A pattern matches an author exactly or as a
// regular expression anchored at the start of the name.
func HighlightAuthors(e entry.Entry, patterns []string) entry.Entry {
	e = e.Clone()
	for i, a := range e.Authors {
		for _, p := range patterns {
			if enrich.AuthorMatches(a, p, true) {
				e.Authors[i] = "**" + a + "**"
				break
			}
		}
	}
	return e
}

// SortForListing orders entries by year then significance, both descending.
// Ties keep input order.
func SortForListing(entries []entry.Entry) []entry.Entry {
	sorted := make([]entry.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year > sorted[j].Year
		}
		return significance(sorted[i]) > significance(sorted[j])
	})
	return sorted
}

func significance(e entry.Entry) float64 {
	if e.Significance == nil {
		return 0
	}
	return *e.Significance
}

// Markdown renders entries through a template after highlighting authors
// and sorting.
func Markdown(w io.Writer, entries []entry.Entry, opts MarkdownOptions) error {
	tmpl, err := loadTemplate(opts.Template)
	if err != nil {
		return err
	}

	rendered := make([]entry.Entry, 0, len(entries))
	for _, e := range entries {
		if len(opts.Authors) > 0 {
			e = HighlightAuthors(e, opts.Authors)
		}
		rendered = append(rendered, e)
	}
	rendered = SortForListing(rendered)

	data := MarkdownData{Entries: rendered}
	for _, e := range rendered {
		if n := len(data.Years); n == 0 || data.Years[n-1].Year != e.Year {
			data.Years = append(data.Years, YearGroup{Year: e.Year})
		}
		last := &data.Years[len(data.Years)-1]
		last.Entries = append(last.Entries, e)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	return nil
}

func loadTemplate(path string) (*template.Template, error) {
	text := DefaultMarkdownTemplate
	name := "default"
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading template: %w", err)
		}
		text = string(data)
		name = path
	}
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	return tmpl, nil
}
