package validate

import (
	"reflect"
	"strings"
	"testing"

	"github.com/matsen/biblio/internal/entry"
	"github.com/matsen/biblio/internal/index"
	"github.com/matsen/biblio/internal/schema"
)

const (
	doi1 = "10.48550/2103.00001"
	doi2 = "10.48550/2103.00002"
)

func TestValidate_RequiredField(t *testing.T) {
	got := Collect(Validate([]entry.Entry{{}}, schema.Default(), DefaultOptions()))
	if len(got) == 0 {
		t.Fatal("Validate([{}]) returned no diagnostics, want missing title")
	}
	if got[0].Type != TypeShape || !strings.Contains(got[0].Message, "'title' is a required property") {
		t.Errorf("first diagnostic = %+v", got[0])
	}

	if got := Collect(Validate([]entry.Entry{{Title: "test"}}, schema.Default(), DefaultOptions())); len(got) != 0 {
		t.Errorf("Validate([{title: test}]) = %v, want none", got)
	}
}

func TestValidate_DuplicateTitle(t *testing.T) {
	entries := []entry.Entry{{Title: "same"}, {Title: "same"}}

	got := Collect(Validate(entries, schema.Default(), DefaultOptions()))
	if len(got) != 1 {
		t.Fatalf("Validate() = %v, want exactly one duplicate diagnostic", got)
	}
	if got[0].Type != TypeDuplicate || got[0].Index != 1 {
		t.Errorf("diagnostic = %+v", got[0])
	}
}

func TestValidate_TitleUniquenessNotDeclared(t *testing.T) {
	sch := &schema.Schema{UniqueKeys: []schema.Key{{"doi"}}, Required: []string{"title"}}
	entries := []entry.Entry{{Title: "same"}, {Title: "same"}}

	if got := Collect(Validate(entries, sch, DefaultOptions())); len(got) != 1 {
		t.Errorf("with enforcement: %v, want one diagnostic", got)
	}
	if got := Collect(Validate(entries, sch, Options{})); len(got) != 0 {
		t.Errorf("without enforcement: %v, want none", got)
	}
}

func TestValidate_TitleUniquenessDisabled(t *testing.T) {
	entries := []entry.Entry{{Title: "same", DOI: doi1}, {Title: "same", DOI: doi1}}

	opts := DefaultOptions()
	opts.EnforceTitleUniqueness = false
	got := Collect(Validate(entries, schema.Default(), opts))
	if len(got) != 1 {
		t.Fatalf("Validate() = %v, want only the doi duplicate", got)
	}
	if !got[0].Key.Equal(schema.Key{"doi"}) {
		t.Errorf("Key = %v, want (doi,)", got[0].Key)
	}
}

func TestValidate_DuplicateDOI(t *testing.T) {
	entries := []entry.Entry{{DOI: doi1}, {DOI: doi1}}

	got := Collect(Validate(entries, schema.Default(), Options{Partial: true}))
	if len(got) != 1 {
		t.Fatalf("Validate() = %v, want one diagnostic", got)
	}
	want := "Duplicate entries for (doi,): (10.48550/2103.00001,)"
	if got[0].Message != want {
		t.Errorf("Message = %q, want %q", got[0].Message, want)
	}
	if !got[0].Key.Equal(schema.Key{"doi"}) || !reflect.DeepEqual(got[0].Values, []string{doi1}) {
		t.Errorf("Key/Values = %v/%v", got[0].Key, got[0].Values)
	}

	distinct := []entry.Entry{{DOI: doi1}, {DOI: doi2}}
	if got := Collect(Validate(distinct, schema.Default(), Options{Partial: true})); len(got) != 0 {
		t.Errorf("Validate(distinct) = %v, want none", got)
	}
}

func TestValidate_IndexStrictnessContrast(t *testing.T) {
	entries := []entry.Entry{{Title: "a", DOI: doi1}, {Title: "b", DOI: doi1}}

	if _, err := index.Build(entries, schema.Default().UniqueKeys, true); err == nil {
		t.Fatal("index.Build() error = nil, want duplicate key error")
	}
	got := Collect(Validate(entries, schema.Default(), DefaultOptions()))
	if len(got) != 1 || got[0].Type != TypeDuplicate {
		t.Errorf("Validate() = %v, want one duplicate diagnostic", got)
	}
}

func TestValidate_AllDuplicatesReported(t *testing.T) {
	entries := []entry.Entry{
		{Title: "a", DOI: doi1, PMID: "1"},
		{Title: "b", DOI: doi1, PMID: "1"},
		{Title: "c", DOI: doi1},
	}

	got := Collect(Validate(entries, schema.Default(), DefaultOptions()))
	var doi, pmid int
	for _, d := range got {
		switch {
		case d.Key.Equal(schema.Key{"doi"}):
			doi++
		case d.Key.Equal(schema.Key{"pmid"}):
			pmid++
		}
	}
	if doi != 2 || pmid != 1 {
		t.Errorf("doi duplicates = %d, pmid duplicates = %d; want 2 and 1", doi, pmid)
	}
}

func TestValidate_ReportFields(t *testing.T) {
	entries := []entry.Entry{{Title: "a", DOI: doi1, Year: "2020"}, {Title: "b", DOI: doi1, Year: "2021"}}

	got := Collect(Validate(entries, schema.Default(), Options{Partial: true, ReportFields: []string{"title", "year"}}))
	if len(got) != 1 {
		t.Fatalf("Validate() = %v, want one diagnostic", got)
	}
	if !strings.HasSuffix(got[0].Message, " (b, 2021)") {
		t.Errorf("Message = %q, want suffix \" (b, 2021)\"", got[0].Message)
	}
}

func TestValidate_PartialKeysSkipped(t *testing.T) {
	sch := &schema.Schema{UniqueKeys: []schema.Key{{"journal", "volume"}}}
	entries := []entry.Entry{{Title: "a", Journal: "J"}, {Title: "b", Journal: "J"}}

	if got := Collect(Validate(entries, sch, Options{Partial: true})); len(got) != 0 {
		t.Errorf("Validate() = %v, want none for tuples with unset components", got)
	}
}

func TestValidate_PreprintInJournal(t *testing.T) {
	tests := []struct {
		name    string
		e       entry.Entry
		wantHit bool
	}{
		{"medrxiv", entry.Entry{Type: entry.TypeJournalArticle, Journal: "medRxiv"}, true},
		{"biorxiv", entry.Entry{Type: entry.TypeJournalArticle, Journal: "BIORXIV"}, true},
		{"f1000", entry.Entry{Type: entry.TypeJournalArticle, Journal: "F1000Research"}, true},
		{"preprint type", entry.Entry{Type: entry.TypePreprint, Journal: "bioRxiv"}, false},
		{"real journal", entry.Entry{Type: entry.TypeJournalArticle, Journal: "Nature"}, false},
		{"no journal", entry.Entry{Type: entry.TypeJournalArticle}, false},
		{"biorxiv suffix", entry.Entry{Type: entry.TypeJournalArticle, Journal: "bioRxiv preprint"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.e.Title = "paper"
			got := Collect(Validate([]entry.Entry{tt.e}, schema.Default(), Options{Partial: true}))
			if hit := len(got) == 1 && got[0].Type == TypePreprintInJournal; hit != tt.wantHit {
				t.Fatalf("Validate() = %v, want hit %v", got, tt.wantHit)
			}
			if tt.wantHit {
				want := "Preprint in journal field: " + tt.e.Journal + ", paper"
				if got[0].Message != want || got[0].Severity != schema.SeverityWarning {
					t.Errorf("diagnostic = %+v, want warning %q", got[0], want)
				}
			}
		})
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	entries := []entry.Entry{{Title: "a", ArXivID: "2103.00001"}, {Title: "a"}}
	before := []entry.Entry{entries[0].Clone(), entries[1].Clone()}

	Collect(Validate(entries, schema.Default(), DefaultOptions()))
	if !reflect.DeepEqual(entries, before) {
		t.Errorf("entries mutated: %+v", entries)
	}
}

func TestValidate_EarlyStop(t *testing.T) {
	entries := []entry.Entry{{}, {}, {}}
	n := 0
	for range Validate(entries, schema.Default(), DefaultOptions()) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("consumed %d diagnostics, want 1", n)
	}
}

// stubShape flags every entry.
type stubShape struct{}

func (stubShape) ValidateShape(e entry.Entry) []schema.Problem {
	return []schema.Problem{{Message: "stub", Severity: schema.SeverityWarning}}
}

func TestValidate_CustomShape(t *testing.T) {
	opts := DefaultOptions()
	opts.Shape = stubShape{}

	got := Collect(Validate([]entry.Entry{{Title: "a"}}, schema.Default(), opts))
	if len(got) != 1 || got[0].Message != "stub" {
		t.Errorf("Validate() = %v, want stub diagnostic", got)
	}
	if HasErrors(got) {
		t.Error("HasErrors() = true for warnings only")
	}
}
