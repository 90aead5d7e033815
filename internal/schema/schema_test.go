package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/biblio/internal/entry"
)

func TestDefault_IsValid(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if !s.HasUniqueKey(Key{"doi"}) || !s.HasUniqueKey(Key{"title"}) {
		t.Errorf("Default() unique keys = %v", s.UniqueKeys)
	}
}

func TestKeyString(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{Key{"doi"}, "(doi,)"},
		{Key{"journal", "volume"}, "(journal, volume)"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("Key%v.String() = %q, want %q", []string(tt.key), got, tt.want)
		}
	}
}

func TestLoad_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yml")
	content := `unique_keys:
  - [doi]
  - [journal, volume, issue, pages]
uri_fields:
  ceur_ws_url: '^https://ceur-ws\.org/Vol-'
required: [title, type]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write overlay: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(s.UniqueKeys) != 6 {
		t.Errorf("UniqueKeys = %v, want default 5 plus 1", s.UniqueKeys)
	}
	if !s.HasUniqueKey(Key{"journal", "volume", "issue", "pages"}) {
		t.Error("overlay key not added")
	}
	if len(s.URIFields) != 1 || s.URIFields[0].Pattern.String() != `^https://ceur-ws\.org/Vol-` {
		t.Errorf("URIFields = %v, want overridden ceur_ws_url pattern", s.URIFields)
	}
	if len(s.Required) != 2 {
		t.Errorf("Required = %v, want [title type]", s.Required)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yml")
	if err := os.WriteFile(path, []byte("unique_keys:\n  - [isbn]\n"), 0644); err != nil {
		t.Fatalf("Failed to write overlay: %v", err)
	}
	_, err := Load(path)
	if !errors.Is(err, entry.ErrUnknownField) {
		t.Fatalf("Load() error = %v, want ErrUnknownField", err)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if len(s.UniqueKeys) != len(Default().UniqueKeys) {
		t.Errorf("Load(\"\") = %v, want default", s.UniqueKeys)
	}
}

func TestValidateShape(t *testing.T) {
	s := Default()

	tests := []struct {
		name      string
		entry     entry.Entry
		wantCount int
		wantMsg   string
	}{
		{"valid", entry.Entry{Title: "test"}, 0, ""},
		{"missing title", entry.Entry{}, 1, "'title' is a required property"},
		{"bad type", entry.Entry{Title: "t", Type: "Journal Article"}, 1, "in /type"},
		{"bad role", entry.Entry{Title: "t", Role: "boss"}, 1, "in /role"},
		{"bad ceur url", entry.Entry{Title: "t", CEURWSURL: "https://example.org/x"}, 1, "in /ceur_ws_url"},
		{"good ceur url", entry.Entry{Title: "t", CEURWSURL: "http://ceur-ws.org/Vol-1/p.pdf"}, 0, ""},
		{
			"position out of range",
			entry.Entry{Title: "t", Position: entry.IntPtr(4), NumAuthors: entry.IntPtr(3)},
			1, "out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := s.ValidateShape(tt.entry)
			if len(problems) != tt.wantCount {
				t.Fatalf("ValidateShape() = %v, want %d problems", problems, tt.wantCount)
			}
			if tt.wantMsg != "" && !strings.Contains(problems[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want substring %q", problems[0].Message, tt.wantMsg)
			}
		})
	}
}
