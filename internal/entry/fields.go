package entry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownField is returned when a field name is not declared on Entry.
var ErrUnknownField = errors.New("unknown field")

// ErrFieldCollision is returned when two input keys name the same field.
var ErrFieldCollision = errors.New("keys name the same field")

// ListSeparator joins list-valued fields when a single string is needed
// (uniqueness tuples, CSV cells).
const ListSeparator = "|"

// field describes one named, settable attribute of Entry.
type field struct {
	name string
	get  func(e *Entry) (any, bool)
	set  func(e *Entry, v any) error
}

func stringField(name string, ptr func(e *Entry) *string) field {
	return field{
		name: name,
		get: func(e *Entry) (any, bool) {
			v := *ptr(e)
			return v, v != ""
		},
		set: func(e *Entry, v any) error {
			s, err := coerceString(v)
			if err != nil {
				return err
			}
			*ptr(e) = s
			return nil
		},
	}
}

func listField(name string, ptr func(e *Entry) *[]string) field {
	return field{
		name: name,
		get: func(e *Entry) (any, bool) {
			v := *ptr(e)
			return v, len(v) > 0
		},
		set: func(e *Entry, v any) error {
			l, err := coerceList(v)
			if err != nil {
				return err
			}
			*ptr(e) = l
			return nil
		},
	}
}

func intField(name string, ptr func(e *Entry) **int) field {
	return field{
		name: name,
		get: func(e *Entry) (any, bool) {
			p := *ptr(e)
			if p == nil {
				return nil, false
			}
			return *p, true
		},
		set: func(e *Entry, v any) error {
			if v == nil {
				*ptr(e) = nil
				return nil
			}
			n, err := coerceInt(v)
			if err != nil {
				return err
			}
			*ptr(e) = &n
			return nil
		},
	}
}

// fields is the declaration-ordered table of every Entry attribute.
var fields = []field{
	{
		name: "type",
		get:  func(e *Entry) (any, bool) { return e.Type, e.Type != "" },
		set: func(e *Entry, v any) error {
			s, err := coerceString(v)
			e.Type = Type(s)
			return err
		},
	},
	stringField("title", func(e *Entry) *string { return &e.Title }),
	listField("authors", func(e *Entry) *[]string { return &e.Authors }),
	stringField("authors_verbatim", func(e *Entry) *string { return &e.AuthorsVerbatim }),
	stringField("journal", func(e *Entry) *string { return &e.Journal }),
	stringField("repository", func(e *Entry) *string { return &e.Repository }),
	stringField("conference_proceedings", func(e *Entry) *string { return &e.ConferenceProceedings }),
	listField("urls", func(e *Entry) *[]string { return &e.URLs }),
	stringField("urls_verbatim", func(e *Entry) *string { return &e.URLsVerbatim }),
	stringField("ceur_ws_url", func(e *Entry) *string { return &e.CEURWSURL }),
	stringField("doi", func(e *Entry) *string { return &e.DOI }),
	stringField("pmid", func(e *Entry) *string { return &e.PMID }),
	stringField("pmcid", func(e *Entry) *string { return &e.PMCID }),
	stringField("arxiv_id", func(e *Entry) *string { return &e.ArXivID }),
	stringField("biorxiv_id", func(e *Entry) *string { return &e.BioRxivID }),
	stringField("chemrxiv_id", func(e *Entry) *string { return &e.ChemRxivID }),
	stringField("year", func(e *Entry) *string { return &e.Year }),
	stringField("volume", func(e *Entry) *string { return &e.Volume }),
	stringField("issue", func(e *Entry) *string { return &e.Issue }),
	stringField("pages", func(e *Entry) *string { return &e.Pages }),
	stringField("local_id", func(e *Entry) *string { return &e.LocalID }),
	intField("num_authors", func(e *Entry) **int { return &e.NumAuthors }),
	intField("position", func(e *Entry) **int { return &e.Position }),
	intField("rank", func(e *Entry) **int { return &e.Rank }),
	{
		name: "significance",
		get: func(e *Entry) (any, bool) {
			if e.Significance == nil {
				return nil, false
			}
			return *e.Significance, true
		},
		set: func(e *Entry, v any) error {
			if v == nil {
				e.Significance = nil
				return nil
			}
			f, err := coerceFloat(v)
			if err != nil {
				return err
			}
			e.Significance = &f
			return nil
		},
	},
	{
		name: "role",
		get:  func(e *Entry) (any, bool) { return e.Role, e.Role != "" },
		set: func(e *Entry, v any) error {
			s, err := coerceString(v)
			e.Role = Role(s)
			return err
		},
	},
}

var fieldsByName = func() map[string]field {
	m := make(map[string]field, len(fields))
	for _, f := range fields {
		m[f.name] = f
	}
	return m
}()

// FieldNames returns every declared field name in declaration order.
func FieldNames() []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names
}

// HasField reports whether name is a declared field.
func HasField(name string) bool {
	_, ok := fieldsByName[name]
	return ok
}

// NormalizeKey maps schema-style or spreadsheet-style field names onto
// Entry field names ("Arxiv ID" -> "arxiv_id").
func NormalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, " ", "_"))
}

// Get returns the value of the named field and whether it is set.
// Values are string, Type, Role, []string, int or float64.
func (e *Entry) Get(name string) (any, bool) {
	f, ok := fieldsByName[name]
	if !ok {
		return nil, false
	}
	return f.get(e)
}

// IsSet reports whether the named field has a value.
func (e *Entry) IsSet(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Set assigns the named field, coercing compatible value types.
func (e *Entry) Set(name string, value any) error {
	f, ok := fieldsByName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if err := f.set(e, value); err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	return nil
}

// KeyValue returns the string form of a field for building uniqueness
// tuples. List fields are joined with ListSeparator. Unset fields return
// false.
func (e *Entry) KeyValue(name string) (string, bool) {
	v, ok := e.Get(name)
	if !ok {
		return "", false
	}
	return FormatValue(v), true
}

// FormatValue renders a field value as a single string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case Type:
		return string(x)
	case Role:
		return string(x)
	case []string:
		return strings.Join(x, ListSeparator)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// ToMap returns the set fields of e keyed by field name.
func (e Entry) ToMap() map[string]any {
	m := make(map[string]any)
	for _, f := range fields {
		v, ok := f.get(&e)
		if !ok {
			continue
		}
		switch x := v.(type) {
		case Type:
			v = string(x)
		case Role:
			v = string(x)
		case []string:
			v = cloneStrings(x)
		}
		m[f.name] = v
	}
	return m
}

// FromMap converts a generic key/value record into an Entry. Keys are
// normalized with NormalizeKey; nil and empty values are skipped. Keys that
// are not declared fields are rejected, as are two non-empty keys that
// normalize to the same field ("Arxiv ID" and "arxiv_id").
func FromMap(m map[string]any) (Entry, error) {
	var e Entry
	from := make(map[string]string, len(m))
	for k, v := range m {
		if isEmpty(v) {
			continue
		}
		name := NormalizeKey(k)
		if prev, ok := from[name]; ok {
			a, b := min(prev, k), max(prev, k)
			return Entry{}, fmt.Errorf("%w: %q and %q", ErrFieldCollision, a, b)
		}
		from[name] = k
		if err := e.Set(name, v); err != nil {
			return Entry{}, err
		}
	}
	return e, nil
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return false
}

func coerceString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case Type:
		return string(x), nil
	case Role:
		return string(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.Number:
		return x.String(), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", fmt.Errorf("cannot use %T as string", v)
}

func coerceList(v any) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return cloneStrings(x), nil
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, err := coerceString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		if x == "" {
			return nil, nil
		}
		return []string{x}, nil
	}
	return nil, fmt.Errorf("cannot use %T as list", v)
}

func coerceInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("expected integer, got %v", x)
		}
		return int(x), nil
	case json.Number:
		n, err := x.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(strings.TrimSpace(x))
	}
	return 0, fmt.Errorf("cannot use %T as integer", v)
}

func coerceFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, fmt.Errorf("cannot use %T as float", v)
}
