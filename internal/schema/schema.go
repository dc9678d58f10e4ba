// Package schema maps storage models to JSON:API resources through explicit
// per-field descriptor tables.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type Kind int

const (
	Integer Kind = iota
	String
	Time
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case String:
		return "string"
	case Time:
		return "datetime"
	default:
		return "unknown"
	}
}

// RouteName identifies a named route on the router.
type RouteName string

// Field describes one attribute of T. Values passed to Set and returned by
// Load are normalized per Kind: int64, string, time.Time, or nil for null.
type Field[T any] struct {
	Name   string
	Column string
	Kind   Kind

	Required  bool
	Nullable  bool
	ReadOnly  bool
	WriteOnly bool
	Unique    bool
	MaxLength int

	Default func() any
	Get     func(*T) any
	Set     func(*T, any)
}

// Relationship describes a to-many link from the owning type to Related,
// stored as ForeignKey on the related table. The related collection is
// RelatedRoute filtered by filter[RelatedFilter]=<owner id>.
type Relationship struct {
	Name          string
	Related       string
	Many          bool
	ForeignKey    string
	SelfRoute     RouteName
	RelatedRoute  RouteName
	RelatedFilter string
}

// Schema is the descriptor table for one resource type. LinkFilters maps
// extra filter names to hidden linkage columns.
type Schema[T any] struct {
	Type          string
	Fields        []Field[T]
	Relationships []Relationship
	LinkFilters   map[string]string
}

// IDField is the name of the resource identifier field. It is never an
// attribute on the wire.
const IDField = "id"

// Mode selects create or update validation.
type Mode int

const (
	Create Mode = iota
	Update
)

type LoadOptions struct {
	Mode          Mode
	RejectUnknown bool
}

func (s *Schema[T]) Field(name string) (*Field[T], bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

func (s *Schema[T]) Relationship(name string) (*Relationship, bool) {
	for i := range s.Relationships {
		if s.Relationships[i].Name == name {
			return &s.Relationships[i], true
		}
	}
	return nil, false
}

// ID returns the storage id of rec as the JSON:API string id.
func (s *Schema[T]) ID(rec *T) string {
	f, ok := s.Field(IDField)
	if !ok {
		return ""
	}
	return fmt.Sprint(f.Get(rec))
}

// Load validates attrs and returns the normalized values keyed by field name.
// In Create mode every Required field must be present and absent fields with
// a Default receive it. In Update mode only the present fields are checked.
func (s *Schema[T]) Load(attrs map[string]json.RawMessage, opts LoadOptions) (map[string]any, error) {
	var errs ValidationErrors
	values := make(map[string]any, len(attrs))

	for i := range s.Fields {
		f := &s.Fields[i]
		raw, present := attrs[f.Name]

		if f.ReadOnly {
			if present {
				errs = append(errs, &FieldError{Field: f.Name, Detail: "field is read-only"})
			}
			continue
		}

		if !present {
			if opts.Mode == Create {
				switch {
				case f.Default != nil:
					values[f.Name] = f.Default()
				case f.Required:
					errs = append(errs, &FieldError{Field: f.Name, Detail: "missing data for required field"})
				}
			}
			continue
		}

		v, err := decodeValue(f.Kind, f.Nullable, raw)
		if err != nil {
			errs = append(errs, &FieldError{Field: f.Name, Detail: err.Error()})
			continue
		}
		if str, ok := v.(string); ok && f.MaxLength > 0 && utf8.RuneCountInString(str) > f.MaxLength {
			errs = append(errs, &FieldError{Field: f.Name, Detail: fmt.Sprintf("longer than maximum length %d", f.MaxLength)})
			continue
		}
		values[f.Name] = v
	}

	var unknown []string
	for name := range attrs {
		if _, ok := s.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		if name == IDField {
			errs = append(errs, &FieldError{Field: name, Detail: "field is read-only"})
		} else if opts.RejectUnknown {
			errs = append(errs, &FieldError{Field: name, Detail: "unknown field"})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return values, nil
}

// Apply writes values into rec and returns the storage columns touched, in
// descriptor order.
func (s *Schema[T]) Apply(rec *T, values map[string]any) []string {
	columns := make([]string, 0, len(values))
	for i := range s.Fields {
		f := &s.Fields[i]
		v, ok := values[f.Name]
		if !ok || f.ReadOnly {
			continue
		}
		f.Set(rec, v)
		columns = append(columns, f.Column)
	}
	return columns
}

// Columns returns the storage columns Apply would touch for values.
func (s *Schema[T]) Columns(values map[string]any) []string {
	columns := make([]string, 0, len(values))
	for i := range s.Fields {
		f := &s.Fields[i]
		if _, ok := values[f.Name]; ok && !f.ReadOnly {
			columns = append(columns, f.Column)
		}
	}
	return columns
}

// Dump returns the readable attributes of rec. The id and write-only fields
// are left out.
func (s *Schema[T]) Dump(rec *T) map[string]any {
	attrs := make(map[string]any, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.WriteOnly || f.Name == IDField {
			continue
		}
		attrs[f.Name] = f.Get(rec)
	}
	return attrs
}

// ParseFilter converts a query-string value for the named attribute into a
// storage column and typed value.
func (s *Schema[T]) ParseFilter(name, raw string) (string, any, error) {
	if column, ok := s.LinkFilters[name]; ok {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return "", nil, &FieldError{Field: name, Detail: "filter value must be an id", Source: SourceParameter}
		}
		return column, uint(n), nil
	}

	f, ok := s.Field(name)
	if !ok || f.WriteOnly {
		return "", nil, &FieldError{Field: name, Detail: "unknown filter attribute", Source: SourceParameter}
	}

	switch f.Kind {
	case Integer:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", nil, &FieldError{Field: name, Detail: "filter value must be an integer", Source: SourceParameter}
		}
		return f.Column, n, nil
	case Time:
		t, err := ParseTime(raw)
		if err != nil {
			return "", nil, &FieldError{Field: name, Detail: err.Error(), Source: SourceParameter}
		}
		return f.Column, t, nil
	default:
		return f.Column, raw, nil
	}
}

// UniqueValues returns the values of Unique fields present in values.
func (s *Schema[T]) UniqueValues(values map[string]any) []UniqueValue {
	var out []UniqueValue
	for i := range s.Fields {
		f := &s.Fields[i]
		if !f.Unique {
			continue
		}
		if v, ok := values[f.Name]; ok {
			out = append(out, UniqueValue{Field: f.Name, Column: f.Column, Value: v})
		}
	}
	return out
}

type UniqueValue struct {
	Field  string
	Column string
	Value  any
}

func decodeValue(kind Kind, nullable bool, raw json.RawMessage) (any, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if !nullable {
			return nil, fmt.Errorf("field may not be null")
		}
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("not a valid %s", kind)
	}

	switch kind {
	case Integer:
		n, ok := v.(json.Number)
		if !ok {
			return nil, fmt.Errorf("not a valid integer")
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("not a valid integer")
		}
		return i, nil
	case String:
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("not a valid string")
		}
		return str, nil
	case Time:
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("not a valid datetime")
		}
		return ParseTime(str)
	}
	return nil, fmt.Errorf("unsupported kind %s", kind)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 and zone-less ISO 8601 forms, the latter
// read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("not a valid datetime")
}

// FormatTime renders t the way every timestamp goes out on the wire.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
