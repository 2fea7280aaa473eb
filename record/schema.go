package record

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type FieldType int32

const (
	Integer FieldType = iota
	Varchar
)

func (ft FieldType) String() string {
	switch ft {
	case Integer:
		return "int"
	case Varchar:
		return "string"
	default:
		return "unknown"
	}
}

type fieldInfo struct {
	fieldType FieldType
	length    int32
}

// Schema is the ordered list of named, typed fields of a tuple.
type Schema struct {
	fields []string
	info   map[string]fieldInfo
}

func NewSchema() *Schema {
	return &Schema{
		info: make(map[string]fieldInfo),
	}
}

func (s *Schema) AddField(fieldName string, fieldType FieldType, length int32) {
	if fieldType == Integer {
		length = 0
	}
	s.fields = append(s.fields, fieldName)
	s.info[fieldName] = fieldInfo{
		fieldType: fieldType,
		length:    length,
	}
}

func (s *Schema) AddIntField(fieldName string) {
	s.AddField(fieldName, Integer, 0)
}

func (s *Schema) AddStringField(fieldName string, length int32) {
	s.AddField(fieldName, Varchar, length)
}

func (s *Schema) Add(fieldName string, schema *Schema) {
	fieldType := schema.FieldType(fieldName)
	length := schema.FieldLength(fieldName)
	s.AddField(fieldName, fieldType, length)
}

// AddAll appends every field of schema, in order.
func (s *Schema) AddAll(schema *Schema) {
	for _, fieldName := range schema.fields {
		s.Add(fieldName, schema)
	}
}

func (s *Schema) HasField(fieldName string) bool {
	_, exist := s.info[fieldName]
	return exist
}

func (s *Schema) FieldType(fieldName string) FieldType {
	return s.info[fieldName].fieldType
}

func (s *Schema) FieldLength(fieldName string) int32 {
	return s.info[fieldName].length
}

func (s *Schema) Fields() []string {
	return slices.Clone(s.fields)
}

func (s *Schema) NumFields() int {
	return len(s.fields)
}

func (s *Schema) Field(i int) string {
	return s.fields[i]
}

// Index returns the position of fieldName, or -1. A bare name also matches
// a single qualified field "alias.name".
func (s *Schema) Index(fieldName string) int {
	if i := slices.Index(s.fields, fieldName); i >= 0 {
		return i
	}
	if strings.Contains(fieldName, ".") {
		return -1
	}

	found := -1
	for i, f := range s.fields {
		if strings.HasSuffix(f, "."+fieldName) {
			if found >= 0 {
				return -1
			}
			found = i
		}
	}
	return found
}

// WithPrefix returns a copy of the schema whose field names are qualified
// as "prefix.name".
func (s *Schema) WithPrefix(prefix string) *Schema {
	out := NewSchema()
	for _, f := range s.fields {
		name := f
		if i := strings.LastIndexByte(f, '.'); i >= 0 {
			name = f[i+1:]
		}
		out.AddField(prefix+"."+name, s.FieldType(f), s.FieldLength(f))
	}
	return out
}

// Equal reports whether both schemas have the same field types and lengths
// in the same order. Field names are not compared.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if o == nil || len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.info[s.fields[i]] != o.info[o.fields[i]] {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f + " " + FieldSpec(s.FieldType(f), s.FieldLength(f))
	}
	return strings.Join(parts, ", ")
}

// FieldSpec renders a field type as accepted by ParseFieldSpec.
func FieldSpec(fieldType FieldType, length int32) string {
	if fieldType == Varchar {
		return fmt.Sprintf("string(%d)", length)
	}
	return fieldType.String()
}

// ParseFieldSpec parses "int" or "string(N)".
func ParseFieldSpec(spec string) (FieldType, int32, error) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	switch {
	case spec == "int" || spec == "integer":
		return Integer, 0, nil
	case strings.HasPrefix(spec, "string(") && strings.HasSuffix(spec, ")"):
		n, err := strconv.ParseInt(spec[len("string("):len(spec)-1], 10, 32)
		if err != nil || n <= 0 {
			return 0, 0, errors.Errorf("invalid string length in %q", spec)
		}
		return Varchar, int32(n), nil
	default:
		return 0, 0, errors.Errorf("unknown field type %q", spec)
	}
}
