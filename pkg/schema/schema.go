// Package schema derives JSON-Schema-shaped definitions from the entity
// structs in pkg/models and validates model output against them.
package schema

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// Schema is a subset of JSON Schema sufficient to describe entity records.
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Enum       []string           `json:"enum,omitempty"`
	Format     string             `json:"format,omitempty"`
}

// String renders the schema as indented JSON for embedding in prompts.
func (s *Schema) String() string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func (s *Schema) propertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromType builds a schema for t. Field names come from json tags; constraints
// come from schema tags such as `schema:"required,format=date,enum=a|b"`.
func FromType(t reflect.Type) *Schema {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}
	case reflect.Bool:
		return &Schema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}
	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: FromType(t.Elem())}
	case reflect.Map:
		return &Schema{Type: "object"}
	case reflect.Struct:
		return fromStruct(t)
	default:
		return &Schema{Type: "string"}
	}
}

func fromStruct(t reflect.Type) *Schema {
	s := &Schema{Type: "object", Properties: make(map[string]*Schema)}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := jsonName(f)
		if name == "-" {
			continue
		}

		prop := FromType(f.Type)
		required := false
		for _, opt := range strings.Split(f.Tag.Get("schema"), ",") {
			opt = strings.TrimSpace(opt)
			switch {
			case opt == "required":
				required = true
			case strings.HasPrefix(opt, "format="):
				prop.Format = strings.TrimPrefix(opt, "format=")
			case strings.HasPrefix(opt, "enum="):
				prop.Enum = strings.Split(strings.TrimPrefix(opt, "enum="), "|")
			}
		}
		s.Properties[name] = prop
		if required {
			s.Required = append(s.Required, name)
		}
	}
	return s
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}
