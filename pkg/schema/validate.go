package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// Result is the outcome of a structural check.
type Result struct {
	Valid  bool
	Data   map[string]any
	Errors []string
}

// Check validates value against s. Errors are "path: message" strings.
func Check(s *Schema, value any, path string) []string {
	var errs []string
	check(s, value, path, &errs)
	return errs
}

func check(s *Schema, value any, path string, errs *[]string) {
	fail := func(format string, args ...any) {
		*errs = append(*errs, path+": "+fmt.Sprintf(format, args...))
	}

	switch s.Type {
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			fail("expected object, got %s", typeName(value))
			return
		}
		for _, name := range s.Required {
			v, present := obj[name]
			if !present || v == nil {
				*errs = append(*errs, path+"."+name+": required field missing")
				continue
			}
			if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
				*errs = append(*errs, path+"."+name+": required field is empty")
			}
		}
		for _, name := range s.propertyNames() {
			v, present := obj[name]
			if !present || v == nil {
				continue
			}
			check(s.Properties[name], v, path+"."+name, errs)
		}
	case "array":
		arr, ok := value.([]any)
		if !ok {
			fail("expected array, got %s", typeName(value))
			return
		}
		if s.Items == nil {
			return
		}
		for i, item := range arr {
			check(s.Items, item, fmt.Sprintf("%s[%d]", path, i), errs)
		}
	case "string":
		str, ok := value.(string)
		if !ok {
			fail("expected string, got %s", typeName(value))
			return
		}
		if len(s.Enum) > 0 && str != "" && !inEnum(s.Enum, str) {
			fail("value %q not one of [%s]", str, strings.Join(s.Enum, ", "))
		}
		if s.Format == "date" && str != "" {
			if _, err := time.Parse(DateLayout, str); err != nil {
				fail("value %q is not a YYYY-MM-DD date", str)
			}
		}
	case "integer":
		n, ok := value.(float64)
		if !ok {
			fail("expected integer, got %s", typeName(value))
			return
		}
		if n != math.Trunc(n) {
			fail("expected integer, got %v", n)
		}
	case "number":
		if _, ok := value.(float64); !ok {
			fail("expected number, got %s", typeName(value))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			fail("expected boolean, got %s", typeName(value))
		}
	}
}

// inEnum matches case-insensitively; models often capitalise enum values.
func inEnum(enum []string, v string) bool {
	for _, e := range enum {
		if strings.EqualFold(e, v) {
			return true
		}
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// toMap converts a typed value into the generic JSON form used by Check.
func toMap(candidate any) (map[string]any, error) {
	switch v := candidate.(type) {
	case map[string]any:
		return v, nil
	case nil:
		return nil, fmt.Errorf("expected object, got null")
	}
	data, err := json.Marshal(candidate)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("expected object: %w", err)
	}
	return out, nil
}
