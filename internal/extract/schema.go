package extract

import (
	"fmt"
	"strings"
)

// schemaTypes is the closed set of JSON Schema types strategies may declare
// for output fields.
var schemaTypes = map[string]bool{
	"string":  true,
	"integer": true,
	"number":  true,
	"boolean": true,
	"object":  true,
	"array":   true,
	"null":    true,
}

// ValidateSchema checks that schema is a usable JSON Schema object: a map
// with an object (or absent) type, a properties map whose entries declare
// known types, and a required list naming declared properties.
func ValidateSchema(schema map[string]any) error {
	if schema == nil {
		return New(KindValidation, "schema must not be nil")
	}

	if t, ok := schema["type"]; ok {
		ts, ok := t.(string)
		if !ok || ts != "object" {
			return Newf(KindValidation, "schema root type must be object, got %v", t)
		}
	}

	props, err := schemaProperties(schema)
	if err != nil {
		return err
	}
	for name, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			return Newf(KindValidation, "property %q must be an object", name)
		}
		if t, ok := prop["type"].(string); ok && !schemaTypes[t] {
			return Newf(KindValidation, "property %q declares unknown type %q", name, t)
		}
	}

	for _, name := range schemaRequired(schema) {
		if props != nil {
			if _, ok := props[name]; !ok {
				return Newf(KindValidation, "required field %q is not declared in properties", name)
			}
		}
	}

	return nil
}

// ValidateRecord checks rec against schema. The first violation is returned
// as a Validation error carrying the offending path; the _metadata key is
// exempt. A nil schema validates everything.
func ValidateRecord(schema map[string]any, rec Record) error {
	if schema == nil {
		return nil
	}
	return validateObject(schema, map[string]any(rec), "")
}

// validateObject validates one object level: required fields first, then
// each present property against its declared type.
func validateObject(schema map[string]any, obj map[string]any, path string) error {
	for _, name := range schemaRequired(schema) {
		if _, ok := obj[name]; !ok {
			return &Error{
				Kind:   KindValidation,
				Detail: fmt.Sprintf("required field %q is missing", name),
				Path:   joinPath(path, name),
			}
		}
	}

	props, err := schemaProperties(schema)
	if err != nil {
		return err
	}
	for name, raw := range props {
		if name == MetadataKey {
			continue
		}
		val, ok := obj[name]
		if !ok {
			continue
		}
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if err := validateValue(prop, val, joinPath(path, name)); err != nil {
			return err
		}
	}

	return nil
}

// validateValue checks a single value against its property schema.
func validateValue(prop map[string]any, val any, path string) error {
	declared, ok := prop["type"].(string)
	if !ok {
		return nil
	}

	if val == nil {
		if declared == "null" {
			return nil
		}
		// Absent-but-present null is tolerated for non-required fields.
		return nil
	}

	switch declared {
	case "string":
		if _, ok := val.(string); !ok {
			return typeMismatch(path, "string", val)
		}
	case "integer", "number":
		// JSON numbers decode as float64; integers accept any numeric.
		switch val.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		default:
			return typeMismatch(path, declared, val)
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return typeMismatch(path, "boolean", val)
		}
	case "array":
		arr, ok := val.([]any)
		if !ok {
			return typeMismatch(path, "array", val)
		}
		items, ok := prop["items"].(map[string]any)
		if !ok {
			return nil
		}
		for i, item := range arr {
			if err := validateValue(items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case "object":
		obj, ok := val.(map[string]any)
		if !ok {
			return typeMismatch(path, "object", val)
		}
		return validateObject(prop, obj, path)
	}

	return nil
}

// schemaProperties returns the properties map of a schema, or nil.
func schemaProperties(schema map[string]any) (map[string]any, error) {
	raw, ok := schema["properties"]
	if !ok {
		return nil, nil
	}
	props, ok := raw.(map[string]any)
	if !ok {
		return nil, New(KindValidation, "schema properties must be an object")
	}
	return props, nil
}

// schemaRequired returns the required field names of a schema. Both
// []string (builtin catalog) and []any (decoded JSON/YAML) forms appear.
func schemaRequired(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func typeMismatch(path, want string, got any) error {
	return &Error{
		Kind:   KindValidation,
		Detail: fmt.Sprintf("expected %s, got %T", want, got),
		Path:   path,
	}
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return strings.Join([]string{base, field}, ".")
}
