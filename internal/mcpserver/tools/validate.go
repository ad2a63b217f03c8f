package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// argValidator normalizes tool arguments against an input schema:
// required presence, enum membership, defaults, then full JSON-schema validation.
type argValidator struct {
	schema   map[string]any
	resolved *jsonschema.Resolved
}

func newArgValidator(schema map[string]any) (*argValidator, error) {
	if t, _ := schema["type"].(string); t != "object" {
		return nil, fmt.Errorf("input schema type must be \"object\"")
	}
	if err := checkRequiredDeclared(schema, ""); err != nil {
		return nil, err
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse input schema: %w", err)
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve input schema: %w", err)
	}

	return &argValidator{schema: schema, resolved: resolved}, nil
}

// checkRequiredDeclared ensures every required name exists in properties,
// recursively for nested object and array-of-object schemas
func checkRequiredDeclared(schema map[string]any, path string) error {
	props := properties(schema)
	for _, name := range stringList(schema["required"]) {
		if _, ok := props[name]; !ok {
			return fmt.Errorf("required parameter %q is not declared in properties", path+name)
		}
	}
	for _, name := range sortedKeys(props) {
		child, _ := props[name].(map[string]any)
		if items, ok := child["items"].(map[string]any); ok {
			child = items
		}
		if child == nil {
			continue
		}
		if err := checkRequiredDeclared(child, path+name+"."); err != nil {
			return err
		}
	}
	return nil
}

// normalize validates raw arguments and returns them re-encoded with defaults applied
func (v *argValidator) normalize(raw json.RawMessage) (json.RawMessage, error) {
	args := map[string]any{}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()

		var decoded any
		if err := dec.Decode(&decoded); err != nil {
			return nil, invalidParameterError("Invalid parameters: %v", err)
		}
		obj, ok := decoded.(map[string]any)
		if !ok {
			return nil, invalidParameterError("Invalid parameters: arguments must be an object")
		}
		args = obj
	}

	if err := checkRequired(v.schema, args, ""); err != nil {
		return nil, err
	}
	if err := checkEnums(v.schema, args, ""); err != nil {
		return nil, err
	}
	applyDefaults(v.schema, args)

	out, err := json.Marshal(args)
	if err != nil {
		return nil, NewToolError(ErrCodeInternal, "Failed to encode arguments: "+err.Error(), nil)
	}

	// validate the plain decoded form so defaults and json.Number look alike
	var instance any
	if err := json.Unmarshal(out, &instance); err != nil {
		return nil, NewToolError(ErrCodeInternal, "Failed to decode arguments: "+err.Error(), nil)
	}
	if err := v.resolved.Validate(instance); err != nil {
		return nil, invalidParameterError("Invalid parameters: %v", err)
	}
	return out, nil
}

// checkRequired reports the first missing (absent or null) required field.
// The current level is checked in declared order before nested objects.
func checkRequired(schema map[string]any, args map[string]any, path string) error {
	for _, name := range stringList(schema["required"]) {
		if val, ok := args[name]; !ok || val == nil {
			return missingParameterError(path + name)
		}
	}

	props := properties(schema)
	for _, name := range sortedKeys(props) {
		if err := forEachNested(props[name], args[name], path+name, checkRequired); err != nil {
			return err
		}
	}
	return nil
}

func checkEnums(schema map[string]any, args map[string]any, path string) error {
	props := properties(schema)
	for _, name := range sortedKeys(props) {
		prop, _ := props[name].(map[string]any)
		val, present := args[name]
		if prop == nil || !present || val == nil {
			continue
		}

		if enum, ok := prop["enum"]; ok {
			allowed := stringList(enum)
			s, isString := val.(string)
			if !isString || !containsString(allowed, s) {
				return invalidParameterError("Invalid value for parameter %s: must be one of [%s]", path+name, strings.Join(allowed, " "))
			}
		}

		if err := forEachNested(prop, val, path+name, checkEnums); err != nil {
			return err
		}
	}
	return nil
}

func applyDefaults(schema map[string]any, args map[string]any) {
	props := properties(schema)
	for _, name := range sortedKeys(props) {
		prop, _ := props[name].(map[string]any)
		if prop == nil {
			continue
		}
		if _, present := args[name]; !present {
			if def, ok := prop["default"]; ok {
				args[name] = def
			}
			continue
		}
		_ = forEachNested(prop, args[name], "", func(s map[string]any, obj map[string]any, _ string) error {
			applyDefaults(s, obj)
			return nil
		})
	}
}

// forEachNested applies fn to an object value, or to each object element of
// an array value, when the property schema describes structured content
func forEachNested(propSchema any, val any, path string, fn func(map[string]any, map[string]any, string) error) error {
	prop, _ := propSchema.(map[string]any)
	if prop == nil || val == nil {
		return nil
	}

	switch v := val.(type) {
	case map[string]any:
		if _, ok := prop["properties"]; ok {
			return fn(prop, v, path+".")
		}
	case []any:
		items, _ := prop["items"].(map[string]any)
		if items == nil {
			return nil
		}
		if _, ok := items["properties"]; !ok {
			return nil
		}
		for i, elem := range v {
			obj, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			if err := fn(items, obj, fmt.Sprintf("%s[%d].", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func properties(schema map[string]any) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	return props
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, fmt.Sprint(e))
		}
		return out
	default:
		return nil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
