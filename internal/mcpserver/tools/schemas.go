package tools

// Common JSON Schema building blocks

// StringSchema creates a JSON schema for a string field
func StringSchema(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

// IDSchema creates a JSON schema for a Smartsheet numeric ID.
// IDs exceed 2^53, so clients should send them as strings; integers are accepted.
func IDSchema(description string) map[string]any {
	return map[string]any{
		"type":        []string{"string", "integer"},
		"pattern":     `^[0-9]+$`,
		"description": description,
	}
}

// IntegerSchema creates a JSON schema for an integer field with optional min/max
func IntegerSchema(description string, min, max *int) map[string]any {
	schema := map[string]any{
		"type":        "integer",
		"description": description,
	}
	if min != nil {
		schema["minimum"] = *min
	}
	if max != nil {
		schema["maximum"] = *max
	}
	return schema
}

// BooleanSchema creates a JSON schema for a boolean field
func BooleanSchema(description string) map[string]any {
	return map[string]any{
		"type":        "boolean",
		"description": description,
	}
}

// ObjectSchema creates a JSON schema for an object with arbitrary properties
func ObjectSchema(description string) map[string]any {
	return map[string]any{
		"type":        "object",
		"description": description,
	}
}

// MapSchema creates a JSON schema for an object whose values all match valueSchema
func MapSchema(description string, valueSchema map[string]any) map[string]any {
	return map[string]any{
		"type":                 "object",
		"description":          description,
		"additionalProperties": valueSchema,
	}
}

// NestedSchema creates a JSON schema for a structured object parameter
func NestedSchema(description string, properties map[string]any, required []string) map[string]any {
	schema := BuildSchema(properties, required)
	schema["description"] = description
	return schema
}

// EnumSchema creates a JSON schema for an enum field
func EnumSchema(description string, values []string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}

// ArraySchema creates a JSON schema for an array field
func ArraySchema(description string, items map[string]any) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       items,
	}
}

// WithDefault sets the value used when the caller omits the field
func WithDefault(schema map[string]any, value any) map[string]any {
	schema["default"] = value
	return schema
}

// BuildSchema creates a complete JSON schema object with properties and required fields
func BuildSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func sheetIDSchema() map[string]any {
	return IDSchema("ID of the Smartsheet sheet")
}

// rowDataSchema is a row keyed by column title
func rowDataSchema(description string) map[string]any {
	return ObjectSchema(description)
}

func columnMapSchema() map[string]any {
	return MapSchema("Mapping of column title to column ID, as returned by get_column_map", IDSchema("Column ID"))
}
