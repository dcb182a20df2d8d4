//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package function

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"trpc.group/trpc-go/spice-go/log"
	"trpc.group/trpc-go/spice-go/tool"
)

// generateSchema derives an input schema from a Go type. Struct fields map
// to object properties using their json tags; a field is required unless it
// is a pointer or tagged omitempty.
func generateSchema(t reflect.Type) *tool.Schema {
	if t == nil {
		return &tool.Schema{Type: "object"}
	}
	return schemaForType(t, map[reflect.Type]bool{})
}

func schemaForType(t reflect.Type, visited map[reflect.Type]bool) *tool.Schema {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return &tool.Schema{Type: "string"}
	case reflect.Bool:
		return &tool.Schema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &tool.Schema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &tool.Schema{Type: "number"}
	case reflect.Slice, reflect.Array:
		// []byte marshals to a base64 string, not an array.
		if t.Elem().Kind() == reflect.Uint8 {
			return &tool.Schema{Type: "string"}
		}
		return &tool.Schema{
			Type:  "array",
			Items: schemaForType(t.Elem(), visited),
		}
	case reflect.Map:
		return &tool.Schema{Type: "object"}
	case reflect.Interface:
		// Anything goes.
		return &tool.Schema{}
	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return &tool.Schema{Type: "string"}
		}
		// Break cycles by flattening the repeated type to a bare object.
		if visited[t] {
			return &tool.Schema{Type: "object"}
		}
		visited[t] = true
		defer delete(visited, t)
		return schemaForStruct(t, visited)
	default:
		return &tool.Schema{Type: "object"}
	}
}

func schemaForStruct(t reflect.Type, visited map[reflect.Type]bool) *tool.Schema {
	schema := &tool.Schema{
		Type:       "object",
		Properties: map[string]*tool.Schema{},
	}
	var required []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Name
		omitEmpty := false
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			if jsonTag == "-" {
				continue
			}
			if idx := strings.Index(jsonTag, ","); idx != -1 {
				if idx > 0 {
					name = jsonTag[:idx]
				}
				omitEmpty = strings.Contains(jsonTag[idx:], "omitempty")
			} else {
				name = jsonTag
			}
		}

		fieldSchema := schemaForType(field.Type, visited)
		requiredByTag, err := applySchemaTag(field.Type, field.Tag, fieldSchema)
		if err != nil {
			log.Errorf("schema tag on field %s: %v", name, err)
		}

		if (field.Type.Kind() != reflect.Ptr && !omitEmpty) || requiredByTag {
			required = append(required, name)
		}
		schema.Properties[name] = fieldSchema
	}

	if len(required) > 0 {
		schema.Required = required
	}
	return schema
}

// applySchemaTag reads the optional jsonschema struct tag and applies it to
// the generated field schema. Supported forms:
//
//	jsonschema:"description=xxx"
//	jsonschema:"enum=a,enum=b"
//	jsonschema:"required"
//
// Enum values are converted to the field's own type.
func applySchemaTag(fieldType reflect.Type, tag reflect.StructTag, schema *tool.Schema) (bool, error) {
	raw := tag.Get("jsonschema")
	if raw == "" {
		return false, nil
	}

	for fieldType.Kind() == reflect.Ptr {
		fieldType = fieldType.Elem()
	}

	requiredByTag := false
	for _, item := range strings.Split(raw, ",") {
		kv := strings.SplitN(item, "=", 2)
		if len(kv) == 1 {
			if kv[0] == "required" {
				requiredByTag = true
			}
			continue
		}
		key, value := kv[0], kv[1]
		switch key {
		case "description":
			schema.Description = value
		case "enum":
			v, err := parseEnumValue(fieldType, value)
			if err != nil {
				return requiredByTag, err
			}
			schema.Enum = append(schema.Enum, v)
		}
	}
	return requiredByTag, nil
}

func parseEnumValue(fieldType reflect.Type, value string) (any, error) {
	switch fieldType.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %q as integer: %w", value, err)
		}
		return v, nil
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %q as number: %w", value, err)
		}
		return v, nil
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %q as bool: %w", value, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("enum tag unsupported for field type %v", fieldType)
	}
}
