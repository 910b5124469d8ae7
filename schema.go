package dispatch

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// JSONSchema is the subset of JSON Schema the OpenAPI generator emits.
type JSONSchema struct {
	Type        string                `json:"type,omitempty" yaml:"type,omitempty"`
	Format      string                `json:"format,omitempty" yaml:"format,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty" yaml:"items,omitempty"`
	Required    []string              `json:"required,omitempty" yaml:"required,omitempty"`
	Enum        []string              `json:"enum,omitempty" yaml:"enum,omitempty"`
	Pattern     string                `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinLength   *int                  `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength   *int                  `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Minimum     *float64              `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64              `json:"maximum,omitempty" yaml:"maximum,omitempty"`

	AdditionalProperties *JSONSchema `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

// typeToSchema converts a Go type to its JSON Schema.
func typeToSchema(t reflect.Type) JSONSchema {
	if t.Kind() == reflect.Pointer {
		return typeToSchema(t.Elem())
	}

	switch t {
	case reflect.TypeFor[time.Time]():
		return JSONSchema{Type: "string", Format: "date-time"}
	case reflect.TypeFor[time.Duration]():
		return JSONSchema{Type: "string", Format: "duration"}
	case reflect.TypeFor[language.Tag]():
		return JSONSchema{Type: "string", Format: "bcp47"}
	case reflect.TypeFor[Void]():
		return JSONSchema{}
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String:
		return JSONSchema{Type: "string"}
	case reflect.Bool:
		return JSONSchema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return JSONSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return JSONSchema{Type: "number"}
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return JSONSchema{Type: "string", Format: "byte"}
		}
		items := typeToSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return JSONSchema{Type: "object"}
		}
		val := typeToSchema(t.Elem())
		return JSONSchema{Type: "object", AdditionalProperties: &val}
	case reflect.Struct:
		return structToSchema(t)
	}
	return JSONSchema{}
}

// structToSchema describes the JSON body of a struct. Fields bound from
// the path, query or headers are not part of it.
func structToSchema(t reflect.Type) JSONSchema {
	schema := JSONSchema{Type: "object", Properties: make(map[string]JSONSchema)}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || isParamField(f) {
			continue
		}
		name := jsonFieldName(f)
		if name == "-" {
			continue
		}

		prop := typeToSchema(f.Type)
		applyFieldTags(&prop, f)
		schema.Properties[name] = prop

		if f.Tag.Get("required") == "true" {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}

// applyFieldTags copies doc and constraint tags onto a property schema.
func applyFieldTags(s *JSONSchema, f reflect.StructField) {
	s.Description = f.Tag.Get("doc")
	s.Pattern = f.Tag.Get("pattern")
	if e := f.Tag.Get("enum"); e != "" {
		s.Enum = strings.Split(e, ",")
	}
	if n, ok := intTag(f, "minLength"); ok {
		s.MinLength = &n
	}
	if n, ok := intTag(f, "maxLength"); ok {
		s.MaxLength = &n
	}
	if v, err := strconv.ParseFloat(f.Tag.Get("minimum"), 64); err == nil {
		s.Minimum = &v
	}
	if v, err := strconv.ParseFloat(f.Tag.Get("maximum"), 64); err == nil {
		s.Maximum = &v
	}
}

// requestSchemas splits a typed request into its OpenAPI parameters and
// body schema. body is nil when the request carries none.
func requestSchemas(t reflect.Type) (params []Parameter, body *JSONSchema) {
	if t == nil {
		return nil, nil
	}

	//exhaustive:ignore
	switch classifyRequest(t) {
	case catVoid:
		return nil, nil
	case catBodyOnly:
		s := typeToSchema(t)
		return nil, &s
	}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Name == "Body" {
			s := typeToSchema(f.Type)
			body = &s
			continue
		}
		in, name := paramLocation(f)
		if in == "" || in == "path" {
			continue
		}
		schema := typeToSchema(f.Type)
		applyFieldTags(&schema, f)
		params = append(params, Parameter{
			Name:        name,
			In:          in,
			Description: schema.Description,
			Required:    f.Tag.Get("required") == "true",
			Schema:      schema,
		})
	}
	return params, body
}
