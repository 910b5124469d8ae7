package dispatch

import (
	"reflect"
	"strings"
)

// paramTags are the struct tags binding request parameters.
var paramTags = []string{"path", "query", "header"}

// hasParamTags reports whether t has exported fields with binding tags.
func hasParamTags(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := range t.NumField() {
		if f := t.Field(i); f.IsExported() && isParamField(f) {
			return true
		}
	}
	return false
}

// isParamField reports whether f is bound from the path, query or headers.
func isParamField(f reflect.StructField) bool {
	for _, tag := range paramTags {
		if f.Tag.Get(tag) != "" {
			return true
		}
	}
	return false
}

// paramLocation returns the OpenAPI "in" value and name for a bound field.
func paramLocation(f reflect.StructField) (in, name string) {
	for _, tag := range paramTags {
		if v := f.Tag.Get(tag); v != "" {
			return tag, v
		}
	}
	return "", ""
}

// jsonFieldName returns the JSON name of f, "-" when it is skipped.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return f.Name
	}
	return name
}
