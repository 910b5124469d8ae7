package dispatch

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// checkConstraints validates the constraint tags of a decoded request:
// minLength, maxLength, pattern and enum on strings, minimum and maximum on
// numbers, minItems and maxItems on slices. All violations are reported
// together in one 422 Fault.
func checkConstraints(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	var violations []Violation
	collectViolations(rv, "", &violations)
	if len(violations) == 0 {
		return nil
	}
	return &Fault{
		Status:     http.StatusUnprocessableEntity,
		Detail:     fmt.Sprintf("%d constraint violation(s)", len(violations)),
		Violations: violations,
	}
}

func collectViolations(rv reflect.Value, prefix string, out *[]Violation) {
	t := rv.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fv := rv.Field(i)

		if f.Name == "Body" && prefix == "" && fv.Kind() == reflect.Struct {
			collectViolations(fv, "body", out)
			continue
		}

		name := jsonFieldName(f)
		if isParamField(f) {
			_, name = paramLocation(f)
		}
		if name == "-" {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		*out = append(*out, fieldViolations(f, fv, path)...)

		if fv.Kind() == reflect.Struct && !isParamField(f) {
			collectViolations(fv, path, out)
		}
	}
}

func fieldViolations(f reflect.StructField, fv reflect.Value, path string) []Violation {
	var out []Violation
	add := func(value any, format string, args ...any) {
		out = append(out, Violation{Field: path, Message: fmt.Sprintf(format, args...), Value: value})
	}

	//exhaustive:ignore
	switch fv.Kind() {
	case reflect.String:
		val := fv.String()
		if n, ok := intTag(f, "minLength"); ok && len(val) < n {
			add(val, "must be at least %d characters", n)
		}
		if n, ok := intTag(f, "maxLength"); ok && len(val) > n {
			add(val, "must be at most %d characters", n)
		}
		if p := f.Tag.Get("pattern"); p != "" {
			if re, err := regexp.Compile(p); err == nil && !re.MatchString(val) {
				add(val, "must match pattern %s", p)
			}
		}
		if e := f.Tag.Get("enum"); e != "" && val != "" && !slices.Contains(strings.Split(e, ","), val) {
			add(val, "must be one of [%s]", e)
		}
	case reflect.Slice:
		n := fv.Len()
		if lo, ok := intTag(f, "minItems"); ok && n < lo {
			add(n, "must have at least %d items", lo)
		}
		if hi, ok := intTag(f, "maxItems"); ok && n > hi {
			add(n, "must have at most %d items", hi)
		}
	default:
		num, ok := numericValue(fv)
		if !ok {
			break
		}
		if tag := f.Tag.Get("minimum"); tag != "" {
			if lo, err := strconv.ParseFloat(tag, 64); err == nil && num < lo {
				add(num, "must be at least %s", tag)
			}
		}
		if tag := f.Tag.Get("maximum"); tag != "" {
			if hi, err := strconv.ParseFloat(tag, 64); err == nil && num > hi {
				add(num, "must be at most %s", tag)
			}
		}
	}
	return out
}

func intTag(f reflect.StructField, name string) (int, bool) {
	tag := f.Tag.Get(name)
	if tag == "" {
		return 0, false
	}
	n, err := strconv.Atoi(tag)
	return n, err == nil
}

func numericValue(v reflect.Value) (float64, bool) {
	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}
