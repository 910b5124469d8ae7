package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"time"
)

// requestCategory describes how a request type should be decoded.
type requestCategory int

const (
	catVoid     requestCategory = iota // Void: nothing to decode
	catBodyOnly                        // the whole value is the body
	catParams                          // param tags, no Body field
	catMixed                           // params plus a Body field
)

// classifyRequest determines how a request type should be decoded.
func classifyRequest(t reflect.Type) requestCategory {
	if t == reflect.TypeFor[Void]() {
		return catVoid
	}
	if t.Kind() != reflect.Struct {
		return catBodyOnly
	}
	if _, ok := t.FieldByName("Body"); ok {
		return catMixed
	}
	if hasParamTags(t) {
		return catParams
	}
	return catBodyOnly
}

// decodeRequest creates a new Req value and populates it from the match.
func decodeRequest[Req any](m *Match) (*Req, error) {
	req := new(Req)
	cat := classifyRequest(reflect.TypeFor[Req]())

	switch cat {
	case catVoid:
		return req, nil
	case catBodyOnly:
		if err := decodeBody(m.Request, req); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBindBody, err)
		}
		return req, nil
	}

	if err := bindParams(req, m); err != nil {
		return nil, err
	}

	if cat == catMixed {
		body := reflect.ValueOf(req).Elem().FieldByName("Body").Addr().Interface()
		if err := decodeBody(m.Request, body); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBindBody, err)
		}
	}
	return req, nil
}

// bindParams binds path, query and header values to struct fields.
func bindParams(target any, m *Match) error {
	v := reflect.ValueOf(target).Elem()
	t := v.Type()
	r := m.Request

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Name == "Body" {
			continue
		}
		field := v.Field(i)

		if name := f.Tag.Get("path"); name != "" {
			if val := m.Params[name]; val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindPath, name, err)
				}
			}
		}

		if name := f.Tag.Get("query"); name != "" {
			val := r.URL.Query().Get(name)
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindQuery, name, err)
				}
			}
		}

		if name := f.Tag.Get("header"); name != "" {
			val := r.Header.Get(name)
			if val == "" {
				val = f.Tag.Get("default")
			}
			if val != "" {
				if err := setFieldValue(field, val); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrBindHeader, name, err)
				}
			}
		}
	}
	return nil
}

// setFieldValue sets a reflect.Value from a string, supporting common types.
func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}

// decodeBody decodes the request body as JSON into target.
func decodeBody(r *http.Request, target any) error {
	if r == nil || r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
