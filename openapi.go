package dispatch

import (
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// OpenAPISpec is the top-level OpenAPI 3.1 document.
type OpenAPISpec struct {
	OpenAPI string              `json:"openapi" yaml:"openapi"`
	Info    OpenAPIInfo         `json:"info" yaml:"info"`
	Paths   map[string]PathItem `json:"paths" yaml:"paths"`
}

// OpenAPIInfo holds API metadata.
type OpenAPIInfo struct {
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
}

// PathItem maps lowercase HTTP methods to operations.
type PathItem map[string]OpenAPIOperation

// OpenAPIOperation describes a single API operation on a path.
type OpenAPIOperation struct {
	Summary     string              `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string            `json:"tags,omitempty" yaml:"tags,omitempty"`
	OperationID string              `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses" yaml:"responses"`
	Deprecated  bool                `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string     `json:"name" yaml:"name"`
	In          string     `json:"in" yaml:"in"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Schema      JSONSchema `json:"schema" yaml:"schema"`
}

// RequestBody describes the JSON body an operation accepts.
type RequestBody struct {
	Required bool                `json:"required,omitempty" yaml:"required,omitempty"`
	Content  map[string]MediaObj `json:"content" yaml:"content"`
}

// Response describes a single response.
type Response struct {
	Description string              `json:"description" yaml:"description"`
	Content     map[string]MediaObj `json:"content,omitempty" yaml:"content,omitempty"`
}

// MediaObj is a media type object with an optional schema.
type MediaObj struct {
	Schema *JSONSchema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Spec generates the OpenAPI document from the registered operations.
// When a main endpoint is configured the base path is listed as well.
func (d *Dispatcher) Spec() OpenAPISpec {
	spec := OpenAPISpec{
		OpenAPI: "3.1.0",
		Info: OpenAPIInfo{
			Title:   d.title,
			Version: d.version,
		},
		Paths: make(map[string]PathItem),
	}

	if d.main != nil {
		var mainType reflect.Type
		if d.entrypoint {
			mainType = reflect.TypeFor[Entrypoint]()
		}
		spec.Paths[d.basePath+"/"] = PathItem{
			"get": {
				Summary:     "API entrypoint",
				OperationID: "getEntrypoint",
				Responses:   map[string]Response{"200": successResponse(mainType)},
			},
		}
	}

	for _, op := range d.Operations() {
		path := strings.ReplaceAll(op.Pattern, "...", "")
		if spec.Paths[path] == nil {
			spec.Paths[path] = make(PathItem)
		}
		spec.Paths[path][strings.ToLower(op.Method)] = buildOperation(&op, d.basePath)
	}
	return spec
}

func buildOperation(op *Operation, basePath string) OpenAPIOperation {
	o := OpenAPIOperation{
		Summary:     op.Summary,
		Description: op.Description,
		Tags:        op.Tags,
		OperationID: op.OperationID,
		Deprecated:  op.Deprecated,
		Responses:   map[string]Response{"200": successResponse(op.respType)},
	}
	if o.OperationID == "" {
		o.OperationID = generateOperationID(op.Method, strings.TrimPrefix(op.Pattern, basePath))
	}

	for _, name := range op.Params() {
		o.Parameters = append(o.Parameters, Parameter{
			Name:     name,
			In:       "path",
			Required: true,
			Schema:   pathParamSchema(op.reqType, name),
		})
	}

	params, body := requestSchemas(op.reqType)
	o.Parameters = append(o.Parameters, params...)
	if body != nil {
		o.RequestBody = &RequestBody{
			Required: true,
			Content:  map[string]MediaObj{"application/json": {Schema: body}},
		}
	}

	codes := append([]int{http.StatusNotFound}, op.Errors...)
	if body != nil || len(o.Parameters) > 0 {
		codes = append(codes, http.StatusBadRequest)
	}
	slices.Sort(codes)
	for _, code := range slices.Compact(codes) {
		o.Responses[strconv.Itoa(code)] = Response{
			Description: http.StatusText(code),
			Content: map[string]MediaObj{
				ContentType: {Schema: &errorSchema},
			},
		}
	}
	return o
}

// pathParamSchema returns the schema of the request field bound to the
// named path wildcard, defaulting to string.
func pathParamSchema(t reflect.Type, name string) JSONSchema {
	if t != nil && t.Kind() == reflect.Struct {
		for i := range t.NumField() {
			if f := t.Field(i); f.Tag.Get("path") == name {
				return typeToSchema(f.Type)
			}
		}
	}
	return JSONSchema{Type: "string"}
}

// errorSchema describes the serialized hydra:Error document.
var errorSchema = JSONSchema{
	Type: "object",
	Properties: map[string]JSONSchema{
		"@type":             {Type: "string"},
		"hydra:title":       {Type: "string"},
		"hydra:description": {Type: "string"},
		"status":            {Type: "integer"},
		"violations": {Type: "array", Items: &JSONSchema{
			Type: "object",
			Properties: map[string]JSONSchema{
				"field":   {Type: "string"},
				"message": {Type: "string"},
			},
		}},
	},
	Required: []string{"@type", "hydra:title", "status"},
}

func successResponse(t reflect.Type) Response {
	schema := JSONSchema{Type: "object"}
	if t != nil {
		schema = typeToSchema(t)
	}
	return Response{
		Description: "Successful response",
		Content: map[string]MediaObj{
			ContentType: {Schema: &schema},
		},
	}
}

// generateOperationID derives an operationId like "getBooksById" from the
// method and pattern.
func generateOperationID(method, pattern string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for seg := range strings.SplitSeq(pattern, "/") {
		if seg == "" || seg == "{$}" {
			continue
		}
		if strings.HasPrefix(seg, "{") {
			b.WriteString("By")
			seg = strings.Trim(seg, "{}.")
		}
		b.WriteString(capitalize(seg))
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
