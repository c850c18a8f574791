package mcpserver

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SwaggerSpec is the subset of a Swagger 2.0 document the tool builder needs.
type SwaggerSpec struct {
	BasePath    string                          `json:"basePath"`
	Paths       map[string]map[string]Operation `json:"paths"`
	Definitions map[string]Definition           `json:"definitions"`
}

// Operation is a single method on a path.
type Operation struct {
	Tags        []string    `json:"tags"`
	Summary     string      `json:"summary"`
	Description string      `json:"description"`
	Consumes    []string    `json:"consumes"`
	Parameters  []Parameter `json:"parameters"`
}

// Parameter describes one operation parameter. Body parameters carry a
// schema reference into the definitions section instead of a flat type.
type Parameter struct {
	Name        string     `json:"name"`
	In          string     `json:"in"`
	Required    bool       `json:"required"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Schema      *SchemaRef `json:"schema"`
	Enum        []any      `json:"enum"`
}

// SchemaRef is a JSON reference like "#/definitions/request.CreateCustomer".
type SchemaRef struct {
	Ref string `json:"$ref"`
}

// Definition is a named object schema from the definitions section.
type Definition struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property is a field inside a definition.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Items       *Property `json:"items"`
}

// ParseSpec parses a Swagger 2.0 JSON document.
func ParseSpec(data []byte) (*SwaggerSpec, error) {
	var spec SwaggerSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse swagger spec: %w", err)
	}
	if len(spec.Paths) == 0 {
		return nil, fmt.Errorf("swagger spec has no paths")
	}
	return &spec, nil
}

// acceptsJSON reports whether the operation takes a JSON (or empty) request
// body. Binary endpoints like the invoice PDF upload cannot be expressed as
// text tool arguments and are left out of the tool set.
func acceptsJSON(op Operation) bool {
	if len(op.Consumes) == 0 {
		return true
	}
	for _, c := range op.Consumes {
		if strings.HasPrefix(c, "application/json") {
			return true
		}
	}
	return false
}

// bodyFields resolves a body schema reference and renders its fields as a
// compact listing for the tool description, e.g.
// "email (string, required), name (string), seats (integer)". Returns ""
// when the reference cannot be resolved.
func (s *SwaggerSpec) bodyFields(ref *SchemaRef) string {
	if ref == nil {
		return ""
	}
	name := strings.TrimPrefix(ref.Ref, "#/definitions/")
	def, ok := s.Definitions[name]
	if !ok || len(def.Properties) == 0 {
		return ""
	}

	required := make(map[string]bool, len(def.Required))
	for _, r := range def.Required {
		required[r] = true
	}

	names := make([]string, 0, len(def.Properties))
	for n := range def.Properties {
		names = append(names, n)
	}
	sort.Strings(names)

	fields := make([]string, 0, len(names))
	for _, n := range names {
		prop := def.Properties[n]
		typ := prop.Type
		if typ == "array" && prop.Items != nil {
			typ = prop.Items.Type + "[]"
		}
		if typ == "" {
			typ = "object"
		}
		if required[n] {
			typ += ", required"
		}
		fields = append(fields, fmt.Sprintf("%s (%s)", n, typ))
	}
	return strings.Join(fields, ", ")
}
