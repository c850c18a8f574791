package mcpserver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolGroup is one mountable set of tools, named after its config group.
type ToolGroup struct {
	Name  string
	Tools []server.ServerTool
}

// BuildTools turns the swagger spec into MCP tools, grouped by the config's
// group definitions. Operations whose tag belongs to no group, and operations
// with a non-JSON request body, are skipped. Groups and the tools within them
// come back sorted by name so mounting and registration are deterministic.
func BuildTools(spec *SwaggerSpec, cfg *Config, proxyFn func(op ToolOperation) server.ToolHandlerFunc) []ToolGroup {
	tagMap := cfg.tagToGroup()
	byGroup := make(map[string][]server.ServerTool)

	for path, methods := range spec.Paths {
		for method, op := range methods {
			method = strings.ToUpper(method)

			group := ""
			if len(op.Tags) > 0 {
				group = tagMap[op.Tags[0]]
			}
			if group == "" || !acceptsJSON(op) {
				continue
			}

			name := deriveName(method, path)
			override, hasOverride := cfg.Overrides[name]
			if hasOverride && override.Name != "" {
				name = override.Name
			}

			opts := []mcp.ToolOption{
				mcp.WithDescription(toolDescription(spec, op, override)),
			}
			opts = append(opts, annotationOpts(cfg.Defaults[method], override, hasOverride)...)
			opts = append(opts, toolParams(op.Parameters)...)

			byGroup[group] = append(byGroup[group], server.ServerTool{
				Tool: mcp.NewTool(name, opts...),
				Handler: proxyFn(ToolOperation{
					Method:     method,
					Path:       spec.BasePath + path,
					Parameters: op.Parameters,
				}),
			})
		}
	}

	groups := make([]ToolGroup, 0, len(byGroup))
	for name, tools := range byGroup {
		sort.Slice(tools, func(i, j int) bool { return tools[i].Tool.Name < tools[j].Tool.Name })
		groups = append(groups, ToolGroup{Name: name, Tools: tools})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

// toolDescription picks the override description, the operation description,
// or the summary, and appends the body field listing so agents see the
// request shape without fetching the spec.
func toolDescription(spec *SwaggerSpec, op Operation, override ToolOverride) string {
	desc := op.Description
	if desc == "" {
		desc = op.Summary
	}
	if override.Description != "" {
		desc = override.Description
	}

	for _, p := range op.Parameters {
		if p.In == "body" {
			if fields := spec.bodyFields(p.Schema); fields != "" {
				desc += " Body fields: " + fields + "."
			}
			break
		}
	}
	return desc
}

// annotationOpts merges the per-method annotation defaults with any per-tool
// override.
func annotationOpts(defaults MethodDefaults, override ToolOverride, hasOverride bool) []mcp.ToolOption {
	readOnly := defaults.ReadOnly
	destructive := defaults.Destructive
	idempotent := defaults.Idempotent

	if hasOverride {
		if override.ReadOnly != nil {
			readOnly = override.ReadOnly
		}
		if override.Destructive != nil {
			destructive = override.Destructive
		}
		if override.Idempotent != nil {
			idempotent = override.Idempotent
		}
	}

	var opts []mcp.ToolOption
	if readOnly != nil {
		opts = append(opts, mcp.WithReadOnlyHintAnnotation(*readOnly))
	}
	if destructive != nil {
		opts = append(opts, mcp.WithDestructiveHintAnnotation(*destructive))
	}
	if idempotent != nil {
		opts = append(opts, mcp.WithIdempotentHintAnnotation(*idempotent))
	}
	return opts
}

// toolParams converts operation parameters into MCP tool arguments. Path and
// query parameters keep their names; a body parameter becomes a single
// "body" string argument holding the JSON payload.
func toolParams(params []Parameter) []mcp.ToolOption {
	var opts []mcp.ToolOption

	for _, p := range params {
		switch p.In {
		case "path":
			opts = append(opts, mcp.WithString(p.Name, propertyOpts(p)...))

		case "query":
			switch p.Type {
			case "integer", "number":
				opts = append(opts, mcp.WithNumber(p.Name, propertyOpts(p)...))
			case "boolean":
				opts = append(opts, mcp.WithBoolean(p.Name, propertyOpts(p)...))
			default:
				opts = append(opts, mcp.WithString(p.Name, propertyOpts(p)...))
			}

		case "body":
			popts := []mcp.PropertyOption{mcp.Description("Request body as a JSON object.")}
			if p.Required {
				popts = append(popts, mcp.Required())
			}
			opts = append(opts, mcp.WithString("body", popts...))
		}
	}
	return opts
}

func propertyOpts(p Parameter) []mcp.PropertyOption {
	desc := p.Description
	if desc == "" {
		desc = p.Name
	}
	opts := []mcp.PropertyOption{mcp.Description(desc)}

	if p.Required {
		opts = append(opts, mcp.Required())
	}
	if len(p.Enum) > 0 {
		vals := make([]string, 0, len(p.Enum))
		for _, v := range p.Enum {
			vals = append(vals, fmt.Sprintf("%v", v))
		}
		opts = append(opts, mcp.Enum(vals...))
	}
	return opts
}

// deriveName generates a tool name from the HTTP method and path.
func deriveName(method, path string) string {
	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")

	// Separate resource segments from parameter segments
	var resources []string
	for _, p := range parts {
		if !strings.HasPrefix(p, "{") {
			resources = append(resources, p)
		}
	}

	if len(resources) == 0 {
		return strings.ToLower(method)
	}

	// Normalize hyphens to underscores
	for i := range resources {
		resources[i] = strings.ReplaceAll(resources[i], "-", "_")
	}

	lastRes := resources[len(resources)-1]
	endsWithParam := strings.HasPrefix(parts[len(parts)-1], "{")
	afterParam := len(parts) >= 2 && strings.HasPrefix(parts[len(parts)-2], "{")

	switch method {
	case "GET":
		if endsWithParam {
			return "get_" + singularize(lastRes)
		}
		// Special cases for non-collection GETs
		if lastRes == "search" {
			return "search"
		}
		if lastRes == "me" {
			return "get_me"
		}
		if lastRes == "await" {
			return "await_" + singularize(findParentResource(parts, resources))
		}
		if resources[0] == "dashboard" && len(resources) >= 2 {
			return "get_dashboard_" + lastRes
		}
		if afterParam {
			parent := findParentResource(parts, resources)
			// Nested collections like GET /customers/{id}/invoices
			if looksLikeCollection(lastRes) {
				return "list_" + singularize(parent) + "_" + lastRes
			}
			// Singular sub-resources like GET /invoices/{id}/document
			return "get_" + singularize(parent) + "_" + lastRes
		}
		if len(resources) >= 3 {
			// Deep paths like GET /invoices/{id}/document/preview
			return "get_" + singularize(resources[0]) + "_" + strings.Join(resources[1:], "_")
		}
		// Collection endpoint
		return "list_" + lastRes

	case "POST":
		if lastRes == "login" {
			return "login"
		}
		if afterParam && !endsWithParam {
			// POST /parent/{id}/children creates a nested resource,
			// POST /resources/{id}/action invokes an action.
			if looksLikeCollection(lastRes) {
				return "create_" + singularize(lastRes)
			}
			return lastRes + "_" + singularize(findParentResource(parts, resources))
		}
		return "create_" + singularize(lastRes)

	case "PUT", "PATCH":
		if afterParam && !endsWithParam {
			// PUT /invoices/{id}/document replaces a sub-resource
			return "set_" + singularize(findParentResource(parts, resources)) + "_" + lastRes
		}
		return "update_" + singularize(lastRes)

	case "DELETE":
		if afterParam && !endsWithParam {
			return "delete_" + singularize(findParentResource(parts, resources)) + "_" + lastRes
		}
		return "delete_" + singularize(lastRes)
	}

	return strings.ToLower(method) + "_" + lastRes
}

// findParentResource finds the resource segment before the last parameter.
func findParentResource(parts, resources []string) string {
	if len(resources) >= 2 {
		return resources[len(resources)-2]
	}
	// Fallback: look through all parts
	for i := len(parts) - 1; i >= 0; i-- {
		if !strings.HasPrefix(parts[i], "{") {
			return strings.ReplaceAll(parts[i], "-", "_")
		}
	}
	return "unknown"
}

// looksLikeCollection returns true if the segment name looks plural.
func looksLikeCollection(s string) bool {
	return strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss")
}

// singularize performs a simple English singularization.
func singularize(s string) string {
	if strings.HasSuffix(s, "ies") {
		return s[:len(s)-3] + "y"
	}
	if strings.HasSuffix(s, "ses") || strings.HasSuffix(s, "xes") {
		return s[:len(s)-2]
	}
	if strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") {
		return s[:len(s)-1]
	}
	return s
}
