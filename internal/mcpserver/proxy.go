package mcpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// ToolOperation holds what the proxy needs to turn a tool call into an API
// request.
type ToolOperation struct {
	Method     string
	Path       string // URL path template with {param} placeholders
	Parameters []Parameter
}

// Proxy translates MCP tool calls into requests against the REST API.
type Proxy struct {
	baseURL    string
	serviceKey string
	client     *http.Client
	logger     zerolog.Logger
}

// NewProxy creates a proxy for the given API base URL. serviceKey, when not
// empty, is sent as the API key for sessions that carry no credentials of
// their own.
func NewProxy(baseURL, serviceKey string, logger zerolog.Logger) *Proxy {
	return &Proxy{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Tool returns the MCP handler for one API operation.
func (p *Proxy) Tool(op ToolOperation) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		reqURL, err := p.buildURL(op, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var body io.Reader
		if raw, ok := args["body"]; ok && raw != nil {
			if s := argString(raw); s != "" {
				body = strings.NewReader(s)
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, op.Method, reqURL, body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("build request: %s", err)), nil
		}
		if body != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		p.setCredentials(httpReq, req)

		p.logger.Debug().
			Str("method", op.Method).
			Str("url", reqURL).
			Str("tool", req.Params.Name).
			Msg("proxying MCP tool call")

		resp, err := p.client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %s", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("read response: %s", err)), nil
		}

		if resp.StatusCode >= 400 {
			return mcp.NewToolResultError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(respBody))), nil
		}
		if resp.StatusCode == http.StatusNoContent {
			return mcp.NewToolResultText(`{"status":"ok"}`), nil
		}
		return mcp.NewToolResultText(string(respBody)), nil
	}
}

// buildURL substitutes path parameters into the operation's path template and
// appends the query string. Query values like search terms can contain
// spaces, so both are escaped.
func (p *Proxy) buildURL(op ToolOperation, args map[string]any) (string, error) {
	reqURL := p.baseURL + op.Path
	query := url.Values{}

	for _, param := range op.Parameters {
		switch param.In {
		case "path":
			val, ok := args[param.Name]
			if !ok {
				return "", fmt.Errorf("missing required path parameter: %s", param.Name)
			}
			reqURL = strings.ReplaceAll(reqURL, "{"+param.Name+"}", url.PathEscape(argString(val)))

		case "query":
			if val, ok := args[param.Name]; ok && val != nil {
				if s := argString(val); s != "" {
					query.Set(param.Name, s)
				}
			}
		}
	}

	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	return reqURL, nil
}

// setCredentials forwards the session's API key or bearer token, falling
// back to the configured service key.
func (p *Proxy) setCredentials(httpReq *http.Request, req mcp.CallToolRequest) {
	if apiKey := req.Header.Get("X-API-Key"); apiKey != "" {
		httpReq.Header.Set("X-API-Key", apiKey)
		return
	}
	if auth := req.Header.Get("Authorization"); auth != "" {
		httpReq.Header.Set("Authorization", auth)
		return
	}
	if p.serviceKey != "" {
		httpReq.Header.Set("X-API-Key", p.serviceKey)
	}
}

// argString renders a tool argument for use in a URL or body. Numbers from
// JSON arrive as float64, so integers are printed without the exponent.
func argString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", v)
	}
}
