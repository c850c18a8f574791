package mcpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

const serverVersion = "1.0.0"

// Server exposes the API as MCP tool groups over streamable HTTP.
type Server struct {
	router chi.Router
	logger zerolog.Logger
}

// groupInfo is one entry in the /mcp index listing.
type groupInfo struct {
	Name        string `json:"name"`
	Endpoint    string `json:"endpoint"`
	Tools       int    `json:"tools"`
	Description string `json:"description"`
}

// New builds the MCP server from the config and swagger spec. Each group
// mounts under /mcp/<group>; /mcp/all carries every tool for agents that
// need the whole surface.
func New(cfg *Config, specData []byte, logger zerolog.Logger) (*Server, error) {
	spec, err := ParseSpec(specData)
	if err != nil {
		return nil, err
	}

	proxy := NewProxy(cfg.APIURL, cfg.serviceKey(), logger)
	groups := BuildTools(spec, cfg, proxy.Tool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	var index []groupInfo
	var allTools []server.ServerTool

	router.Route("/mcp", func(r chi.Router) {
		for _, g := range groups {
			desc := cfg.Groups[g.Name].Description
			if desc == "" {
				desc = g.Name + " tools"
			}

			mcpSrv := server.NewMCPServer("subtrack-"+g.Name, serverVersion,
				server.WithInstructions(desc),
			)
			mcpSrv.AddTools(g.Tools...)

			r.Mount("/"+g.Name, server.NewStreamableHTTPServer(mcpSrv,
				server.WithEndpointPath("/"),
			))

			index = append(index, groupInfo{
				Name:        g.Name,
				Endpoint:    "/mcp/" + g.Name,
				Tools:       len(g.Tools),
				Description: desc,
			})
			allTools = append(allTools, g.Tools...)

			logger.Info().
				Str("group", g.Name).
				Int("tools", len(g.Tools)).
				Msg("mounted MCP tool group")
		}

		allSrv := server.NewMCPServer("subtrack", serverVersion,
			server.WithInstructions("Subscription and asset management tools: customers, plans, subscriptions, invoicing, devices, and reporting."),
		)
		allSrv.AddTools(allTools...)
		r.Mount("/all", server.NewStreamableHTTPServer(allSrv, server.WithEndpointPath("/")))

		index = append(index, groupInfo{
			Name:        "all",
			Endpoint:    "/mcp/all",
			Tools:       len(allTools),
			Description: "All tools from every group",
		})
		logger.Info().Int("tools", len(allTools)).Msg("mounted unified MCP endpoint at /mcp/all")

		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(index)
		})
	})

	return &Server{router: router, logger: logger}, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// FetchSpec downloads the swagger spec from the API.
func FetchSpec(apiURL, specPath string) ([]byte, error) {
	url := strings.TrimRight(apiURL, "/") + specPath
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch spec from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch spec from %s: HTTP %d", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
