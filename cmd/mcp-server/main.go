package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mikaelw/subtrack/internal/mcpserver"
)

func main() {
	configPath := flag.String("config", "mcp.yaml", "Path to mcp.yaml configuration file")
	specFile := flag.String("spec", "", "Path to swagger.json file (overrides fetching from API)")
	addr := flag.String("addr", ":8090", "Listen address")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if envAddr := os.Getenv("MCP_ADDR"); envAddr != "" {
		*addr = envAddr
	}

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)

	cfg, err := mcpserver.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	specData, err := loadSpec(cfg, *specFile, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load swagger spec")
	}

	srv, err := mcpserver.New(cfg, specData, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create MCP server")
	}

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", *addr).Str("api", cfg.APIURL).Msg("starting MCP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down MCP server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

// loadSpec reads the swagger spec from the -spec file when given, otherwise
// fetches it from the running API.
func loadSpec(cfg *mcpserver.Config, specFile string, logger zerolog.Logger) ([]byte, error) {
	if specFile != "" {
		data, err := os.ReadFile(specFile)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", specFile).Msg("loaded spec from file")
		return data, nil
	}

	data, err := mcpserver.FetchSpec(cfg.APIURL, cfg.SpecPath)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("url", cfg.APIURL+cfg.SpecPath).Msg("fetched spec from API")
	return data, nil
}
