package main

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	listenAddr := envOr("LISTEN_ADDR", ":3001")
	apiURL := envOr("SUBTRACK_API_URL", "http://localhost:8080")
	staticDir := envOr("STATIC_DIR", "./dist")

	target, err := url.Parse(apiURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid SUBTRACK_API_URL")
	}
	proxy := httputil.NewSingleHostReverseProxy(target)

	mux := http.NewServeMux()

	// The API and its docs are same-origin for the SPA. The live dashboard
	// feed upgrades to a websocket and rides the same proxy.
	mux.Handle("/api/", proxy)
	mux.Handle("/docs", proxy)
	mux.Handle("/docs/", proxy)

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/", spaHandler{staticDir: staticDir})

	// No write timeout: proxied websockets stay open indefinitely.
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", listenAddr).Str("api", apiURL).Str("static", staticDir).Msg("starting admin UI")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down admin UI")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

// spaHandler serves the built dashboard bundle, falling back to index.html
// for client-side routes.
type spaHandler struct {
	staticDir string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := filepath.Join(h.staticDir, filepath.Clean("/"+r.URL.Path))

	fi, err := os.Stat(name)
	if err != nil || fi.IsDir() {
		// Unknown paths are client-side routes. index.html always
		// revalidates; only the hashed assets are immutable.
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, filepath.Join(h.staticDir, "index.html"))
		return
	}

	// Hashed bundle assets never change under the same name.
	if strings.Contains(r.URL.Path, "/assets/") {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	}
	http.ServeFile(w, r, name)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
