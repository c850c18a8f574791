package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/mikaelw/subtrack/internal/api"
	"github.com/mikaelw/subtrack/internal/cache"
	"github.com/mikaelw/subtrack/internal/config"
	"github.com/mikaelw/subtrack/internal/core"
	"github.com/mikaelw/subtrack/internal/db"
	"github.com/mikaelw/subtrack/internal/errtrack"
	"github.com/mikaelw/subtrack/internal/events"
	"github.com/mikaelw/subtrack/internal/logging"
	"github.com/mikaelw/subtrack/internal/model"
	"github.com/mikaelw/subtrack/internal/platform"
	"github.com/mikaelw/subtrack/internal/storage"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "create-api-key":
			createAPIKey(os.Args[2:])
			return
		case "create-user":
			createUser(os.Args[2:])
			return
		}
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if err := errtrack.Init(cfg); err != nil {
		logger.Warn().Err(err).Msg("error tracking disabled")
	}
	defer errtrack.Flush()

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	tlsConfig, err := cfg.TemporalTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal TLS")
	}
	dialOpts := temporalclient.Options{HostPort: cfg.TemporalAddress}
	if tlsConfig != nil {
		dialOpts.ConnectionOptions = temporalclient.ConnectionOptions{TLS: tlsConfig}
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	pub, err := events.NewPublisher(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create event publisher")
	}
	defer pub.Close()

	redisClient, err := cache.NewClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	caches := cache.New(redisClient, logger)

	store := storage.New(logger, cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure document bucket")
	}

	srv := api.NewServer(logger, pool, tc, pub, caches, store, cfg)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

func createAPIKey(args []string) {
	fs := flag.NewFlagSet("create-api-key", flag.ExitOnError)
	name := fs.String("name", "", "Name for the API key (required)")
	scopesFlag := fs.String("scopes", "", "Comma-separated scopes, e.g. customers:read,exports:read (default full access)")
	fs.Parse(args)

	if *name == "" {
		fmt.Fprintln(os.Stderr, "error: --name is required")
		fmt.Fprintln(os.Stderr, "usage: api create-api-key --name <name> [--scopes <scopes>]")
		os.Exit(1)
	}

	var scopes []string
	if *scopesFlag != "" {
		for _, s := range strings.Split(*scopesFlag, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
	}

	pool, ctx, cleanup := subcommandPool()
	defer cleanup()

	svc := core.NewAPIKeyService(pool)
	key, rawKey, err := svc.Create(ctx, *name, scopes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create API key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API key created successfully.\n\n")
	fmt.Printf("  Name:   %s\n", key.Name)
	fmt.Printf("  ID:     %s\n", key.ID)
	fmt.Printf("  Scopes: %s\n", strings.Join(key.Scopes, ", "))
	fmt.Printf("  Key:    %s\n\n", rawKey)
	fmt.Printf("Save this key - it will not be shown again.\n")
}

func createUser(args []string) {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	email := fs.String("email", "", "Email address (required)")
	name := fs.String("name", "", "Display name (required)")
	password := fs.String("password", "", "Password (required)")
	role := fs.String("role", model.RoleViewer, "Role: admin or viewer")
	fs.Parse(args)

	if *email == "" || *name == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "error: --email, --name and --password are required")
		fmt.Fprintln(os.Stderr, "usage: api create-user --email <email> --name <name> --password <password> [--role admin|viewer]")
		os.Exit(1)
	}
	if *role != model.RoleAdmin && *role != model.RoleViewer {
		fmt.Fprintf(os.Stderr, "error: unknown role %q\n", *role)
		os.Exit(1)
	}

	pool, ctx, cleanup := subcommandPool()
	defer cleanup()

	cfg, _ := config.Load()
	svc := core.NewAuthService(pool, cfg.JWTSecret, cfg.JWTIssuer)
	now := time.Now().UTC()
	user := &model.User{
		ID:          platform.NewID(),
		Email:       *email,
		DisplayName: *name,
		Role:        *role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.CreateUser(ctx, user, *password); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("User created successfully.\n\n")
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  ID:    %s\n", user.ID)
	fmt.Printf("  Role:  %s\n", user.Role)
}

// subcommandPool loads config and opens a short-lived database pool for CLI
// subcommands.
func subcommandPool() (*pgxpool.Pool, context.Context, func()) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}

	return pool, ctx, func() {
		pool.Close()
		cancel()
	}
}
