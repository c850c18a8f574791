package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mikaelw/subtrack/internal/config"
	"github.com/mikaelw/subtrack/internal/db"
	"github.com/mikaelw/subtrack/internal/logging"
)

// migrate applies the database schema. The target database comes from
// DATABASE_URL; the default command applies all pending migrations.
//
//	migrate [-dir migrations] [up|status|down]
func main() {
	dirFlag := flag.String("dir", "migrations", "Migration files directory")
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("migrate"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	switch command {
	case "up":
		logger.Info().Str("dir", *dirFlag).Msg("applying migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *dirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations applied")
	case "status":
		if err := db.MigrationStatus(cfg.DatabaseURL, *dirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration status failed")
		}
	case "down":
		logger.Info().Str("dir", *dirFlag).Msg("rolling back last migration")
		if err := db.RollbackMigration(cfg.DatabaseURL, *dirFlag); err != nil {
			logger.Fatal().Err(err).Msg("rollback failed")
		}
		logger.Info().Msg("rollback complete")
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		fmt.Fprintln(os.Stderr, "usage: migrate [-dir migrations] [up|status|down]")
		os.Exit(1)
	}
}
