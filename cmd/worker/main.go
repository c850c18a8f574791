package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/mikaelw/subtrack/internal/activity"
	"github.com/mikaelw/subtrack/internal/cache"
	"github.com/mikaelw/subtrack/internal/config"
	"github.com/mikaelw/subtrack/internal/db"
	"github.com/mikaelw/subtrack/internal/errtrack"
	"github.com/mikaelw/subtrack/internal/events"
	"github.com/mikaelw/subtrack/internal/logging"
	"github.com/mikaelw/subtrack/internal/metrics"
	"github.com/mikaelw/subtrack/internal/storage"
	"github.com/mikaelw/subtrack/internal/workflow"
)

const taskQueue = "subtrack-billing"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if err := errtrack.Init(cfg); err != nil {
		logger.Warn().Err(err).Msg("error tracking disabled")
	}
	defer errtrack.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	store := storage.New(logger, cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure document bucket")
	}

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

	w := worker.New(tc, taskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ErrorTypingInterceptor{}},
	})

	// Register activities
	w.RegisterActivity(activity.NewStore(pool, caches))
	w.RegisterActivity(activity.NewBilling(pool))
	w.RegisterActivity(activity.NewDocuments(store))
	w.RegisterActivity(activity.NewEvents(pub))

	// Register workflows
	w.RegisterWorkflow(workflow.SubscriptionRenewalWorkflow)
	w.RegisterWorkflow(workflow.CancelSubscriptionWorkflow)
	w.RegisterWorkflow(workflow.RenewalScanWorkflow)
	w.RegisterWorkflow(workflow.InvoiceDocumentWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", taskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	// Register cron schedules. Errors for already-existing schedules are
	// ignored so that re-deploys do not fail.
	registerCronSchedules(ctx, tc, taskQueue, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

type cronSchedule struct {
	id       string
	cron     string
	workflow interface{}
	args     []interface{}
}

func registerCronSchedules(ctx context.Context, tc temporalclient.Client, taskQueue string, logger zerolog.Logger) {
	schedules := []cronSchedule{
		{
			id:       "renewal-scan-cron",
			cron:     "0 * * * *",
			workflow: workflow.RenewalScanWorkflow,
		},
	}

	scheduleClient := tc.ScheduleClient()

	for _, s := range schedules {
		_, err := scheduleClient.Create(ctx, temporalclient.ScheduleOptions{
			ID: s.id,
			Spec: temporalclient.ScheduleSpec{
				CronExpressions: []string{s.cron},
			},
			Action: &temporalclient.ScheduleWorkflowAction{
				ID:        s.id,
				Workflow:  s.workflow,
				Args:      s.args,
				TaskQueue: taskQueue,
			},
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already registered") {
				logger.Info().Str("id", s.id).Msg("cron schedule already exists, skipping")
			} else {
				logger.Fatal().Err(err).Str("id", s.id).Msg("failed to create cron schedule")
			}
		} else {
			logger.Info().Str("id", s.id).Str("cron", s.cron).Msg("created cron schedule")
		}
	}
}
