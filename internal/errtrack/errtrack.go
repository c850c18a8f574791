package errtrack

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/mikaelw/subtrack/internal/config"
)

// Init configures Sentry from the config. A missing DSN disables reporting;
// CaptureError then becomes a no-op, so callers never need to check.
func Init(cfg *config.Config) error {
	if cfg.SentryDSN == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		ServerName:       cfg.ServiceName,
		AttachStacktrace: true,
	})
}

// Flush waits for buffered events to be delivered. Call before exit.
func Flush() {
	sentry.Flush(2 * time.Second)
}

// CaptureError reports an error to Sentry.
func CaptureError(err error) {
	sentry.CaptureException(err)
}

// CaptureErrorWithExtra reports an error with one extra context value.
func CaptureErrorWithExtra(err error, key string, value any) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetExtra(key, value)
		sentry.CaptureException(err)
	})
}
