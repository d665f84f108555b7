package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"simplelikes/internal/platform/config"
)

const defaultSentryEnvironment = "production"

// InitSentry initializes Sentry and returns whether it is enabled.
// tags are attached to every event, e.g. the binary name.
func InitSentry(cfg config.SentryConfig, tags map[string]string) (bool, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return false, nil
	}

	if err := sentry.Init(clientOptions(cfg)); err != nil {
		return false, fmt.Errorf("init sentry: %w", err)
	}
	if len(tags) > 0 {
		sentry.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTags(tags)
		})
	}
	return true, nil
}

func clientOptions(cfg config.SentryConfig) sentry.ClientOptions {
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = defaultSentryEnvironment
	}
	return sentry.ClientOptions{
		Dsn:              strings.TrimSpace(cfg.DSN),
		Environment:      environment,
		Release:          strings.TrimSpace(cfg.Release),
		AttachStacktrace: true,
	}
}

// Flush waits for buffered events to be delivered.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// Recover captures a panic and reports it to Sentry.
func Recover() {
	sentry.Recover()
}
