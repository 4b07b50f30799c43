package sentry

import (
	"time"

	sentry "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"lyricsd/config"
)

// Init configures the global Sentry client. An empty DSN leaves reporting disabled.
func Init(cfg config.SentryConfig) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Release:          cfg.Release,
		TracesSampleRate: 1.0,
	}); err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	if cfg.DSN == "" {
		log.Debug("SENTRY_DSN not set, error reporting disabled")
	}
}

func GetSentryGin() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// ReportError captures err and waits briefly for delivery, for use right before exiting.
func ReportError(err error) {
	sentry.CaptureException(err)
	sentry.Flush(2 * time.Second)
}
