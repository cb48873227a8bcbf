// Package sentry provides error reporting. Without SENTRY_DSN set the
// service is a no-op, which keeps local development and tests quiet.
package sentry

import (
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// Level aliases the sentry severity so callers don't import the SDK.
type Level = sentry.Level

const (
	LevelWarning Level = sentry.LevelWarning
	LevelError   Level = sentry.LevelError
)

// Scope aliases the sentry scope for the same reason.
type Scope = sentry.Scope

type SentryService struct {
	initialized bool
}

func NewSentryService() *SentryService {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		log.Println("SENTRY_DSN not set, Sentry disabled")
		return &SentryService{initialized: false}
	}

	environment := os.Getenv("SENTRY_ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		log.Printf("Sentry initialization failed: %v", err)
		return &SentryService{initialized: false}
	}

	return &SentryService{initialized: true}
}

// CaptureException captures an error and sends it to Sentry.
func (s *SentryService) CaptureException(err error) {
	if !s.initialized {
		return
	}
	sentry.CaptureException(err)
}

// WithScope executes a function with a new Sentry scope.
func (s *SentryService) WithScope(fn func(scope *Scope)) {
	if !s.initialized {
		return
	}
	sentry.WithScope(fn)
}

// Flush waits for buffered events to be sent.
func (s *SentryService) Flush(timeout time.Duration) bool {
	if !s.initialized {
		return true
	}
	return sentry.Flush(timeout)
}

// Close flushes and shuts the client down.
func (s *SentryService) Close() {
	s.Flush(2 * time.Second)
}
