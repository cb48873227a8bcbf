// Package app provides the HTTP handlers for the task service.
package app

import (
	"github.com/gin-gonic/gin"

	"github.com/taskhive/task-service/internal/sdk/sqldb"
	"github.com/taskhive/task-service/internal/services/avatar"
	"github.com/taskhive/task-service/internal/services/hash"
	"github.com/taskhive/task-service/internal/services/jwt"
	"github.com/taskhive/task-service/internal/services/mailtrap"
	"github.com/taskhive/task-service/internal/services/sentry"
)

type App struct {
	db      sqldb.Service
	jwt     *jwt.TokenService
	hash    *hash.HashService
	avatars avatar.Store
	email   mailtrap.Service
	sentry  *sentry.SentryService
}

func NewApp(
	db sqldb.Service,
	jwt *jwt.TokenService,
	hash *hash.HashService,
	avatars avatar.Store,
	email mailtrap.Service,
	sentry *sentry.SentryService,
) *App {
	return &App{
		db:      db,
		jwt:     jwt,
		hash:    hash,
		avatars: avatars,
		email:   email,
		sentry:  sentry,
	}
}

func (a *App) toSentry(c *gin.Context, handler, errType string, level sentry.Level, err error) {
	a.sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("handler", handler)
		scope.SetExtra("error_type", errType)
		scope.SetLevel(level)
		a.sentry.CaptureException(err)
	})
}
