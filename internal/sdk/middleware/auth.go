// Package middleware provides the gin middleware chain: authentication,
// request logging and CORS.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/task-service/internal/sdk/models"
	"github.com/taskhive/task-service/internal/sdk/sqldb"
	"github.com/taskhive/task-service/internal/services/jwt"
)

const (
	// UserKey holds the resolved models.User in the gin context.
	UserKey = "auth_user"
	// TokenKey holds the exact bearer token string that authenticated the
	// request, so logout can revoke that session and no other.
	TokenKey = "auth_token"
)

var ErrNoAuthContext = errors.New("middleware: no authenticated user in context")

// Authenticate validates the bearer token on every protected request.
//
// The token must carry a valid signature AND still be present in the
// user's session list; logout removes it from the list, so a revoked
// token fails here even though its signature verifies. Every failure mode
// gets the same response body to avoid leaking which check failed.
func Authenticate(tokens *jwt.TokenService, db sqldb.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			unauthorized(c)
			return
		}

		claims, err := tokens.Parse(c.Request.Context(), raw)
		if err != nil {
			unauthorized(c)
			return
		}

		user, err := db.GetUserBySessionToken(c.Request.Context(), claims.Subject, raw)
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set(UserKey, user)
		c.Set(TokenKey, raw)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// GetUser returns the authenticated user set by Authenticate.
func GetUser(c *gin.Context) (models.User, error) {
	val, exists := c.Get(UserKey)
	if !exists {
		return models.User{}, ErrNoAuthContext
	}
	user, ok := val.(models.User)
	if !ok {
		return models.User{}, ErrNoAuthContext
	}
	return user, nil
}

// GetToken returns the bearer token that authenticated the request.
func GetToken(c *gin.Context) (string, error) {
	val, exists := c.Get(TokenKey)
	if !exists {
		return "", ErrNoAuthContext
	}
	token, ok := val.(string)
	if !ok {
		return "", ErrNoAuthContext
	}
	return token, nil
}
