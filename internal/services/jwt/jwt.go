// Package jwt mints and verifies the signed session tokens.
//
// A token binds nothing but the user's id. There is no expiry claim:
// a token stays valid until it is removed from the user's session list,
// so logout works per device and "logout everywhere" clears them all.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("jwt: invalid token")
	ErrInvalidClaims = errors.New("jwt: invalid claims")
	ErrEmptySecret   = errors.New("jwt: signing secret is empty")
)

// TokenService creates and validates session tokens.
// Create one instance and reuse it throughout the application.
type TokenService struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewTokenService creates a TokenService signing with the given secret.
// The secret is injected by the caller; rotating it invalidates every
// outstanding token at once.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if issuer == "" {
		issuer = "task-service"
	}

	parser := jwt.NewParser(
		// Only accept HS256 - prevents algorithm confusion attacks
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithIssuer(issuer),
	)

	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		parser: parser,
	}, nil
}

// Sign creates a token for the given user id. The jti claim makes every
// issued token unique, so two logins in the same second still produce
// distinct session entries.
func (s *TokenService) Sign(ctx context.Context, subject string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		Issuer:   s.issuer,
		IssuedAt: jwt.NewNumericDate(time.Now()),
		ID:       uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and returns the claims. Verification, not
// mere decoding: a token signed with any other secret is rejected.
func (s *TokenService) Parse(ctx context.Context, tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, convertError(err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// convertError transforms jwt library errors into our custom errors.
func convertError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: token is malformed", ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: signature is invalid", ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}
