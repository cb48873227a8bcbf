package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/taskhive/task-service/internal/sdk/models"
)

// AddSessionToken appends a token to the user's active session list.
func (s *service) AddSessionToken(ctx context.Context, userID, token string) error {
	const query = `
		INSERT INTO session_tokens (user_id, token)
		VALUES ($1, $2)`

	if _, err := s.db.ExecContext(ctx, query, userID, token); err != nil {
		if isPgError(err, foreignKeyViolation) {
			return ErrForeignKeyViolation
		}
		return fmt.Errorf("adding session token: %w", err)
	}
	return nil
}

// GetUserBySessionToken resolves a user only when the id matches AND the
// exact token string is still in their session list. A revoked token
// therefore fails here even though its signature still verifies.
func (s *service) GetUserBySessionToken(ctx context.Context, userID, token string) (models.User, error) {
	const query = `
		SELECT u.id, u.name, u.email, u.password, u.age, u.created_at, u.updated_at
		FROM users u
		JOIN session_tokens st ON st.user_id = u.id
		WHERE u.id = $1 AND st.token = $2`

	var user models.User
	err := s.db.QueryRowContext(ctx, query, userID, token).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.Age,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrDBNotFound
		}
		return models.User{}, fmt.Errorf("selecting user by session token: %w", err)
	}

	return user, nil
}

// DeleteSessionToken removes exactly one matching token. Idempotent: a
// token that is already absent is not an error.
func (s *service) DeleteSessionToken(ctx context.Context, userID, token string) error {
	const query = `
		DELETE FROM session_tokens
		WHERE user_id = $1 AND token = $2`

	if _, err := s.db.ExecContext(ctx, query, userID, token); err != nil {
		return fmt.Errorf("deleting session token: %w", err)
	}
	return nil
}

// DeleteSessionTokens clears the user's entire session list.
func (s *service) DeleteSessionTokens(ctx context.Context, userID string) error {
	const query = `
		DELETE FROM session_tokens
		WHERE user_id = $1`

	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("deleting session tokens for user: %w", err)
	}
	return nil
}
