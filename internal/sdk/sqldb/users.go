package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/taskhive/task-service/internal/sdk/models"
)

const userColumns = `id, name, email, password, age, created_at, updated_at`

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.Age,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// CreateUser inserts a new user into the database.
func (s *service) CreateUser(ctx context.Context, nu models.NewUser) (models.User, error) {
	const query = `
		INSERT INTO users (name, email, password, age)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	user, err := scanUser(s.db.QueryRowContext(ctx, query,
		nu.Name,
		nu.Email,
		nu.Password,
		nu.Age,
	))
	if err != nil {
		if isPgError(err, uniqueViolation) {
			return models.User{}, ErrDBDuplicatedEntry
		}
		return models.User{}, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *service) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if notFound(err) {
			return models.User{}, ErrDBNotFound
		}
		return models.User{}, fmt.Errorf("selecting user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *service) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrDBNotFound
		}
		return models.User{}, fmt.Errorf("selecting user by email: %w", err)
	}

	return user, nil
}

// UpdateUser applies a partial profile update. Only fields present in upd
// are written; the password is written as-is (the caller hashes it).
func (s *service) UpdateUser(ctx context.Context, userID string, upd models.UserUpdate) (models.User, error) {
	const query = `
		UPDATE users
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    password = COALESCE($4, password),
		    age = COALESCE($5, age),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + userColumns

	var password any
	if len(upd.Password) > 0 {
		password = upd.Password
	}

	user, err := scanUser(s.db.QueryRowContext(ctx, query,
		userID,
		upd.Name,
		upd.Email,
		password,
		upd.Age,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrDBNotFound
		}
		if isPgError(err, uniqueViolation) {
			return models.User{}, ErrDBDuplicatedEntry
		}
		return models.User{}, fmt.Errorf("updating user: %w", err)
	}

	return user, nil
}

// DeleteUser removes the user row together with every owned task and
// session token. All three deletes run in one transaction so the cascade
// is atomic from the caller's perspective.
func (s *service) DeleteUser(ctx context.Context, userID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE owner_id = $1`, userID); err != nil {
			return fmt.Errorf("deleting tasks for user: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_tokens WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("deleting session tokens for user: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
		if err != nil {
			return fmt.Errorf("deleting user: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if affected == 0 {
			return ErrDBNotFound
		}
		return nil
	})
}
