// Package sqldb provides database operations for the task service.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
	"github.com/pressly/goose/v3"

	"github.com/taskhive/task-service/internal/sdk/models"
	"github.com/taskhive/task-service/internal/sdk/sqldb/migrations"
)

// PostgreSQL error codes.
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	uniqueViolation           = "23505"
	foreignKeyViolation       = "23503"
	checkViolation            = "23514"
	notNullViolation          = "23502"
	invalidTextRepresentation = "22P02"
)

var (
	ErrDBNotFound          = sql.ErrNoRows
	ErrDBDuplicatedEntry   = errors.New("duplicated entry")
	ErrForeignKeyViolation = errors.New("foreign key violation")
	ErrCheckViolation      = errors.New("check constraint violation")
	ErrNotNullViolation    = errors.New("not null violation")
	ErrTransactionFailed   = errors.New("transaction failed")
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	Health() map[string]string

	// Close terminates the database connection.
	Close() error

	// User operations
	CreateUser(ctx context.Context, user models.NewUser) (models.User, error)
	GetUserByID(ctx context.Context, userID string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateUser(ctx context.Context, userID string, upd models.UserUpdate) (models.User, error)
	// DeleteUser removes the user together with all owned tasks and
	// session tokens in a single transaction.
	DeleteUser(ctx context.Context, userID string) error

	// Session token operations
	AddSessionToken(ctx context.Context, userID, token string) error
	GetUserBySessionToken(ctx context.Context, userID, token string) (models.User, error)
	DeleteSessionToken(ctx context.Context, userID, token string) error
	DeleteSessionTokens(ctx context.Context, userID string) error

	// Task operations
	CreateTask(ctx context.Context, task models.NewTask) (models.Task, error)
	GetTask(ctx context.Context, ownerID, taskID string) (models.Task, error)
	ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID string, upd models.TaskUpdate) (models.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) (models.Task, error)
}

type service struct {
	db *sql.DB
}

var (
	database   = os.Getenv("TASKS_DB_DATABASE")
	password   = os.Getenv("TASKS_DB_PASSWORD")
	username   = os.Getenv("TASKS_DB_USERNAME")
	port       = os.Getenv("TASKS_DB_PORT")
	host       = os.Getenv("TASKS_DB_HOST")
	dbInstance *service
)

func New() Service {
	// Reuse Connection
	if dbInstance != nil {
		return dbInstance
	}
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", username, password, host, port, database)
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		log.Fatal(err)
	}
	dbInstance = &service{
		db: db,
	}
	return dbInstance
}

// RunMigrations applies the embedded goose migrations.
func (s *service) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

// Migrate brings the schema of the singleton connection up to date.
func Migrate(ctx context.Context) error {
	if dbInstance == nil {
		return errors.New("sqldb: not connected")
	}
	return dbInstance.RunMigrations(ctx)
}

// Health checks the health of the database connection by pinging the
// database and reports pool statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	log.Printf("Disconnected from database: %s", database)
	return s.db.Close()
}

// ---------------------------------------------
// Helpers
// ---------------------------------------------

// isPgError checks if the error is a PostgreSQL error with the given code.
func isPgError(err error, code string) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == code
	}
	return false
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDBNotFound)
}

// notFound reports whether a query error means the row does not exist.
// A syntactically malformed id (pg 22P02) can never match a row, so it
// counts as not found rather than an internal failure.
func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || isPgError(err, invalidTextRepresentation)
}

// IsDuplicateEntry checks if the error is a duplicate entry error.
func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDBDuplicatedEntry) || isPgError(err, uniqueViolation)
}

// withTx begins a transaction, runs fn, and commits on success or rolls
// back on error or panic. Panics are rethrown.
func (s *service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(tx)
	return err
}
