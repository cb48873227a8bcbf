package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/taskhive/task-service/internal/sdk/models"
)

const taskColumns = `id, description, completed, owner_id, created_at, updated_at`

// taskSortColumns whitelists the fields a client may sort by, mapped to
// their SQL columns. Anything outside this map falls back to the default
// order.
var taskSortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"description": "description",
	"completed":   "completed",
}

func scanTask(row *sql.Row) (models.Task, error) {
	var task models.Task
	err := row.Scan(
		&task.ID,
		&task.Description,
		&task.Completed,
		&task.OwnerID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	return task, err
}

// CreateTask inserts a task for its owner.
func (s *service) CreateTask(ctx context.Context, nt models.NewTask) (models.Task, error) {
	const query = `
		INSERT INTO tasks (description, completed, owner_id)
		VALUES ($1, $2, $3)
		RETURNING ` + taskColumns

	task, err := scanTask(s.db.QueryRowContext(ctx, query,
		nt.Description,
		nt.Completed,
		nt.OwnerID,
	))
	if err != nil {
		if isPgError(err, foreignKeyViolation) {
			return models.Task{}, ErrForeignKeyViolation
		}
		return models.Task{}, fmt.Errorf("creating task: %w", err)
	}

	return task, nil
}

// GetTask retrieves a task scoped to its owner. A task owned by someone
// else is reported as not found.
func (s *service) GetTask(ctx context.Context, ownerID, taskID string) (models.Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND owner_id = $2`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, taskID, ownerID))
	if err != nil {
		if notFound(err) {
			return models.Task{}, ErrDBNotFound
		}
		return models.Task{}, fmt.Errorf("selecting task: %w", err)
	}

	return task, nil
}

// buildTaskListQuery renders the owner-scoped listing query for the given
// filter. The default order (created_at, id) keeps repeated calls
// deterministic; id breaks ties under any requested sort as well.
func buildTaskListQuery(ownerID string, f models.TaskFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1`)
	args := []any{ownerID}

	if f.Completed != nil {
		args = append(args, *f.Completed)
		fmt.Fprintf(&b, ` AND completed = $%d`, len(args))
	}

	column, ok := taskSortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if ok && f.SortDesc {
		direction = "DESC"
	}
	fmt.Fprintf(&b, ` ORDER BY %s %s, id ASC`, column, direction)

	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}
	if f.Skip > 0 {
		args = append(args, f.Skip)
		fmt.Fprintf(&b, ` OFFSET $%d`, len(args))
	}

	return b.String(), args
}

// ListTasks retrieves the owner's tasks with optional filtering, sorting
// and pagination.
func (s *service) ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error) {
	query, args := buildTaskListQuery(ownerID, filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		err := rows.Scan(
			&task.ID,
			&task.Description,
			&task.Completed,
			&task.OwnerID,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}

	return tasks, nil
}

// UpdateTask applies a partial update, scoped to the owner.
func (s *service) UpdateTask(ctx context.Context, ownerID, taskID string, upd models.TaskUpdate) (models.Task, error) {
	const query = `
		UPDATE tasks
		SET description = COALESCE($3, description),
		    completed = COALESCE($4, completed),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + taskColumns

	task, err := scanTask(s.db.QueryRowContext(ctx, query,
		taskID,
		ownerID,
		upd.Description,
		upd.Completed,
	))
	if err != nil {
		if notFound(err) {
			return models.Task{}, ErrDBNotFound
		}
		return models.Task{}, fmt.Errorf("updating task: %w", err)
	}

	return task, nil
}

// DeleteTask removes a task scoped to the owner and returns it.
func (s *service) DeleteTask(ctx context.Context, ownerID, taskID string) (models.Task, error) {
	const query = `
		DELETE FROM tasks
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + taskColumns

	task, err := scanTask(s.db.QueryRowContext(ctx, query, taskID, ownerID))
	if err != nil {
		if notFound(err) {
			return models.Task{}, ErrDBNotFound
		}
		return models.Task{}, fmt.Errorf("deleting task: %w", err)
	}

	return task, nil
}
