package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/taskquest/taskquest/internal/gamification"
	"github.com/taskquest/taskquest/internal/models"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, title, description, priority, due_date, tags, points, completed, completed_at, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	task := &models.Task{}
	var dueDate, completedAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&dueDate,
		pq.Array(&task.Tags),
		&task.Points,
		&task.Completed,
		&completedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return task, nil
}

// CreateTask inserts a new task
func (r *TaskRepository) CreateTask(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, description, priority, due_date, tags, points, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Priority,
		task.DueDate,
		pq.Array(tags),
		task.Points,
		task.Completed,
		now,
		now,
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", translateErr(err))
	}

	return nil
}

// GetTask retrieves a task by ID, scoped to its owner
func (r *TaskRepository) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, taskID, userID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %w", translateErr(err))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListByUser retrieves all tasks for a user, optionally filtered by
// completion state and priority
func (r *TaskRepository) ListByUser(ctx context.Context, userID uuid.UUID, completed *bool, priority *models.Priority) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1
	`
	args := []any{userID}
	argIndex := 2

	if completed != nil {
		query += fmt.Sprintf(" AND completed = $%d", argIndex)
		args = append(args, *completed)
		argIndex++
	}

	if priority != nil {
		query += fmt.Sprintf(" AND priority = $%d", argIndex)
		args = append(args, string(*priority))
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// Update updates the user-editable fields of an existing task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $3, description = $4, priority = $5, due_date = $6, tags = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`

	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Priority,
		task.DueDate,
		pq.Array(tags),
		now,
	).Scan(&task.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("task not found: %w", translateErr(err))
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// MarkTaskCompleted flips the completed flag. The update is conditional
// on completed = false, so concurrent completions of the same task race
// to a single winner; the losers see false with no error.
func (r *TaskRepository) MarkTaskCompleted(ctx context.Context, userID, taskID uuid.UUID, completedAt time.Time) (bool, error) {
	query := `
		UPDATE tasks
		SET completed = TRUE, completed_at = $3, updated_at = $3
		WHERE id = $1 AND user_id = $2 AND completed = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, taskID, userID, completedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark task completed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// DeleteTask deletes a task by ID, scoped to its owner
func (r *TaskRepository) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	query := `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %w", gamification.ErrNotFound)
	}

	return nil
}

// CountByUser returns total and completed task counts straight from the
// tasks table. The reconcile worker treats these as the source of truth
// when repairing user_stats.
func (r *TaskRepository) CountByUser(ctx context.Context, userID uuid.UUID) (total, completed int, err error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE completed)
		FROM tasks
		WHERE user_id = $1
	`

	err = r.db.QueryRowContext(ctx, query, userID).Scan(&total, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return total, completed, nil
}
