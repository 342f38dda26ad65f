package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskquest/taskquest/internal/gamification"
	"github.com/taskquest/taskquest/internal/models"
)

// UserStatsRepository handles user_stats database operations
type UserStatsRepository struct {
	db *DB
}

// NewUserStatsRepository creates a new user stats repository
func NewUserStatsRepository(db *DB) *UserStatsRepository {
	return &UserStatsRepository{db: db}
}

// GetStats retrieves the stats row for a user
func (r *UserStatsRepository) GetStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	stats := &models.UserStats{}
	query := `
		SELECT user_id, completed_tasks, total_tasks, streaks, last_active_date, created_at, updated_at
		FROM user_stats
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.UserID,
		&stats.CompletedTasks,
		&stats.TotalTasks,
		&stats.Streaks,
		&stats.LastActiveDate,
		&stats.CreatedAt,
		&stats.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user stats not found: %w", gamification.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	return stats, nil
}

// CreateStats inserts a zeroed stats row. A concurrent insert for the
// same user returns gamification.ErrAlreadyExists.
func (r *UserStatsRepository) CreateStats(ctx context.Context, stats *models.UserStats) error {
	query := `
		INSERT INTO user_stats (user_id, completed_tasks, total_tasks, streaks, last_active_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	lastActive := stats.LastActiveDate
	if lastActive.IsZero() {
		lastActive = now
	}
	err := r.db.QueryRowContext(ctx, query,
		stats.UserID,
		stats.CompletedTasks,
		stats.TotalTasks,
		stats.Streaks,
		lastActive,
		now,
		now,
	).Scan(&stats.CreatedAt, &stats.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user stats: %w", translateErr(err))
	}

	return nil
}

// IncrementCompleted bumps completed_tasks by one server-side and
// returns the post-increment count. The upsert keeps the reward
// transaction single-statement here even if provisioning lost a race.
func (r *UserStatsRepository) IncrementCompleted(ctx context.Context, userID uuid.UUID, activeDate time.Time) (int, error) {
	query := `
		INSERT INTO user_stats (user_id, completed_tasks, total_tasks, last_active_date, created_at, updated_at)
		VALUES ($1, 1, 1, $2, $2, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET completed_tasks = user_stats.completed_tasks + 1,
		    last_active_date = EXCLUDED.last_active_date,
		    updated_at = EXCLUDED.updated_at
		RETURNING completed_tasks
	`

	var completed int
	err := r.db.QueryRowContext(ctx, query, userID, activeDate).Scan(&completed)
	if err != nil {
		return 0, fmt.Errorf("failed to increment completed tasks: %w", err)
	}

	return completed, nil
}

// AdjustTaskTotals applies deltas to the task counters, clamped at zero
func (r *UserStatsRepository) AdjustTaskTotals(ctx context.Context, userID uuid.UUID, totalDelta, completedDelta int, activeDate time.Time) error {
	query := `
		INSERT INTO user_stats (user_id, completed_tasks, total_tasks, last_active_date, created_at, updated_at)
		VALUES ($1, GREATEST($3, 0), GREATEST($2, 0), $4, $4, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET total_tasks = GREATEST(user_stats.total_tasks + $2, 0),
		    completed_tasks = GREATEST(user_stats.completed_tasks + $3, 0),
		    last_active_date = EXCLUDED.last_active_date,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, userID, totalDelta, completedDelta, activeDate)
	if err != nil {
		return fmt.Errorf("failed to adjust task totals: %w", err)
	}

	return nil
}

// SetTotals overwrites the counters with values recomputed from the
// tasks table. Used by the reconcile worker.
func (r *UserStatsRepository) SetTotals(ctx context.Context, userID uuid.UUID, total, completed int) error {
	query := `
		INSERT INTO user_stats (user_id, completed_tasks, total_tasks, last_active_date, created_at, updated_at)
		VALUES ($1, $3, $2, $4, $4, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET total_tasks = EXCLUDED.total_tasks,
		    completed_tasks = EXCLUDED.completed_tasks,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, userID, total, completed, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set task totals: %w", err)
	}

	return nil
}
