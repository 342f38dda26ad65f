package gamification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/taskquest/taskquest/internal/models"
)

// ErrAlreadyExists is returned by stores when an insert hits an
// existing row. The provisioner treats it as success.
var ErrAlreadyExists = errors.New("row already exists")

// ProfileStore is the profile persistence the reward path needs.
// Implementations must scope every operation to the given user id.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	CreateProfile(ctx context.Context, profile *models.Profile) error
	UpdateScore(ctx context.Context, userID uuid.UUID, score, level int) error
}

// TaskStore is the task persistence the reward path needs.
type TaskStore interface {
	GetTask(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error

	// MarkTaskCompleted flips completed to true if and only if it is
	// currently false, stamping completedAt. Returns false when the
	// task was already completed, which makes a lost completion race a
	// scoring no-op.
	MarkTaskCompleted(ctx context.Context, userID, taskID uuid.UUID, completedAt time.Time) (bool, error)
}

// StatsStore is the per-user counter persistence.
type StatsStore interface {
	GetStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	CreateStats(ctx context.Context, stats *models.UserStats) error

	// IncrementCompleted atomically adds one to completed_tasks,
	// creating the row if missing, and stamps last_active_date.
	// Returns the post-increment completed count.
	IncrementCompleted(ctx context.Context, userID uuid.UUID, activeDate time.Time) (int, error)

	// AdjustTaskTotals applies deltas to total_tasks and
	// completed_tasks, clamping both at zero, and stamps
	// last_active_date.
	AdjustTaskTotals(ctx context.Context, userID uuid.UUID, totalDelta, completedDelta int, activeDate time.Time) error
}

// AchievementStore is the catalog and progress persistence.
type AchievementStore interface {
	ListDefinitions(ctx context.Context) ([]models.AchievementDefinition, error)
	ListUserAchievements(ctx context.Context, userID uuid.UUID) ([]models.UserAchievement, error)
	UpsertUserAchievement(ctx context.Context, row *models.UserAchievement) error

	// InitUserAchievements inserts a zero-progress row per definition,
	// skipping rows that already exist.
	InitUserAchievements(ctx context.Context, userID uuid.UUID, defs []models.AchievementDefinition) error
}

// ReconcileScheduler requests an asynchronous stats/achievement
// reconciliation for a user. Best effort; failures are logged, never
// surfaced to the reward path's caller.
type ReconcileScheduler interface {
	ScheduleReconcile(ctx context.Context, userID uuid.UUID) error
}
