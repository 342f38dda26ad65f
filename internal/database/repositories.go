package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskquest/taskquest/internal/gamification"
	"github.com/taskquest/taskquest/internal/models"
)

// Compile-time checks that the repositories satisfy the store
// interfaces the service layer is written against.
var (
	_ gamification.ProfileStore     = (*ProfileRepository)(nil)
	_ gamification.TaskStore        = (*TaskRepository)(nil)
	_ gamification.StatsStore       = (*UserStatsRepository)(nil)
	_ gamification.AchievementStore = (*AchievementRepository)(nil)
)

// TaskRepositoryInterface defines the interface for task repository operations
// This interface enables better testability by allowing mock implementations
type TaskRepositoryInterface interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (total, completed int, err error)
}

// ProfileRepositoryInterface defines the interface for profile repository operations
type ProfileRepositoryInterface interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateScore(ctx context.Context, userID uuid.UUID, score, level int) error
}

// UserStatsRepositoryInterface defines the interface for user stats repository operations
type UserStatsRepositoryInterface interface {
	SetTotals(ctx context.Context, userID uuid.UUID, total, completed int) error
}

// AchievementRepositoryInterface defines the interface for achievement repository operations
type AchievementRepositoryInterface interface {
	ListDefinitions(ctx context.Context) ([]models.AchievementDefinition, error)
	ListUserAchievements(ctx context.Context, userID uuid.UUID) ([]models.UserAchievement, error)
	UpsertUserAchievement(ctx context.Context, row *models.UserAchievement) error
}

// UserActivityRepositoryInterface defines the interface for user activity repository operations
type UserActivityRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserActivity, error)
	GetEligibleUsersForReconcile(ctx context.Context) ([]uuid.UUID, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface         = (*TaskRepository)(nil)
	_ ProfileRepositoryInterface      = (*ProfileRepository)(nil)
	_ UserStatsRepositoryInterface    = (*UserStatsRepository)(nil)
	_ AchievementRepositoryInterface  = (*AchievementRepository)(nil)
	_ UserActivityRepositoryInterface = (*UserActivityRepository)(nil)
)
