package models

import (
	"time"

	"github.com/google/uuid"
)

// Metric identifies which per-user value an achievement measures.
// Adding a new metric kind means adding a constant here and a case to
// the evaluator's dispatch, nothing else.
type Metric string

const (
	MetricTaskCount Metric = "task_count"
	MetricLevel     Metric = "level"
)

// AchievementDefinition is a catalog entry. Definitions are effectively
// immutable after seeding.
type AchievementDefinition struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Icon             string `json:"icon"`
	Metric           Metric `json:"metric"`
	RequiredProgress int    `json:"required_progress"`
}

// UserAchievement tracks one user's progress against one catalog entry.
// Unlocked is a one-way transition; UnlockedAt is set exactly once.
type UserAchievement struct {
	UserID        uuid.UUID  `json:"user_id"`
	AchievementID string     `json:"achievement_id"`
	Progress      int        `json:"progress"`
	Unlocked      bool       `json:"unlocked"`
	UnlockedAt    *time.Time `json:"unlocked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// AchievementView is a catalog entry merged with the user's progress,
// as returned to clients. Locked entries with no progress row show
// zero progress.
type AchievementView struct {
	AchievementDefinition
	Progress   int        `json:"progress"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}
