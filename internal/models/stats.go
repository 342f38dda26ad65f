package models

import (
	"time"

	"github.com/google/uuid"
)

// UserStats holds per-user task counters. CompletedTasks never exceeds
// TotalTasks under correct operation, but the invariant is not enforced
// atomically; the reconcile worker repairs drift from the tasks table.
//
// Streaks is persisted but never incremented by any current code path.
type UserStats struct {
	UserID         uuid.UUID `json:"user_id"`
	CompletedTasks int       `json:"completed_tasks"`
	TotalTasks     int       `json:"total_tasks"`
	Streaks        int       `json:"streaks"`
	LastActiveDate time.Time `json:"last_active_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
