package models

import (
	"time"

	"github.com/google/uuid"
)

// UserActivity tracks when a user last touched the API. The reconcile
// worker skips users whose reconciliation has been paused for
// inactivity.
type UserActivity struct {
	UserID          uuid.UUID `json:"user_id"`
	LastInteraction time.Time `json:"last_interaction"`
	ReconcilePaused bool      `json:"reconcile_paused"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
