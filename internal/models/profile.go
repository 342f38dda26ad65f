package models

import (
	"time"

	"github.com/google/uuid"
)

// Role tags a profile as a regular user or an administrator.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Profile represents a user's profile, including the gamification
// state (score and its derived level). Score is mutated only by the
// reward path; level is always recomputed from the absolute score.
type Profile struct {
	ID         uuid.UUID `json:"id"`
	ProviderID *string   `json:"provider_id,omitempty"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	AvatarURL  *string   `json:"avatar_url,omitempty"`
	Role       Role      `json:"role"`
	Score      int       `json:"score"`
	Level      int       `json:"level"`
	JoinedAt   time.Time `json:"joined_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
