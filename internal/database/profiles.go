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

// ProfileRepository handles profile database operations
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, provider_id, email, name, avatar_url, role, score, level, joined_at, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*models.Profile, error) {
	profile := &models.Profile{}
	err := row.Scan(
		&profile.ID,
		&profile.ProviderID,
		&profile.Email,
		&profile.Name,
		&profile.AvatarURL,
		&profile.Role,
		&profile.Score,
		&profile.Level,
		&profile.JoinedAt,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateProfile inserts a new profile. Inserting an existing user ID or
// provider ID returns gamification.ErrAlreadyExists so provisioning can
// treat the race as success.
func (r *ProfileRepository) CreateProfile(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (id, provider_id, email, name, avatar_url, role, score, level, joined_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		profile.ID,
		profile.ProviderID,
		profile.Email,
		profile.Name,
		profile.AvatarURL,
		profile.Role,
		profile.Score,
		profile.Level,
		profile.JoinedAt,
		now,
		now,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create profile: %w", translateErr(err))
	}

	return nil
}

// GetProfile retrieves a profile by user ID
func (r *ProfileRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE id = $1
	`

	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("profile not found: %w", gamification.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// GetByProviderID retrieves a profile by identity provider subject
func (r *ProfileRepository) GetByProviderID(ctx context.Context, providerID string) (*models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE provider_id = $1
	`

	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, providerID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("profile not found: %w", gamification.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by provider ID: %w", err)
	}

	return profile, nil
}

// UpdateScore writes the absolute score and level for a user
func (r *ProfileRepository) UpdateScore(ctx context.Context, userID uuid.UUID, score, level int) error {
	query := `
		UPDATE profiles
		SET score = $2, level = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, userID, score, level, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update score: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %w", gamification.ErrNotFound)
	}

	return nil
}

// UpdateDetails updates the user-editable profile fields
func (r *ProfileRepository) UpdateDetails(ctx context.Context, profile *models.Profile) error {
	query := `
		UPDATE profiles
		SET name = $2, avatar_url = $3, updated_at = $4
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		profile.ID,
		profile.Name,
		profile.AvatarURL,
		time.Now(),
	).Scan(&profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("profile not found: %w", gamification.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}
