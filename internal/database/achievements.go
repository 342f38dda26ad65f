package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskquest/taskquest/internal/models"
)

// AchievementRepository handles the achievement catalog and per-user
// progress rows.
type AchievementRepository struct {
	db *DB
}

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db *DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// SeedDefinitions upserts the catalog. Existing rows are updated in
// place so renamed or rebalanced achievements take effect on restart.
func (r *AchievementRepository) SeedDefinitions(ctx context.Context, defs []models.AchievementDefinition) error {
	query := `
		INSERT INTO achievements (id, name, description, icon, metric, required_progress)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    icon = EXCLUDED.icon,
		    metric = EXCLUDED.metric,
		    required_progress = EXCLUDED.required_progress
	`

	for _, def := range defs {
		_, err := r.db.ExecContext(ctx, query,
			def.ID,
			def.Name,
			def.Description,
			def.Icon,
			def.Metric,
			def.RequiredProgress,
		)
		if err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", def.ID, err)
		}
	}

	return nil
}

// ListDefinitions returns the full catalog ordered by unlock threshold
func (r *AchievementRepository) ListDefinitions(ctx context.Context) ([]models.AchievementDefinition, error) {
	query := `
		SELECT id, name, description, icon, metric, required_progress
		FROM achievements
		ORDER BY required_progress, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var defs []models.AchievementDefinition
	for rows.Next() {
		var def models.AchievementDefinition
		err := rows.Scan(
			&def.ID,
			&def.Name,
			&def.Description,
			&def.Icon,
			&def.Metric,
			&def.RequiredProgress,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		defs = append(defs, def)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}

	return defs, nil
}

// ListUserAchievements returns a user's progress rows
func (r *AchievementRepository) ListUserAchievements(ctx context.Context, userID uuid.UUID) ([]models.UserAchievement, error) {
	query := `
		SELECT user_id, achievement_id, progress, unlocked, unlocked_at, created_at, updated_at
		FROM user_achievements
		WHERE user_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user achievements: %w", err)
	}
	defer rows.Close()

	var out []models.UserAchievement
	for rows.Next() {
		var row models.UserAchievement
		var unlockedAt sql.NullTime
		err := rows.Scan(
			&row.UserID,
			&row.AchievementID,
			&row.Progress,
			&row.Unlocked,
			&unlockedAt,
			&row.CreatedAt,
			&row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user achievement: %w", err)
		}
		if unlockedAt.Valid {
			row.UnlockedAt = &unlockedAt.Time
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user achievements: %w", err)
	}

	return out, nil
}

// UpsertUserAchievement writes one progress row. Unlocks never regress:
// once the stored row is unlocked it stays unlocked with its original
// timestamp regardless of what the incoming row says.
func (r *AchievementRepository) UpsertUserAchievement(ctx context.Context, row *models.UserAchievement) error {
	query := `
		INSERT INTO user_achievements (user_id, achievement_id, progress, unlocked, unlocked_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (user_id, achievement_id) DO UPDATE
		SET progress = GREATEST(user_achievements.progress, EXCLUDED.progress),
		    unlocked = user_achievements.unlocked OR EXCLUDED.unlocked,
		    unlocked_at = COALESCE(user_achievements.unlocked_at, EXCLUDED.unlocked_at),
		    updated_at = EXCLUDED.updated_at
	`

	var unlockedAt sql.NullTime
	if row.UnlockedAt != nil {
		unlockedAt = sql.NullTime{Time: *row.UnlockedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		row.UserID,
		row.AchievementID,
		row.Progress,
		row.Unlocked,
		unlockedAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user achievement: %w", err)
	}

	return nil
}

// InitUserAchievements inserts zero-progress rows for every definition
// the user has no row for yet. Existing rows are left untouched.
func (r *AchievementRepository) InitUserAchievements(ctx context.Context, userID uuid.UUID, defs []models.AchievementDefinition) error {
	query := `
		INSERT INTO user_achievements (user_id, achievement_id, progress, unlocked, created_at, updated_at)
		VALUES ($1, $2, 0, FALSE, $3, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`

	now := time.Now()
	for _, def := range defs {
		if _, err := r.db.ExecContext(ctx, query, userID, def.ID, now); err != nil {
			return fmt.Errorf("failed to init user achievement %s: %w", def.ID, err)
		}
	}

	return nil
}
