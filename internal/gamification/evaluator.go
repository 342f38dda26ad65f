package gamification

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskquest/taskquest/internal/models"
)

// Evaluate computes per-achievement progress for a user against the
// catalog. completedTasks and level are the post-update values from the
// reward transaction.
//
// Entries whose existing row is already unlocked are left untouched:
// unlock is a one-way transition and is never recomputed, even if the
// underlying metric were to regress. An entry appears in newlyUnlocked
// exactly when it was not previously unlocked and the fresh metric
// meets its threshold, so every returned row with Unlocked=true is a
// fresh unlock and earns the bonus exactly once.
//
// Definitions with an unknown metric tag are skipped.
func Evaluate(
	userID uuid.UUID,
	completedTasks, level int,
	defs []models.AchievementDefinition,
	existing map[string]models.UserAchievement,
	now time.Time,
) (updated []models.UserAchievement, newlyUnlocked []models.AchievementDefinition) {
	for _, def := range defs {
		prev, hasPrev := existing[def.ID]
		if hasPrev && prev.Unlocked {
			continue
		}

		var metric int
		switch def.Metric {
		case models.MetricTaskCount:
			metric = completedTasks
		case models.MetricLevel:
			metric = level
		default:
			continue
		}

		progress := metric
		if progress > def.RequiredProgress {
			progress = def.RequiredProgress
		}
		unlocked := metric >= def.RequiredProgress

		row := models.UserAchievement{
			UserID:        userID,
			AchievementID: def.ID,
			Progress:      progress,
			Unlocked:      unlocked,
		}
		if hasPrev {
			row.CreatedAt = prev.CreatedAt
		}
		if unlocked {
			at := now
			row.UnlockedAt = &at
			newlyUnlocked = append(newlyUnlocked, def)
		}
		updated = append(updated, row)
	}
	return updated, newlyUnlocked
}
