package gamification

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/taskquest/taskquest/internal/models"
)

// AchievementService serves read-side achievement views: the catalog
// merged with one user's progress rows.
type AchievementService struct {
	store AchievementStore
}

// NewAchievementService creates an achievement view service.
func NewAchievementService(store AchievementStore) *AchievementService {
	return &AchievementService{store: store}
}

// GetUserAchievements returns every catalog entry with the user's
// progress merged in, ordered by required progress ascending. Entries
// the user has no row for yet show zero progress.
func (s *AchievementService) GetUserAchievements(ctx context.Context, userID uuid.UUID) ([]models.AchievementView, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	defs, err := s.store.ListDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}

	progress := make(map[string]models.UserAchievement, len(rows))
	for _, row := range rows {
		progress[row.AchievementID] = row
	}

	views := make([]models.AchievementView, 0, len(defs))
	for _, def := range defs {
		view := models.AchievementView{AchievementDefinition: def}
		if row, ok := progress[def.ID]; ok {
			view.Progress = row.Progress
			view.Unlocked = row.Unlocked
			view.UnlockedAt = row.UnlockedAt
		}
		views = append(views, view)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].RequiredProgress < views[j].RequiredProgress
	})
	return views, nil
}
