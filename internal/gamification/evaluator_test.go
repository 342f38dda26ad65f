package gamification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/taskquest/taskquest/internal/models"
)

func findRow(rows []models.UserAchievement, id string) (models.UserAchievement, bool) {
	for _, row := range rows {
		if row.AchievementID == id {
			return row, true
		}
	}
	return models.UserAchievement{}, false
}

func containsDef(defs []models.AchievementDefinition, id string) bool {
	for _, def := range defs {
		if def.ID == id {
			return true
		}
	}
	return false
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Now().UTC()
	catalog := DefaultCatalog()

	tests := []struct {
		name           string
		completedTasks int
		level          int
		existing       map[string]models.UserAchievement
		wantUnlocked   []string
		wantLocked     []string
	}{
		{
			name:           "first completion unlocks first-task",
			completedTasks: 1,
			level:          1,
			wantUnlocked:   []string{"first-task"},
			wantLocked:     []string{"task-master-10", "level-5"},
		},
		{
			name:           "tenth completion unlocks task-master-10",
			completedTasks: 10,
			level:          2,
			existing: map[string]models.UserAchievement{
				"first-task": {UserID: userID, AchievementID: "first-task", Progress: 1, Unlocked: true},
			},
			wantUnlocked: []string{"task-master-10"},
		},
		{
			name:           "level metric dispatches on level not task count",
			completedTasks: 2,
			level:          5,
			wantUnlocked:   []string{"first-task", "level-5"},
			wantLocked:     []string{"task-master-10", "level-10"},
		},
		{
			name:           "nothing near threshold unlocks nothing",
			completedTasks: 0,
			level:          1,
			wantLocked:     []string{"first-task", "task-master-10", "level-5"},
		},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			existing := tt.existing
			if existing == nil {
				existing = map[string]models.UserAchievement{}
			}
			updated, newly := Evaluate(userID, tt.completedTasks, tt.level, catalog, existing, now)

			for _, id := range tt.wantUnlocked {
				if !containsDef(newly, id) {
					t.Errorf("expected %q in newly unlocked, got %v", id, newly)
				}
				row, ok := findRow(updated, id)
				if !ok {
					t.Fatalf("expected an updated row for %q", id)
				}
				if !row.Unlocked {
					t.Errorf("expected row %q unlocked", id)
				}
				if row.UnlockedAt == nil {
					t.Errorf("expected row %q to carry an unlock timestamp", id)
				}
			}
			for _, id := range tt.wantLocked {
				if containsDef(newly, id) {
					t.Errorf("did not expect %q in newly unlocked", id)
				}
				if row, ok := findRow(updated, id); ok && row.Unlocked {
					t.Errorf("expected row %q to stay locked", id)
				}
			}
		})
	}
}

func TestEvaluateSkipsAlreadyUnlocked(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Now().UTC()
	existing := map[string]models.UserAchievement{
		"first-task": {UserID: userID, AchievementID: "first-task", Progress: 1, Unlocked: true},
	}

	updated, newly := Evaluate(userID, 2, 1, DefaultCatalog(), existing, now)

	if containsDef(newly, "first-task") {
		t.Error("already-unlocked achievement must not be reported as newly unlocked")
	}
	if _, ok := findRow(updated, "first-task"); ok {
		t.Error("already-unlocked achievement must be left untouched")
	}
}

// Unlock is one-way: even if the metric regresses below the threshold,
// an unlocked achievement is never recomputed.
func TestEvaluateUnlockIsOneWay(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Now().UTC()
	at := now.Add(-time.Hour)
	existing := map[string]models.UserAchievement{
		"task-master-10": {UserID: userID, AchievementID: "task-master-10", Progress: 10, Unlocked: true, UnlockedAt: &at},
	}

	updated, newly := Evaluate(userID, 3, 1, DefaultCatalog(), existing, now)

	if containsDef(newly, "task-master-10") {
		t.Error("regressed metric must not re-unlock")
	}
	if _, ok := findRow(updated, "task-master-10"); ok {
		t.Error("regressed metric must not write a downgraded row")
	}
}

func TestEvaluateClampsProgress(t *testing.T) {
	t.Parallel()

	updated, _ := Evaluate(uuid.New(), 7, 1, DefaultCatalog(), map[string]models.UserAchievement{}, time.Now().UTC())

	row, ok := findRow(updated, "task-master-10")
	if !ok {
		t.Fatal("expected a task-master-10 row")
	}
	if row.Progress != 7 {
		t.Errorf("expected raw progress 7, got %d", row.Progress)
	}

	updated, _ = Evaluate(uuid.New(), 60, 1, DefaultCatalog(), map[string]models.UserAchievement{}, time.Now().UTC())
	row, ok = findRow(updated, "task-master-100")
	if !ok {
		t.Fatal("expected a task-master-100 row")
	}
	if row.Progress != 60 {
		t.Errorf("expected progress 60, got %d", row.Progress)
	}
	row, _ = findRow(updated, "task-master-10")
	if row.Progress != 10 {
		t.Errorf("expected progress clamped to 10, got %d", row.Progress)
	}
}

func TestEvaluateSkipsUnknownMetric(t *testing.T) {
	t.Parallel()

	defs := []models.AchievementDefinition{
		{ID: "mystery", Name: "Mystery", Metric: models.Metric("unknown"), RequiredProgress: 1},
	}

	updated, newly := Evaluate(uuid.New(), 5, 5, defs, map[string]models.UserAchievement{}, time.Now().UTC())

	if len(updated) != 0 || len(newly) != 0 {
		t.Errorf("unknown metric must be skipped, got updated=%v newly=%v", updated, newly)
	}
}
