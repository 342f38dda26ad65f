package gamification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskquest/taskquest/internal/models"
)

// In-memory store doubles for service tests. Every method honors the
// same contracts the postgres repositories do, including the sentinel
// errors and the conditional completion update.

type fakeStore struct {
	mu           sync.Mutex
	profiles     map[uuid.UUID]*models.Profile
	tasks        map[uuid.UUID]*models.Task
	stats        map[uuid.UUID]*models.UserStats
	defs         []models.AchievementDefinition
	progress     map[uuid.UUID]map[string]*models.UserAchievement
	failAt       string // step name to fail at: "update_score", "increment_completed", "upsert_achievement", "list_definitions"
	scoreWrites  int
	reconciles   []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[uuid.UUID]*models.Profile),
		tasks:    make(map[uuid.UUID]*models.Task),
		stats:    make(map[uuid.UUID]*models.UserStats),
		defs:     DefaultCatalog(),
		progress: make(map[uuid.UUID]map[string]*models.UserAchievement),
	}
}

type fakeFailure struct{ step string }

func (e *fakeFailure) Error() string { return "store failure at " + e.step }

func (f *fakeStore) GetProfile(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) CreateProfile(_ context.Context, profile *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[profile.ID]; ok {
		return ErrAlreadyExists
	}
	cp := *profile
	f.profiles[profile.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateScore(_ context.Context, userID uuid.UUID, score, level int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt == "update_score" {
		return &fakeFailure{step: "update_score"}
	}
	p, ok := f.profiles[userID]
	if !ok {
		return ErrNotFound
	}
	p.Score = score
	p.Level = level
	f.scoreWrites++
	return nil
}

func (f *fakeStore) GetTask(_ context.Context, userID, taskID uuid.UUID) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) CreateTask(_ context.Context, task *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *task
	cp.CreatedAt = time.Now().UTC()
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteTask(_ context.Context, userID, taskID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok || t.UserID != userID {
		return ErrNotFound
	}
	delete(f.tasks, taskID)
	return nil
}

func (f *fakeStore) MarkTaskCompleted(_ context.Context, userID, taskID uuid.UUID, completedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok || t.UserID != userID {
		return false, ErrNotFound
	}
	if t.Completed {
		return false, nil
	}
	t.Completed = true
	at := completedAt
	t.CompletedAt = &at
	return true, nil
}

func (f *fakeStore) GetStats(_ context.Context, userID uuid.UUID) (*models.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stats[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) CreateStats(_ context.Context, stats *models.UserStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.stats[stats.UserID]; ok {
		return ErrAlreadyExists
	}
	cp := *stats
	f.stats[stats.UserID] = &cp
	return nil
}

func (f *fakeStore) IncrementCompleted(_ context.Context, userID uuid.UUID, activeDate time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt == "increment_completed" {
		return 0, &fakeFailure{step: "increment_completed"}
	}
	s, ok := f.stats[userID]
	if !ok {
		s = &models.UserStats{UserID: userID}
		f.stats[userID] = s
	}
	s.CompletedTasks++
	s.LastActiveDate = activeDate
	return s.CompletedTasks, nil
}

func (f *fakeStore) AdjustTaskTotals(_ context.Context, userID uuid.UUID, totalDelta, completedDelta int, activeDate time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stats[userID]
	if !ok {
		s = &models.UserStats{UserID: userID}
		f.stats[userID] = s
	}
	s.TotalTasks += totalDelta
	s.CompletedTasks += completedDelta
	if s.TotalTasks < 0 {
		s.TotalTasks = 0
	}
	if s.CompletedTasks < 0 {
		s.CompletedTasks = 0
	}
	s.LastActiveDate = activeDate
	return nil
}

func (f *fakeStore) ListDefinitions(_ context.Context) ([]models.AchievementDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt == "list_definitions" {
		return nil, &fakeFailure{step: "list_definitions"}
	}
	return append([]models.AchievementDefinition(nil), f.defs...), nil
}

func (f *fakeStore) ListUserAchievements(_ context.Context, userID uuid.UUID) ([]models.UserAchievement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserAchievement
	for _, row := range f.progress[userID] {
		out = append(out, *row)
	}
	return out, nil
}

func (f *fakeStore) UpsertUserAchievement(_ context.Context, row *models.UserAchievement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt == "upsert_achievement" {
		return &fakeFailure{step: "upsert_achievement"}
	}
	byID, ok := f.progress[row.UserID]
	if !ok {
		byID = make(map[string]*models.UserAchievement)
		f.progress[row.UserID] = byID
	}
	cp := *row
	byID[row.AchievementID] = &cp
	return nil
}

func (f *fakeStore) InitUserAchievements(_ context.Context, userID uuid.UUID, defs []models.AchievementDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	byID, ok := f.progress[userID]
	if !ok {
		byID = make(map[string]*models.UserAchievement)
		f.progress[userID] = byID
	}
	for _, def := range defs {
		if _, exists := byID[def.ID]; exists {
			continue
		}
		byID[def.ID] = &models.UserAchievement{UserID: userID, AchievementID: def.ID}
	}
	return nil
}

func (f *fakeStore) ScheduleReconcile(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconciles = append(f.reconciles, userID)
	return nil
}

// seedUser provisions a profile, stats and tasks for test scenarios.
func (f *fakeStore) seedUser(score, level, completedTasks int) uuid.UUID {
	userID := uuid.New()
	f.profiles[userID] = &models.Profile{ID: userID, Score: score, Level: level, Role: models.RoleUser}
	f.stats[userID] = &models.UserStats{UserID: userID, CompletedTasks: completedTasks, TotalTasks: completedTasks}
	return userID
}

func (f *fakeStore) seedTask(userID uuid.UUID, completed bool) uuid.UUID {
	taskID := uuid.New()
	f.tasks[taskID] = &models.Task{
		ID:        taskID,
		UserID:    userID,
		Title:     "test task",
		Priority:  models.PriorityMedium,
		Points:    TaskCompletionPoints,
		Completed: completed,
	}
	return taskID
}
