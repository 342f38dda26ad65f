package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/taskquest/taskquest/internal/database"
	"github.com/taskquest/taskquest/internal/gamification"
	"github.com/taskquest/taskquest/internal/models"
	"github.com/taskquest/taskquest/internal/queue"
)

// mockTaskRepo is a mock implementation of TaskRepositoryInterface
type mockTaskRepo struct {
	countByUserFunc func(ctx context.Context, userID uuid.UUID) (int, int, error)
}

func (m *mockTaskRepo) CountByUser(ctx context.Context, userID uuid.UUID) (total, completed int, err error) {
	if m.countByUserFunc != nil {
		return m.countByUserFunc(ctx, userID)
	}
	return 0, 0, nil
}

var _ database.TaskRepositoryInterface = (*mockTaskRepo)(nil)

// mockProfileRepo is a mock implementation of ProfileRepositoryInterface
type mockProfileRepo struct {
	mu            sync.Mutex
	profile       *models.Profile
	updatedScore  *int
	updatedLevel  *int
	getFunc       func(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	updateErrFunc func() error
}

func (m *mockProfileRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, userID)
	}
	if m.profile == nil {
		return nil, gamification.ErrNotFound
	}
	return m.profile, nil
}

func (m *mockProfileRepo) UpdateScore(ctx context.Context, userID uuid.UUID, score, level int) error {
	if m.updateErrFunc != nil {
		if err := m.updateErrFunc(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatedScore = &score
	m.updatedLevel = &level
	return nil
}

var _ database.ProfileRepositoryInterface = (*mockProfileRepo)(nil)

// mockStatsRepo is a mock implementation of UserStatsRepositoryInterface
type mockStatsRepo struct {
	mu             sync.Mutex
	setTotal       *int
	setCompleted   *int
	setTotalsError error
}

func (m *mockStatsRepo) SetTotals(ctx context.Context, userID uuid.UUID, total, completed int) error {
	if m.setTotalsError != nil {
		return m.setTotalsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setTotal = &total
	m.setCompleted = &completed
	return nil
}

var _ database.UserStatsRepositoryInterface = (*mockStatsRepo)(nil)

// mockAchievementRepo is a mock implementation of AchievementRepositoryInterface
type mockAchievementRepo struct {
	mu       sync.Mutex
	defs     []models.AchievementDefinition
	rows     []models.UserAchievement
	upserted []models.UserAchievement
}

func (m *mockAchievementRepo) ListDefinitions(ctx context.Context) ([]models.AchievementDefinition, error) {
	if m.defs == nil {
		return gamification.DefaultCatalog(), nil
	}
	return m.defs, nil
}

func (m *mockAchievementRepo) ListUserAchievements(ctx context.Context, userID uuid.UUID) ([]models.UserAchievement, error) {
	return m.rows, nil
}

func (m *mockAchievementRepo) UpsertUserAchievement(ctx context.Context, row *models.UserAchievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, *row)
	return nil
}

var _ database.AchievementRepositoryInterface = (*mockAchievementRepo)(nil)

// mockActivityRepo is a mock implementation of UserActivityRepositoryInterface
type mockActivityRepo struct {
	activity      *models.UserActivity
	eligibleUsers []uuid.UUID
	eligibleErr   error
}

func (m *mockActivityRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserActivity, error) {
	if m.activity == nil {
		return nil, gamification.ErrNotFound
	}
	return m.activity, nil
}

func (m *mockActivityRepo) GetEligibleUsersForReconcile(ctx context.Context) ([]uuid.UUID, error) {
	if m.eligibleErr != nil {
		return nil, m.eligibleErr
	}
	return m.eligibleUsers, nil
}

var _ database.UserActivityRepositoryInterface = (*mockActivityRepo)(nil)

// mockJobQueue is a mock implementation of queue.JobQueue
type mockJobQueue struct {
	mu       sync.Mutex
	enqueued []*queue.Job
	err      error
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

var _ queue.JobQueue = (*mockJobQueue)(nil)

// mockMessage is a mock implementation of queue.MessageInterface
type mockMessage struct {
	job      *queue.Job
	acked    bool
	nacked   bool
	requeued bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeued = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job { return m.job }

var _ queue.MessageInterface = (*mockMessage)(nil)

func newTestReconciler(
	taskRepo *mockTaskRepo,
	profileRepo *mockProfileRepo,
	statsRepo *mockStatsRepo,
	achievementRepo *mockAchievementRepo,
	activityRepo *mockActivityRepo,
) *Reconciler {
	return NewReconciler(taskRepo, profileRepo, statsRepo, achievementRepo, activityRepo, nil)
}

func TestReconciler_RepairsStatsAndScore(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	// 9 completed tasks but the stored score is stale: a crash between
	// the task write and the score write left points behind.
	taskRepo := &mockTaskRepo{
		countByUserFunc: func(ctx context.Context, id uuid.UUID) (int, int, error) {
			return 12, 9, nil
		},
	}
	profileRepo := &mockProfileRepo{
		profile: &models.Profile{ID: userID, Score: 80, Level: 1},
	}
	statsRepo := &mockStatsRepo{}
	achievementRepo := &mockAchievementRepo{
		rows: []models.UserAchievement{
			{UserID: userID, AchievementID: "first-task", Progress: 1, Unlocked: true},
		},
	}

	r := newTestReconciler(taskRepo, profileRepo, statsRepo, achievementRepo, &mockActivityRepo{})
	if err := r.ReconcileUser(context.Background(), userID); err != nil {
		t.Fatalf("ReconcileUser() error = %v", err)
	}

	if statsRepo.setTotal == nil || *statsRepo.setTotal != 12 {
		t.Errorf("total tasks = %v, want 12", statsRepo.setTotal)
	}
	if statsRepo.setCompleted == nil || *statsRepo.setCompleted != 9 {
		t.Errorf("completed tasks = %v, want 9", statsRepo.setCompleted)
	}

	// 9 completions plus the first-task bonus: 9*10 + 20 = 110, level 2.
	if profileRepo.updatedScore == nil {
		t.Fatal("expected score repair, got none")
	}
	if *profileRepo.updatedScore != 110 {
		t.Errorf("repaired score = %d, want 110", *profileRepo.updatedScore)
	}
	if *profileRepo.updatedLevel != 2 {
		t.Errorf("repaired level = %d, want 2", *profileRepo.updatedLevel)
	}
}

func TestReconciler_UnlocksMissedAchievements(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	taskRepo := &mockTaskRepo{
		countByUserFunc: func(ctx context.Context, id uuid.UUID) (int, int, error) {
			return 10, 10, nil
		},
	}
	profileRepo := &mockProfileRepo{
		profile: &models.Profile{ID: userID, Score: 0, Level: 1},
	}
	achievementRepo := &mockAchievementRepo{}

	r := newTestReconciler(taskRepo, profileRepo, &mockStatsRepo{}, achievementRepo, &mockActivityRepo{})
	if err := r.ReconcileUser(context.Background(), userID); err != nil {
		t.Fatalf("ReconcileUser() error = %v", err)
	}

	unlocked := map[string]bool{}
	for _, row := range achievementRepo.upserted {
		if row.Unlocked {
			unlocked[row.AchievementID] = true
		}
	}
	for _, id := range []string{"first-task", "task-master-10"} {
		if !unlocked[id] {
			t.Errorf("expected %s to be unlocked", id)
		}
	}

	// 10 completions = 100 points, plus two unlock bonuses = 140.
	if profileRepo.updatedScore == nil || *profileRepo.updatedScore != 140 {
		t.Errorf("repaired score = %v, want 140", profileRepo.updatedScore)
	}
	if *profileRepo.updatedLevel != gamification.LevelForScore(140) {
		t.Errorf("repaired level = %d, want %d", *profileRepo.updatedLevel, gamification.LevelForScore(140))
	}
}

func TestReconciler_ScoreNeverRegresses(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	// The user deleted completed tasks; the derived score is lower than
	// what they already earned. The stored score must stand.
	taskRepo := &mockTaskRepo{
		countByUserFunc: func(ctx context.Context, id uuid.UUID) (int, int, error) {
			return 2, 2, nil
		},
	}
	profileRepo := &mockProfileRepo{
		profile: &models.Profile{ID: userID, Score: 150, Level: 2},
	}

	r := newTestReconciler(taskRepo, profileRepo, &mockStatsRepo{}, &mockAchievementRepo{}, &mockActivityRepo{})
	if err := r.ReconcileUser(context.Background(), userID); err != nil {
		t.Fatalf("ReconcileUser() error = %v", err)
	}

	if profileRepo.updatedScore != nil && *profileRepo.updatedScore < 150 {
		t.Errorf("score regressed to %d", *profileRepo.updatedScore)
	}
}

func TestReconciler_Idempotent(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	taskRepo := &mockTaskRepo{
		countByUserFunc: func(ctx context.Context, id uuid.UUID) (int, int, error) {
			return 5, 5, nil
		},
	}
	profileRepo := &mockProfileRepo{
		profile: &models.Profile{ID: userID, Score: 0, Level: 1},
	}
	achievementRepo := &mockAchievementRepo{}

	r := newTestReconciler(taskRepo, profileRepo, &mockStatsRepo{}, achievementRepo, &mockActivityRepo{})
	if err := r.ReconcileUser(context.Background(), userID); err != nil {
		t.Fatalf("first ReconcileUser() error = %v", err)
	}

	firstScore := *profileRepo.updatedScore

	// Second pass sees the repaired state and must not change anything.
	profileRepo.profile = &models.Profile{ID: userID, Score: firstScore, Level: *profileRepo.updatedLevel}
	achievementRepo.rows = achievementRepo.upserted
	profileRepo.updatedScore = nil
	profileRepo.updatedLevel = nil

	if err := r.ReconcileUser(context.Background(), userID); err != nil {
		t.Fatalf("second ReconcileUser() error = %v", err)
	}
	if profileRepo.updatedScore != nil {
		t.Errorf("second pass rewrote score to %d", *profileRepo.updatedScore)
	}
}

func TestReconciler_SkipsPausedUsers(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	taskRepo := &mockTaskRepo{
		countByUserFunc: func(ctx context.Context, id uuid.UUID) (int, int, error) {
			t.Error("paused user should not be reconciled")
			return 0, 0, nil
		},
	}
	activityRepo := &mockActivityRepo{
		activity: &models.UserActivity{UserID: userID, ReconcilePaused: true},
	}

	r := newTestReconciler(taskRepo, &mockProfileRepo{}, &mockStatsRepo{}, &mockAchievementRepo{}, activityRepo)
	job := queue.NewJob(queue.JobTypeReconcileUser, userID)
	if err := r.ProcessReconcileUserJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessReconcileUserJob() error = %v", err)
	}
}

func TestReconciler_ProcessJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	tests := []struct {
		name        string
		job         *queue.Job
		profileRepo *mockProfileRepo
		expectError bool
		wantAck     bool
		wantNack    bool
		wantRequeue bool
	}{
		{
			name:        "reconcile job succeeds",
			job:         queue.NewJob(queue.JobTypeReconcileUser, userID),
			profileRepo: &mockProfileRepo{profile: &models.Profile{ID: userID, Score: 0, Level: 1}},
			wantAck:     true,
		},
		{
			name: "job not ready yet",
			job: func() *queue.Job {
				j := queue.NewJob(queue.JobTypeReconcileUser, userID)
				notBefore := time.Now().Add(time.Hour)
				j.NotBefore = &notBefore
				return j
			}(),
			profileRepo: &mockProfileRepo{},
			wantAck:     true,
		},
		{
			name:        "failure requeues for retry",
			job:         queue.NewJob(queue.JobTypeReconcileUser, userID),
			profileRepo: &mockProfileRepo{getFunc: func(ctx context.Context, id uuid.UUID) (*models.Profile, error) { return nil, errors.New("db down") }},
			expectError: true,
			wantNack:    true,
			wantRequeue: true,
		},
		{
			name: "exhausted retries go to DLQ",
			job: func() *queue.Job {
				j := queue.NewJob(queue.JobTypeReconcileUser, userID)
				j.RetryCount = j.MaxRetries
				return j
			}(),
			profileRepo: &mockProfileRepo{getFunc: func(ctx context.Context, id uuid.UUID) (*models.Profile, error) { return nil, errors.New("db down") }},
			expectError: true,
			wantNack:    true,
			wantRequeue: false,
		},
		{
			name:        "unknown job type",
			job:         &queue.Job{ID: uuid.New(), Type: queue.JobType("unknown"), UserID: userID},
			profileRepo: &mockProfileRepo{},
			expectError: true,
			wantNack:    true,
			wantRequeue: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			taskRepo := &mockTaskRepo{
				countByUserFunc: func(ctx context.Context, id uuid.UUID) (int, int, error) {
					return 1, 0, nil
				},
			}
			r := newTestReconciler(taskRepo, tt.profileRepo, &mockStatsRepo{}, &mockAchievementRepo{}, &mockActivityRepo{})

			msg := &mockMessage{job: tt.job}
			err := r.ProcessJob(context.Background(), msg)

			if tt.expectError && err == nil {
				t.Error("expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if msg.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", msg.acked, tt.wantAck)
			}
			if msg.nacked != tt.wantNack {
				t.Errorf("nacked = %v, want %v", msg.nacked, tt.wantNack)
			}
			if tt.wantNack && msg.requeued != tt.wantRequeue {
				t.Errorf("requeued = %v, want %v", msg.requeued, tt.wantRequeue)
			}
		})
	}
}

func TestScheduler_ScheduleReconcile(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	jobQueue := &mockJobQueue{}

	s := NewScheduler(jobQueue, nil)
	if err := s.ScheduleReconcile(context.Background(), userID); err != nil {
		t.Fatalf("ScheduleReconcile() error = %v", err)
	}

	if len(jobQueue.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jobQueue.enqueued))
	}
	job := jobQueue.enqueued[0]
	if job.Type != queue.JobTypeReconcileUser {
		t.Errorf("job type = %s, want %s", job.Type, queue.JobTypeReconcileUser)
	}
	if job.UserID != userID {
		t.Errorf("job user = %s, want %s", job.UserID, userID)
	}
	if job.NotBefore == nil || !job.NotBefore.After(time.Now()) {
		t.Error("expected a debounced NotBefore in the future")
	}
	if job.NotAfter == nil {
		t.Error("expected NotAfter for garbage collection")
	}
}

func TestScheduler_EnqueueError(t *testing.T) {
	t.Parallel()

	s := NewScheduler(&mockJobQueue{err: errors.New("broker down")}, nil)
	if err := s.ScheduleReconcile(context.Background(), uuid.New()); err == nil {
		t.Error("expected error but got nil")
	}
}

func TestSweeper_ScheduleSweep(t *testing.T) {
	t.Parallel()

	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	jobQueue := &mockJobQueue{}
	activityRepo := &mockActivityRepo{eligibleUsers: users}

	s := NewSweeper(jobQueue, activityRepo, nil)
	if err := s.ScheduleSweep(context.Background()); err != nil {
		t.Fatalf("ScheduleSweep() error = %v", err)
	}

	if len(jobQueue.enqueued) != len(users) {
		t.Fatalf("enqueued %d jobs, want %d", len(jobQueue.enqueued), len(users))
	}
	for _, job := range jobQueue.enqueued {
		if job.Type != queue.JobTypeReconcileUser {
			t.Errorf("job type = %s, want %s", job.Type, queue.JobTypeReconcileUser)
		}
		if job.NotBefore == nil || job.NotAfter == nil {
			t.Error("sweep jobs must carry NotBefore and NotAfter")
		}
	}
}

func TestSweeper_EligibleUsersError(t *testing.T) {
	t.Parallel()

	s := NewSweeper(&mockJobQueue{}, &mockActivityRepo{eligibleErr: errors.New("db down")}, nil)
	if err := s.ScheduleSweep(context.Background()); err == nil {
		t.Error("expected error but got nil")
	}
}
