package gamification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskquest/taskquest/internal/models"
	"go.uber.org/zap"
)

// CompletionResult is the aggregate outcome of a task completion,
// including any achievement bonuses applied on top of the base award.
type CompletionResult struct {
	PointsEarned         int                            `json:"points_earned"`
	NewScore             int                            `json:"new_score"`
	NewLevel             int                            `json:"new_level"`
	LeveledUp            bool                           `json:"leveled_up"`
	UnlockedAchievements []models.AchievementDefinition `json:"unlocked_achievements"`
	AlreadyCompleted     bool                           `json:"already_completed"`
}

// RewardService orchestrates the reward transaction: task completion,
// score/level update, stats increment, achievement evaluation and
// unlock bonuses. The writes are not covered by a single database
// transaction; they are ordered task-first so that any later failure
// leaves a state the reconcile worker can repair from the tasks table.
type RewardService struct {
	tasks        TaskStore
	profiles     ProfileStore
	stats        StatsStore
	achievements AchievementStore
	sched        ReconcileScheduler
	log          *zap.Logger
	locks        *userLocks
}

// NewRewardService creates a reward service. sched may be nil, in which
// case no reconciliation is requested after partial failures.
func NewRewardService(
	tasks TaskStore,
	profiles ProfileStore,
	stats StatsStore,
	achievements AchievementStore,
	sched ReconcileScheduler,
	log *zap.Logger,
) *RewardService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RewardService{
		tasks:        tasks,
		profiles:     profiles,
		stats:        stats,
		achievements: achievements,
		sched:        sched,
		log:          log,
		locks:        newUserLocks(),
	}
}

// CompleteTask runs the reward transaction for one task. Completing an
// already-completed task is a scoring no-op: the result carries zero
// points and AlreadyCompleted=true, and nothing is written.
func (s *RewardService) CompleteTask(ctx context.Context, userID, taskID uuid.UUID) (*CompletionResult, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	task, err := s.tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if task.Completed {
		return &CompletionResult{
			NewScore:             profile.Score,
			NewLevel:             profile.Level,
			UnlockedAchievements: []models.AchievementDefinition{},
			AlreadyCompleted:     true,
		}, nil
	}

	now := time.Now().UTC()

	// Task first. Everything after this point is recoverable by the
	// reconcile worker, and the completed flag guarantees no second
	// award for this task.
	first, err := s.tasks.MarkTaskCompleted(ctx, userID, taskID, now)
	if err != nil {
		return nil, err
	}
	if !first {
		return &CompletionResult{
			NewScore:             profile.Score,
			NewLevel:             profile.Level,
			UnlockedAchievements: []models.AchievementDefinition{},
			AlreadyCompleted:     true,
		}, nil
	}

	newScore := profile.Score + TaskCompletionPoints
	newLevel := LevelForScore(newScore)

	if err := s.profiles.UpdateScore(ctx, userID, newScore, newLevel); err != nil {
		return nil, s.partialFailure(ctx, userID, "profile", err)
	}

	completedTasks, err := s.stats.IncrementCompleted(ctx, userID, now)
	if err != nil {
		return nil, s.partialFailure(ctx, userID, "stats", err)
	}

	unlocked, finalScore, finalLevel, err := s.applyAchievements(ctx, userID, completedTasks, newScore, newLevel, now)
	if err != nil {
		return nil, s.partialFailure(ctx, userID, "achievements", err)
	}

	s.scheduleReconcile(ctx, userID)

	return &CompletionResult{
		PointsEarned:         finalScore - profile.Score,
		NewScore:             finalScore,
		NewLevel:             finalLevel,
		LeveledUp:            finalLevel > profile.Level,
		UnlockedAchievements: unlocked,
	}, nil
}

// applyAchievements evaluates the catalog against the fresh counters
// and persists progress rows in catalog order, stopping at the first
// store failure. Each fresh unlock adds the bonus to the score and the
// level is recomputed from the new absolute score.
func (s *RewardService) applyAchievements(
	ctx context.Context,
	userID uuid.UUID,
	completedTasks, score, level int,
	now time.Time,
) (unlocked []models.AchievementDefinition, newScore, newLevel int, err error) {
	defs, err := s.achievements.ListDefinitions(ctx)
	if err != nil {
		return nil, 0, 0, err
	}
	existing, err := s.existingProgress(ctx, userID)
	if err != nil {
		return nil, 0, 0, err
	}

	updated, newlyUnlocked := Evaluate(userID, completedTasks, level, defs, existing, now)

	unlocked = []models.AchievementDefinition{}
	for _, row := range updated {
		row := row
		if err := s.achievements.UpsertUserAchievement(ctx, &row); err != nil {
			return nil, 0, 0, err
		}
		if !row.Unlocked {
			continue
		}
		score += AchievementUnlockPoints
		level = LevelForScore(score)
		if err := s.profiles.UpdateScore(ctx, userID, score, level); err != nil {
			return nil, 0, 0, err
		}
	}
	unlocked = append(unlocked, newlyUnlocked...)

	return unlocked, score, level, nil
}

func (s *RewardService) existingProgress(ctx context.Context, userID uuid.UUID) (map[string]models.UserAchievement, error) {
	rows, err := s.achievements.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]models.UserAchievement, len(rows))
	for _, row := range rows {
		existing[row.AchievementID] = row
	}
	return existing, nil
}

// CreateTaskInput carries the user-supplied fields for a new task.
type CreateTaskInput struct {
	Title       string
	Description *string
	Priority    string
	DueDate     *time.Time
	Tags        []string
}

// CreateTask creates a task with a fixed point value and bumps the
// user's total-task counter. A stats failure does not fail the create;
// it is logged and handed to the reconcile worker.
func (s *RewardService) CreateTask(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (*models.Task, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	if input.Title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}

	task := &models.Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
		Priority:    models.ParsePriority(input.Priority),
		DueDate:     input.DueDate,
		Tags:        input.Tags,
		Points:      TaskCompletionPoints,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	if err := s.stats.AdjustTaskTotals(ctx, userID, 1, 0, time.Now().UTC()); err != nil {
		s.log.Warn("stats_update_failed_after_task_create",
			zap.String("user_id", userID.String()),
			zap.String("task_id", task.ID.String()),
			zap.Error(err),
		)
		s.scheduleReconcile(ctx, userID)
	}

	return task, nil
}

// DeleteTask removes a task and decrements the counters it contributed
// to. Deleting a completed task also decrements completed_tasks.
func (s *RewardService) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrNotAuthenticated
	}

	task, err := s.tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.DeleteTask(ctx, userID, taskID); err != nil {
		return err
	}

	completedDelta := 0
	if task.Completed {
		completedDelta = -1
	}
	if err := s.stats.AdjustTaskTotals(ctx, userID, -1, completedDelta, time.Now().UTC()); err != nil {
		s.log.Warn("stats_update_failed_after_task_delete",
			zap.String("user_id", userID.String()),
			zap.String("task_id", taskID.String()),
			zap.Error(err),
		)
		s.scheduleReconcile(ctx, userID)
	}
	return nil
}

// partialFailure wraps a mid-sequence store error, requests async
// reconciliation and logs the inconsistent-but-recoverable state.
func (s *RewardService) partialFailure(ctx context.Context, userID uuid.UUID, step string, err error) error {
	s.log.Error("reward_transaction_partial_failure",
		zap.String("user_id", userID.String()),
		zap.String("step", step),
		zap.Error(err),
	)
	s.scheduleReconcile(ctx, userID)
	return &PartialWriteError{Step: step, Err: err}
}

func (s *RewardService) scheduleReconcile(ctx context.Context, userID uuid.UUID) {
	if s.sched == nil {
		return
	}
	if err := s.sched.ScheduleReconcile(ctx, userID); err != nil {
		s.log.Warn("failed_to_schedule_reconcile",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}
