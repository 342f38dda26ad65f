package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskquest/taskquest/internal/database"
	"github.com/taskquest/taskquest/internal/gamification"
	"github.com/taskquest/taskquest/internal/queue"
	"go.uber.org/zap"
)

var _ gamification.ReconcileScheduler = (*Scheduler)(nil)

// reconcileDebounce delays on-demand reconcile jobs so a burst of
// completions for the same user collapses into little queue churn.
const reconcileDebounce = 30 * time.Second

// Scheduler enqueues reconcile jobs for single users on demand, used by
// the reward path after a partial write.
type Scheduler struct {
	jobQueue queue.JobQueue
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(jobQueue queue.JobQueue, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{jobQueue: jobQueue, logger: logger}
}

// ScheduleReconcile enqueues a reconcile job for the user
func (s *Scheduler) ScheduleReconcile(ctx context.Context, userID uuid.UUID) error {
	job := queue.NewJob(queue.JobTypeReconcileUser, userID)

	notBefore := time.Now().Add(reconcileDebounce)
	job.NotBefore = &notBefore

	// Set NotAfter for garbage collection; a day-old repair request is
	// superseded by the nightly sweep anyway
	notAfter := notBefore.Add(24 * time.Hour)
	job.NotAfter = &notAfter

	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue reconcile job: %w", err)
	}

	s.logger.Info("scheduled_reconcile_job",
		zap.String("user_id", userID.String()),
		zap.Time("not_before", notBefore),
	)

	return nil
}

// Sweeper schedules periodic reconcile jobs for all eligible users, a
// safety net for repair requests that never made it onto the queue
type Sweeper struct {
	jobQueue     queue.JobQueue
	activityRepo database.UserActivityRepositoryInterface
	logger       *zap.Logger
}

// NewSweeper creates a new sweeper
func NewSweeper(jobQueue queue.JobQueue, activityRepo database.UserActivityRepositoryInterface, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		jobQueue:     jobQueue,
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// ScheduleSweep creates reconcile jobs for eligible users at the next
// nightly slot (03:00 local, when the API is quietest)
func (s *Sweeper) ScheduleSweep(ctx context.Context) error {
	now := time.Now()
	nextRun := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
	if now.After(nextRun) {
		nextRun = nextRun.Add(24 * time.Hour)
	}

	eligibleUsers, err := s.activityRepo.GetEligibleUsersForReconcile(ctx)
	if err != nil {
		return fmt.Errorf("failed to get eligible users: %w", err)
	}

	for _, userID := range eligibleUsers {
		if err := s.createSweepJob(ctx, userID, nextRun); err != nil {
			s.logger.Warn("failed_to_schedule_sweep_job",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			// Continue with other users
		}
	}

	s.logger.Info("scheduled_sweep_jobs",
		zap.Int("user_count", len(eligibleUsers)),
		zap.Time("next_run", nextRun),
	)

	return nil
}

func (s *Sweeper) createSweepJob(ctx context.Context, userID uuid.UUID, notBefore time.Time) error {
	job := queue.NewJob(queue.JobTypeReconcileUser, userID)
	job.NotBefore = &notBefore

	notAfter := notBefore.Add(24 * time.Hour)
	job.NotAfter = &notAfter

	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue sweep job: %w", err)
	}

	return nil
}
