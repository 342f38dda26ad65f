package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/taskquest/taskquest/internal/database"
	"github.com/taskquest/taskquest/internal/gamification"
	logpkg "github.com/taskquest/taskquest/internal/logger"
	"github.com/taskquest/taskquest/internal/models"
	"github.com/taskquest/taskquest/internal/queue"
	"go.uber.org/zap"
)

// Reconciler repairs one user's derived state from the tasks table.
// Reward writes are not transactional, so a crash can leave a task
// completed with stale counters, score or achievements; replaying the
// reconcile job converges them. The whole pass is idempotent and scores
// never regress.
type Reconciler struct {
	taskRepo        database.TaskRepositoryInterface
	profileRepo     database.ProfileRepositoryInterface
	statsRepo       database.UserStatsRepositoryInterface
	achievementRepo database.AchievementRepositoryInterface
	activityRepo    database.UserActivityRepositoryInterface
	logger          *zap.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(
	taskRepo database.TaskRepositoryInterface,
	profileRepo database.ProfileRepositoryInterface,
	statsRepo database.UserStatsRepositoryInterface,
	achievementRepo database.AchievementRepositoryInterface,
	activityRepo database.UserActivityRepositoryInterface,
	logger *zap.Logger,
) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		taskRepo:        taskRepo,
		profileRepo:     profileRepo,
		statsRepo:       statsRepo,
		achievementRepo: achievementRepo,
		activityRepo:    activityRepo,
		logger:          logger,
	}
}

// ReconcileUser recomputes one user's counters, score, level and
// achievement progress with the tasks table as the source of truth
func (r *Reconciler) ReconcileUser(ctx context.Context, userID uuid.UUID) error {
	total, completed, err := r.taskRepo.CountByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count tasks: %w", err)
	}

	if err := r.statsRepo.SetTotals(ctx, userID, total, completed); err != nil {
		return fmt.Errorf("failed to repair stats: %w", err)
	}

	profile, err := r.profileRepo.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}

	defs, err := r.achievementRepo.ListDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list achievements: %w", err)
	}
	rows, err := r.achievementRepo.ListUserAchievements(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list user achievements: %w", err)
	}
	existing := make(map[string]models.UserAchievement, len(rows))
	unlockedCount := 0
	for _, row := range rows {
		existing[row.AchievementID] = row
		if row.Unlocked {
			unlockedCount++
		}
	}

	// Derive the expected score from the source data, then settle the
	// score/unlock dependency: unlock bonuses raise the score, a higher
	// score can raise the level, and a higher level can unlock more.
	// Bounded by the catalog size.
	score := completed * gamification.TaskCompletionPoints
	score += unlockedCount * gamification.AchievementUnlockPoints
	now := time.Now().UTC()
	for range defs {
		level := gamification.LevelForScore(maxInt(score, profile.Score))
		updated, newlyUnlocked := gamification.Evaluate(userID, completed, level, defs, existing, now)
		if len(updated) == 0 {
			break
		}
		for _, row := range updated {
			row := row
			if err := r.achievementRepo.UpsertUserAchievement(ctx, &row); err != nil {
				return fmt.Errorf("failed to repair achievement row: %w", err)
			}
			existing[row.AchievementID] = row
		}
		if len(newlyUnlocked) == 0 {
			break
		}
		score += len(newlyUnlocked) * gamification.AchievementUnlockPoints
	}

	// Scores never regress: deletions and rebalanced achievements keep
	// whatever the user already earned.
	newScore := maxInt(score, profile.Score)
	newLevel := gamification.LevelForScore(newScore)
	if newScore != profile.Score || newLevel != profile.Level {
		if err := r.profileRepo.UpdateScore(ctx, userID, newScore, newLevel); err != nil {
			return fmt.Errorf("failed to repair score: %w", err)
		}
		r.logger.Info("reconciled_user_score",
			zap.String("user_id", userID.String()),
			zap.Int("old_score", profile.Score),
			zap.Int("new_score", newScore),
			zap.Int("old_level", profile.Level),
			zap.Int("new_level", newLevel),
		)
	}

	return nil
}

// ProcessReconcileUserJob processes a reconcile job, skipping users
// whose reconciliation is paused for inactivity
func (r *Reconciler) ProcessReconcileUserJob(ctx context.Context, job *queue.Job) error {
	if r.activityRepo != nil {
		activity, err := r.activityRepo.GetByUserID(ctx, job.UserID)
		if err == nil && activity != nil && activity.ReconcilePaused {
			log.Printf("Skipping reconciliation for user %s (paused)", job.UserID)
			return nil
		}
	}

	return r.ReconcileUser(ctx, job.UserID)
}

// ProcessJob processes a job based on its type
func (r *Reconciler) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	// Check if job should be processed now (respect NotBefore)
	if !job.ShouldProcess() {
		log.Printf("Job %s not ready yet (NotBefore: %v), skipping", job.ID, job.NotBefore)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job for later processing: %v", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeReconcileUser:
		if err := r.ProcessReconcileUserJob(ctx, job); err != nil {
			return r.handleJobError(msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack reconcile job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError retries failed jobs until MaxRetries, then dead-letters
func (r *Reconciler) handleJobError(msg queue.MessageInterface, job *queue.Job, err error) error {
	if job.CanRetry() {
		job.IncrementRetry()
		r.logger.Warn("reconcile_job_retry",
			zap.String("job_id", job.ID.String()),
			zap.String("user_id", logpkg.SanitizeUserID(job.UserID.String())),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	r.logger.Error("reconcile_job_dead_lettered",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", logpkg.SanitizeUserID(job.UserID.String())),
		zap.Int("max_retries", job.MaxRetries),
		zap.String("error", logpkg.SanitizeError(err)),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
