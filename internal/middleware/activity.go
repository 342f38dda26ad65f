package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/taskquest/taskquest/internal/database"
)

// ActivityTracking records the last API interaction for authenticated
// users. The reconcile sweep skips users who have gone quiet, and any
// request from them lifts the pause again.
func ActivityTracking(activityRepo *database.UserActivityRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile := ProfileFromContext(r)
			if profile != nil {
				ctx := r.Context()

				if err := activityRepo.UpdateLastInteraction(ctx, profile.ID); err != nil {
					log.Printf("Failed to update user activity: %v", err)
					// Don't fail the request if activity tracking fails
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ActivityTracker periodically pauses reconciliation for users with no
// recent API activity.
type ActivityTracker struct {
	activityRepo  *database.UserActivityRepository
	checkInterval time.Duration
}

// NewActivityTracker creates a new activity tracker
func NewActivityTracker(activityRepo *database.UserActivityRepository) *ActivityTracker {
	return &ActivityTracker{
		activityRepo:  activityRepo,
		checkInterval: 1 * time.Hour,
	}
}

// Start starts the background goroutine for checking inactive users
func (at *ActivityTracker) Start(ctx context.Context) {
	ticker := time.NewTicker(at.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			usersToPause, err := at.activityRepo.GetUsersNeedingReconcilePause(ctx)
			if err != nil {
				log.Printf("Failed to check users needing pause: %v", err)
				continue
			}

			for _, userID := range usersToPause {
				if err := at.activityRepo.SetReconcilePaused(ctx, userID, true); err != nil {
					log.Printf("Failed to pause reconciliation for user %s: %v", userID, err)
				}
			}
		}
	}
}
