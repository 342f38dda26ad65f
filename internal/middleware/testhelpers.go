package middleware

import (
	"context"

	"github.com/taskquest/taskquest/internal/models"
	"github.com/taskquest/taskquest/internal/request"
)

// SetProfileInContext attaches a profile the way the auth middleware
// does. Exported so handler tests can simulate an authenticated request.
func SetProfileInContext(ctx context.Context, profile *models.Profile) context.Context {
	return request.WithProfile(ctx, profile)
}
