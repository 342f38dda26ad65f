package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskquest/taskquest/internal/database"
	"github.com/taskquest/taskquest/internal/gamification"
	logpkg "github.com/taskquest/taskquest/internal/logger"
	"github.com/taskquest/taskquest/internal/models"
	"github.com/taskquest/taskquest/internal/request"
	"github.com/taskquest/taskquest/internal/services/oidc"
)

// ProfileFromContext extracts the authenticated profile from the
// request context
func ProfileFromContext(r *http.Request) *models.Profile {
	return request.ProfileFromContext(r)
}

// Auth creates authentication middleware that validates JWT tokens and
// provisions the gamification rows for first-time users
func Auth(db *database.DB, oidcProvider *oidc.Provider, jwksManager *oidc.JWKSManager, providerName string, provisioner *gamification.Provisioner, logger *zap.Logger) func(http.Handler) http.Handler {
	profileRepo := database.NewProfileRepository(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, logger, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, logger, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			tokenString := parts[1]

			ctx := r.Context()
			oidcConfig, err := oidcProvider.GetConfig(ctx, providerName)
			if err != nil {
				respondError(w, logger, http.StatusInternalServerError, "Failed to get OIDC configuration")
				return
			}

			if oidcConfig.JWKSUrl == nil {
				respondError(w, logger, http.StatusInternalServerError, "JWKS URL not configured")
				return
			}

			verifier := oidc.NewVerifier(jwksManager, oidcConfig.Issuer)
			claims, err := verifier.Verify(ctx, tokenString, *oidcConfig.JWKSUrl)
			if err != nil {
				logger.Warn("token_verification_failed",
					zap.String("error", logpkg.SanitizeError(err)),
					zap.String("issuer", oidcConfig.Issuer),
				)
				respondError(w, logger, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			profile, err := resolveProfile(ctx, profileRepo, provisioner, claims)
			if err != nil {
				logger.Error("profile_resolution_failed",
					zap.String("subject", logpkg.SanitizeUserID(claims.Sub)),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				respondError(w, logger, http.StatusInternalServerError, "Failed to resolve user profile")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithProfile(ctx, profile)))
		})
	}
}

// resolveProfile looks up the profile for the token subject, creating
// it on first sight. Two requests racing to create the same subject
// both succeed: the loser re-reads the winner's row.
func resolveProfile(ctx context.Context, profileRepo *database.ProfileRepository, provisioner *gamification.Provisioner, claims *models.JWTClaims) (*models.Profile, error) {
	profile, err := profileRepo.GetByProviderID(ctx, claims.Sub)
	if err == nil {
		// Make sure the dependent gamification rows exist too.
		if err := provisioner.EnsureProfile(ctx, profile.ID, claims.Sub, claims.Email, claims.Name); err != nil {
			return nil, err
		}
		return profile, nil
	}
	if !errors.Is(err, gamification.ErrNotFound) {
		return nil, err
	}

	provisionErr := provisioner.EnsureProfile(ctx, uuid.New(), claims.Sub, claims.Email, claims.Name)

	profile, err = profileRepo.GetByProviderID(ctx, claims.Sub)
	if err != nil {
		if provisionErr != nil {
			return nil, provisionErr
		}
		return nil, err
	}
	return profile, nil
}

func respondError(w http.ResponseWriter, logger *zap.Logger, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed_to_encode_error_response", zap.Error(err))
	}
}
