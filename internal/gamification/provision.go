package gamification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/taskquest/taskquest/internal/models"
	"go.uber.org/zap"
)

// Provisioner creates the baseline rows a new user needs: a profile at
// score 0 / level 1, a zeroed stats row, and one progress row per
// catalog entry. EnsureProfile is idempotent and safe under concurrent
// calls for the same user; an insert that loses a race is success.
type Provisioner struct {
	profiles     ProfileStore
	stats        StatsStore
	achievements AchievementStore
	log          *zap.Logger
}

// NewProvisioner creates a profile provisioner.
func NewProvisioner(profiles ProfileStore, stats StatsStore, achievements AchievementStore, log *zap.Logger) *Provisioner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provisioner{
		profiles:     profiles,
		stats:        stats,
		achievements: achievements,
		log:          log,
	}
}

// EnsureProfile makes sure the user's profile, stats and achievement
// progress rows exist, creating whichever are missing.
func (p *Provisioner) EnsureProfile(ctx context.Context, userID uuid.UUID, providerID, email, nameHint string) error {
	if userID == uuid.Nil {
		return ErrNotAuthenticated
	}

	_, err := p.profiles.GetProfile(ctx, userID)
	switch {
	case err == nil:
		// Profile exists; still make sure the dependent rows do.
	case errors.Is(err, ErrNotFound):
		now := time.Now().UTC()
		profile := &models.Profile{
			ID:       userID,
			Email:    email,
			Name:     nameHint,
			Role:     models.RoleUser,
			Score:    0,
			Level:    1,
			JoinedAt: now,
		}
		if providerID != "" {
			profile.ProviderID = &providerID
		}
		if err := p.profiles.CreateProfile(ctx, profile); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return err
		}
		p.log.Info("provisioned_profile", zap.String("user_id", userID.String()))
	default:
		return err
	}

	if err := p.ensureStats(ctx, userID); err != nil {
		return err
	}
	return p.ensureAchievementRows(ctx, userID)
}

func (p *Provisioner) ensureStats(ctx context.Context, userID uuid.UUID) error {
	_, err := p.stats.GetStats(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	stats := &models.UserStats{
		UserID:         userID,
		LastActiveDate: time.Now().UTC(),
	}
	if err := p.stats.CreateStats(ctx, stats); err != nil && !errors.Is(err, ErrAlreadyExists) {
		return err
	}
	return nil
}

func (p *Provisioner) ensureAchievementRows(ctx context.Context, userID uuid.UUID) error {
	defs, err := p.achievements.ListDefinitions(ctx)
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		// Catalog not seeded yet; rows are created lazily by the first
		// evaluation instead.
		return nil
	}
	return p.achievements.InitUserAchievements(ctx, userID, defs)
}
