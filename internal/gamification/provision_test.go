package gamification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestEnsureProfileCreatesEverything(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	prov := NewProvisioner(store, store, store, nil)
	userID := uuid.New()

	if err := prov.EnsureProfile(context.Background(), userID, "oidc|abc", "ada@example.com", "Ada"); err != nil {
		t.Fatalf("EnsureProfile returned error: %v", err)
	}

	profile, err := store.GetProfile(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetProfile returned error: %v", err)
	}
	if profile.Score != 0 || profile.Level != 1 {
		t.Errorf("expected fresh profile at score 0 / level 1, got %d / %d", profile.Score, profile.Level)
	}
	if profile.Email != "ada@example.com" {
		t.Errorf("expected email carried onto profile, got %q", profile.Email)
	}

	stats, err := store.GetStats(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetStats returned error: %v", err)
	}
	if stats.CompletedTasks != 0 || stats.TotalTasks != 0 {
		t.Errorf("expected zeroed stats, got completed=%d total=%d", stats.CompletedTasks, stats.TotalTasks)
	}

	rows, err := store.ListUserAchievements(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListUserAchievements returned error: %v", err)
	}
	if len(rows) != len(DefaultCatalog()) {
		t.Errorf("expected %d progress rows, got %d", len(DefaultCatalog()), len(rows))
	}
	for _, row := range rows {
		if row.Unlocked || row.Progress != 0 {
			t.Errorf("row %s: expected locked zero-progress row, got unlocked=%v progress=%d", row.AchievementID, row.Unlocked, row.Progress)
		}
	}
}

func TestEnsureProfileIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	prov := NewProvisioner(store, store, store, nil)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		if err := prov.EnsureProfile(context.Background(), userID, "oidc|abc", "ada@example.com", "Ada"); err != nil {
			t.Fatalf("EnsureProfile call %d returned error: %v", i+1, err)
		}
	}

	if len(store.profiles) != 1 {
		t.Errorf("expected exactly one profile, got %d", len(store.profiles))
	}
	if len(store.stats) != 1 {
		t.Errorf("expected exactly one stats row, got %d", len(store.stats))
	}
	rows, err := store.ListUserAchievements(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListUserAchievements returned error: %v", err)
	}
	if len(rows) != len(DefaultCatalog()) {
		t.Errorf("expected %d progress rows after repeat calls, got %d", len(DefaultCatalog()), len(rows))
	}
}

func TestEnsureProfilePreservesProgress(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	prov := NewProvisioner(store, store, store, nil)
	userID := uuid.New()

	if err := prov.EnsureProfile(context.Background(), userID, "oidc|abc", "ada@example.com", "Ada"); err != nil {
		t.Fatalf("EnsureProfile returned error: %v", err)
	}
	markUnlocked(store, userID, "first-task", 1)

	if err := prov.EnsureProfile(context.Background(), userID, "oidc|abc", "ada@example.com", "Ada"); err != nil {
		t.Fatalf("second EnsureProfile returned error: %v", err)
	}

	rows, err := store.ListUserAchievements(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListUserAchievements returned error: %v", err)
	}
	row, ok := findRow(rows, "first-task")
	if !ok {
		t.Fatal("first-task row missing")
	}
	if !row.Unlocked || row.Progress != 1 {
		t.Errorf("re-provisioning reset progress: unlocked=%v progress=%d", row.Unlocked, row.Progress)
	}
}

func TestEnsureProfileRequiresAuth(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	prov := NewProvisioner(store, store, store, nil)

	err := prov.EnsureProfile(context.Background(), uuid.Nil, "", "", "")
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}
