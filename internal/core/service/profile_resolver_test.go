package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

func TestProfileResolver_ExistingProfile(t *testing.T) {
	repo := newMemRepo()
	repo.put(domain.Profile{ID: "u-fan", FullName: "Fan", Role: domain.RoleFan})
	r := NewProfileResolver(repo, zerolog.Nop())

	p, err := r.Resolve(context.Background(), *fanSession())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Role != domain.RoleFan || repo.createCalls != 0 {
		t.Fatalf("expected stored profile without insert, got %+v (creates %d)", p, repo.createCalls)
	}
}

func TestProfileResolver_CreatesDefault(t *testing.T) {
	repo := newMemRepo()
	r := NewProfileResolver(repo, zerolog.Nop())

	p, err := r.Resolve(context.Background(), domain.Session{
		UserID:   "u1",
		Email:    "x@example.com",
		Metadata: domain.SessionMetadata{AvatarURL: "https://img/x.png"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FullName != "x" || p.AvatarURL != "https://img/x.png" || p.Role != domain.RoleUnset {
		t.Fatalf("unexpected default profile: %+v", p)
	}
	if p.FollowedClubIDs == nil || len(p.FollowedClubIDs) != 0 {
		t.Fatalf("expected empty followed clubs, got %v", p.FollowedClubIDs)
	}
}

func TestProfileResolver_CreateFailureIsStoreError(t *testing.T) {
	repo := newMemRepo()
	repo.onCreate = func(*domain.Profile) (bool, error) { return false, errors.New("permission denied") }
	r := NewProfileResolver(repo, zerolog.Nop())

	_, err := r.Resolve(context.Background(), *newUserSession())
	if !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}

func TestProfileResolver_AssignRole(t *testing.T) {
	repo := newMemRepo()
	repo.put(domain.Profile{ID: "u1"})
	r := NewProfileResolver(repo, zerolog.Nop())

	p, err := r.AssignRole(context.Background(), "u1", domain.RoleCreator)
	if err != nil || p.Role != domain.RoleCreator {
		t.Fatalf("expected creator, got %+v, %v", p, err)
	}

	if _, err := r.AssignRole(context.Background(), "u1", domain.RoleFan); !errors.Is(err, domain.ErrRoleAlreadySet) {
		t.Fatalf("expected ErrRoleAlreadySet, got %v", err)
	}
	if _, err := r.AssignRole(context.Background(), "missing", domain.RoleFan); !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected ErrStore for missing row, got %v", err)
	}
}

func TestProfileResolver_LostInsertRaceRefetches(t *testing.T) {
	repo := newMemRepo()
	repo.onCreate = func(p *domain.Profile) (bool, error) {
		// Another instance inserted first, with its own name.
		winner := *p
		winner.FullName = "Winner"
		repo.put(winner)
		return false, domain.ErrProfileExists
	}
	r := NewProfileResolver(repo, zerolog.Nop())

	p, err := r.Resolve(context.Background(), *newUserSession())
	if err != nil {
		t.Fatalf("duplicate insert must not surface, got %v", err)
	}
	if p.FullName != "Winner" {
		t.Fatalf("expected the stored row, got %+v", p)
	}
}
