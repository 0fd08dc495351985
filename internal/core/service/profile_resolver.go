package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/clubconnect/clubconnect/internal/core/domain"
	"github.com/clubconnect/clubconnect/internal/core/ports"
	"github.com/clubconnect/clubconnect/internal/infrastructure/metrics"
)

// ProfileResolver looks up the profile for a session and lazily creates the
// default row for users seen for the first time. One resolver is shared by
// all devices so concurrent first logins of the same user insert once.
type ProfileResolver struct {
	repo    ports.ProfileRepository
	inserts singleflight.Group
	now     func() time.Time
	log     zerolog.Logger
}

// NewProfileResolver returns a ProfileResolver backed by repo.
func NewProfileResolver(repo ports.ProfileRepository, log zerolog.Logger) *ProfileResolver {
	return &ProfileResolver{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
		log:  log,
	}
}

// Resolve returns the canonical profile for s. Every failure is wrapped in
// domain.ErrStore.
func (r *ProfileResolver) Resolve(ctx context.Context, s domain.Session) (*domain.Profile, error) {
	p, err := r.repo.GetByUserID(ctx, s.UserID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, fmt.Errorf("%w: fetch profile: %w", domain.ErrStore, err)
	}

	// The shared call must outlive a single caller's cancellation, otherwise
	// one superseded device would fail the insert for every waiter.
	v, err, shared := r.inserts.Do(s.UserID, func() (any, error) {
		return r.createAndFetch(context.WithoutCancel(ctx), s)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.log.Debug().Str("user_id", s.UserID).Msg("joined in-flight profile creation")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStore, err)
	}
	return v.(*domain.Profile), nil
}

func (r *ProfileResolver) createAndFetch(ctx context.Context, s domain.Session) (*domain.Profile, error) {
	created, err := r.repo.CreateIfAbsent(ctx, domain.NewDefaultProfile(s, r.now()))
	switch {
	case errors.Is(err, domain.ErrProfileExists):
		// Another instance won the insert; its row is as good as ours.
		created = false
	case err != nil:
		metrics.ProfileCreationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: create profile: %w", domain.ErrStore, err)
	}

	if created {
		metrics.ProfileCreationsTotal.WithLabelValues("created").Inc()
		r.log.Info().Str("user_id", s.UserID).Msg("default profile created")
	} else {
		metrics.ProfileCreationsTotal.WithLabelValues("exists").Inc()
		r.log.Debug().Str("user_id", s.UserID).Msg("profile already existed, re-fetching")
	}

	p, err := r.repo.GetByUserID(ctx, s.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: re-fetch profile: %w", domain.ErrStore, err)
	}
	return p, nil
}

// AssignRole writes the chosen role for userID.
func (r *ProfileResolver) AssignRole(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error) {
	p, err := r.repo.UpdateRole(ctx, userID, role)
	if err != nil {
		if errors.Is(err, domain.ErrRoleAlreadySet) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: update role: %w", domain.ErrStore, err)
	}
	metrics.RoleAssignmentsTotal.WithLabelValues(string(role)).Inc()
	return p, nil
}
