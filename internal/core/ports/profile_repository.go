package ports

import (
	"context"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	// GetByUserID returns domain.ErrProfileNotFound when no row exists.
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	// CreateIfAbsent inserts p unless a row with the same id exists. It never
	// overwrites; created reports whether this call inserted the row.
	CreateIfAbsent(ctx context.Context, p *domain.Profile) (created bool, err error)
	// UpdateRole sets the role only while the stored role is unset and
	// returns domain.ErrRoleAlreadySet otherwise.
	UpdateRole(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error)
	Ping(ctx context.Context) error
}

// Navigator receives navigation targets decided by the synchronizer.
type Navigator interface {
	Navigate(target string)
}
