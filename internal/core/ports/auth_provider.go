package ports

import (
	"context"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

// SignUpInput carries the details of a new account.
type SignUpInput struct {
	Email      string
	Password   string
	FullName   string
	RedirectTo string
}

// AuthProvider is the external authentication service.
type AuthProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	// SignUpWithPassword returns a nil session when the provider requires
	// e-mail confirmation before issuing one.
	SignUpWithPassword(ctx context.Context, in SignUpInput) (*domain.Session, error)
	// SignInWithOAuth returns the provider URL the browser must be sent to.
	// The provider redirects back with the session tokens in the URL fragment.
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error)
	SignOut(ctx context.Context, accessToken string) error
}

// SessionFeed delivers the current session on subscription and on every
// auth state transition. A nil session means signed out.
type SessionFeed interface {
	Subscribe(fn func(*domain.Session)) (unsubscribe func())
}

// SessionStore persists the session a device is signed in with.
type SessionStore interface {
	Load(ctx context.Context, deviceID string) (*domain.Session, error)
	Save(ctx context.Context, deviceID string, s *domain.Session) error
	Delete(ctx context.Context, deviceID string) error
}
