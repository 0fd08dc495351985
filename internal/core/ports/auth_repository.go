package ports

import (
	"context"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

// CredentialRecord is a locally stored login used by the self-hosted auth provider.
type CredentialRecord struct {
	UserID       string
	Email        string
	PasswordHash string
	Metadata     domain.SessionMetadata
}

// AuthRepository defines persistence for locally managed credentials.
type AuthRepository interface {
	FindByEmail(ctx context.Context, email string) (*CredentialRecord, error)
	Create(ctx context.Context, rec *CredentialRecord) (*CredentialRecord, error)
}
