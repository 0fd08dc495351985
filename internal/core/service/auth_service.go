package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clubconnect/clubconnect/internal/core/domain"
	"github.com/clubconnect/clubconnect/internal/core/ports"
)

// AuthService is the self-hosted auth provider used when no hosted auth
// service is configured. Credentials live in an AuthRepository and access
// tokens are HS256 JWTs carrying the same claims the hosted provider issues.
type AuthService struct {
	repo      ports.AuthRepository
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewAuthService(repo ports.AuthRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL, now: time.Now}
}

func (s *AuthService) SignUpWithPassword(ctx context.Context, in ports.SignUpInput) (*domain.Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &ports.CredentialRecord{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Metadata:     domain.SessionMetadata{FullName: strings.TrimSpace(in.FullName)},
	})
	if err != nil {
		return nil, err
	}
	return s.issueSession(created)
}

func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	rec, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issueSession(rec)
}

// SignInWithOAuth is not available without a hosted provider.
func (s *AuthService) SignInWithOAuth(_ context.Context, provider, _ string) (string, error) {
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
}

// SignOut is a no-op: local tokens are stateless and expire on their own.
func (s *AuthService) SignOut(_ context.Context, _ string) error {
	return nil
}

func (s *AuthService) issueSession(rec *ports.CredentialRecord) (*domain.Session, error) {
	expires := s.now().Add(s.tokenTTL).UTC().Truncate(time.Second)
	token, err := s.generateToken(rec, expires)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		UserID:      rec.UserID,
		Email:       rec.Email,
		Metadata:    rec.Metadata,
		AccessToken: token,
		ExpiresAt:   expires,
	}, nil
}

func (s *AuthService) generateToken(rec *ports.CredentialRecord, expires time.Time) (string, error) {
	metadata := map[string]any{}
	if rec.Metadata.FullName != "" {
		metadata["full_name"] = rec.Metadata.FullName
	}
	if rec.Metadata.AvatarURL != "" {
		metadata["avatar_url"] = rec.Metadata.AvatarURL
	}

	claims := jwt.MapClaims{
		"sub":           rec.UserID,
		"email":         rec.Email,
		"role":          "authenticated",
		"user_metadata": metadata,
		"iat":           s.now().Unix(),
		"exp":           expires.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
