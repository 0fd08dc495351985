// Package auth verifies access tokens issued by the auth provider and turns
// them into sessions.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

var ErrInvalidToken = errors.New("invalid access token")

// TokenVerifier validates access tokens. HS256 tokens are checked against
// the shared secret; RS256 tokens against the JWKS provider when one is set.
type TokenVerifier struct {
	secret []byte
	jwks   *JWKSProvider
}

// NewTokenVerifier returns a verifier. jwks may be nil.
func NewTokenVerifier(secret string, jwks *JWKSProvider) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), jwks: jwks}
}

// Verify parses token and returns the session it proves.
func (v *TokenVerifier) Verify(ctx context.Context, token string) (*domain.Session, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if len(v.secret) == 0 {
				return nil, errors.New("HS256 token received but no JWT secret configured")
			}
			return v.secret, nil
		case *jwt.SigningMethodRSA:
			if v.jwks == nil {
				return nil, errors.New("RS256 token received but no JWKS configured")
			}
			return v.jwks.keyFunc(ctx)(t)
		}
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}, jwt.WithExpirationRequired())
	if err != nil || !tkn.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return sessionFromClaims(claims, token)
}

func sessionFromClaims(claims jwt.MapClaims, token string) (*domain.Session, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	s := &domain.Session{UserID: sub, AccessToken: token}
	s.Email, _ = claims["email"].(string)
	if md, ok := claims["user_metadata"].(map[string]any); ok {
		s.Metadata.FullName, _ = md["full_name"].(string)
		s.Metadata.AvatarURL, _ = md["avatar_url"].(string)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time.UTC()
	}
	return s, nil
}
