package domain

import (
	"errors"
	"slices"
	"time"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUserExists = errors.New("user already exists")
var ErrUnsupportedProvider = errors.New("unsupported oauth provider")

// SessionMetadata is the optional user data the auth provider attaches to a session.
type SessionMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Session is proof of authentication issued by the auth provider.
// An absent session is represented by a nil *Session.
type Session struct {
	UserID       string          `json:"user_id"`
	Email        string          `json:"email,omitempty"`
	Metadata     SessionMetadata `json:"metadata"`
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time       `json:"expires_at,omitempty"`
}

// Expired reports whether the session carries an expiry that has passed.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// CurrentUser is the in-memory merge of a Session and its Profile.
type CurrentUser struct {
	ID              string   `json:"id"`
	Email           string   `json:"email,omitempty"`
	FullName        string   `json:"full_name"`
	AvatarURL       string   `json:"avatar_url"`
	Role            Role     `json:"role"`
	Bio             string   `json:"bio,omitempty"`
	FollowedClubIDs []string `json:"followed_club_ids"`
}

// MergeCurrentUser combines session and profile. Profile attributes win;
// session metadata fills the display fields the profile leaves empty.
func MergeCurrentUser(s Session, p Profile) *CurrentUser {
	u := &CurrentUser{
		ID:              s.UserID,
		Email:           s.Email,
		FullName:        p.FullName,
		AvatarURL:       p.AvatarURL,
		Role:            p.Role,
		Bio:             p.Bio,
		FollowedClubIDs: slices.Clone(p.FollowedClubIDs),
	}
	if u.FullName == "" {
		u.FullName = s.Metadata.FullName
	}
	if u.AvatarURL == "" {
		u.AvatarURL = s.Metadata.AvatarURL
	}
	if u.FollowedClubIDs == nil {
		u.FollowedClubIDs = []string{}
	}
	return u
}

// Equal reports whether two current users carry the same values.
func (u *CurrentUser) Equal(o *CurrentUser) bool {
	if u == nil || o == nil {
		return u == o
	}
	return u.ID == o.ID &&
		u.Email == o.Email &&
		u.FullName == o.FullName &&
		u.AvatarURL == o.AvatarURL &&
		u.Role == o.Role &&
		u.Bio == o.Bio &&
		slices.Equal(u.FollowedClubIDs, o.FollowedClubIDs)
}
