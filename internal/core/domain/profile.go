package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Role is the part a user plays in ClubConnect. It stays unset until the
// user completes the role chooser.
type Role string

const (
	RoleUnset   Role = ""
	RoleFan     Role = "fan"
	RoleCreator Role = "creator"
)

var ErrProfileNotFound = errors.New("profile not found")
var ErrProfileExists = errors.New("profile already exists")
var ErrStore = errors.New("profile store unavailable")
var ErrInvalidRole = errors.New("invalid role")

// ErrPrecondition is returned when an operation is invoked in a state that
// does not allow it. ErrNotAuthenticated and ErrRoleAlreadySet wrap it.
var ErrPrecondition = errors.New("precondition violation")
var ErrNotAuthenticated = fmt.Errorf("%w: no current user", ErrPrecondition)
var ErrRoleAlreadySet = fmt.Errorf("%w: role already set", ErrPrecondition)

// ParseRole converts user input into a chosen role. The older spellings
// "club" and "club_owner" are still accepted for creators.
func ParseRole(s string) (Role, error) {
	if r, ok := roleSpellings[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return RoleUnset, fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

var roleSpellings = map[string]Role{
	"fan":        RoleFan,
	"creator":    RoleCreator,
	"club":       RoleCreator,
	"club_owner": RoleCreator,
}

// RoleSpellings lists, in lower case, every stored value ParseRole accepts.
// A stored role outside this list reads as unset.
func RoleSpellings() []string {
	out := make([]string, 0, len(roleSpellings))
	for s := range roleSpellings {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// IsSet reports whether the role has been chosen.
func (r Role) IsSet() bool {
	return r == RoleFan || r == RoleCreator
}

// Profile is the persisted record describing a user, keyed by the auth user id.
type Profile struct {
	ID              string    `json:"id" bson:"_id"`
	FullName        string    `json:"full_name" bson:"full_name"`
	AvatarURL       string    `json:"avatar_url" bson:"avatar_url"`
	Role            Role      `json:"role" bson:"role"`
	Bio             string    `json:"bio,omitempty" bson:"bio,omitempty"`
	FollowedClubIDs []string  `json:"followed_club_ids" bson:"followed_club_ids"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// NewDefaultProfile builds the row inserted the first time a session is seen
// for a user that has no profile yet.
func NewDefaultProfile(s Session, now time.Time) *Profile {
	return &Profile{
		ID:              s.UserID,
		FullName:        defaultFullName(s),
		AvatarURL:       s.Metadata.AvatarURL,
		Role:            RoleUnset,
		FollowedClubIDs: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func defaultFullName(s Session) string {
	if name := strings.TrimSpace(s.Metadata.FullName); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(s.Email, "@"); ok && local != "" {
		return local
	}
	return "User"
}
