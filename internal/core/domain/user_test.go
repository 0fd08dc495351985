package domain

import (
	"testing"
	"time"
)

func TestMergeCurrentUser(t *testing.T) {
	s := Session{
		UserID:   "u1",
		Email:    "ana@example.com",
		Metadata: SessionMetadata{FullName: "Session Name", AvatarURL: "https://img/session.png"},
	}
	p := Profile{ID: "u1", FullName: "Profile Name", Role: RoleFan, FollowedClubIDs: []string{"c1"}}

	u := MergeCurrentUser(s, p)
	if u.ID != "u1" || u.Email != "ana@example.com" {
		t.Fatalf("identity must come from the session: %+v", u)
	}
	if u.FullName != "Profile Name" {
		t.Fatalf("profile name must win, got %q", u.FullName)
	}
	if u.AvatarURL != "https://img/session.png" {
		t.Fatalf("empty profile avatar must fall back to session metadata, got %q", u.AvatarURL)
	}

	p.FollowedClubIDs[0] = "changed"
	if u.FollowedClubIDs[0] != "c1" {
		t.Fatal("merged user must not alias the profile slice")
	}
}

func TestCurrentUserEqual(t *testing.T) {
	a := &CurrentUser{ID: "u", Role: RoleFan, FollowedClubIDs: []string{}}
	b := &CurrentUser{ID: "u", Role: RoleFan, FollowedClubIDs: []string{}}
	if !a.Equal(b) {
		t.Fatal("expected equal users")
	}
	b.Role = RoleCreator
	if a.Equal(b) {
		t.Fatal("expected different roles to differ")
	}

	var n *CurrentUser
	if !n.Equal(nil) || n.Equal(a) || a.Equal(nil) {
		t.Fatal("nil handling is wrong")
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	var none *Session
	if none.Expired(now) {
		t.Fatal("nil session is not expired")
	}
	if (&Session{}).Expired(now) {
		t.Fatal("session without expiry never expires")
	}
	if !(&Session{ExpiresAt: now.Add(-time.Second)}).Expired(now) {
		t.Fatal("expected expired session")
	}
}
