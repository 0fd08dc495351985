package service

import (
	"errors"
	"testing"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

func TestReduce_FirstEventLeavesBooting(t *testing.T) {
	prior := State{Phase: PhaseBooting, Path: "/"}

	next, eff := Reduce(prior, Outcome{})
	if next.Phase != PhaseReady {
		t.Fatalf("expected ready, got %v", next.Phase)
	}
	if eff.Navigate != domain.PathLogin || next.Path != domain.PathLogin {
		t.Fatalf("expected navigation to /login, got %q (path %q)", eff.Navigate, next.Path)
	}
}

func TestReduce_MergesProfile(t *testing.T) {
	sess := &domain.Session{UserID: "u1", Email: "a@example.com", Metadata: domain.SessionMetadata{AvatarURL: "https://img/a.png"}}
	prof := &domain.Profile{ID: "u1", FullName: "Ana", Role: domain.RoleCreator}

	next, eff := Reduce(State{Phase: PhaseReady, Path: domain.PathLogin}, Outcome{Session: sess, Profile: prof})
	if next.User == nil || next.User.FullName != "Ana" || next.User.Role != domain.RoleCreator {
		t.Fatalf("unexpected user: %+v", next.User)
	}
	if next.User.AvatarURL != "https://img/a.png" {
		t.Fatalf("expected avatar from session metadata, got %q", next.User.AvatarURL)
	}
	if eff.Navigate != domain.PathDashboard {
		t.Fatalf("expected /dashboard, got %q", eff.Navigate)
	}
}

func TestReduce_ErrorSignsOut(t *testing.T) {
	prior := State{
		Phase: PhaseReady,
		Path:  domain.PathDashboard,
		User:  &domain.CurrentUser{ID: "u1", Role: domain.RoleFan},
	}
	storeErr := errors.Join(domain.ErrStore, errors.New("timeout"))

	next, eff := Reduce(prior, Outcome{Session: fanSession(), Err: storeErr})
	if next.User != nil || next.Session != nil {
		t.Fatalf("expected signed out state, got %+v", next)
	}
	if !errors.Is(next.Err, domain.ErrStore) {
		t.Fatalf("expected store error to be kept, got %v", next.Err)
	}
	if eff.Navigate != domain.PathLogin {
		t.Fatalf("expected /login, got %q", eff.Navigate)
	}
}

func TestReduce_Idempotent(t *testing.T) {
	out := Outcome{Session: fanSession(), Profile: &domain.Profile{ID: "u-fan", Role: domain.RoleFan}}

	first, eff := Reduce(State{Phase: PhaseReady, Path: "/"}, out)
	if eff.Navigate != domain.PathDashboard {
		t.Fatalf("expected /dashboard, got %q", eff.Navigate)
	}
	second, eff := Reduce(first, out)
	if eff.Navigate != "" {
		t.Fatalf("expected no navigation on repeat, got %q", eff.Navigate)
	}
	if !second.User.Equal(first.User) || second.Path != first.Path {
		t.Fatalf("state changed on repeat: %+v vs %+v", first, second)
	}
}

func TestDecide_SuppressedWhileBooting(t *testing.T) {
	next, eff := Decide(State{Phase: PhaseBooting, Path: "/"}, "/dashboard?tab=1")
	if eff.Navigate != "" {
		t.Fatalf("expected no navigation while booting, got %q", eff.Navigate)
	}
	if next.Path != domain.PathDashboard {
		t.Fatalf("expected normalised path, got %q", next.Path)
	}
}

func TestDecide_Rules(t *testing.T) {
	fan := &domain.CurrentUser{ID: "u", Role: domain.RoleFan}
	unset := &domain.CurrentUser{ID: "u"}

	cases := []struct {
		name string
		user *domain.CurrentUser
		path string
		want string
	}{
		{"signed out on dashboard", nil, "/dashboard", domain.PathLogin},
		{"signed out on login", nil, "/login", ""},
		{"signed out on signup", nil, "/signup/", ""},
		{"no role anywhere", unset, "/club/7", domain.PathRoleChooser},
		{"no role on chooser", unset, "/rolechooser", ""},
		{"fan on login", fan, "/login", domain.PathDashboard},
		{"fan on root", fan, "/", domain.PathDashboard},
		{"fan on chooser", fan, "/rolechooser", domain.PathDashboard},
		{"fan deep link", fan, "/club/42", ""},
		{"fan on dashboard", fan, "/dashboard", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, eff := Decide(State{Phase: PhaseReady, User: tc.user}, tc.path)
			if eff.Navigate != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, eff.Navigate)
			}
		})
	}
}
