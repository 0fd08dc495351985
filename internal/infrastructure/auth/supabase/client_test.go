package supabase

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clubconnect/clubconnect/internal/core/domain"
	"github.com/clubconnect/clubconnect/internal/core/ports"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL+"/", "anon-key", srv.Client(), zerolog.Nop())
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_SignInWithPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("missing apikey header")
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		if body["email"] != "ana@example.com" || body["password"] != "secret" {
			t.Errorf("unexpected body: %v", body)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"expires_in":    3600,
			"user": map[string]any{
				"id":            "u1",
				"email":         "ana@example.com",
				"user_metadata": map[string]any{"full_name": "Ana", "avatar_url": "https://img/a.png"},
			},
		})
	})

	s, err := c.SignInWithPassword(t.Context(), "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.UserID != "u1" || s.AccessToken != "at" || s.RefreshToken != "rt" {
		t.Fatalf("unexpected session: %+v", s)
	}
	if s.Metadata.FullName != "Ana" || s.Metadata.AvatarURL != "https://img/a.png" {
		t.Fatalf("unexpected metadata: %+v", s.Metadata)
	}
	if want := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC); !s.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, s.ExpiresAt)
	}
}

func TestClient_SignInWithPassword_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "Invalid login credentials",
		})
	})

	_, err := c.SignInWithPassword(t.Context(), "ana@example.com", "wrong")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestClient_SignInWithPassword_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, map[string]any{"msg": "upstream down"})
	})

	_, err := c.SignInWithPassword(t.Context(), "ana@example.com", "secret")
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected a transport error, got %v", err)
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("expected apiError 502, got %v", err)
	}
}

func TestClient_SignUpWithPassword_PendingConfirmation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("redirect_to"); got != "https://app.example/cb" {
			t.Errorf("unexpected redirect_to %q", got)
		}
		var body struct {
			Data map[string]string `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		if body.Data["full_name"] != "Nina New" {
			t.Errorf("full name not sent: %v", body.Data)
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "u2", "email": "nina@example.com"})
	})

	s, err := c.SignUpWithPassword(t.Context(), ports.SignUpInput{
		Email:      "nina@example.com",
		Password:   "secret1",
		FullName:   "Nina New",
		RedirectTo: "https://app.example/cb",
	})
	if err != nil || s != nil {
		t.Fatalf("expected pending confirmation, got %+v, %v", s, err)
	}
}

func TestClient_SignUpWithPassword_AutoConfirmed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "at",
			"expires_at":   1772370000,
			"user":         map[string]any{"id": "u2", "email": "nina@example.com"},
		})
	})

	s, err := c.SignUpWithPassword(t.Context(), ports.SignUpInput{Email: "nina@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil || s.UserID != "u2" || !s.ExpiresAt.Equal(time.Unix(1772370000, 0)) {
		t.Fatalf("unexpected session: %+v", s)
	}
}

func TestClient_SignUpWithPassword_UserExists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"code":       422,
			"error_code": "user_already_exists",
			"msg":        "User already registered",
		})
	})

	_, err := c.SignUpWithPassword(t.Context(), ports.SignUpInput{Email: "nina@example.com", Password: "secret1"})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestClient_SignInWithOAuth(t *testing.T) {
	c := NewClient("https://proj.supabase.co/", "anon-key", nil, zerolog.Nop())

	raw, err := c.SignInWithOAuth(t.Context(), "Google", "https://app.example/cb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid url %q: %v", raw, err)
	}
	if u.Host != "proj.supabase.co" || u.Path != "/auth/v1/authorize" {
		t.Fatalf("unexpected url %q", raw)
	}
	if u.Query().Get("provider") != "google" || u.Query().Get("redirect_to") != "https://app.example/cb" {
		t.Fatalf("unexpected query %q", u.RawQuery)
	}

	if _, err := c.SignInWithOAuth(t.Context(), "myspace", ""); !errors.Is(err, domain.ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestClient_SignOut(t *testing.T) {
	var calls, status atomic.Int32
	status.Store(http.StatusNoContent)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/auth/v1/logout" || r.Header.Get("Authorization") != "Bearer at" {
			t.Errorf("unexpected request %s %q", r.URL.Path, r.Header.Get("Authorization"))
		}
		w.WriteHeader(int(status.Load()))
	})

	if err := c.SignOut(t.Context(), "at"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status.Store(http.StatusUnauthorized)
	if err := c.SignOut(t.Context(), "at"); err != nil {
		t.Fatalf("revoked token must not fail sign-out: %v", err)
	}

	if err := c.SignOut(t.Context(), ""); err != nil || calls.Load() != 2 {
		t.Fatalf("empty token must not call the provider (calls=%d, err=%v)", calls.Load(), err)
	}
}
