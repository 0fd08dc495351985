// Package supabase talks to the Supabase GoTrue REST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clubconnect/clubconnect/internal/core/domain"
	"github.com/clubconnect/clubconnect/internal/core/ports"
)

var supportedProviders = map[string]bool{
	"google": true,
	"github": true,
	"apple":  true,
}

// Client implements ports.AuthProvider against GoTrue.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	log     zerolog.Logger
	now     func() time.Time
}

// NewClient returns a Client for the project at baseURL. httpClient may be nil.
func NewClient(baseURL, anonKey string, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    httpClient,
		log:     log,
		now:     time.Now,
	}
}

var _ ports.AuthProvider = (*Client)(nil)

type userPayload struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         *userPayload `json:"user"`
}

// signUpResponse covers both shapes /signup answers with: a full token
// response when the project auto-confirms, a bare user otherwise.
type signUpResponse struct {
	tokenResponse
	userPayload
}

type errorResponse struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}

// apiError is a non-2xx answer from GoTrue.
type apiError struct {
	Status int
	Body   errorResponse
}

func (e *apiError) Error() string {
	return fmt.Sprintf("supabase auth: status %d: %s", e.Status, e.Body.text())
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	body := map[string]string{"email": email, "password": password}

	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &out); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, apiErr.Body.text())
		}
		return nil, err
	}
	return c.toSession(out)
}

func (c *Client) SignUpWithPassword(ctx context.Context, in ports.SignUpInput) (*domain.Session, error) {
	body := map[string]any{
		"email":    in.Email,
		"password": in.Password,
		"data":     map[string]string{"full_name": in.FullName},
	}
	path := "/auth/v1/signup"
	if in.RedirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(in.RedirectTo)
	}

	var out signUpResponse
	if err := c.do(ctx, http.MethodPost, path, "", body, &out); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && isUserExists(apiErr) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserExists, in.Email)
		}
		return nil, err
	}

	if out.AccessToken == "" {
		c.log.Info().Str("user_id", out.userPayload.ID).Msg("sign-up pending e-mail confirmation")
		return nil, nil
	}
	return c.toSession(out.tokenResponse)
}

// SignInWithOAuth builds the authorize URL; no request is made.
func (c *Client) SignInWithOAuth(_ context.Context, provider, redirectTo string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !supportedProviders[provider] {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, provider)
	}

	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return c.baseURL + "/auth/v1/authorize?" + q.Encode(), nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
	var apiErr *apiError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
		// The token is already revoked or expired.
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("supabase auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.Body)
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Str("message", apiErr.Body.text()).Msg("supabase auth error")
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) toSession(out tokenResponse) (*domain.Session, error) {
	if out.AccessToken == "" || out.User == nil || out.User.ID == "" {
		return nil, errors.New("supabase auth: response carries no session")
	}

	s := &domain.Session{
		UserID:       out.User.ID,
		Email:        out.User.Email,
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}
	s.Metadata.FullName, _ = out.User.UserMetadata["full_name"].(string)
	s.Metadata.AvatarURL, _ = out.User.UserMetadata["avatar_url"].(string)

	switch {
	case out.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(out.ExpiresAt, 0).UTC()
	case out.ExpiresIn > 0:
		s.ExpiresAt = c.now().Add(time.Duration(out.ExpiresIn) * time.Second).UTC()
	}
	return s, nil
}

func isUserExists(e *apiError) bool {
	if e.Body.ErrorCode == "user_already_exists" || e.Body.ErrorCode == "email_exists" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Body.text()), "already registered")
}
