package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clubconnect/clubconnect/internal/core/domain"
	"github.com/clubconnect/clubconnect/internal/core/ports"
	"github.com/clubconnect/clubconnect/internal/core/service"
	"github.com/clubconnect/clubconnect/internal/infrastructure/queue"
)

// SessionVerifier turns an access token into the session it proves.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Session, error)
}

// Revoker schedules the revocation of a provider session.
type Revoker interface {
	Enqueue(r queue.Revocation) bool
}

// SessionPublisher delivers auth transitions to a device.
type SessionPublisher interface {
	SignIn(ctx context.Context, deviceID string, s *domain.Session) (service.State, error)
	SignOut(ctx context.Context, deviceID string) (service.State, error)
}

// AuthHandler relays authentication to the auth provider and publishes the
// resulting session to the caller's device.
type AuthHandler struct {
	provider    ports.AuthProvider
	verifier    SessionVerifier
	devices     SessionPublisher
	revoker     Revoker
	redirectURL string
	log         zerolog.Logger
}

func NewAuthHandler(provider ports.AuthProvider, verifier SessionVerifier, devices SessionPublisher, revoker Revoker, redirectURL string, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		provider:    provider,
		verifier:    verifier,
		devices:     devices,
		revoker:     revoker,
		redirectURL: redirectURL,
		log:         log,
	}
}

// Login signs in with e-mail and password.
//
// @Summary      Sign in with e-mail and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	d, err := ctxDevice(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	from := d.Sync.State().Path

	sess, err := h.provider.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	st, err := h.devices.SignIn(ctx, d.ID, sess)
	if err != nil {
		return err
	}

	h.log.Info().Str("device_id", d.ID).Str("user_id", sess.UserID).Msg("signed in")
	return c.JSON(http.StatusOK, toSessionResponse(st, from))
}

// SignUp creates an account. When the provider requires e-mail confirmation
// no session is issued yet.
//
// @Summary      Create an account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Account details"
// @Success      201   {object}  signUpResponse
// @Success      202   {object}  signUpResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	d, err := ctxDevice(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	from := d.Sync.State().Path

	sess, err := h.provider.SignUpWithPassword(ctx, ports.SignUpInput{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		RedirectTo: h.redirectURL,
	})
	if err != nil {
		return err
	}
	if sess == nil {
		return c.JSON(http.StatusAccepted, signUpResponse{ConfirmationRequired: true})
	}

	st, err := h.devices.SignIn(ctx, d.ID, sess)
	if err != nil {
		return err
	}

	h.log.Info().Str("device_id", d.ID).Str("user_id", sess.UserID).Msg("signed up")
	resp := toSessionResponse(st, from)
	return c.JSON(http.StatusCreated, signUpResponse{Session: &resp})
}

// OAuth sends the browser to the provider's consent page.
//
// @Summary      Start an OAuth sign-in
// @Tags         auth
// @Param        provider  path  string  true  "OAuth provider (e.g. google)"
// @Success      302
// @Failure      400  {object}  errorResponse
// @Router       /auth/oauth/{provider} [get]
func (h *AuthHandler) OAuth(c echo.Context) error {
	url, err := h.provider.SignInWithOAuth(c.Request().Context(), c.Param("provider"), h.redirectURL)
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, url)
}

// Session accepts the tokens returned by an OAuth redirect.
//
// @Summary      Complete an OAuth sign-in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      oauthSessionRequest  true  "Tokens from the redirect fragment"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/session [post]
func (h *AuthHandler) Session(c echo.Context) error {
	var req oauthSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	d, err := ctxDevice(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	from := d.Sync.State().Path

	sess, err := h.verifier.Verify(ctx, req.AccessToken)
	if err != nil {
		h.log.Warn().Err(err).Str("device_id", d.ID).Msg("rejected oauth session")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
	}
	sess.RefreshToken = req.RefreshToken

	st, err := h.devices.SignIn(ctx, d.ID, sess)
	if err != nil {
		return err
	}

	h.log.Info().Str("device_id", d.ID).Str("user_id", sess.UserID).Msg("signed in with oauth")
	return c.JSON(http.StatusOK, toSessionResponse(st, from))
}

// Logout signs the device out. The provider session is revoked in the background.
//
// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	d, err := ctxDevice(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	from := d.Sync.State().Path
	prev := d.Feed.Current()

	st, err := h.devices.SignOut(ctx, d.ID)
	if err != nil {
		return err
	}
	if prev != nil {
		h.revoker.Enqueue(queue.Revocation{UserID: prev.UserID, AccessToken: prev.AccessToken})
		h.log.Info().Str("device_id", d.ID).Str("user_id", prev.UserID).Msg("signed out")
	}
	return c.JSON(http.StatusOK, toSessionResponse(st, from))
}
