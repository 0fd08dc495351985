package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clubconnect/clubconnect/internal/core/service"
)

const (
	// DeviceCookie identifies a browser across requests.
	DeviceCookie = "cc_device"
	// DeviceHeader lets non-browser clients send their device id explicitly.
	DeviceHeader = "X-Device-ID"

	ContextDeviceID = "device_id"
	ContextDevice   = "device"
	ContextUser     = "user"
	ContextRole     = "role"

	deviceCookieMaxAge = 365 * 24 * time.Hour
)

// DeviceSource hands out the device for an id, creating it on first use.
type DeviceSource interface {
	Device(ctx context.Context, id string) *service.Device
}

// Device resolves the caller's device from the device cookie (or header),
// minting a new id when none or an invalid one is sent, and injects it into
// the context.
func Device(devices DeviceSource, secureCookie bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := deviceID(c.Request())
			if id == "" {
				id = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     DeviceCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(deviceCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}

			c.Set(ContextDeviceID, id)
			c.Set(ContextDevice, devices.Device(c.Request().Context(), id))
			return next(c)
		}
	}
}

func deviceID(r *http.Request) string {
	candidates := []string{r.Header.Get(DeviceHeader)}
	if ck, err := r.Cookie(DeviceCookie); err == nil {
		candidates = append(candidates, ck.Value)
	}
	for _, v := range candidates {
		if id, err := uuid.Parse(v); err == nil {
			return id.String()
		}
	}
	return ""
}

// RequireUser rejects requests whose device has no current user and
// injects the user and its role into the context.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d, _ := c.Get(ContextDevice).(*service.Device)
			if d == nil {
				return echo.NewHTTPError(http.StatusBadRequest, "missing device identity")
			}

			st, err := d.Sync.Settled(c.Request().Context())
			if err != nil {
				return err
			}
			if st.User == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
			}

			c.Set(ContextUser, st.User)
			c.Set(ContextRole, string(st.User.Role))
			return next(c)
		}
	}
}
