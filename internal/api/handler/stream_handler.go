package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
)

// StreamHandler pushes the device's state to the app over a websocket
// whenever it changes.
type StreamHandler struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewStreamHandler returns a StreamHandler. Cross-origin upgrades are
// rejected unless the origin is listed in allowedOrigins.
func NewStreamHandler(allowedOrigins []string, log zerolog.Logger) *StreamHandler {
	h := &StreamHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]struct{}, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[o] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
	return h
}

// Stream handles GET /v1/session/stream.
//
// @Summary      Stream session state
// @Description  Upgrades to a websocket and sends a sessionResponse after every state change.
// @Tags         session
// @Success      101
// @Router       /v1/session/stream [get]
func (h *StreamHandler) Stream(c echo.Context) error {
	d, err := ctxDevice(c)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already answered the request.
		h.log.Warn().Err(err).Str("device_id", d.ID).Msg("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// The app never sends anything; reading only detects the close and
	// processes pongs.
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	h.log.Debug().Str("device_id", d.ID).Msg("state stream opened")
	defer h.log.Debug().Str("device_id", d.ID).Msg("state stream closed")

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	states := d.Sync.Watch(ctx)
	last := ""
	first := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-states:
			if !ok {
				return nil
			}
			if first {
				last, first = st.Path, false
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(toSessionResponse(st, last)); err != nil {
				return nil
			}
			last = st.Path
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		}
	}
}
