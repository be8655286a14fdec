package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/peermeet/signal-server/internal/auth"
	"github.com/peermeet/signal-server/internal/core"
)

const writeRetryTimeout = 2 * time.Second

// WSHandler is the connection acceptor: it authenticates the upgrade,
// constructs a Session, and bridges the socket to the signal router.
type WSHandler struct {
	registry  *core.Registry
	router    *core.Router
	auth      *auth.Service
	queueSize int
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *core.Registry, router *core.Router, authService *auth.Service, queueSize int, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		registry:  registry,
		router:    router,
		auth:      authService,
		queueSize: queueSize,
		log:       logger,
	}
}

// Serve handles GET /ws?token=...
func (h *WSHandler) Serve(c *gin.Context) {
	// Auth failure rejects the connection before a session exists.
	claims, err := h.auth.Verify(c.Query("token"))
	if err != nil {
		h.log.Debug().Err(err).Msg("ws auth rejected")
		c.JSON(stdhttp.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	session := core.NewSession(claims.ParticipantID, claims.Name, h.queueSize)
	defer func() {
		session.Close("connection closed")
		// Room cleanup happens before this handler returns, so no
		// later broadcast can target the dead session.
		h.registry.Detach(session)
	}()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	h.log.Info().Str("participant", session.ID).Str("name", session.Name).Msg("ws connected")

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh
	cancel() // stop the other loop
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("participant", session.ID).Msg("ws connection closed with error")
		}
	}

	h.log.Info().Str("participant", session.ID).Msg("ws disconnected")
	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		h.router.HandleInbound(session, data)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		select {
		case sig := <-session.Out:
			if err := wsjson.Write(ctx, conn, sig); err != nil {
				// One bounded retry, then terminate the session.
				retryCtx, cancel := context.WithTimeout(ctx, writeRetryTimeout)
				retryErr := wsjson.Write(retryCtx, conn, sig)
				cancel()
				if retryErr != nil {
					h.log.Warn().Err(retryErr).Str("participant", session.ID).Msg("write failed after retry")
					return retryErr
				}
			}
		case <-session.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
