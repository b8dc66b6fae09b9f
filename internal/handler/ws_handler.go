package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctored-mcq/internal/middleware"
	"github.com/stemsi/proctored-mcq/internal/model"
	"github.com/stemsi/proctored-mcq/internal/response"
	"github.com/stemsi/proctored-mcq/internal/service"
	ws "github.com/stemsi/proctored-mcq/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams proctoring events over a WebSocket.
type WSHandler struct {
	authService    *service.AuthService
	proctorService *service.ProctorService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(authService *service.AuthService, proctorService *service.ProctorService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		authService:    authService,
		proctorService: proctorService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ProctorStream godoc
// WS /ws/v1/test/proctor?token=...
// Receives anti-cheat signals and pushes warnings back as they accumulate.
func (h *WSHandler) ProctorStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	if err := h.authService.ValidateCandidateSession(c.Request.Context(), claims.CandidateID, claims.ID); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int64("candidate_id", claims.CandidateID).Logger()
	wsLog.Info().Msg("Proctor stream connected")

	meta := model.ProctorEventMeta{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		// A later login replaces the session, so an older socket stops here.
		if !h.sessionActive(c.Request.Context(), conn, wsLog, claims) {
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case ws.ActionEvent:
			if done := h.handleEvent(c.Request.Context(), conn, wsLog, claims.CandidateID, msg, meta); done {
				return
			}
		default:
			_ = ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// sessionActive re-checks the token's session before each message and reports
// whether the stream may go on.
func (h *WSHandler) sessionActive(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, claims *service.Claims) bool {
	err := h.authService.ValidateCandidateSession(ctx, claims.CandidateID, claims.ID)
	if err == nil {
		return true
	}
	if errors.Is(err, service.ErrSessionInvalid) {
		wsLog.Info().Msg("Proctor stream closed by a newer session")
		_ = ws.WriteError(conn, ws.ErrSessionReplaced)
		return false
	}
	wsLog.Error().Err(err).Msg("Session check failed")
	_ = ws.WriteError(conn, "session check failed")
	return false
}

// handleEvent records one signal and reports whether the stream should end.
func (h *WSHandler) handleEvent(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, candidateID int64, msg ws.RequestEnvelope, meta model.ProctorEventMeta) bool {
	if msg.EventType == "" || len(msg.EventType) > 50 {
		_ = ws.WriteError(conn, "event_type is required")
		return false
	}
	meta.ClientTimestamp = msg.Timestamp

	res, err := h.proctorService.RecordEvent(ctx, candidateID, msg.EventType, msg.Details, meta)
	if err != nil {
		if errors.Is(err, service.ErrInvalidState) {
			_ = ws.WriteTyped(conn, ws.CompletedResponse{Event: ws.EventCompleted, Reason: "test is not in progress"})
			return true
		}
		wsLog.Error().Err(err).Str("event_type", msg.EventType).Msg("Record proctor event failed")
		_ = ws.WriteError(conn, "event not recorded")
		return false
	}

	_ = ws.WriteTyped(conn, ws.WarningResponse{
		Event:        ws.EventWarning,
		WarningCount: res.WarningCount,
		MaxWarnings:  res.MaxWarnings,
	})
	if res.AutoSubmitted {
		_ = ws.WriteTyped(conn, ws.CompletedResponse{
			Event:  ws.EventCompleted,
			Reason: string(model.CompletionReasonWarningThreshold),
		})
		return true
	}
	return false
}
