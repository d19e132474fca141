package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/skolegrid/aula-bridge/internal/service"
	ws "github.com/skolegrid/aula-bridge/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty slice permits all origins (development mode).
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

// StreamHandler serves the snapshot update stream over WebSocket.
type StreamHandler struct {
	data     *service.DataService
	hub      *ws.Hub
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(data *service.DataService, hub *ws.Hub, log zerolog.Logger, allowedOrigins []string) *StreamHandler {
	return &StreamHandler{
		data:     data,
		hub:      hub,
		log:      log.With().Str("component", "stream_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// UpdatesStream godoc
// WS /ws/v1/updates
// Upgrades to WebSocket and pushes a snapshot event after every refresh.
// Clients may send ping to keep the read deadline alive and refresh to
// force a snapshot outside the schedule.
func (h *StreamHandler) UpdatesStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.hub.Register(conn)
	defer h.hub.Unregister(conn)

	// Greet with the current snapshot so a new subscriber does not wait a
	// full interval for its first event.
	h.sendSnapshot(conn)

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				h.log.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case ws.ActionRefresh:
			if err := h.data.Refresh(c.Request.Context()); err != nil {
				ws.WriteError(conn, "refresh failed")
				continue
			}
			h.sendSnapshot(conn)
		default:
			ws.WriteError(conn, "unknown action")
		}
	}
}

func (h *StreamHandler) sendSnapshot(conn *websocket.Conn) {
	stats := h.data.SnapshotStats()
	ws.WriteTyped(conn, ws.SnapshotEvent{
		Event:       ws.EventSnapshot,
		UpdatedAt:   stats.FetchedAt.UTC().Format(time.RFC3339),
		Children:    stats.Children,
		UnreadCount: stats.Unread,
		Warnings:    stats.Warnings,
	})
}
