package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skolegrid/aula-bridge/internal/aula"
	"github.com/skolegrid/aula-bridge/internal/response"
	"github.com/skolegrid/aula-bridge/internal/service"
)

// SessionHandler exposes login and session status.
type SessionHandler struct {
	session *aula.Session
	data    *service.DataService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(session *aula.Session, data *service.DataService) *SessionHandler {
	return &SessionHandler{session: session, data: data}
}

type sessionStatus struct {
	State       aula.State `json:"state"`
	LoggedInAt  string     `json:"logged_in_at,omitempty"`
	SnapshotAt  string     `json:"snapshot_at,omitempty"`
	Children    int        `json:"children"`
	UnreadCount int        `json:"unread_count"`
}

// Login godoc
// POST /api/v1/session/login
// Performs the credential login against the platform. Idempotent while a
// session is live.
func (h *SessionHandler) Login(c *gin.Context) {
	if err := h.session.Login(c.Request.Context()); err != nil {
		status, code := mapError(err)
		response.Fail(c, status, code)
		return
	}
	response.Success(c, http.StatusOK, h.status())
}

// Status godoc
// GET /api/v1/session
// Reports session state and snapshot counters without touching the platform.
func (h *SessionHandler) Status(c *gin.Context) {
	response.Success(c, http.StatusOK, h.status())
}

func (h *SessionHandler) status() sessionStatus {
	stats := h.data.SnapshotStats()
	st := sessionStatus{
		State:       h.session.State(),
		Children:    stats.Children,
		UnreadCount: stats.Unread,
	}
	if at := h.session.LoggedInAt(); !at.IsZero() {
		st.LoggedInAt = at.UTC().Format(time.RFC3339)
	}
	if !stats.FetchedAt.IsZero() {
		st.SnapshotAt = stats.FetchedAt.UTC().Format(time.RFC3339)
	}
	return st
}
