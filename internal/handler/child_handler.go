package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skolegrid/aula-bridge/internal/response"
	"github.com/skolegrid/aula-bridge/internal/service"
)

// ChildHandler exposes the guardian's children and their presence.
type ChildHandler struct {
	data *service.DataService
}

// NewChildHandler creates a new ChildHandler.
func NewChildHandler(data *service.DataService) *ChildHandler {
	return &ChildHandler{data: data}
}

// GetChildren godoc
// GET /api/v1/children
// Returns all children linked to the configured guardian.
func (h *ChildHandler) GetChildren(c *gin.Context) {
	children, err := h.data.Children(c.Request.Context())
	if err != nil {
		status, code := mapError(err)
		response.Fail(c, status, code)
		return
	}
	response.SuccessWithWarnings(c, http.StatusOK, children, h.data.Warnings())
}

// GetChildByID godoc
// GET /api/v1/children/:child_id
// Returns one child by its platform id.
func (h *ChildHandler) GetChildByID(c *gin.Context) {
	child, err := h.data.ChildByID(c.Request.Context(), c.Param("child_id"))
	if err != nil {
		status, code := mapError(err)
		response.Fail(c, status, code)
		return
	}
	response.Success(c, http.StatusOK, child)
}

// GetPresence godoc
// GET /api/v1/children/:child_id/presence
// Returns today's check-in overview for one child. Children without a
// presence module answer a single record with status unknown.
func (h *ChildHandler) GetPresence(c *gin.Context) {
	records, err := h.data.PresenceForChild(c.Request.Context(), c.Param("child_id"))
	if err != nil {
		status, code := mapError(err)
		response.Fail(c, status, code)
		return
	}
	response.Success(c, http.StatusOK, records)
}
