package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skolegrid/aula-bridge/internal/response"
	"github.com/skolegrid/aula-bridge/internal/service"
)

// SummaryHandler exposes the cross-resource digest and manual refresh.
type SummaryHandler struct {
	data *service.DataService
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(data *service.DataService) *SummaryHandler {
	return &SummaryHandler{data: data}
}

// GetSummary godoc
// GET /api/v1/summary?force=true
// Returns the digest across children, messages, presence, calendar and
// gallery. force bypasses the staleness window.
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	force := c.Query("force") == "true"

	summary, err := h.data.BuildSummary(c.Request.Context(), force)
	if err != nil {
		status, code := mapError(err)
		response.Fail(c, status, code)
		return
	}
	response.SuccessWithWarnings(c, http.StatusOK, summary, h.data.Warnings())
}

// Refresh godoc
// POST /api/v1/refresh
// Forces a fresh platform snapshot regardless of staleness.
func (h *SummaryHandler) Refresh(c *gin.Context) {
	if err := h.data.Refresh(c.Request.Context()); err != nil {
		status, code := mapError(err)
		response.Fail(c, status, code)
		return
	}
	response.Success(c, http.StatusOK, h.data.SnapshotStats())
}
