package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skolegrid/aula-bridge/internal/response"
	"github.com/skolegrid/aula-bridge/internal/service"
	"github.com/skolegrid/aula-bridge/internal/validator"
)

// GalleryHandler exposes the institution photo gallery.
type GalleryHandler struct {
	data *service.DataService
}

// NewGalleryHandler creates a new GalleryHandler.
func NewGalleryHandler(data *service.DataService) *GalleryHandler {
	return &GalleryHandler{data: data}
}

type galleryQuery struct {
	Limit int `form:"limit"`
}

// GetItems godoc
// GET /api/v1/gallery?limit=10
// Returns the newest gallery items across the guardian's institutions.
func (h *GalleryHandler) GetItems(c *gin.Context) {
	var q galleryQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	items, err := h.data.GalleryItems(c.Request.Context(), q.Limit)
	if err != nil {
		status, code := mapError(err)
		response.Fail(c, status, code)
		return
	}
	response.Success(c, http.StatusOK, items)
}
