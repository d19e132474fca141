package handler

import (
	"errors"
	"net/http"

	"github.com/skolegrid/aula-bridge/internal/aula"
	"github.com/skolegrid/aula-bridge/internal/response"
)

// mapError translates client-layer errors into HTTP status codes and API
// error codes. Every handler funnels failures through here so the taxonomy
// stays consistent across the tool surface.
func mapError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, aula.ErrInvalidRange):
		return http.StatusBadRequest, response.ErrInvalidRange
	case errors.Is(err, aula.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, aula.ErrSessionExpired):
		return http.StatusUnauthorized, response.ErrSessionExpired
	case errors.Is(err, aula.ErrAuthentication):
		return http.StatusUnauthorized, response.ErrAuthenticationFailed
	case errors.Is(err, aula.ErrTransport):
		return http.StatusBadGateway, response.ErrTransportFailure
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
