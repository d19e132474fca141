package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrAuthenticationFailed ErrCode = "AUTHENTICATION_FAILED"
	ErrSessionExpired       ErrCode = "SESSION_EXPIRED"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrTransportFailure ErrCode = "TRANSPORT_FAILURE"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidRange   ErrCode = "INVALID_RANGE"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrAuthenticationFailed:
		return "Login was rejected. Check the configured username and password."
	case ErrSessionExpired:
		return "The platform session expired and could not be re-established."
	case ErrTransportFailure:
		return "The platform could not be reached or answered unexpectedly."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidRange:
		return "The requested date range is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
