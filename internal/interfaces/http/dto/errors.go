package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound = "ERR_NOT_FOUND"
)

// Action error codes
const (
	// ErrCodeUnknownAction is used when the action key is not part of the entity's vocabulary
	ErrCodeUnknownAction = "ERR_UNKNOWN_ACTION"
	// ErrCodeActionNotPermitted is used when the action is not on the viewer's current menu
	ErrCodeActionNotPermitted = "ERR_ACTION_NOT_PERMITTED"
	// ErrCodeConfirmationRequired is used when a danger action arrives without a valid token
	ErrCodeConfirmationRequired = "ERR_CONFIRMATION_REQUIRED"
	ErrCodeInvalidState         = "ERR_INVALID_STATE"
)

// Upstream error codes
const (
	// ErrCodeUpstreamRejected is used when the upstream answered a transition with an error status
	ErrCodeUpstreamRejected = "ERR_UPSTREAM_REJECTED"
	// ErrCodeUpstreamUnavailable is used when the upstream could not be reached
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	// ErrCodeUpstreamRead is used when an entity read failed for a reason other than not found
	ErrCodeUpstreamRead = "ERR_UPSTREAM_READ"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound: http.StatusNotFound,

	ErrCodeUnknownAction:        http.StatusBadRequest,
	ErrCodeActionNotPermitted:   http.StatusConflict,
	ErrCodeConfirmationRequired: http.StatusPreconditionRequired,
	ErrCodeInvalidState:         http.StatusConflict,

	ErrCodeUpstreamRejected:    http.StatusUnprocessableEntity,
	ErrCodeUpstreamUnavailable: http.StatusBadGateway,
	ErrCodeUpstreamRead:        http.StatusBadGateway,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainCodeMapping maps the codes used by domain and application errors
// to the standardized API codes
var domainCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_STATE":         ErrCodeInvalidState,
	"UNAUTHORIZED":          ErrCodeUnauthorized,
	"FORBIDDEN":             ErrCodeForbidden,
	"UNKNOWN_ACTION":        ErrCodeUnknownAction,
	"ACTION_NOT_PERMITTED":  ErrCodeActionNotPermitted,
	"CONFIRMATION_REQUIRED": ErrCodeConfirmationRequired,
	"UPSTREAM_REJECTED":     ErrCodeUpstreamRejected,
	"UPSTREAM_UNAVAILABLE":  ErrCodeUpstreamUnavailable,
	"INTERNAL_ERROR":        ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format.
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := domainCodeMapping[code]; ok {
		return newCode
	}
	return code
}
