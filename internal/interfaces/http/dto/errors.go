package dto

import "net/http"

// Error code constants
// Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"

	// ErrCodeNotConfigured is used when the watcher has no API credentials
	ErrCodeNotConfigured = "ERR_NOT_CONFIGURED"
	// ErrCodeAuthRejected is used when the platform rejects the credentials
	ErrCodeAuthRejected = "ERR_AUTH_REJECTED"
	// ErrCodeUpstreamUnavailable is used when the platform cannot be reached
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	// ErrCodeNotifyTimeout is used when the OS notification facility does not answer
	ErrCodeNotifyTimeout = "ERR_NOTIFY_TIMEOUT"
	// ErrCodeNotifyFailed is used when displaying a notification fails
	ErrCodeNotifyFailed = "ERR_NOTIFY_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeNotConfigured:       http.StatusUnprocessableEntity,
	ErrCodeAuthRejected:        http.StatusUnauthorized,
	ErrCodeUpstreamUnavailable: http.StatusBadGateway,
	ErrCodeNotifyTimeout:       http.StatusGatewayTimeout,
	ErrCodeNotifyFailed:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
