package watch

import "errors"

var (
	// ErrCycleAlreadyRunning is returned when a poll cycle is requested while
	// another one is still in flight (a manual check racing the scheduler)
	ErrCycleAlreadyRunning = errors.New("poll cycle already in progress")

	// ErrInvalidConfig is returned when the watcher configuration is invalid
	ErrInvalidConfig = errors.New("invalid watcher configuration")

	// ErrNotConfigured is returned when an operation needs credentials and
	// none are available
	ErrNotConfigured = errors.New("no API credentials configured")

	// ErrAuthRejected is returned when the platform refuses the configured
	// credentials
	ErrAuthRejected = errors.New("platform rejected the API credentials")
)
