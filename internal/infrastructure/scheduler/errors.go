package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when an operation needs a running
	// scheduler and it has not been started or was already stopped
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
