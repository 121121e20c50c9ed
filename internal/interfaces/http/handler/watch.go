package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	appwatch "github.com/amyhong0/imweb-cancel-notification/internal/application/watch"
	"github.com/amyhong0/imweb-cancel-notification/internal/domain/watch"
	"github.com/amyhong0/imweb-cancel-notification/internal/infrastructure/notify"
	"github.com/amyhong0/imweb-cancel-notification/internal/infrastructure/scheduler"
	"github.com/amyhong0/imweb-cancel-notification/internal/interfaces/http/dto"
)

// WatchService is the poll cycle surface the handler drives
type WatchService interface {
	Configured() bool
	RunCycle(ctx context.Context) (*appwatch.CycleResult, error)
	TestConnection(ctx context.Context) error
	History(limit int) []*appwatch.CycleResult
}

// Rescheduler replaces the poll timer at runtime
type Rescheduler interface {
	Reschedule(intervalMinutes int) (int, error)
	IntervalMinutes() int
}

// TestNotifier raises a test notification with a bounded wait
type TestNotifier interface {
	SendTest(ctx context.Context) error
}

// WatchHandler exposes the watcher control surface over HTTP
type WatchHandler struct {
	BaseHandler
	service   WatchService
	scheduler Rescheduler
	store     watch.Store
	notifier  TestNotifier
}

// NewWatchHandler creates a new WatchHandler
func NewWatchHandler(service WatchService, sched Rescheduler, store watch.Store, notifier TestNotifier) *WatchHandler {
	return &WatchHandler{
		service:   service,
		scheduler: sched,
		store:     store,
		notifier:  notifier,
	}
}

// RegisterRoutes registers watch routes
func (h *WatchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/watch")
	{
		group.GET("/status", h.GetStatus)
		group.POST("/check-now", h.CheckNow)
		group.POST("/reschedule", h.Reschedule)
		group.POST("/test-notification", h.TestNotification)
		group.POST("/test-connection", h.TestConnection)
		group.DELETE("/history", h.ClearHistory)
	}
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// StatusResponse describes the watcher's current state
type StatusResponse struct {
	Configured      bool           `json:"configured"`
	IntervalMinutes int            `json:"interval_minutes"`
	LastCheckAt     *time.Time     `json:"last_check_at"`
	NotifiedCount   int64          `json:"notified_count"`
	RecentCycles    []CycleSummary `json:"recent_cycles"`
}

// CycleSummary describes one completed poll cycle
type CycleSummary struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	OrdersChecked   int       `json:"orders_checked"`
	CancelRequested int       `json:"cancel_requested"`
	NewlyNotified   []string  `json:"newly_notified"`
	FailedOrders    int       `json:"failed_orders"`
}

// RescheduleRequest carries the requested poll interval
type RescheduleRequest struct {
	IntervalMinutes *int `json:"interval_minutes" binding:"required"`
}

// RescheduleResponse reports the effective interval after clamping
type RescheduleResponse struct {
	IntervalMinutes int `json:"interval_minutes"`
}

func toCycleSummary(result *appwatch.CycleResult) CycleSummary {
	return CycleSummary{
		ID:              result.ID.String(),
		Status:          string(result.Status),
		StartedAt:       result.StartedAt,
		CompletedAt:     result.CompletedAt,
		OrdersChecked:   result.OrdersChecked,
		CancelRequested: result.CancelRequested,
		NewlyNotified:   result.NewlyNotified,
		FailedOrders:    result.FailedOrders,
	}
}

// ---------------------------------------------------------------------------
// Endpoints
// ---------------------------------------------------------------------------

// GetStatus returns the watcher state: configuration, timer, last check and
// recent cycle history
func (h *WatchHandler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	lastCheck, err := h.store.LastCheck(ctx)
	if err != nil {
		h.InternalError(c, "failed to read last check time")
		return
	}

	count, err := h.store.CountNotified(ctx)
	if err != nil {
		h.InternalError(c, "failed to count notified orders")
		return
	}

	history := h.service.History(10)
	cycles := make([]CycleSummary, 0, len(history))
	for _, result := range history {
		cycles = append(cycles, toCycleSummary(result))
	}

	h.Success(c, StatusResponse{
		Configured:      h.service.Configured(),
		IntervalMinutes: h.scheduler.IntervalMinutes(),
		LastCheckAt:     lastCheck,
		NotifiedCount:   count,
		RecentCycles:    cycles,
	})
}

// CheckNow runs one poll cycle immediately
func (h *WatchHandler) CheckNow(c *gin.Context) {
	result, err := h.service.RunCycle(c.Request.Context())
	if err != nil {
		if errors.Is(err, appwatch.ErrCycleAlreadyRunning) {
			h.Conflict(c, "a poll cycle is already in progress")
			return
		}
		h.InternalError(c, "poll cycle failed")
		return
	}

	h.Success(c, toCycleSummary(result))
}

// Reschedule replaces the poll interval; out-of-range values are clamped
func (h *WatchHandler) Reschedule(c *gin.Context) {
	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "interval_minutes is required")
		return
	}

	effective, err := h.scheduler.Reschedule(*req.IntervalMinutes)
	if err != nil {
		if errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			h.Conflict(c, "scheduler is not running")
			return
		}
		h.InternalError(c, "failed to reschedule")
		return
	}

	h.Success(c, RescheduleResponse{IntervalMinutes: effective})
}

// TestNotification raises a test desktop notification
func (h *WatchHandler) TestNotification(c *gin.Context) {
	if err := h.notifier.SendTest(c.Request.Context()); err != nil {
		if errors.Is(err, notify.ErrNotificationTimeout) {
			h.Error(c, dto.ErrCodeNotifyTimeout, err.Error())
			return
		}
		h.Error(c, dto.ErrCodeNotifyFailed, err.Error())
		return
	}

	h.Success(c, gin.H{"message": "test notification displayed"})
}

// TestConnection verifies the configured credentials against the platform
func (h *WatchHandler) TestConnection(c *gin.Context) {
	if err := h.service.TestConnection(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, appwatch.ErrNotConfigured):
			h.Error(c, dto.ErrCodeNotConfigured, err.Error())
		case errors.Is(err, appwatch.ErrAuthRejected):
			h.Error(c, dto.ErrCodeAuthRejected, err.Error())
		default:
			h.Error(c, dto.ErrCodeUpstreamUnavailable, "could not reach the platform")
		}
		return
	}

	h.Success(c, gin.H{"message": "credentials accepted"})
}

// ClearHistory forgets all notified orders; qualifying orders still inside
// the lookback window will be re-notified on the next cycle
func (h *WatchHandler) ClearHistory(c *gin.Context) {
	if err := h.store.ClearNotified(c.Request.Context()); err != nil {
		h.InternalError(c, "failed to clear notified history")
		return
	}
	h.NoContent(c)
}
