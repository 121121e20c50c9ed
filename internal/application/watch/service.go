package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amyhong0/imweb-cancel-notification/internal/domain/watch"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds the poll cycle tunables. All thresholds are explicit here so
// tests can override them without touching global state.
type Config struct {
	// LookbackDays is how many days of order history each cycle re-checks.
	// Orders can enter the cancellation-requested state well after placement,
	// so the window re-covers recent days on every cycle.
	LookbackDays int
	// MaxPages bounds the number of listing calls per cycle, even if the
	// server keeps reporting more data
	MaxPages int
	// MaxOrders bounds how many orders one cycle inspects
	MaxOrders int
	// DebugOrders is how many leading orders get their line items' claim
	// fields logged at debug level
	DebugOrders int
}

// DefaultConfig returns the default poll cycle configuration
func DefaultConfig() Config {
	return Config{
		LookbackDays: 7,
		MaxPages:     10,
		MaxOrders:    100,
		DebugOrders:  3,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.LookbackDays <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxPages <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxOrders <= 0 {
		return ErrInvalidConfig
	}
	if c.DebugOrders < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// Cycle results
// ---------------------------------------------------------------------------

// CycleStatus describes how a poll cycle ended.
type CycleStatus string

const (
	// CycleStatusCompleted means the cycle ran to the end
	CycleStatusCompleted CycleStatus = "COMPLETED"
	// CycleStatusUnconfigured means no credentials were available; nothing ran
	CycleStatusUnconfigured CycleStatus = "UNCONFIGURED"
	// CycleStatusAuthFailed means the platform rejected the credentials or
	// authentication could not be reached
	CycleStatusAuthFailed CycleStatus = "AUTH_FAILED"
)

// CycleResult summarizes one poll cycle for the status view.
type CycleResult struct {
	ID              uuid.UUID
	Status          CycleStatus
	StartedAt       time.Time
	CompletedAt     time.Time
	OrdersChecked   int
	CancelRequested int
	NewlyNotified   []string
	FailedOrders    int
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service is the poll cycle engine: it authenticates, pages through recent
// orders, classifies their line items, diffs against the notified history,
// raises notifications and persists the updated history.
type Service struct {
	config      Config
	credentials *watch.Credentials
	api         watch.OrderAPI
	store       watch.Store
	notifier    watch.Notifier
	logger      *zap.Logger

	// now is the clock; replaced in tests
	now func() time.Time

	// cycleMu serializes poll cycles: a manual check-now racing a scheduled
	// firing must not run concurrently against the same notified history
	cycleMu sync.Mutex

	historyMu  sync.RWMutex
	history    []*CycleResult
	maxHistory int
}

// NewService creates a new poll cycle engine. credentials may be nil, in
// which case every cycle is a silent no-op until the watcher is configured.
func NewService(
	config Config,
	credentials *watch.Credentials,
	api watch.OrderAPI,
	store watch.Store,
	notifier watch.Notifier,
	logger *zap.Logger,
) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Service{
		config:      config,
		credentials: credentials,
		api:         api,
		store:       store,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
		history:     make([]*CycleResult, 0, 20),
		maxHistory:  20,
	}, nil
}

// Configured reports whether credentials are available.
func (s *Service) Configured() bool {
	return s.credentials != nil
}

// TestConnection verifies the configured credentials against the platform
// without touching any order data.
func (s *Service) TestConnection(ctx context.Context) error {
	if s.credentials == nil {
		return ErrNotConfigured
	}

	token, err := s.api.Authenticate(ctx, s.credentials.APIKey, s.credentials.APISecret)
	if err != nil {
		return fmt.Errorf("authentication request failed: %w", err)
	}
	if token == "" {
		return ErrAuthRejected
	}
	return nil
}

// RunCycle executes one full detection pass. Returns ErrCycleAlreadyRunning
// when another cycle is still in flight. Failures of individual orders or of
// the notification display never fail the cycle; the next scheduled firing is
// the retry mechanism for anything transient.
func (s *Service) RunCycle(ctx context.Context) (*CycleResult, error) {
	if !s.cycleMu.TryLock() {
		return nil, ErrCycleAlreadyRunning
	}
	defer s.cycleMu.Unlock()

	result := &CycleResult{ID: uuid.New(), StartedAt: s.now()}
	defer func() {
		result.CompletedAt = s.now()
		s.addToHistory(result)
	}()

	if s.credentials == nil {
		result.Status = CycleStatusUnconfigured
		s.logger.Debug("Poll cycle skipped: no credentials configured")
		return result, nil
	}

	token, err := s.api.Authenticate(ctx, s.credentials.APIKey, s.credentials.APISecret)
	if err != nil || token == "" {
		result.Status = CycleStatusAuthFailed
		s.logger.Warn("Poll cycle aborted: authentication failed",
			zap.String("cycle_id", result.ID.String()),
			zap.Error(err),
		)
		return result, nil
	}

	// Notified history is read once at cycle start; the diff below merges
	// against this snapshot.
	notifiedNos, err := s.store.ListNotifiedOrderNos(ctx)
	if err != nil {
		s.logger.Error("Failed to load notified history", zap.Error(err))
		return result, err
	}
	notified := make(map[string]struct{}, len(notifiedNos))
	for _, orderNo := range notifiedNos {
		notified[orderNo] = struct{}{}
	}

	now := s.now()
	from := now.Add(-time.Duration(s.config.LookbackDays) * 24 * time.Hour)

	orders := s.collectOrders(ctx, token, from, now)
	qualifying := s.inspectOrders(ctx, token, orders, result)

	result.OrdersChecked = len(orders)
	result.CancelRequested = len(qualifying)

	// The cycle "ran" whether or not anything qualified.
	if err := s.store.SetLastCheck(ctx, s.now()); err != nil {
		s.logger.Error("Failed to record last check time", zap.Error(err))
	}

	var newAlerts []watch.Order
	for _, order := range qualifying {
		if _, seen := notified[order.OrderNo()]; !seen {
			newAlerts = append(newAlerts, order)
		}
	}

	s.logger.Info("Poll cycle inspected orders",
		zap.String("cycle_id", result.ID.String()),
		zap.Int("orders_checked", result.OrdersChecked),
		zap.Int("cancel_requested", result.CancelRequested),
		zap.Int("newly_detected", len(newAlerts)),
	)

	for _, order := range newAlerts {
		orderNo := order.OrderNo()
		alert := watch.CancellationAlert{OrderNo: orderNo, TotalPrice: order.TotalPrice()}
		if err := s.notifier.Notify(ctx, alert); err != nil {
			// The order is still recorded as notified: retrying against a
			// persistently denied notification permission every cycle would
			// only repeat the failure.
			s.logger.Error("Failed to display notification",
				zap.String("order_no", orderNo),
				zap.Error(err),
			)
		}
		result.NewlyNotified = append(result.NewlyNotified, orderNo)
	}

	if len(result.NewlyNotified) > 0 {
		if err := s.store.MarkNotified(ctx, result.NewlyNotified, s.now()); err != nil {
			s.logger.Error("Failed to persist notified history", zap.Error(err))
			result.Status = CycleStatusCompleted
			return result, err
		}
	}

	result.Status = CycleStatusCompleted
	return result, nil
}

// collectOrders pages through the order listing for the lookback window,
// stopping on the short-page signal, the page ceiling or the order ceiling.
func (s *Service) collectOrders(ctx context.Context, token string, from, to time.Time) []watch.Order {
	var orders []watch.Order
	for page := 1; page <= s.config.MaxPages; page++ {
		orderPage, err := s.api.ListOrders(ctx, token, from, to, page)
		if err != nil {
			s.logger.Warn("Order listing failed; continuing with accumulated pages",
				zap.Int("page", page),
				zap.Error(err),
			)
			break
		}
		orders = append(orders, orderPage.Orders...)
		if !orderPage.HasMore || len(orders) >= s.config.MaxOrders {
			break
		}
	}
	// Never inspect more orders than the ceiling, even if pagination
	// over-fetched.
	if len(orders) > s.config.MaxOrders {
		orders = orders[:s.config.MaxOrders]
	}
	return orders
}

// inspectOrders fetches line items order by order (sequentially, to cap
// concurrent load on the platform) and returns the orders with at least one
// cancellation-requested item. A single order's failure is logged and skipped.
func (s *Service) inspectOrders(ctx context.Context, token string, orders []watch.Order, result *CycleResult) []watch.Order {
	var qualifying []watch.Order
	for i, order := range orders {
		orderNo := order.OrderNo()
		if orderNo == "" {
			continue
		}

		items, err := s.api.ListLineItems(ctx, token, orderNo)
		if err != nil {
			result.FailedOrders++
			s.logger.Warn("Failed to fetch line items; skipping order",
				zap.String("order_no", orderNo),
				zap.Error(err),
			)
			continue
		}

		if i < s.config.DebugOrders {
			for j, item := range items {
				s.logger.Debug("Line item claim fields",
					zap.String("order_no", orderNo),
					zap.Int("item", j+1),
					zap.Any("fields", item.ClaimFields()),
				)
			}
		}

		if watch.HasCancellationRequest(items) {
			qualifying = append(qualifying, order)
		}
	}
	return qualifying
}

// History returns the most recent cycle results, newest first.
func (s *Service) History(limit int) []*CycleResult {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	result := make([]*CycleResult, limit)
	copy(result, s.history[:limit])
	return result
}

// addToHistory adds a completed cycle to the bounded history ring
func (s *Service) addToHistory(result *CycleResult) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*CycleResult{result}, s.history...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}
