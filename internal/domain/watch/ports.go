package watch

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderPage is one page of an order listing. HasMore is a heuristic
// continuation signal: true iff the page came back full-sized.
type OrderPage struct {
	Orders  []Order
	HasMore bool
}

// OrderAPI is the imweb shop API surface the watcher consumes.
type OrderAPI interface {
	// Authenticate exchanges an API key pair for an access token. Returns an
	// empty token (not an error) when the platform rejects the credentials;
	// errors are reserved for transport failures.
	Authenticate(ctx context.Context, apiKey, apiSecret string) (string, error)

	// ListOrders lists orders placed within [from, to], one page at a time.
	ListOrders(ctx context.Context, accessToken string, from, to time.Time, page int) (OrderPage, error)

	// ListLineItems lists the prod-orders of a single order.
	ListLineItems(ctx context.Context, accessToken, orderNo string) ([]LineItem, error)
}

// Store is the durable record of which orders have already been notified,
// plus the last-check timestamp shown in the status view.
type Store interface {
	ListNotifiedOrderNos(ctx context.Context) ([]string, error)
	MarkNotified(ctx context.Context, orderNos []string, at time.Time) error
	ClearNotified(ctx context.Context) error
	CountNotified(ctx context.Context) (int64, error)
	SetLastCheck(ctx context.Context, at time.Time) error
	LastCheck(ctx context.Context) (*time.Time, error)
}

// CancellationAlert carries the order data a notification references.
type CancellationAlert struct {
	OrderNo    string
	TotalPrice decimal.Decimal
}

// Notifier raises a desktop notification for a newly detected
// cancellation-requested order. Fire and forget: a display failure is the
// caller's to log, not to retry.
type Notifier interface {
	Notify(ctx context.Context, alert CancellationAlert) error
}
