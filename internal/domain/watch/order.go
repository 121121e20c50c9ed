package watch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ClaimStatusCancelRequest is the claim-status value meaning the buyer has
// requested a cancellation and it awaits seller approval.
const ClaimStatusCancelRequest = "CANCEL_REQUEST"

// Order is an order as returned by the imweb shop API. The API does not
// guarantee a stable field set, so the raw decoded object is kept and the
// fields we care about are read through accessors that tolerate both
// snake_case and camelCase key variants.
type Order struct {
	Raw map[string]any
}

// OrderNo returns the order number as a string. The API returns it either as
// a string or a number, under order_no or orderNo. Empty string when absent.
func (o Order) OrderNo() string {
	return coerceString(firstPresent(o.Raw, "order_no", "orderNo"))
}

// TotalPrice returns the order total for display. Zero when the field is
// absent or unparseable.
func (o Order) TotalPrice() decimal.Decimal {
	raw := coerceString(firstPresent(o.Raw, "total_price", "totalPrice", "payment"))
	if raw == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return price
}

// LineItem is a single prod-order (line item) of an order.
type LineItem struct {
	Raw map[string]any
}

// ClaimStatus returns the line item's claim-status value, read from
// claim_status with claimStatus as the fallback key. Empty string when absent.
func (li LineItem) ClaimStatus() string {
	return coerceString(firstPresent(li.Raw, "claim_status", "claimStatus"))
}

// IsCancellationRequest reports whether this line item's claim status equals
// the cancellation-request sentinel, case-insensitively. A missing claim
// status is never a cancellation request.
func (li LineItem) IsCancellationRequest() bool {
	return strings.ToUpper(strings.TrimSpace(li.ClaimStatus())) == ClaimStatusCancelRequest
}

// ClaimFields returns the raw fields whose key mentions claim, status or
// cancel. Used for debug logging when verifying what the platform actually
// sends for cancellation-requested items.
func (li LineItem) ClaimFields() map[string]any {
	fields := make(map[string]any)
	for k, v := range li.Raw {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "claim") || strings.Contains(lower, "status") || strings.Contains(lower, "cancel") {
			fields[k] = v
		}
	}
	return fields
}

// HasCancellationRequest reports whether at least one line item is in the
// cancellation-requested claim state.
func HasCancellationRequest(items []LineItem) bool {
	for _, item := range items {
		if item.IsCancellationRequest() {
			return true
		}
	}
	return false
}

// firstPresent returns the first non-nil value among the given keys.
func firstPresent(raw map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// coerceString converts a decoded JSON value to a string. JSON numbers decode
// as float64; integral order numbers must not render with an exponent or a
// trailing fraction.
func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
