package imweb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/amyhong0/imweb-cancel-notification/internal/domain/watch"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 4 * 1024 * 1024 // 4MB max response

// successCode is the envelope status code the API uses for success
const successCode = 200

// Client implements watch.OrderAPI against the imweb v2 API.
//
// All three operations fail soft on application-level errors: a non-200
// envelope code or a body of unexpected shape yields an empty result and a
// nil error, so that one bad response does not abort a whole poll cycle.
// Errors are returned for transport failures only.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new imweb API client
func NewClient(config *Config, logger *zap.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	config.normalize()

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}
}

// Authenticate exchanges an API key pair for an access token. The key pair is
// passed as query parameters; success is an envelope with code 200 and a
// non-empty access_token. Anything else yields an empty token.
func (c *Client) Authenticate(ctx context.Context, apiKey, apiSecret string) (string, error) {
	reqURL := fmt.Sprintf("%s/auth?key=%s&secret=%s",
		c.config.APIBaseURL, url.QueryEscape(apiKey), url.QueryEscape(apiSecret))

	body, err := c.get(ctx, reqURL, "")
	if err != nil {
		return "", err
	}

	var resp envelope
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Debug("imweb auth response is not valid JSON", zap.Error(err))
		return "", nil
	}
	if resp.Code != successCode || resp.AccessToken == "" {
		c.logger.Debug("imweb auth rejected",
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Message),
		)
		return "", nil
	}
	return resp.AccessToken, nil
}

// ListOrders lists orders placed within [from, to], one page at a time. The
// page is full-sized iff HasMore is true; that heuristic is the only
// continuation signal the API provides.
func (c *Client) ListOrders(ctx context.Context, accessToken string, from, to time.Time, page int) (watch.OrderPage, error) {
	reqURL := fmt.Sprintf("%s/shop/orders?order_date_from=%d&order_date_to=%d&limit=%d&page=%d",
		c.config.APIBaseURL, from.Unix(), to.Unix(), c.config.PageSize, page)

	body, err := c.get(ctx, reqURL, accessToken)
	if err != nil {
		return watch.OrderPage{}, err
	}

	var resp envelope
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Debug("imweb order list response is not valid JSON", zap.Error(err))
		return watch.OrderPage{}, nil
	}
	if resp.Code != successCode {
		c.logger.Debug("imweb order list rejected",
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Message),
			zap.Int("page", page),
		)
		return watch.OrderPage{}, nil
	}

	// Some deployments wrap the list in data, others put it on the envelope
	// itself.
	payload := resp.Data
	if len(payload) == 0 {
		payload = body
	}

	rawOrders := normalizeList(payload)
	orders := make([]watch.Order, 0, len(rawOrders))
	for _, raw := range rawOrders {
		orders = append(orders, watch.Order{Raw: raw})
	}

	return watch.OrderPage{
		Orders:  orders,
		HasMore: len(orders) >= c.config.PageSize,
	}, nil
}

// ListLineItems lists the prod-orders of a single order.
func (c *Client) ListLineItems(ctx context.Context, accessToken, orderNo string) ([]watch.LineItem, error) {
	reqURL := fmt.Sprintf("%s/shop/orders/%s/prod-orders",
		c.config.APIBaseURL, url.PathEscape(orderNo))

	body, err := c.get(ctx, reqURL, accessToken)
	if err != nil {
		return nil, err
	}

	var resp envelope
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Debug("imweb prod-order response is not valid JSON",
			zap.String("order_no", orderNo),
			zap.Error(err),
		)
		return nil, nil
	}
	if resp.Code != successCode || len(resp.Data) == 0 {
		c.logger.Debug("imweb prod-order list rejected",
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Message),
			zap.String("order_no", orderNo),
		)
		return nil, nil
	}

	rawItems := normalizeList(resp.Data)
	items := make([]watch.LineItem, 0, len(rawItems))
	for _, raw := range rawItems {
		items = append(items, watch.LineItem{Raw: raw})
	}
	return items, nil
}

// get performs a GET request, attaching the access-token header when a token
// is given, and returns the size-limited body.
func (c *Client) get(ctx context.Context, reqURL, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("imweb: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("access-token", accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imweb: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("imweb: failed to read response: %w", err)
	}
	return body, nil
}

// Ensure Client implements the watch.OrderAPI interface
var _ watch.OrderAPI = (*Client)(nil)
