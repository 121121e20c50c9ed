package imweb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(&Config{APIBaseURL: server.URL, TimeoutSeconds: 5}, zap.NewNop())
}

// ---------------------------------------------------------------------------
// Authenticate
// ---------------------------------------------------------------------------

func TestClient_Authenticate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth", r.URL.Path)
			assert.Equal(t, "my-key", r.URL.Query().Get("key"))
			assert.Equal(t, "my-secret", r.URL.Query().Get("secret"))
			fmt.Fprint(w, `{"code":200,"access_token":"tok-123"}`)
		})

		token, err := client.Authenticate(context.Background(), "my-key", "my-secret")
		require.NoError(t, err)
		assert.Equal(t, "tok-123", token)
	})

	t.Run("rejected credentials yield empty token, not error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"code":401,"msg":"invalid secret"}`)
		})

		token, err := client.Authenticate(context.Background(), "k", "bad")
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("code 200 without token yields empty token", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"code":200}`)
		})

		token, err := client.Authenticate(context.Background(), "k", "s")
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("malformed body yields empty token", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html>gateway error</html>`)
		})

		token, err := client.Authenticate(context.Background(), "k", "s")
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("transport failure is an error", func(t *testing.T) {
		client := NewClient(&Config{APIBaseURL: "http://127.0.0.1:1", TimeoutSeconds: 1}, zap.NewNop())

		_, err := client.Authenticate(context.Background(), "k", "s")
		assert.Error(t, err)
	})
}

// ---------------------------------------------------------------------------
// ListOrders
// ---------------------------------------------------------------------------

func TestClient_ListOrders(t *testing.T) {
	from := time.Unix(1700000000, 0)
	to := time.Unix(1700604800, 0)

	t.Run("sends window, page and token", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/shop/orders", r.URL.Path)
			assert.Equal(t, "tok", r.Header.Get("access-token"))
			assert.Equal(t, "1700000000", r.URL.Query().Get("order_date_from"))
			assert.Equal(t, "1700604800", r.URL.Query().Get("order_date_to"))
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			fmt.Fprint(w, `{"code":200,"data":{"list":[{"order_no":"1001"}]}}`)
		})

		page, err := client.ListOrders(context.Background(), "tok", from, to, 2)
		require.NoError(t, err)
		require.Len(t, page.Orders, 1)
		assert.Equal(t, "1001", page.Orders[0].OrderNo())
		assert.False(t, page.HasMore)
	})

	t.Run("envelope shape tolerance", func(t *testing.T) {
		shapes := []struct {
			name string
			body string
		}{
			{name: "data is bare array", body: `{"code":200,"data":[{"order_no":"1001"}]}`},
			{name: "data.list", body: `{"code":200,"data":{"list":[{"order_no":"1001"}]}}`},
			{name: "data.orders", body: `{"code":200,"data":{"orders":[{"order_no":"1001"}]}}`},
			{name: "data.items", body: `{"code":200,"data":{"items":[{"order_no":"1001"}]}}`},
			{name: "data.data", body: `{"code":200,"data":{"data":[{"order_no":"1001"}]}}`},
			{name: "list on envelope root", body: `{"code":200,"list":[{"order_no":"1001"}]}`},
		}

		for _, tt := range shapes {
			t.Run(tt.name, func(t *testing.T) {
				client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
					fmt.Fprint(w, tt.body)
				})

				page, err := client.ListOrders(context.Background(), "tok", from, to, 1)
				require.NoError(t, err)
				require.Len(t, page.Orders, 1)
				assert.Equal(t, "1001", page.Orders[0].OrderNo())
			})
		}
	})

	t.Run("full page signals more", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"code":200,"data":{"list":[`)
			for i := 0; i < 100; i++ {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"order_no":"%d"}`, i)
			}
			fmt.Fprint(w, `]}}`)
		})

		page, err := client.ListOrders(context.Background(), "tok", from, to, 1)
		require.NoError(t, err)
		assert.Len(t, page.Orders, 100)
		assert.True(t, page.HasMore)
	})

	t.Run("non-200 code yields empty page, not error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"code":500,"msg":"boom"}`)
		})

		page, err := client.ListOrders(context.Background(), "tok", from, to, 1)
		require.NoError(t, err)
		assert.Empty(t, page.Orders)
		assert.False(t, page.HasMore)
	})
}

// ---------------------------------------------------------------------------
// ListLineItems
// ---------------------------------------------------------------------------

func TestClient_ListLineItems(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/shop/orders/1001/prod-orders", r.URL.Path)
			assert.Equal(t, "tok", r.Header.Get("access-token"))
			fmt.Fprint(w, `{"code":200,"data":{"items":[{"claim_status":"CANCEL_REQUEST"},{"claim_status":"NONE"}]}}`)
		})

		items, err := client.ListLineItems(context.Background(), "tok", "1001")
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.True(t, items[0].IsCancellationRequest())
		assert.False(t, items[1].IsCancellationRequest())
	})

	t.Run("missing data yields empty, not error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"code":200}`)
		})

		items, err := client.ListLineItems(context.Background(), "tok", "1001")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("non-200 code yields empty, not error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"code":404,"msg":"no such order"}`)
		})

		items, err := client.ListLineItems(context.Background(), "tok", "missing")
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}
