package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appwatch "github.com/amyhong0/imweb-cancel-notification/internal/application/watch"
	"github.com/amyhong0/imweb-cancel-notification/internal/infrastructure/notify"
	"github.com/amyhong0/imweb-cancel-notification/internal/infrastructure/scheduler"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeWatchService struct {
	configured    bool
	cycleResult   *appwatch.CycleResult
	cycleErr      error
	connectionErr error
	history       []*appwatch.CycleResult
}

func (f *fakeWatchService) Configured() bool { return f.configured }

func (f *fakeWatchService) RunCycle(ctx context.Context) (*appwatch.CycleResult, error) {
	return f.cycleResult, f.cycleErr
}

func (f *fakeWatchService) TestConnection(ctx context.Context) error { return f.connectionErr }

func (f *fakeWatchService) History(limit int) []*appwatch.CycleResult { return f.history }

type fakeRescheduler struct {
	interval       int
	rescheduleErr  error
	lastRequested  int
	rescheduleUsed bool
}

func (f *fakeRescheduler) Reschedule(intervalMinutes int) (int, error) {
	f.rescheduleUsed = true
	f.lastRequested = intervalMinutes
	if f.rescheduleErr != nil {
		return 0, f.rescheduleErr
	}
	f.interval = scheduler.ClampIntervalMinutes(intervalMinutes)
	return f.interval, nil
}

func (f *fakeRescheduler) IntervalMinutes() int { return f.interval }

type fakeWatchStore struct {
	lastCheck    *time.Time
	count        int64
	clearErr     error
	clearCalled  bool
	lastCheckErr error
}

func (f *fakeWatchStore) ListNotifiedOrderNos(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeWatchStore) MarkNotified(ctx context.Context, orderNos []string, at time.Time) error {
	return nil
}

func (f *fakeWatchStore) ClearNotified(ctx context.Context) error {
	f.clearCalled = true
	return f.clearErr
}

func (f *fakeWatchStore) CountNotified(ctx context.Context) (int64, error) {
	return f.count, nil
}

func (f *fakeWatchStore) SetLastCheck(ctx context.Context, at time.Time) error { return nil }

func (f *fakeWatchStore) LastCheck(ctx context.Context) (*time.Time, error) {
	return f.lastCheck, f.lastCheckErr
}

type fakeTestNotifier struct {
	err error
}

func (f *fakeTestNotifier) SendTest(ctx context.Context) error { return f.err }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func setupWatchRouter(service *fakeWatchService, sched *fakeRescheduler, store *fakeWatchStore, notifier *fakeTestNotifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewWatchHandler(service, sched, store, notifier)
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	return w
}

func completedCycle() *appwatch.CycleResult {
	now := time.Now()
	return &appwatch.CycleResult{
		ID:              uuid.New(),
		Status:          appwatch.CycleStatusCompleted,
		StartedAt:       now.Add(-time.Second),
		CompletedAt:     now,
		OrdersChecked:   12,
		CancelRequested: 1,
		NewlyNotified:   []string{"1001"},
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestWatchHandler_GetStatus(t *testing.T) {
	lastCheck := time.Now().Add(-time.Minute)
	service := &fakeWatchService{
		configured: true,
		history:    []*appwatch.CycleResult{completedCycle()},
	}
	store := &fakeWatchStore{lastCheck: &lastCheck, count: 4}
	engine := setupWatchRouter(service, &fakeRescheduler{interval: 5}, store, &fakeTestNotifier{})

	w := doJSON(t, engine, http.MethodGet, "/api/v1/watch/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool           `json:"success"`
		Data    StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Data.Configured)
	assert.Equal(t, 5, resp.Data.IntervalMinutes)
	assert.Equal(t, int64(4), resp.Data.NotifiedCount)
	require.NotNil(t, resp.Data.LastCheckAt)
	require.Len(t, resp.Data.RecentCycles, 1)
	assert.Equal(t, "COMPLETED", resp.Data.RecentCycles[0].Status)
}

func TestWatchHandler_GetStatus_StoreFailure(t *testing.T) {
	store := &fakeWatchStore{lastCheckErr: errors.New("disk error")}
	engine := setupWatchRouter(&fakeWatchService{}, &fakeRescheduler{}, store, &fakeTestNotifier{})

	w := doJSON(t, engine, http.MethodGet, "/api/v1/watch/status", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWatchHandler_CheckNow(t *testing.T) {
	t.Run("returns the cycle summary", func(t *testing.T) {
		service := &fakeWatchService{cycleResult: completedCycle()}
		engine := setupWatchRouter(service, &fakeRescheduler{}, &fakeWatchStore{}, &fakeTestNotifier{})

		w := doJSON(t, engine, http.MethodPost, "/api/v1/watch/check-now", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data CycleSummary `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 12, resp.Data.OrdersChecked)
		assert.Equal(t, []string{"1001"}, resp.Data.NewlyNotified)
	})

	t.Run("overlapping cycle yields conflict", func(t *testing.T) {
		service := &fakeWatchService{cycleErr: appwatch.ErrCycleAlreadyRunning}
		engine := setupWatchRouter(service, &fakeRescheduler{}, &fakeWatchStore{}, &fakeTestNotifier{})

		w := doJSON(t, engine, http.MethodPost, "/api/v1/watch/check-now", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("other failures yield 500", func(t *testing.T) {
		service := &fakeWatchService{cycleErr: errors.New("store unavailable")}
		engine := setupWatchRouter(service, &fakeRescheduler{}, &fakeWatchStore{}, &fakeTestNotifier{})

		w := doJSON(t, engine, http.MethodPost, "/api/v1/watch/check-now", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestWatchHandler_Reschedule(t *testing.T) {
	t.Run("clamps and echoes the effective interval", func(t *testing.T) {
		sched := &fakeRescheduler{}
		engine := setupWatchRouter(&fakeWatchService{}, sched, &fakeWatchStore{}, &fakeTestNotifier{})

		w := doJSON(t, engine, http.MethodPost, "/api/v1/watch/reschedule", gin.H{"interval_minutes": 999999})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data RescheduleResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, scheduler.MaxIntervalMinutes, resp.Data.IntervalMinutes)
		assert.Equal(t, 999999, sched.lastRequested)
	})

	t.Run("zero is clamped up, not rejected", func(t *testing.T) {
		sched := &fakeRescheduler{}
		engine := setupWatchRouter(&fakeWatchService{}, sched, &fakeWatchStore{}, &fakeTestNotifier{})

		w := doJSON(t, engine, http.MethodPost, "/api/v1/watch/reschedule", gin.H{"interval_minutes": 0})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data RescheduleResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, scheduler.MinIntervalMinutes, resp.Data.IntervalMinutes)
	})

	t.Run("missing interval is a bad request", func(t *testing.T) {
		sched := &fakeRescheduler{}
		engine := setupWatchRouter(&fakeWatchService{}, sched, &fakeWatchStore{}, &fakeTestNotifier{})

		w := doJSON(t, engine, http.MethodPost, "/api/v1/watch/reschedule", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, sched.rescheduleUsed)
	})

	t.Run("stopped scheduler yields conflict", func(t *testing.T) {
		sched := &fakeRescheduler{rescheduleErr: scheduler.ErrSchedulerNotRunning}
		engine := setupWatchRouter(&fakeWatchService{}, sched, &fakeWatchStore{}, &fakeTestNotifier{})

		w := doJSON(t, engine, http.MethodPost, "/api/v1/watch/reschedule", gin.H{"interval_minutes": 5})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestWatchHandler_TestNotification(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		engine := setupWatchRouter(&fakeWatchService{}, &fakeRescheduler{}, &fakeWatchStore{}, &fakeTestNotifier{})
		w := doJSON(t, engine, http.MethodPost, "/api/v1/watch/test-notification", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("timeout maps to gateway timeout", func(t *testing.T) {
		notifier := &fakeTestNotifier{err: notify.ErrNotificationTimeout}
		engine := setupWatchRouter(&fakeWatchService{}, &fakeRescheduler{}, &fakeWatchStore{}, notifier)

		w := doJSON(t, engine, http.MethodPost, "/api/v1/watch/test-notification", nil)
		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	})

	t.Run("display failure maps to 500", func(t *testing.T) {
		notifier := &fakeTestNotifier{err: errors.New("dbus unavailable")}
		engine := setupWatchRouter(&fakeWatchService{}, &fakeRescheduler{}, &fakeWatchStore{}, notifier)

		w := doJSON(t, engine, http.MethodPost, "/api/v1/watch/test-notification", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestWatchHandler_TestConnection(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"accepted", nil, http.StatusOK},
		{"unconfigured", appwatch.ErrNotConfigured, http.StatusUnprocessableEntity},
		{"rejected", appwatch.ErrAuthRejected, http.StatusUnauthorized},
		{"unreachable", errors.New("connection refused"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &fakeWatchService{connectionErr: tt.err}
			engine := setupWatchRouter(service, &fakeRescheduler{}, &fakeWatchStore{}, &fakeTestNotifier{})

			w := doJSON(t, engine, http.MethodPost, "/api/v1/watch/test-connection", nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestWatchHandler_ClearHistory(t *testing.T) {
	t.Run("clears and returns no content", func(t *testing.T) {
		store := &fakeWatchStore{}
		engine := setupWatchRouter(&fakeWatchService{}, &fakeRescheduler{}, store, &fakeTestNotifier{})

		w := doJSON(t, engine, http.MethodDelete, "/api/v1/watch/history", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.True(t, store.clearCalled)
	})

	t.Run("store failure yields 500", func(t *testing.T) {
		store := &fakeWatchStore{clearErr: errors.New("disk error")}
		engine := setupWatchRouter(&fakeWatchService{}, &fakeRescheduler{}, store, &fakeTestNotifier{})

		w := doJSON(t, engine, http.MethodDelete, "/api/v1/watch/history", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
