package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellerscope/sellerscope/internal/api/handlers"
	"github.com/sellerscope/sellerscope/internal/quota"
	"github.com/sellerscope/sellerscope/internal/refresh"
	"github.com/sellerscope/sellerscope/internal/store"
)

func newRefreshAPI(t *testing.T, mr *mockRefresher) humatest.TestAPI {
	t.Helper()
	h := handlers.NewRefreshHandler(mr)
	_, api := humatest.New(t)
	handlers.RegisterRefreshRoutes(api, h)
	return api
}

func refreshBody() map[string]any {
	return map[string]any{
		"keyword":     "garlic press",
		"marketplace": "us",
		"user_id":     "user-1",
	}
}

func TestRequestRefresh_Accepted(t *testing.T) {
	t.Parallel()

	resetsAt := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	mr := &mockRefresher{}
	mr.On("RequestManual", mock.Anything, "garlic press", "us", "user-1").
		Return("queue-id-1", quota.Status{
			Allowed:   true,
			Limit:     10,
			Used:      4,
			Remaining: 6,
			ResetsAt:  resetsAt,
		}, nil)

	api := newRefreshAPI(t, mr)
	resp := api.Post("/api/v1/refresh", refreshBody())
	require.Equal(t, http.StatusAccepted, resp.Code)

	body := resp.Body.String()
	assert.Contains(t, body, `"queue_id":"queue-id-1"`)
	assert.Contains(t, body, `"quota_remaining":6`)
	assert.Contains(t, body, "2026-08-25T00:00:00Z")
	mr.AssertExpectations(t)
}

func TestRequestRefresh_QuotaExceeded(t *testing.T) {
	t.Parallel()

	status := quota.Status{
		Allowed:  false,
		Limit:    10,
		Used:     10,
		ResetsAt: time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
	}

	mr := &mockRefresher{}
	mr.On("RequestManual", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", status, &refresh.QuotaExceededError{Status: status})

	api := newRefreshAPI(t, mr)
	resp := api.Post("/api/v1/refresh", refreshBody())
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Contains(t, resp.Body.String(), "quota exceeded")
	assert.Contains(t, resp.Body.String(), "2026-08-25T00:00:00Z")
}

func TestRequestRefresh_QueueUnavailable(t *testing.T) {
	t.Parallel()

	mr := &mockRefresher{}
	mr.On("RequestManual", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", quota.Status{}, store.ErrQueueUnavailable)

	api := newRefreshAPI(t, mr)
	resp := api.Post("/api/v1/refresh", refreshBody())
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestRequestRefresh_InvalidKeyword(t *testing.T) {
	t.Parallel()

	mr := &mockRefresher{}
	mr.On("RequestManual", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", quota.Status{}, refresh.ErrInvalidKeyword)

	api := newRefreshAPI(t, mr)
	resp := api.Post("/api/v1/refresh", map[string]any{
		"keyword":     "   ",
		"marketplace": "us",
		"user_id":     "user-1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestRequestRefresh_MissingFieldsRejected(t *testing.T) {
	t.Parallel()

	api := newRefreshAPI(t, &mockRefresher{})
	resp := api.Post("/api/v1/refresh", map[string]any{"keyword": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}
