package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/opencourse-api/internal/dto"
	"github.com/noah-isme/opencourse-api/internal/handler"
	"github.com/noah-isme/opencourse-api/internal/service"
)

type mockHistoryService struct {
	lastUser uint
	entries  []dto.HistoryResponse
	err      error
}

func (m *mockHistoryService) List(_ context.Context, userID uint) ([]dto.HistoryResponse, error) {
	m.lastUser = userID
	return m.entries, m.err
}

func TestHistoryHandler_ListsCallerLedger(t *testing.T) {
	svc := &mockHistoryService{entries: []dto.HistoryResponse{
		{ID: 2, Action: "LIKE_RESOURCE", Timestamp: time.Now()},
		{ID: 1, Action: "VIEW_RESOURCE", Timestamp: time.Now()},
	}}
	app := fiber.New()
	withIdentity(app, 12, "visitor")
	handler.NewHistoryHandler(svc, testLogger()).Register(app.Group("/api/v1"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/users/me/history", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(12), svc.lastUser)

	var body envelope
	decodeResponse(t, resp, &body)
	var entries []dto.HistoryResponse
	require.NoError(t, json.Unmarshal(body.Data, &entries))
	require.Len(t, entries, 2)
	require.Equal(t, "LIKE_RESOURCE", entries[0].Action)
}

func TestHistoryHandler_UnknownUser(t *testing.T) {
	app := fiber.New()
	withIdentity(app, 12, "user")
	handler.NewHistoryHandler(&mockHistoryService{err: service.ErrUserNotFound}, testLogger()).Register(app.Group("/api/v1"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/users/me/history", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
