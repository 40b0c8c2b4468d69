package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/opencourse-api/internal/dto"
	"github.com/noah-isme/opencourse-api/internal/handler"
	"github.com/noah-isme/opencourse-api/internal/models"
	"github.com/noah-isme/opencourse-api/internal/service"
)

type engagementCall struct {
	op       string
	kind     models.TargetKind
	targetID uint
	actorID  uint
}

type mockEngagementService struct {
	calls    []engagementCall
	response dto.EngagementResponse
	status   dto.EngagementStatusResponse
	err      error
}

func (m *mockEngagementService) record(op string, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error) {
	m.calls = append(m.calls, engagementCall{op: op, kind: kind, targetID: targetID, actorID: actorID})
	if m.err != nil {
		return dto.EngagementResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockEngagementService) Like(_ context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error) {
	return m.record("like", kind, targetID, actorID)
}

func (m *mockEngagementService) Unlike(_ context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error) {
	return m.record("unlike", kind, targetID, actorID)
}

func (m *mockEngagementService) Dislike(_ context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error) {
	return m.record("dislike", kind, targetID, actorID)
}

func (m *mockEngagementService) Undislike(_ context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error) {
	return m.record("undislike", kind, targetID, actorID)
}

func (m *mockEngagementService) Status(_ context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementStatusResponse, error) {
	m.calls = append(m.calls, engagementCall{op: "status", kind: kind, targetID: targetID, actorID: actorID})
	if m.err != nil {
		return dto.EngagementStatusResponse{}, m.err
	}
	return m.status, nil
}

func newEngagementApp(svc *mockEngagementService, role string) *fiber.App {
	app := fiber.New()
	withIdentity(app, 7, role)
	h := handler.NewEngagementHandler(svc, testLogger())
	h.Register(app.Group("/resources"), models.TargetResource)
	h.Register(app.Group("/interactions"), models.TargetInteraction)
	return app
}

func TestEngagementHandler_RoutesToggles(t *testing.T) {
	svc := &mockEngagementService{response: dto.EngagementResponse{TargetType: "resource", TargetID: 3, Applied: true, Liked: true, Likes: 1}}
	app := newEngagementApp(svc, "user")

	cases := []struct {
		method string
		path   string
		op     string
		kind   models.TargetKind
	}{
		{http.MethodPost, "/resources/3/like", "like", models.TargetResource},
		{http.MethodDelete, "/resources/3/like", "unlike", models.TargetResource},
		{http.MethodPost, "/interactions/3/dislike", "dislike", models.TargetInteraction},
		{http.MethodDelete, "/interactions/3/dislike", "undislike", models.TargetInteraction},
	}
	for i, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(tc.method, tc.path, nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, tc.path)
		require.Equal(t, engagementCall{op: tc.op, kind: tc.kind, targetID: 3, actorID: 7}, svc.calls[i])
	}
}

func TestEngagementHandler_RejectedToggleIsConflict(t *testing.T) {
	svc := &mockEngagementService{response: dto.EngagementResponse{
		TargetType: "resource", TargetID: 3, Applied: false, Reason: service.ReasonAlreadyLiked, Liked: true, Likes: 1,
	}}
	app := newEngagementApp(svc, "user")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/resources/3/like", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.False(t, body.Success)
	require.Equal(t, service.ReasonAlreadyLiked, body.Message)

	var details dto.EngagementResponse
	require.NoError(t, json.Unmarshal(body.Details, &details))
	require.True(t, details.Liked)
	require.Equal(t, 1, details.Likes)
}

func TestEngagementHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"missing target", service.ErrResourceNotFound, fiber.StatusNotFound},
		{"missing user", service.ErrUserNotFound, fiber.StatusNotFound},
		{"storage", service.ErrStorageFault, fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newEngagementApp(&mockEngagementService{err: tc.err}, "user")
			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/resources/3/like", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestEngagementHandler_Guards(t *testing.T) {
	svc := &mockEngagementService{}

	resp, err := newEngagementApp(svc, "user").Test(httptest.NewRequest(http.MethodPost, "/resources/abc/like", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = newEngagementApp(svc, "visitor").Test(httptest.NewRequest(http.MethodPost, "/resources/3/like", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	anonymous := fiber.New()
	handler.NewEngagementHandler(svc, testLogger()).Register(anonymous.Group("/resources"), models.TargetResource)
	resp, err = anonymous.Test(httptest.NewRequest(http.MethodPost, "/resources/3/like", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	require.Empty(t, svc.calls)
}

func TestEngagementHandler_StatusForVisitor(t *testing.T) {
	svc := &mockEngagementService{status: dto.EngagementStatusResponse{TargetType: "interaction", TargetID: 5, UserID: 7, Disliked: true}}
	app := newEngagementApp(svc, "visitor")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/interactions/5/engagement", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	var status dto.EngagementStatusResponse
	require.NoError(t, json.Unmarshal(body.Data, &status))
	require.True(t, status.Disliked)
	require.Equal(t, engagementCall{op: "status", kind: models.TargetInteraction, targetID: 5, actorID: 7}, svc.calls[0])
}
