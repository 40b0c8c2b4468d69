package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/opencourse-api/internal/utils"
)

func TestOKIncludesMetaAndDefaults(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		data := map[string]string{"file_path": "resources/3/notes.pdf"}
		meta := map[string]int{"count": 1}
		return utils.OK(c, data, "", meta)
	})

	resp := performRequest(t, app, http.MethodGet, "/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                   `json:"success"`
		Message string                 `json:"message"`
		Data    map[string]string      `json:"data"`
		Meta    map[string]interface{} `json:"meta"`
	}
	decode(t, resp, &payload)

	require.True(t, payload.Success)
	require.Equal(t, "success", payload.Message)
	require.Equal(t, "resources/3/notes.pdf", payload.Data["file_path"])
	require.Equal(t, float64(1), payload.Meta["count"])
}

func TestFailIncludesDetails(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		details := map[string]string{"reason": "already liked"}
		return utils.Fail(c, fiber.StatusConflict, "engagement unchanged", details)
	})

	resp := performRequest(t, app, http.MethodPost, "/")
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var payload struct {
		Success bool                   `json:"success"`
		Message string                 `json:"message"`
		Details map[string]string      `json:"details"`
		Data    map[string]interface{} `json:"data"`
	}
	decode(t, resp, &payload)

	require.False(t, payload.Success)
	require.Equal(t, "engagement unchanged", payload.Message)
	require.Equal(t, "already liked", payload.Details["reason"])
	require.Nil(t, payload.Data)
}

func TestSendSuccessWithStatusAndSendError(t *testing.T) {
	app := fiber.New()
	app.Post("/created", func(c *fiber.Ctx) error {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "", map[string]int{"id": 4})
	})
	app.Delete("/gone", func(c *fiber.Ctx) error {
		return utils.SendError(c, fiber.StatusNotFound, "")
	})

	resp := performRequest(t, app, http.MethodPost, "/created")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created utils.APIResponse
	decode(t, resp, &created)
	require.True(t, created.Success)
	require.Equal(t, "success", created.Message)

	resp = performRequest(t, app, http.MethodDelete, "/gone")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var failed utils.APIResponse
	decode(t, resp, &failed)
	require.False(t, failed.Success)
	require.Equal(t, "error", failed.Message)
	require.Nil(t, failed.Details)
}

func performRequest(t *testing.T, app *fiber.App, method, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
