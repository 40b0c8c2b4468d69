package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/opencourse-api/internal/config"
	"github.com/noah-isme/opencourse-api/internal/database"
	"github.com/noah-isme/opencourse-api/internal/dto"
	"github.com/noah-isme/opencourse-api/internal/handler"
	"github.com/noah-isme/opencourse-api/internal/middleware"
	"github.com/noah-isme/opencourse-api/internal/models"
	"github.com/noah-isme/opencourse-api/internal/repository"
	"github.com/noah-isme/opencourse-api/internal/router"
	"github.com/noah-isme/opencourse-api/internal/service"
	"github.com/noah-isme/opencourse-api/pkg/localstore"
)

const testSecret = "router-test-secret"

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	blobs *localstore.Store
}

func setupApp(t *testing.T) testEnv {
	t.Helper()

	db, err := database.Connect(fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	cfg := config.Config{AppName: "OpenCourse Test", AppEnv: "test", JWTSecret: testSecret, StorageDriver: config.StorageDriverLocal}
	activity := config.ActivityConfig{
		Resource:    config.ResourceActivity{Add: 10, Delete: -5, Like: 2, Unlike: -1, Dislike: -1, Undislike: 1},
		Interaction: config.InteractionActivity{Add: 10, Delete: -5, Like: 2, Unlike: -1, Dislike: -1, Undislike: 1, Rate: 1},
	}

	store := repository.NewStore(db)
	accumulator := service.NewActivityAccumulator(service.NewScoreTable(activity))
	blobs := localstore.NewWithFs(afero.NewMemMapFs(), logger)
	cache := service.NewEngagementCache(nil, time.Minute, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ResourceHandler:    handler.NewResourceHandler(service.NewResourceService(store, blobs, accumulator, nil, validate, 5, logger), logger),
		InteractionHandler: handler.NewInteractionHandler(service.NewInteractionService(store, accumulator, nil, validate, logger), logger),
		EngagementHandler:  handler.NewEngagementHandler(service.NewEngagementService(store, accumulator, cache, nil, logger), logger),
		HistoryHandler:     handler.NewHistoryHandler(service.NewHistoryService(store), logger),
		JWTMiddleware:      middleware.JWTProtected(testSecret),
		HealthProbes:       map[string]handler.Probe{"database": sqlDB.PingContext},
	})

	return testEnv{app: app, db: db, blobs: blobs}
}

func token(t *testing.T, userID uint, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  fmt.Sprint(userID),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func decode[T any](t *testing.T, resp *http.Response, target *T) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

func (e testEnv) do(t *testing.T, method, path, auth string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e testEnv) upload(t *testing.T, courseID uint, auth string) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("name", "Lecture notes"))
	require.NoError(t, writer.WriteField("resource_type", "note"))
	part, err := writer.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("week one: pointers"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/resources", courseID), body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", auth)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupApp(t)

	resp := env.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var health envelope[handler.HealthResponse]
	decode(t, resp, &health)
	require.Equal(t, "ok", health.Data.Status)
	require.Equal(t, config.StorageDriverLocal, health.Data.Storage)
	require.Equal(t, "ok", health.Data.Dependencies["database"])
	require.WithinDuration(t, time.Now().UTC(), health.Data.Timestamp, 2*time.Second)

	resp = env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestResourceEngagementEndToEnd(t *testing.T) {
	env := setupApp(t)

	uploader := models.User{Name: "ana", Email: "ana@example.com", Role: models.UserRoleUser}
	reader := models.User{Name: "ben", Email: "ben@example.com", Role: models.UserRoleUser}
	require.NoError(t, env.db.Create(&uploader).Error)
	require.NoError(t, env.db.Create(&reader).Error)
	department := models.Department{Name: "Physics"}
	require.NoError(t, env.db.Create(&department).Error)
	course := models.Course{Code: "PH1", Name: "Mechanics", DepartmentID: department.ID}
	require.NoError(t, env.db.Create(&course).Error)

	uploaderAuth := token(t, uploader.ID, "user")
	readerAuth := token(t, reader.ID, "user")

	// No token, no access.
	resp := env.do(t, http.MethodGet, "/api/v1/users/me/history", "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = env.upload(t, course.ID, uploaderAuth)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created envelope[dto.ResourceResponse]
	decode(t, resp, &created)
	require.Equal(t, "text", created.Data.FileType)
	exists, err := env.blobs.Exists(created.Data.FilePath)
	require.NoError(t, err)
	require.True(t, exists)

	likePath := fmt.Sprintf("/api/v1/resources/%d/like", created.Data.ID)
	dislikePath := fmt.Sprintf("/api/v1/resources/%d/dislike", created.Data.ID)

	resp = env.do(t, http.MethodPost, dislikePath, readerAuth)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodPost, likePath, readerAuth)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var liked envelope[dto.EngagementResponse]
	decode(t, resp, &liked)
	require.True(t, liked.Data.Liked)
	require.False(t, liked.Data.Disliked)
	require.Equal(t, 1, liked.Data.Likes)
	require.Equal(t, 0, liked.Data.Dislikes)

	resp = env.do(t, http.MethodPost, likePath, readerAuth)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/resources/%d/engagement", created.Data.ID), readerAuth)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var status envelope[dto.EngagementStatusResponse]
	decode(t, resp, &status)
	require.True(t, status.Data.Liked)

	resp = env.do(t, http.MethodGet, "/api/v1/users/me/history", readerAuth)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var history envelope[[]dto.HistoryResponse]
	decode(t, resp, &history)
	actions := make([]string, 0, len(history.Data))
	for _, entry := range history.Data {
		actions = append(actions, entry.Action)
	}
	require.Equal(t, []string{"LIKE_RESOURCE", "UNDISLIKE_RESOURCE", "DISLIKE_RESOURCE"}, actions)

	var stored models.User
	require.NoError(t, env.db.First(&stored, uploader.ID).Error)
	// upload +10, dislike -1, undislike +1, like +2
	require.Equal(t, 12, stored.Activity)

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/resources/%d", created.Data.ID), readerAuth)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/resources/%d", created.Data.ID), uploaderAuth)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	exists, err = env.blobs.Exists(created.Data.FilePath)
	require.NoError(t, err)
	require.False(t, exists)

	resp = env.do(t, http.MethodPost, likePath, readerAuth)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
