package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/opencourse-api/internal/middleware"
	"github.com/noah-isme/opencourse-api/internal/service"
	"github.com/noah-isme/opencourse-api/internal/utils"
)

// HistoryHandler serves the caller's activity ledger.
type HistoryHandler struct {
	service service.HistoryService
	logger  zerolog.Logger
}

// NewHistoryHandler constructs a history handler.
func NewHistoryHandler(service service.HistoryService, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  logger.With().Str("component", "history_handler").Logger(),
	}
}

// Register wires history routes.
func (h *HistoryHandler) Register(router fiber.Router) {
	router.Get("/users/me/history", middleware.WithAuth(h.list, middleware.AuthOptions{RequireUser: true}))
}

func (h *HistoryHandler) list(c *fiber.Ctx) error {
	entries, err := h.service.List(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load history")
	}

	return utils.OK(c, entries, "history retrieved", fiber.Map{"count": len(entries)})
}
