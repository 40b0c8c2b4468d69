package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/opencourse-api/internal/dto"
	"github.com/noah-isme/opencourse-api/internal/middleware"
	"github.com/noah-isme/opencourse-api/internal/models"
	"github.com/noah-isme/opencourse-api/internal/service"
	"github.com/noah-isme/opencourse-api/internal/utils"
)

// EngagementHandler exposes like and dislike toggles for one kind of target.
type EngagementHandler struct {
	service service.EngagementService
	logger  zerolog.Logger
}

// NewEngagementHandler constructs an engagement handler.
func NewEngagementHandler(service service.EngagementService, logger zerolog.Logger) *EngagementHandler {
	return &EngagementHandler{
		service: service,
		logger:  logger.With().Str("component", "engagement_handler").Logger(),
	}
}

type toggleFunc func(ctx context.Context, kind models.TargetKind, targetID, actorID uint) (dto.EngagementResponse, error)

// Register wires the toggle routes under a group such as /resources or /interactions.
func (h *EngagementHandler) Register(router fiber.Router, kind models.TargetKind) {
	contributor := middleware.AuthOptions{Role: middleware.AuthRoleUser}
	router.Post("/:id/like", middleware.WithAuth(h.toggle(kind, h.service.Like), contributor))
	router.Delete("/:id/like", middleware.WithAuth(h.toggle(kind, h.service.Unlike), contributor))
	router.Post("/:id/dislike", middleware.WithAuth(h.toggle(kind, h.service.Dislike), contributor))
	router.Delete("/:id/dislike", middleware.WithAuth(h.toggle(kind, h.service.Undislike), contributor))
	router.Get("/:id/engagement", middleware.WithAuth(h.status(kind), middleware.AuthOptions{RequireUser: true}))
}

func (h *EngagementHandler) toggle(kind models.TargetKind, fn toggleFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		targetID, err := parseIDParam(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}

		result, err := fn(c.UserContext(), kind, targetID, userIDFromContext(c))
		if err != nil {
			return sendServiceError(c, h.logger, err, "failed to update engagement")
		}
		if !result.Applied {
			return utils.Fail(c, fiber.StatusConflict, result.Reason, result)
		}

		return utils.SendSuccess(c, "engagement updated", result)
	}
}

func (h *EngagementHandler) status(kind models.TargetKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		targetID, err := parseIDParam(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}

		result, err := h.service.Status(c.UserContext(), kind, targetID, userIDFromContext(c))
		if err != nil {
			return sendServiceError(c, h.logger, err, "failed to load engagement")
		}

		return utils.SendSuccess(c, "engagement retrieved", result)
	}
}
