package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/opencourse-api/internal/dto"
	"github.com/noah-isme/opencourse-api/internal/middleware"
	"github.com/noah-isme/opencourse-api/internal/service"
	"github.com/noah-isme/opencourse-api/internal/utils"
)

// InteractionHandler manages comments and ratings on courses.
type InteractionHandler struct {
	service service.InteractionService
	logger  zerolog.Logger
}

// NewInteractionHandler constructs an interaction handler.
func NewInteractionHandler(service service.InteractionService, logger zerolog.Logger) *InteractionHandler {
	return &InteractionHandler{
		service: service,
		logger:  logger.With().Str("component", "interaction_handler").Logger(),
	}
}

// Register wires interaction routes onto the versioned API group.
func (h *InteractionHandler) Register(router fiber.Router) {
	contributor := middleware.AuthOptions{Role: middleware.AuthRoleUser}
	reader := middleware.AuthOptions{RequireUser: true}

	router.Post("/courses/:courseId/interactions", middleware.WithAuth(h.create, contributor))
	router.Get("/courses/:courseId/interactions", middleware.WithAuth(h.listByCourse, reader))
	router.Get("/users/me/interactions", middleware.WithAuth(h.listMine, reader))
	router.Patch("/interactions/:id", middleware.WithAuth(h.update, contributor))
	router.Delete("/interactions/:id", middleware.WithAuth(h.delete, contributor))
}

func (h *InteractionHandler) create(c *fiber.Ctx) error {
	courseID, err := parseIDParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.InteractionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid JSON payload")
	}

	result, created, err := h.service.Add(c.UserContext(), courseID, userIDFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to save interaction")
	}

	if created {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "interaction created", result)
	}
	return utils.SendSuccess(c, "interaction updated", result)
}

func (h *InteractionHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.InteractionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid JSON payload")
	}

	result, err := h.service.Update(c.UserContext(), id, userIDFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update interaction")
	}

	return utils.SendSuccess(c, "interaction updated", result)
}

func (h *InteractionHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id, userIDFromContext(c)); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete interaction")
	}

	return utils.SendSuccess(c, "interaction deleted", nil)
}

func (h *InteractionHandler) listByCourse(c *fiber.Ctx) error {
	courseID, err := parseIDParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	interactions, err := h.service.ListByCourse(c.UserContext(), courseID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list interactions")
	}

	return utils.OK(c, interactions, "interactions retrieved", fiber.Map{"count": len(interactions)})
}

func (h *InteractionHandler) listMine(c *fiber.Ctx) error {
	interactions, err := h.service.ListByUser(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list interactions")
	}

	return utils.OK(c, interactions, "interactions retrieved", fiber.Map{"count": len(interactions)})
}
