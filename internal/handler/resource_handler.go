package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/opencourse-api/internal/dto"
	"github.com/noah-isme/opencourse-api/internal/middleware"
	"github.com/noah-isme/opencourse-api/internal/service"
	"github.com/noah-isme/opencourse-api/internal/utils"
)

// ResourceHandler manages course material uploads.
type ResourceHandler struct {
	service service.ResourceService
	logger  zerolog.Logger
}

// NewResourceHandler constructs a resource handler.
func NewResourceHandler(service service.ResourceService, logger zerolog.Logger) *ResourceHandler {
	return &ResourceHandler{
		service: service,
		logger:  logger.With().Str("component", "resource_handler").Logger(),
	}
}

// Register wires resource routes onto the versioned API group.
func (h *ResourceHandler) Register(router fiber.Router, uploadLimiter fiber.Handler) {
	contributor := middleware.AuthOptions{Role: middleware.AuthRoleUser}
	reader := middleware.AuthOptions{RequireUser: true}

	if uploadLimiter == nil {
		uploadLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	router.Post("/courses/:courseId/resources", uploadLimiter, middleware.WithAuth(h.create, contributor))
	router.Get("/courses/:courseId/resources", middleware.WithAuth(h.listByCourse, reader))
	router.Get("/users/me/resources", middleware.WithAuth(h.listMine, reader))
	router.Get("/resources/:id", middleware.WithAuth(h.get, reader))
	router.Get("/resources/:id/file", middleware.WithAuth(h.download, reader))
	router.Delete("/resources/:id", middleware.WithAuth(h.delete, contributor))
}

func (h *ResourceHandler) create(c *fiber.Ctx) error {
	courseID, err := parseIDParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ResourceUploadRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid form payload")
	}
	payload.CourseID = courseID

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrFileRequired.Error())
	}

	result, err := h.service.Add(c.UserContext(), payload, file, userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to upload resource")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "resource uploaded", result)
}

func (h *ResourceHandler) listByCourse(c *fiber.Ctx) error {
	courseID, err := parseIDParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resources, err := h.service.ListByCourse(c.UserContext(), courseID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list resources")
	}

	return utils.OK(c, resources, "resources retrieved", fiber.Map{"count": len(resources)})
}

func (h *ResourceHandler) listMine(c *fiber.Ctx) error {
	resources, err := h.service.ListByUser(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list resources")
	}

	return utils.OK(c, resources, "resources retrieved", fiber.Map{"count": len(resources)})
}

func (h *ResourceHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resource, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load resource")
	}

	return utils.SendSuccess(c, "resource retrieved", resource)
}

func (h *ResourceHandler) download(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	stream, err := h.service.View(c.UserContext(), id, userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to open resource")
	}

	c.Attachment(stream.FileName)
	return c.SendStream(stream.Body)
}

func (h *ResourceHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id, userIDFromContext(c)); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete resource")
	}

	return utils.SendSuccess(c, "resource deleted", nil)
}
