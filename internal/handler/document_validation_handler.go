package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-proof-api/internal/dto"
	"github.com/noah-isme/gema-proof-api/internal/middleware"
	"github.com/noah-isme/gema-proof-api/internal/service"
	"github.com/noah-isme/gema-proof-api/internal/utils"
)

const corsAllowHeaders = "authorization, x-client-info, apikey, content-type"

// DocumentValidationHandler exposes the proof-of-work validation endpoints.
type DocumentValidationHandler struct {
	service  service.DocumentValidationService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewDocumentValidationHandler constructs the handler.
func NewDocumentValidationHandler(svc service.DocumentValidationService, validate *validator.Validate, logger zerolog.Logger) *DocumentValidationHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &DocumentValidationHandler{
		service:  svc,
		validate: validate,
		logger:   logger.With().Str("component", "document_validation_handler").Logger(),
	}
}

// Register wires the validation trigger and its preflight route.
func (h *DocumentValidationHandler) Register(router fiber.Router, middlewares ...fiber.Handler) {
	router.Options("", h.preflight)
	handlers := append(append([]fiber.Handler{}, middlewares...), h.validateDocument)
	router.Post("", handlers...)
}

// RegisterStatus wires the read-only material status route.
func (h *DocumentValidationHandler) RegisterStatus(router fiber.Router) {
	router.Get("/:id", h.materialStatus)
}

func (h *DocumentValidationHandler) preflight(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
	c.Set(fiber.HeaderAccessControlAllowMethods, "POST,OPTIONS")
	return c.Status(fiber.StatusOK).SendString("ok")
}

func (h *DocumentValidationHandler) validateDocument(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	var payload dto.ValidateDocumentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendErrorBody(c, fiber.StatusBadRequest, "Invalid request body")
	}
	payload.MaterialID = strings.TrimSpace(payload.MaterialID)

	if err := h.validate.Struct(payload); err != nil {
		if payload.MaterialID == "" {
			return utils.SendErrorBody(c, fiber.StatusBadRequest, "materialId is required")
		}
		return utils.SendErrorBody(c, fiber.StatusBadRequest, "materialId must be a valid UUID")
	}

	ctx := middleware.ContextWithCorrelation(c.UserContext(), middleware.GetCorrelationID(c))
	result, err := h.service.Validate(ctx, payload.MaterialID)
	if err != nil {
		status := validationErrorStatus(err)
		message := validationErrorMessage(err)
		event := logger.Warn()
		if status >= fiber.StatusInternalServerError {
			event = logger.Error()
		}
		event.Err(err).Str("material_id", payload.MaterialID).Int("status", status).Msg("document validation failed")
		return utils.SendErrorBody(c, status, message)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *DocumentValidationHandler) materialStatus(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.validate.Var(id, "required,uuid"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid material id")
	}

	resp, err := h.service.GetMaterialStatus(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrMaterialNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "material not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Str("material_id", id).Msg("load material status")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load material")
	}

	return utils.SendSuccess(c, "material status retrieved", resp)
}

func validationErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrMaterialNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrUnsupportedExtension),
		errors.Is(err, service.ErrContentMismatch),
		errors.Is(err, service.ErrFileTooLarge):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrValidationInProgress):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrInferenceTimeout):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func validationErrorMessage(err error) string {
	var failure *service.ValidationFailure
	if errors.As(err, &failure) {
		return failure.Message
	}
	switch {
	case errors.Is(err, service.ErrValidationInProgress):
		return "Validation is already running for this material"
	case errors.Is(err, service.ErrVerifierUnavailable):
		return "AI validation is not configured"
	default:
		return "Internal server error"
	}
}
