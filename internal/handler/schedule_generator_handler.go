package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-scheduler/internal/dto"
	"github.com/noah-isme/class-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/class-scheduler/pkg/errors"
	"github.com/noah-isme/class-scheduler/pkg/response"
)

type scheduleGenerator interface {
	Validate(ctx context.Context, req dto.ValidateScheduleRequest) (*scheduler.ValidationResult, error)
	Generate(ctx context.Context, req dto.GenerateScheduleRequest, actor string) (*dto.GenerateScheduleResponse, error)
}

// ScheduleGeneratorHandler exposes the pre-flight check and proposal generation.
type ScheduleGeneratorHandler struct {
	service scheduleGenerator
}

// NewScheduleGeneratorHandler constructs the handler.
func NewScheduleGeneratorHandler(svc scheduleGenerator) *ScheduleGeneratorHandler {
	return &ScheduleGeneratorHandler{service: svc}
}

// Validate godoc
// @Summary Validate a scheduling scope
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.ValidateScheduleRequest true "Scope"
// @Success 200 {object} response.Envelope
// @Router /scheduler/validate [post]
func (h *ScheduleGeneratorHandler) Validate(c *gin.Context) {
	var req dto.ValidateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid validation payload"))
		return
	}
	result, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Generate godoc
// @Summary Generate a schedule proposal
// @Description Responds 201 with a pending proposal, or 422 with the validation that blocked generation.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generation options"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /scheduler/generate [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generator payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Mode == dto.GenerateModeBlocked {
		response.JSON(c, http.StatusUnprocessableEntity, result, nil)
		return
	}
	response.Created(c, result)
}
