package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-scheduler/internal/dto"
	"github.com/noah-isme/class-scheduler/internal/models"
	appErrors "github.com/noah-isme/class-scheduler/pkg/errors"
	"github.com/noah-isme/class-scheduler/pkg/response"
)

type scheduleProposalService interface {
	Get(ctx context.Context, id string) (*dto.ProposalResponse, error)
	List(ctx context.Context, query dto.ProposalListQuery) ([]dto.ProposalListItem, error)
	Apply(ctx context.Context, id string) (*dto.ApplyProposalResponse, error)
	Discard(ctx context.Context, id string) error
	Close(ctx context.Context, req dto.CloseSchedulesRequest) (*dto.CloseSchedulesResponse, error)
}

type proposalExporter interface {
	Export(ctx context.Context, id string, query dto.ExportQuery) (*dto.ExportFile, error)
}

type scheduleStatusReporter interface {
	Summary(ctx context.Context, sessionID string) (*models.ScheduleStatusSummary, error)
}

// ScheduleProposalHandler exposes proposal review, apply and the live schedule status.
type ScheduleProposalHandler struct {
	proposals scheduleProposalService
	exporter  proposalExporter
	status    scheduleStatusReporter
}

// NewScheduleProposalHandler constructs the handler.
func NewScheduleProposalHandler(proposals scheduleProposalService, exporter proposalExporter, status scheduleStatusReporter) *ScheduleProposalHandler {
	return &ScheduleProposalHandler{proposals: proposals, exporter: exporter, status: status}
}

// List godoc
// @Summary List proposals of a session
// @Tags Scheduler
// @Produce json
// @Param sessionId query string true "Session ID"
// @Param status query string false "pending, approved or rejected"
// @Success 200 {object} response.Envelope
// @Router /scheduler/proposals [get]
func (h *ScheduleProposalHandler) List(c *gin.Context) {
	var query dto.ProposalListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, err := h.proposals.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get a proposal
// @Tags Scheduler
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Router /scheduler/proposals/{id} [get]
func (h *ScheduleProposalHandler) Get(c *gin.Context) {
	proposal, err := h.proposals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposal, nil)
}

// Apply godoc
// @Summary Apply a pending proposal to the live schedule
// @Tags Scheduler
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /scheduler/proposals/{id}/apply [post]
func (h *ScheduleProposalHandler) Apply(c *gin.Context) {
	result, err := h.proposals.Apply(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Discard a pending proposal
// @Tags Scheduler
// @Param id path string true "Proposal ID"
// @Success 204
// @Router /scheduler/proposals/{id} [delete]
func (h *ScheduleProposalHandler) Delete(c *gin.Context) {
	if err := h.proposals.Discard(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Download a proposal
// @Tags Scheduler
// @Produce text/csv,application/pdf,text/calendar
// @Param id path string true "Proposal ID"
// @Param format query string false "csv, pdf or ics"
// @Success 200 {file} file
// @Router /scheduler/proposals/{id}/export [get]
func (h *ScheduleProposalHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Close godoc
// @Summary Close live schedules by batch or session
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.CloseSchedulesRequest true "Batches or session"
// @Success 200 {object} response.Envelope
// @Router /scheduler/schedules/close [post]
func (h *ScheduleProposalHandler) Close(c *gin.Context) {
	var req dto.CloseSchedulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid close payload"))
		return
	}
	result, err := h.proposals.Close(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Status godoc
// @Summary Count live schedules per status
// @Tags Scheduler
// @Produce json
// @Param sessionId query string false "Session ID"
// @Success 200 {object} response.Envelope
// @Router /scheduler/schedules/status [get]
func (h *ScheduleProposalHandler) Status(c *gin.Context) {
	var query dto.StatusSummaryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	summary, err := h.status.Summary(c.Request.Context(), query.SessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
