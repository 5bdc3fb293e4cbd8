package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduler/internal/dto"
	"github.com/noah-isme/class-scheduler/internal/middleware"
	"github.com/noah-isme/class-scheduler/internal/models"
	"github.com/noah-isme/class-scheduler/internal/scheduler"
	"github.com/noah-isme/class-scheduler/internal/service"
	appErrors "github.com/noah-isme/class-scheduler/pkg/errors"
)

type generatorMock struct {
	result   *dto.GenerateScheduleResponse
	err      error
	captured dto.GenerateScheduleRequest
	actor    string
}

func (m *generatorMock) Validate(ctx context.Context, req dto.ValidateScheduleRequest) (*scheduler.ValidationResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &scheduler.ValidationResult{Valid: true, Warnings: []string{"batch CSE-2 has no enrolled courses"}}, nil
}

func (m *generatorMock) Generate(ctx context.Context, req dto.GenerateScheduleRequest, actor string) (*dto.GenerateScheduleResponse, error) {
	m.captured = req
	m.actor = actor
	return m.result, m.err
}

type proposalServiceMock struct {
	applyErr  error
	discarded string
	closeReq  dto.CloseSchedulesRequest
	listQuery dto.ProposalListQuery
}

func (m *proposalServiceMock) Get(ctx context.Context, id string) (*dto.ProposalResponse, error) {
	if id != "proposal-a" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
	}
	return &dto.ProposalResponse{ID: id, Status: string(models.ProposalPending)}, nil
}

func (m *proposalServiceMock) List(ctx context.Context, query dto.ProposalListQuery) ([]dto.ProposalListItem, error) {
	m.listQuery = query
	return []dto.ProposalListItem{{ID: "proposal-a", SessionID: query.SessionID}}, nil
}

func (m *proposalServiceMock) Apply(ctx context.Context, id string) (*dto.ApplyProposalResponse, error) {
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	return &dto.ApplyProposalResponse{ProposalID: id, Status: string(models.ProposalApproved), Created: 4}, nil
}

func (m *proposalServiceMock) Discard(ctx context.Context, id string) error {
	m.discarded = id
	return nil
}

func (m *proposalServiceMock) Close(ctx context.Context, req dto.CloseSchedulesRequest) (*dto.CloseSchedulesResponse, error) {
	m.closeReq = req
	return &dto.CloseSchedulesResponse{Message: "closed 3 schedule(s) for 1 batch(es)", Closed: 3}, nil
}

type exporterMock struct{ format string }

func (m *exporterMock) Export(ctx context.Context, id string, query dto.ExportQuery) (*dto.ExportFile, error) {
	m.format = query.Format
	return &dto.ExportFile{Filename: "proposal_" + id + ".csv", ContentType: "text/csv", Body: []byte("Batch,Course\n")}, nil
}

type statusMock struct{ session string }

func (m *statusMock) Summary(ctx context.Context, sessionID string) (*models.ScheduleStatusSummary, error) {
	m.session = sessionID
	return &models.ScheduleStatusSummary{Active: 12, Closed: 3}, nil
}

func newTestContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestGenerateCreatesProposal(t *testing.T) {
	svc := &generatorMock{result: &dto.GenerateScheduleResponse{
		Mode:     dto.GenerateModeProposal,
		Proposal: &dto.ProposalResponse{ID: "proposal-a"},
	}}
	h := NewScheduleGeneratorHandler(svc)
	c, w := newTestContext(http.MethodPost, "/scheduler/generate",
		[]byte(`{"sessionId":"s1","selectionMode":"all","classDurations":{"theory":90}}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Email: "ops@example.edu"})

	h.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s1", svc.captured.SessionID)
	assert.Equal(t, 90, svc.captured.ClassDurations.Theory)
	assert.Equal(t, "ops@example.edu", svc.actor)
	assert.Contains(t, string(decodeEnvelope(t, w)["data"]), `"proposal-a"`)
}

func TestGenerateBlockedReturnsUnprocessable(t *testing.T) {
	svc := &generatorMock{result: &dto.GenerateScheduleResponse{
		Mode:       dto.GenerateModeBlocked,
		Validation: scheduler.ValidationResult{Errors: []string{"CSE102 has no instructor"}},
	}}
	h := NewScheduleGeneratorHandler(svc)
	c, w := newTestContext(http.MethodPost, "/scheduler/generate", []byte(`{"sessionId":"s1","selectionMode":"all"}`))

	h.Generate(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"mode":"blocked"`)
	assert.Empty(t, svc.actor)
}

func TestGenerateMalformedBody(t *testing.T) {
	h := NewScheduleGeneratorHandler(&generatorMock{})
	c, w := newTestContext(http.MethodPost, "/scheduler/generate", []byte(`{"sessionId":`))

	h.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrValidation.Code)
}

func TestGenerateConfigErrorStatus(t *testing.T) {
	h := NewScheduleGeneratorHandler(&generatorMock{err: appErrors.Clone(appErrors.ErrConfig, "block 18:00-17:00 ends before it starts")})
	c, w := newTestContext(http.MethodPost, "/scheduler/generate", []byte(`{"sessionId":"s1","selectionMode":"all"}`))

	h.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CONFIG_ERROR")
}

func TestValidateEndpoint(t *testing.T) {
	h := NewScheduleGeneratorHandler(&generatorMock{})
	c, w := newTestContext(http.MethodPost, "/scheduler/validate", []byte(`{"sessionId":"s1","selectionMode":"all"}`))

	h.Validate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "has no enrolled courses")
}

func TestApplyConflictMapsTo409(t *testing.T) {
	svc := &proposalServiceMock{applyErr: appErrors.Clone(appErrors.ErrApplyConflict, "teacher t1 is already booked on Sunday 08:30")}
	h := NewScheduleProposalHandler(svc, &exporterMock{}, &statusMock{})
	c, w := newTestContext(http.MethodPost, "/scheduler/proposals/proposal-a/apply", nil)
	c.Params = gin.Params{{Key: "id", Value: "proposal-a"}}

	h.Apply(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "APPLY_CONFLICT")
}

func TestApplySuccess(t *testing.T) {
	h := NewScheduleProposalHandler(&proposalServiceMock{}, &exporterMock{}, &statusMock{})
	c, w := newTestContext(http.MethodPost, "/scheduler/proposals/proposal-a/apply", nil)
	c.Params = gin.Params{{Key: "id", Value: "proposal-a"}}

	h.Apply(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"created":4`)
}

func TestProposalGetListDelete(t *testing.T) {
	svc := &proposalServiceMock{}
	h := NewScheduleProposalHandler(svc, &exporterMock{}, &statusMock{})

	c, w := newTestContext(http.MethodGet, "/scheduler/proposals/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newTestContext(http.MethodGet, "/scheduler/proposals?sessionId=s1&status=pending", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ProposalListQuery{SessionID: "s1", Status: "pending"}, svc.listQuery)

	c, w = newTestContext(http.MethodDelete, "/scheduler/proposals/proposal-a", nil)
	c.Params = gin.Params{{Key: "id", Value: "proposal-a"}}
	h.Delete(c)
	// gin defers the header write for bodiless handlers until the engine flushes.
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "proposal-a", svc.discarded)
}

func TestExportStreamsAttachment(t *testing.T) {
	exp := &exporterMock{}
	h := NewScheduleProposalHandler(&proposalServiceMock{}, exp, &statusMock{})
	c, w := newTestContext(http.MethodGet, "/scheduler/proposals/proposal-a/export?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "proposal-a"}}

	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exp.format)
	assert.Equal(t, `attachment; filename="proposal_proposal-a.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestCloseAndStatus(t *testing.T) {
	svc := &proposalServiceMock{}
	status := &statusMock{}
	h := NewScheduleProposalHandler(svc, &exporterMock{}, status)

	c, w := newTestContext(http.MethodPost, "/scheduler/schedules/close", []byte(`{"batchIds":["b1"]}`))
	h.Close(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"b1"}, svc.closeReq.BatchIDs)
	assert.Contains(t, w.Body.String(), "closed 3 schedule(s)")

	c, w = newTestContext(http.MethodGet, "/scheduler/status?sessionId=s1", nil)
	h.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", status.session)
	assert.Contains(t, w.Body.String(), `"active":12`)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	c, w := newTestContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	c, w = newTestContext(http.MethodGet, "/health", nil)
	h.Health(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
