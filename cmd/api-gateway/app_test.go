package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler/internal/models"
	"github.com/noah-isme/class-scheduler/internal/service"
	"github.com/noah-isme/class-scheduler/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		APIPrefix: "/api/v1",
		JWT:       config.JWTConfig{Secret: "test-secret"},
		Scheduler: config.SchedulerConfig{
			Enabled:          true,
			ProposalTTL:      72 * time.Hour,
			SummaryCacheTTL:  time.Minute,
			TheoryMinutes:    75,
			LabMinutes:       100,
			ProjectMinutes:   100,
			DayOffDays:       []string{"Friday"},
			EveningOffDays:   []string{"Friday"},
			DefaultDayBlocks: []string{"08:30-13:00", "14:00-17:00"},
			DefaultEvening:   []string{"18:00-21:40"},
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	a, err := newApp(cfg, sqlx.NewDb(raw, "sqlmock"), nil, service.NewMetricsService(), zap.NewNop())
	require.NoError(t, err)
	r := gin.New()
	a.register(r, cfg)
	return r, mock
}

func bearer(t *testing.T, role models.UserRole) string {
	t.Helper()
	claims := &models.JWTClaims{
		UserID:           "u1",
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestSchedulerRoutesRequireAdmin(t *testing.T) {
	r, mock := newTestRouter(t, testConfig())

	do := func(auth string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/schedules/status?sessionId=s1", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusForbidden, do(bearer(t, models.RoleTeacher)))

	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}).AddRow("active", 3))
	assert.Equal(t, http.StatusOK, do(bearer(t, models.RoleAdmin)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthAndDisabledScheduler(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.Enabled = false
	r, _ := newTestRouter(t, cfg)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/generate", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewAppRejectsBadBlocks(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.DefaultDayBlocks = []string{"13:00-08:30"}
	raw, _, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()

	_, err = newApp(cfg, sqlx.NewDb(raw, "sqlmock"), nil, nil, zap.NewNop())
	assert.Error(t, err)
}
