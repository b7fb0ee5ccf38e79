package routes

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/maxmaster/portal-server-go/internal/features/company"
	"github.com/maxmaster/portal-server-go/internal/utils/jwt"
	"github.com/maxmaster/portal-server-go/pkg/cache"
	"github.com/maxmaster/portal-server-go/pkg/config"
	"github.com/maxmaster/portal-server-go/pkg/database"
	"github.com/maxmaster/portal-server-go/pkg/registry"
	"github.com/maxmaster/portal-server-go/pkg/types"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T, lookupLimit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Open(sqlite.Open(":memory:"), logger, false)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db, logger))

	store := cache.NewMemoryCache()
	svc := registry.NewService([]registry.Provider{registry.MockProvider{}}, store, time.Hour, logger).
		WithKnownChecker(company.KnownChecker(db))

	cfg := &config.Config{
		JWTSecret: testSecret,
		RateLimit: config.RateLimitConfig{PerMinute: 1000, LookupPerMinute: lookupLimit},
	}

	return NewRouter(Dependencies{Config: cfg, DB: db, Cache: store, Logger: logger, Registry: svc})
}

func do(router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, role types.UserType) string {
	t.Helper()
	tok, err := jwt.GenerateAccessToken(uuid.New(), role, nil, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestProbes(t *testing.T) {
	router := newTestRouter(t, 10)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "", "").Code)

	rec := do(router, http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)
	assert.Contains(t, rec.Body.String(), `"cache":"ok"`)

	rec = do(router, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	router := newTestRouter(t, 10)

	rec := do(router, http.MethodGet, "/api/nothing-here", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "not_found", body["error"])
}

func TestCompanyFlow(t *testing.T) {
	router := newTestRouter(t, 10)

	rec := do(router, http.MethodGet, "/api/tax-ids/526-104-08-28", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)

	rec = do(router, http.MethodPost, "/api/companies/lookup", `{"taxId":"526-104-08-28"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(router, http.MethodPost, "/api/companies/register",
		`{"name":"Acme","taxId":"526 104 08 28","contactEmail":"owner@acme.pl"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(router, http.MethodPost, "/api/companies/lookup", `{"taxId":"5261040828"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/api/companies", "", "").Code)
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodGet, "/api/companies", "", token(t, types.UserTypeEmployee)).Code)

	admin := token(t, types.UserTypeAdmin)
	rec = do(router, http.MethodGet, "/api/companies/by-tax-id/5261040828", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	assert.Equal(t, http.StatusForbidden, do(router, http.MethodDelete, "/api/companies/"+env.Data.ID, "", admin).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodDelete, "/api/companies/"+env.Data.ID, "", token(t, types.UserTypeSuperAdmin)).Code)
}

func TestLookupIsRateLimited(t *testing.T) {
	router := newTestRouter(t, 2)

	for i := 0; i < 2; i++ {
		rec := do(router, http.MethodPost, "/api/companies/lookup", `{"taxId":"5261040828"}`, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(router, http.MethodPost, "/api/companies/lookup", `{"taxId":"5261040828"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/tax-ids/5261040828", "", "").Code)
}
