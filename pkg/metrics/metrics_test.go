package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/things/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/things/:id", "418"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/42", nil))

	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/things/:id", "418"))
	assert.Equal(t, before+1, after)
}

func TestRecordRegistryLookup(t *testing.T) {
	before := testutil.ToFloat64(registryLookups.WithLabelValues("krs", "not_found"))
	RecordRegistryLookup("krs", "not_found", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(registryLookups.WithLabelValues("krs", "not_found")))
}

func TestRecordTaxIDValidation(t *testing.T) {
	before := testutil.ToFloat64(taxIDValidations.WithLabelValues("valid"))
	RecordTaxIDValidation("valid")
	assert.Equal(t, before+1, testutil.ToFloat64(taxIDValidations.WithLabelValues("valid")))
}

func TestRecordJobRun(t *testing.T) {
	before := testutil.ToFloat64(jobRuns.WithLabelValues("registry_sync", "error"))
	RecordJobRun("registry_sync", "error", time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(jobRuns.WithLabelValues("registry_sync", "error")))
}
