package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/plans/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/plans/:id", "418"))
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plans/abc", nil))
		assert.Equal(t, http.StatusTeapot, w.Code)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/plans/:id", "418"))
	assert.Equal(t, 2.0, after-before)
}

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestPlanCounters(t *testing.T) {
	before := testutil.ToFloat64(planDaysWritten.WithLabelValues("workout"))
	AddPlanDaysWritten("workout", 365)
	assert.Equal(t, 365.0, testutil.ToFloat64(planDaysWritten.WithLabelValues("workout"))-before)
}
