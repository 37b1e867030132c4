package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/backstage/services/laundry/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestTracerWithoutLicenseIsDisabled(t *testing.T) {
	tracer, err := NewTracer(config.TracingConfig{AppName: "test"})
	require.NoError(t, err)

	txn := tracer.StartTransaction("noop")
	require.Nil(t, txn)

	// None of these may panic on a nil transaction
	tracer.StartSegment(txn, "segment").End()
	tracer.AddAttribute(txn, "key", "value")
	tracer.RecordError(txn, errors.New("boom"))
	tracer.EndTransaction(txn)
	tracer.Close()
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Disabled().Middleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
