package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wacrm/internal/config"
	"wacrm/internal/constants"
	"wacrm/internal/logger"
	"wacrm/pkg/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())

	var fromCtx string
	router.GET("/ping", func(c *gin.Context) {
		fromCtx = logging.GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		id := w.Header().Get(constants.HeaderRequestID)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, fromCtx)
	})

	t.Run("keeps client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(constants.HeaderRequestID, "req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-42", w.Header().Get(constants.HeaderRequestID))
		assert.Equal(t, "req-42", fromCtx)
	})
}

func TestScopeMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(ScopeMiddleware())

	var owner, company string
	router.GET("/contacts", func(c *gin.Context) {
		owner, company = Scope(c)
		c.Status(http.StatusOK)
	})

	t.Run("missing owner", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/contacts", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("owner and company", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
		req.Header.Set(constants.HeaderOwnerID, " owner-1 ")
		req.Header.Set(constants.HeaderCompanyID, "company-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "owner-1", owner)
		assert.Equal(t, "company-1", company)
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryMiddleware(logger.NopLogger()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"https://app.example.com"}}))
	router.GET("/contacts", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/contacts", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
