package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"wacrm/internal/config"
	"wacrm/internal/constants"
	"wacrm/internal/logger"
	"wacrm/pkg/errors"
	"wacrm/pkg/logging"
)

// Context keys set by the middlewares in this package.
const (
	RequestIDKey = "request_id"
	OwnerIDKey   = "owner_id"
	CompanyIDKey = "company_id"
)

func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		logFields := []interface{}{
			"status", statusCode,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
		}

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			logFields = append(logFields, "error", errorMessage)
		}

		ctx := c.Request.Context()
		if statusCode >= http.StatusInternalServerError {
			log.ErrorwCtx(ctx, "HTTP Request", logFields...)
		} else {
			log.InfowCtx(ctx, "HTTP Request", logFields...)
		}
	}
}

func RecoveryMiddleware(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.ErrorwCtx(c.Request.Context(), "Panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errors.ToErrorResponse(errors.RecoverPanic(recovered)))
	})
}

// RequestIDMiddleware propagates X-Request-ID, generating one when the
// client did not send it, and puts it on the request context for logging.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(constants.HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// ScopeMiddleware reads the caller identity set by the gateway. Requests
// without an owner are rejected.
func ScopeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := strings.TrimSpace(c.GetHeader(constants.HeaderOwnerID))
		if ownerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errors.ToErrorResponse(
				errors.ErrUnauthorized.WithDetail("message", "missing "+constants.HeaderOwnerID+" header"),
			))
			return
		}
		companyID := strings.TrimSpace(c.GetHeader(constants.HeaderCompanyID))

		c.Set(OwnerIDKey, ownerID)
		c.Set(CompanyIDKey, companyID)
		c.Request = c.Request.WithContext(logging.WithScope(c.Request.Context(), ownerID, companyID))
		c.Next()
	}
}

// Scope returns the owner and company stored by ScopeMiddleware.
func Scope(c *gin.Context) (ownerID, companyID string) {
	return c.GetString(OwnerIDKey), c.GetString(CompanyIDKey)
}

func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Authorization",
			constants.HeaderOwnerID, constants.HeaderCompanyID, constants.HeaderRequestID, constants.HeaderChangedBy,
		},
		ExposeHeaders: []string{constants.HeaderRequestID, "X-Total-Count"},
		MaxAge:        time.Duration(cfg.MaxAgeSeconds) * time.Second,
	}

	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}

	return cors.New(corsConfig)
}
