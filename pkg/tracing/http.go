package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wacrm/internal/constants"
)

// OwnerAttribute tags request spans with the tenant scope.
const OwnerAttribute = "wacrm.owner_id"

// GinMiddleware starts a server span per request. Probe and scrape endpoints
// are not traced.
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithFilter(tracedRequest))
}

// ScopeAttributes copies the owner header onto the active span.
func ScopeAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		if owner := c.GetHeader(constants.HeaderOwnerID); owner != "" {
			trace.SpanFromContext(c.Request.Context()).SetAttributes(attribute.String(OwnerAttribute, owner))
		}
		c.Next()
	}
}

func tracedRequest(r *http.Request) bool {
	switch {
	case r.URL.Path == "/health", r.URL.Path == "/metrics":
		return false
	case strings.HasPrefix(r.URL.Path, "/swagger/"):
		return false
	}
	return true
}
