package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                  { return s.name }
func (s stubChecker) Check(_ context.Context) error { return s.err }

func TestCheckerRegistry_Check(t *testing.T) {
	tests := []struct {
		name     string
		required []Checker
		optional []Checker
		want     Status
	}{
		{
			name:     "all healthy",
			required: []Checker{stubChecker{name: "mongodb"}},
			optional: []Checker{stubChecker{name: "redis"}},
			want:     StatusHealthy,
		},
		{
			name:     "optional failure degrades",
			required: []Checker{stubChecker{name: "mongodb"}},
			optional: []Checker{stubChecker{name: "redis", err: errors.New("down")}},
			want:     StatusDegraded,
		},
		{
			name:     "required failure is unhealthy",
			required: []Checker{stubChecker{name: "mongodb", err: errors.New("down")}},
			optional: []Checker{stubChecker{name: "redis", err: errors.New("down")}},
			want:     StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			for _, c := range tt.required {
				r.Register(c)
			}
			for _, c := range tt.optional {
				r.RegisterOptional(c)
			}

			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, len(tt.required)+len(tt.optional))
		})
	}
}

func TestCheckerRegistry_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewCheckerRegistry()
	r.Register(stubChecker{name: "postgresql", err: errors.New("refused")})

	router := gin.New()
	router.GET("/health", r.Handler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, StatusUnhealthy, body.Checks["postgresql"].Status)
	assert.Equal(t, "refused", body.Checks["postgresql"].Message)
}

func TestKafkaChecker_NoBrokers(t *testing.T) {
	err := NewKafkaChecker(nil).Check(context.Background())
	assert.EqualError(t, err, "no kafka brokers configured")
}
