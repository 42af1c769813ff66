package segments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wacrm/internal/constants"
	"wacrm/internal/logger"
	apperrors "wacrm/pkg/errors"
	"wacrm/pkg/middleware"
)

func newTestRouter(f *serviceFixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1", middleware.ScopeMiddleware())
	NewHandler(f.service, logger.NopLogger()).RegisterRoutes(api)
	return router
}

func doRequest(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(constants.HeaderOwnerID, "owner-1")
	req.Header.Set(constants.HeaderCompanyID, "company-1")
	req.Header.Set(constants.HeaderChangedBy, "alice")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createSegment(t *testing.T, router *gin.Engine, body string) Segment {
	t.Helper()
	w := doRequest(router, http.MethodPost, "/api/v1/segments", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var seg Segment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &seg))
	return seg
}

func TestHandler_SegmentLifecycle(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	seg := createSegment(t, router, `{"name":"VIP","filter":{"tags":["vip"]}}`)
	assert.Equal(t, "VIP", seg.Name)
	assert.JSONEq(t, `{"tags":["vip"]}`, string(seg.Filter))

	w := doRequest(router, http.MethodGet, "/api/v1/segments", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []Segment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	w = doRequest(router, http.MethodPut, "/api/v1/segments/"+seg.ID, `{"name":"VIP customers"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(router, http.MethodPost, "/api/v1/segments/"+seg.ID+"/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)
	var toggled Segment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &toggled))
	assert.False(t, toggled.Enabled)

	w = doRequest(router, http.MethodGet, "/api/v1/segments/"+seg.ID+"/history?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history []HistoryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.Equal(t, "alice", history[0].ChangedBy)

	w = doRequest(router, http.MethodDelete, "/api/v1/segments/"+seg.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/segments/"+seg.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_CreateSegment_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"name":`},
		{name: "missing name", body: `{"filter":{}}`},
		{name: "missing filter", body: `{"name":"x"}`},
		{name: "filter with unknown field", body: `{"name":"x","filter":{"conditionGroups":[{"conditions":[{"field":"age","value":3}]}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(newFixture())
			w := doRequest(router, http.MethodPost, "/api/v1/segments", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, apperrors.ErrValidation.Code, resp.ErrorCode)
		})
	}
}

func TestHandler_CreateSegment_Conflict(t *testing.T) {
	router := newTestRouter(newFixture())
	createSegment(t, router, `{"name":"VIP","filter":{}}`)

	w := doRequest(router, http.MethodPost, "/api/v1/segments", `{"name":"VIP","filter":{}}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_PreviewSegment(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)
	seg := createSegment(t, router, `{"name":"VIP","filter":{"tags":["vip"]}}`)

	w := doRequest(router, http.MethodGet, "/api/v1/segments/"+seg.ID+"/contacts?page=3&limit=20", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "2", w.Header().Get("X-Total-Count"))
	assert.Equal(t, 3, f.searcher.lastReq.Page.Number)
	assert.Equal(t, []string{"vip"}, f.searcher.lastReq.Spec.Tags)

	w = doRequest(router, http.MethodGet, "/api/v1/segments/"+seg.ID+"/contacts?limit=5000", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, constants.DefaultHistoryLimit, parseLimit(""))
	assert.Equal(t, constants.DefaultHistoryLimit, parseLimit("abc"))
	assert.Equal(t, constants.DefaultHistoryLimit, parseLimit("0"))
	assert.Equal(t, 25, parseLimit("25"))
}
