package segments

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"wacrm/internal/constants"
	"wacrm/internal/contacts"
	"wacrm/internal/logger"
	"wacrm/internal/segment"
	"wacrm/pkg/errors"
	"wacrm/pkg/middleware"
)

// Manager is implemented by *Service.
type Manager interface {
	Create(ctx context.Context, scope segment.Scope, req CreateSegmentRequest, changedBy string) (*Segment, error)
	List(ctx context.Context, scope segment.Scope) ([]Segment, error)
	Get(ctx context.Context, scope segment.Scope, id string) (*Segment, error)
	Update(ctx context.Context, scope segment.Scope, id string, req UpdateSegmentRequest, changedBy string) (*Segment, error)
	Toggle(ctx context.Context, scope segment.Scope, id, changedBy string) (*Segment, error)
	Delete(ctx context.Context, scope segment.Scope, id, changedBy string) error
	History(ctx context.Context, scope segment.Scope, id string, limit int) ([]HistoryEntry, error)
	Preview(ctx context.Context, scope segment.Scope, id string, page contacts.Page) (*contacts.SearchResult, error)
}

type Handler struct {
	service Manager
	logger  logger.Logger
}

func NewHandler(service Manager, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	segments := api.Group("/segments")
	{
		segments.GET("", h.ListSegments)
		segments.POST("", h.CreateSegment)
		segments.GET("/:id", h.GetSegment)
		segments.PUT("/:id", h.UpdateSegment)
		segments.DELETE("/:id", h.DeleteSegment)
		segments.POST("/:id/toggle", h.ToggleSegment)
		segments.GET("/:id/history", h.GetSegmentHistory)
		segments.GET("/:id/contacts", h.PreviewSegment)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

// ListSegments godoc
// @Summary      List saved segments
// @Tags         segments
// @Produce      json
// @Param        X-Owner-ID    header  string  true   "Owner ID"
// @Param        X-Company-ID  header  string  false  "Company ID"
// @Success      200  {array}   Segment
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /segments [get]
func (h *Handler) ListSegments(c *gin.Context) {
	segments, err := h.service.List(c.Request.Context(), scopeOf(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, segments)
}

// CreateSegment godoc
// @Summary      Save an audience filter as a segment
// @Description  The filter is validated with the same rules as contact search, except that conditions which cannot be applied are rejected instead of dropped.
// @Tags         segments
// @Accept       json
// @Produce      json
// @Param        X-Owner-ID    header  string                true   "Owner ID"
// @Param        X-Company-ID  header  string                false  "Company ID"
// @Param        X-Changed-By  header  string                false  "Actor recorded in history"
// @Param        segment       body    CreateSegmentRequest  true   "Segment"
// @Success      201  {object}  Segment
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /segments [post]
func (h *Handler) CreateSegment(c *gin.Context) {
	var req CreateSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err).WithDetail("message", err.Error())))
		return
	}

	seg, err := h.service.Create(c.Request.Context(), scopeOf(c), req, changedBy(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, seg)
}

// GetSegment godoc
// @Summary      Get a saved segment
// @Tags         segments
// @Produce      json
// @Param        X-Owner-ID    header  string  true   "Owner ID"
// @Param        X-Company-ID  header  string  false  "Company ID"
// @Param        id            path    string  true   "Segment ID"
// @Success      200  {object}  Segment
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /segments/{id} [get]
func (h *Handler) GetSegment(c *gin.Context) {
	seg, err := h.service.Get(c.Request.Context(), scopeOf(c), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, seg)
}

// UpdateSegment godoc
// @Summary      Update a saved segment
// @Tags         segments
// @Accept       json
// @Produce      json
// @Param        X-Owner-ID    header  string                true   "Owner ID"
// @Param        X-Company-ID  header  string                false  "Company ID"
// @Param        X-Changed-By  header  string                false  "Actor recorded in history"
// @Param        id            path    string                true   "Segment ID"
// @Param        segment       body    UpdateSegmentRequest  true   "Fields to change"
// @Success      200  {object}  Segment
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Router       /segments/{id} [put]
func (h *Handler) UpdateSegment(c *gin.Context) {
	var req UpdateSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err).WithDetail("message", err.Error())))
		return
	}

	seg, err := h.service.Update(c.Request.Context(), scopeOf(c), c.Param("id"), req, changedBy(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, seg)
}

// DeleteSegment godoc
// @Summary      Delete a saved segment
// @Tags         segments
// @Param        X-Owner-ID    header  string  true   "Owner ID"
// @Param        X-Company-ID  header  string  false  "Company ID"
// @Param        X-Changed-By  header  string  false  "Actor recorded in history"
// @Param        id            path    string  true   "Segment ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /segments/{id} [delete]
func (h *Handler) DeleteSegment(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), scopeOf(c), c.Param("id"), changedBy(c)); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleSegment godoc
// @Summary      Enable or disable a segment for automation
// @Tags         segments
// @Produce      json
// @Param        X-Owner-ID    header  string  true   "Owner ID"
// @Param        X-Company-ID  header  string  false  "Company ID"
// @Param        X-Changed-By  header  string  false  "Actor recorded in history"
// @Param        id            path    string  true   "Segment ID"
// @Success      200  {object}  Segment
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /segments/{id}/toggle [post]
func (h *Handler) ToggleSegment(c *gin.Context) {
	seg, err := h.service.Toggle(c.Request.Context(), scopeOf(c), c.Param("id"), changedBy(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, seg)
}

// GetSegmentHistory godoc
// @Summary      Segment change history
// @Tags         segments
// @Produce      json
// @Param        X-Owner-ID    header  string  true   "Owner ID"
// @Param        X-Company-ID  header  string  false  "Company ID"
// @Param        id            path    string  true   "Segment ID"
// @Param        limit         query   int     false  "Maximum number of entries (1-1000)"  default(100)
// @Success      200  {array}   HistoryEntry
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /segments/{id}/history [get]
func (h *Handler) GetSegmentHistory(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), scopeOf(c), c.Param("id"), parseLimit(c.Query("limit")))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// PreviewSegment godoc
// @Summary      Contacts currently in a segment
// @Description  Compiles the saved filter now and returns the matching contacts, most recently active first.
// @Tags         segments
// @Produce      json
// @Param        X-Owner-ID    header  string  true   "Owner ID"
// @Param        X-Company-ID  header  string  false  "Company ID"
// @Param        id            path    string  true   "Segment ID"
// @Param        page          query   int     false  "Page number"  default(1)
// @Param        limit         query   int     false  "Page size"    default(50)
// @Success      200  {object}  contacts.SearchResult
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /segments/{id}/contacts [get]
func (h *Handler) PreviewSegment(c *gin.Context) {
	var page contacts.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err).WithDetail("message", err.Error())))
		return
	}

	result, err := h.service.Preview(c.Request.Context(), scopeOf(c), c.Param("id"), page)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.JSON(http.StatusOK, result)
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultHistoryLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed < 1 || parsed > constants.MaxHistoryLimit {
		return constants.DefaultHistoryLimit
	}
	return parsed
}

func changedBy(c *gin.Context) string {
	return c.GetHeader(constants.HeaderChangedBy)
}

func scopeOf(c *gin.Context) segment.Scope {
	ownerID, companyID := middleware.Scope(c)
	return segment.Scope{OwnerID: ownerID, CompanyID: companyID}
}
