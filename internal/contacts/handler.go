package contacts

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"wacrm/internal/logger"
	"wacrm/internal/segment"
	"wacrm/pkg/errors"
	"wacrm/pkg/middleware"
)

const maxFilterBodyBytes = 1 << 20

// Searcher is implemented by *Service.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResult, error)
	Explain(ctx context.Context, req SearchRequest) (*Explanation, error)
}

type Handler struct {
	service Searcher
	logger  logger.Logger
}

func NewHandler(service Searcher, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes mounts the contact routes on a group that already runs
// the scope middleware.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	contacts := api.Group("/contacts")
	{
		contacts.GET("", h.ListContacts)
		contacts.POST("/filter", h.FilterContacts)
		contacts.POST("/filter/explain", h.ExplainFilter)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.logger.InfowCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err).WithDetail("message", err.Error())))
}

// ListContacts godoc
// @Summary      List contacts with legacy custom field filters
// @Description  Every customField.<key>=<value> query parameter adds a case-insensitive substring match on that custom field.
// @Tags         contacts
// @Produce      json
// @Param        X-Owner-ID    header  string  true   "Owner ID"
// @Param        X-Company-ID  header  string  false  "Company ID"
// @Param        page          query   int     false  "Page number"  default(1)
// @Param        limit         query   int     false  "Page size"    default(50)
// @Success      200  {object}  SearchResult
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /contacts [get]
func (h *Handler) ListContacts(c *gin.Context) {
	var page Page
	if err := c.ShouldBindQuery(&page); err != nil {
		h.badRequest(c, err)
		return
	}

	h.search(c, SearchRequest{
		Scope:  scopeOf(c),
		Params: c.Request.URL.Query(),
		Page:   page,
	})
}

// FilterContacts godoc
// @Summary      Search contacts with a structured audience filter
// @Description  Compiles the filter (tags, opt-in, contact groups, condition groups) and returns the matching contacts, most recently active first. An empty body falls back to legacy query parameters.
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        X-Owner-ID    header  string                 true   "Owner ID"
// @Param        X-Company-ID  header  string                 false  "Company ID"
// @Param        page          query   int                    false  "Page number"  default(1)
// @Param        limit         query   int                    false  "Page size"    default(50)
// @Param        filter        body    segment.Specification  false  "Audience filter"
// @Success      200  {object}  SearchResult
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /contacts/filter [post]
func (h *Handler) FilterContacts(c *gin.Context) {
	req, ok := h.bindFilter(c)
	if !ok {
		return
	}
	h.search(c, req)
}

// ExplainFilter godoc
// @Summary      Show how an audience filter compiles
// @Description  Returns the compiled predicate, the MongoDB query and the conditions that were dropped, without running the search.
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        X-Owner-ID    header  string                 true   "Owner ID"
// @Param        X-Company-ID  header  string                 false  "Company ID"
// @Param        filter        body    segment.Specification  false  "Audience filter"
// @Success      200  {object}  Explanation
// @Failure      400  {object}  errors.ErrorResponse
// @Router       /contacts/filter/explain [post]
func (h *Handler) ExplainFilter(c *gin.Context) {
	req, ok := h.bindFilter(c)
	if !ok {
		return
	}

	explanation, err := h.service.Explain(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, explanation)
}

func (h *Handler) bindFilter(c *gin.Context) (SearchRequest, bool) {
	var page Page
	if err := c.ShouldBindQuery(&page); err != nil {
		h.badRequest(c, err)
		return SearchRequest{}, false
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFilterBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		h.badRequest(c, err)
		return SearchRequest{}, false
	}

	spec, err := segment.ParseSpecification(body)
	if err != nil {
		h.badRequest(c, err)
		return SearchRequest{}, false
	}

	return SearchRequest{
		Scope:  scopeOf(c),
		Spec:   spec,
		Params: c.Request.URL.Query(),
		Page:   page,
	}, true
}

func (h *Handler) search(c *gin.Context, req SearchRequest) {
	result, err := h.service.Search(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.JSON(http.StatusOK, result)
}

func scopeOf(c *gin.Context) segment.Scope {
	ownerID, companyID := middleware.Scope(c)
	return segment.Scope{OwnerID: ownerID, CompanyID: companyID}
}
