package filters

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"entityquery/internal/auth"
	"entityquery/internal/logger"
	"entityquery/pkg/errors"
	"entityquery/pkg/query"
)

type Handler struct {
	auth.BaseHandler
	Service Service
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: auth.BaseHandler{Logger: log},
		Service:     service,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	filters := router.Group("/filters")
	{
		filters.GET("", h.ListFilters)
		filters.POST("", h.CreateFilter)
		filters.POST("/validate", h.ValidateFilter)
		filters.GET("/labels", h.Labels)
		filters.GET("/:id", h.GetFilter)
		filters.PUT("/:id", h.UpdateFilter)
		filters.DELETE("/:id", h.DeleteFilter)
	}
}

// ListFilters godoc
// @Summary      List saved filters
// @Tags         filters
// @Produce      json
// @Success      200  {array}   SavedFilter
// @Failure      401  {object}  errors.ErrorResponse
// @Router       /filters [get]
func (h *Handler) ListFilters(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	filters, err := h.Service.ListFilters(c.Request.Context(), principal)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, filters)
}

// CreateFilter godoc
// @Summary      Save a filter
// @Tags         filters
// @Accept       json
// @Produce      json
// @Param        filter  body      query.FilterInfo  true  "Filter"
// @Success      201     {object}  SavedFilter
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      409     {object}  errors.ErrorResponse
// @Router       /filters [post]
func (h *Handler) CreateFilter(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	var info query.FilterInfo
	if !h.BindJSON(c, &info) {
		return
	}

	filter, err := h.Service.CreateFilter(c.Request.Context(), principal, info)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, filter)
}

// GetFilter godoc
// @Summary      Get a saved filter
// @Tags         filters
// @Produce      json
// @Param        id   path      string  true  "Filter ID"
// @Success      200  {object}  SavedFilter
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /filters/{id} [get]
func (h *Handler) GetFilter(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	filter, err := h.Service.GetFilter(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, filter)
}

// UpdateFilter godoc
// @Summary      Replace a saved filter
// @Tags         filters
// @Accept       json
// @Produce      json
// @Param        id      path      string            true  "Filter ID"
// @Param        filter  body      query.FilterInfo  true  "Filter"
// @Success      200     {object}  SavedFilter
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      404     {object}  errors.ErrorResponse
// @Failure      409     {object}  errors.ErrorResponse
// @Router       /filters/{id} [put]
func (h *Handler) UpdateFilter(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	var info query.FilterInfo
	if !h.BindJSON(c, &info) {
		return
	}

	filter, err := h.Service.UpdateFilter(c.Request.Context(), principal, c.Param("id"), info)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, filter)
}

// DeleteFilter godoc
// @Summary      Delete a saved filter
// @Tags         filters
// @Param        id   path  string  true  "Filter ID"
// @Success      204
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /filters/{id} [delete]
func (h *Handler) DeleteFilter(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	if err := h.Service.DeleteFilter(c.Request.Context(), principal, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ValidateFilter reports whether a filter would be accepted without saving
// it. A rejected filter is still a 200 response. An accepted filter comes
// back with the label keys of its predicate leaves.
//
// @Summary      Validate a filter
// @Tags         filters
// @Accept       json
// @Produce      json
// @Param        filter  body      query.FilterInfo  true  "Filter"
// @Success      200     {object}  ValidateFilterResponse
// @Router       /filters/validate [post]
func (h *Handler) ValidateFilter(c *gin.Context) {
	var info query.FilterInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		if !errors.IsConfiguration(err) {
			h.HandleError(c, errors.ErrValidation.WithCause(err))
			return
		}
		c.JSON(http.StatusOK, ValidateFilterResponse{Valid: false, Error: err.Error()})
		return
	}

	if err := h.Service.ValidateFilter(info); err != nil {
		c.JSON(http.StatusOK, ValidateFilterResponse{Valid: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ValidateFilterResponse{
		Valid:  true,
		Labels: describePredicates(info, query.DefaultOperationLabels()),
	})
}

// Labels godoc
// @Summary      Operation labels for filter editors
// @Tags         filters
// @Produce      json
// @Success      200  {object}  query.OperationLabels
// @Router       /filters/labels [get]
func (h *Handler) Labels(c *gin.Context) {
	c.JSON(http.StatusOK, query.DefaultOperationLabels())
}
