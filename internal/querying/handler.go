package querying

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"entityquery/internal/auth"
	"entityquery/internal/logger"
)

type Handler struct {
	auth.BaseHandler
	Service *Service
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: auth.BaseHandler{Logger: log},
		Service:     service,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/entities/query", h.QueryEntities)
	router.POST("/alarms/query", h.QueryAlarms)
	router.POST("/filters/:id/cel", h.ExportCEL)
}

// QueryEntities godoc
// @Summary      Filter and page entities
// @Tags         query
// @Accept       json
// @Produce      json
// @Param        query  body      EntityQuery  true  "Entity query"
// @Success      200    {object}  query.PageData[query.EntityData]
// @Failure      400    {object}  errors.ErrorResponse
// @Failure      404    {object}  errors.ErrorResponse
// @Failure      503    {object}  errors.ErrorResponse
// @Router       /entities/query [post]
func (h *Handler) QueryEntities(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	var req EntityQuery
	if !h.BindJSON(c, &req) {
		return
	}

	page, err := h.Service.QueryEntities(c.Request.Context(), principal, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// QueryAlarms godoc
// @Summary      Filter and page alarms
// @Tags         query
// @Accept       json
// @Produce      json
// @Param        query  body      AlarmQuery  true  "Alarm query"
// @Success      200    {object}  query.PageData[query.AlarmData]
// @Failure      400    {object}  errors.ErrorResponse
// @Failure      404    {object}  errors.ErrorResponse
// @Failure      503    {object}  errors.ErrorResponse
// @Router       /alarms/query [post]
func (h *Handler) QueryAlarms(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	var req AlarmQuery
	if !h.BindJSON(c, &req) {
		return
	}

	page, err := h.Service.QueryAlarms(c.Request.Context(), principal, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ExportCEL godoc
// @Summary      Export a saved filter as CEL
// @Tags         query
// @Produce      json
// @Param        id   path      string  true  "Filter ID"
// @Success      200  {object}  CELExport
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /filters/{id}/cel [post]
func (h *Handler) ExportCEL(c *gin.Context) {
	principal, ok := h.Principal(c)
	if !ok {
		return
	}

	export, err := h.Service.ExportCEL(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, export)
}
