package attributes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"entityquery/internal/auth"
	"entityquery/internal/evaluation"
	"entityquery/internal/logger"
	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/query"
)

// ownerSources maps an owner entity type to the dynamic value source that
// reads from it.
var ownerSources = map[string]query.DynamicValueSourceType{
	"TENANT":   query.DynamicValueSourceCurrentTenant,
	"CUSTOMER": query.DynamicValueSourceCurrentCustomer,
	"USER":     query.DynamicValueSourceCurrentUser,
}

// Handler reads and writes the attributes that dynamic values resolve
// against. A caller can only reach its own tenant, customer and user.
type Handler struct {
	auth.BaseHandler
	store Store
}

func NewHandler(store Store, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: auth.BaseHandler{Logger: log},
		store:       store,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/attributes/:entityType/:entityId")
	group.GET("", h.GetAttributes)
	group.POST("", h.SaveAttributes)
}

func (h *Handler) owner(c *gin.Context) (query.EntityID, bool) {
	principal, ok := h.Principal(c)
	if !ok {
		return query.EntityID{}, false
	}

	owner := query.EntityID{EntityType: strings.ToUpper(c.Param("entityType")), ID: c.Param("entityId")}
	if allowed(principal, owner) {
		return owner, true
	}
	h.HandleError(c, pkgerrors.ErrNotFound.WithMessage("entity %s not found", owner))
	return query.EntityID{}, false
}

func allowed(principal evaluation.Principal, owner query.EntityID) bool {
	source, ok := ownerSources[owner.EntityType]
	if !ok {
		return false
	}
	own, ok := principal.Owner(source)
	return ok && own == owner
}

// GetAttributes returns the attributes listed in the comma separated "keys"
// query parameter.
//
// @Summary      Read owner attributes
// @Tags         attributes
// @Produce      json
// @Param        entityType  path      string  true   "TENANT, CUSTOMER or USER"
// @Param        entityId    path      string  true   "Owner ID"
// @Param        keys        query     string  false  "Comma separated keys"
// @Success      200         {object}  map[string]interface{}
// @Failure      404         {object}  errors.ErrorResponse
// @Router       /attributes/{entityType}/{entityId} [get]
func (h *Handler) GetAttributes(c *gin.Context) {
	owner, ok := h.owner(c)
	if !ok {
		return
	}

	var keys []string
	for _, key := range strings.Split(c.Query("keys"), ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		h.HandleError(c, pkgerrors.ErrValidation.WithMessage("keys query parameter is required"))
		return
	}

	values, err := h.store.GetAttributes(c.Request.Context(), owner, keys)
	if err != nil {
		h.HandleError(c, pkgerrors.Wrap(err, pkgerrors.ErrStorageUnavailable))
		return
	}
	c.JSON(http.StatusOK, values)
}

// SaveAttributes upserts every key of the JSON object body.
//
// @Summary      Write owner attributes
// @Tags         attributes
// @Accept       json
// @Param        entityType  path  string                  true  "TENANT, CUSTOMER or USER"
// @Param        entityId    path  string                  true  "Owner ID"
// @Param        attributes  body  map[string]interface{}  true  "Attribute values"
// @Success      204
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Router       /attributes/{entityType}/{entityId} [post]
func (h *Handler) SaveAttributes(c *gin.Context) {
	owner, ok := h.owner(c)
	if !ok {
		return
	}

	var values map[string]any
	if !h.BindJSON(c, &values) {
		return
	}
	if len(values) == 0 {
		h.HandleError(c, pkgerrors.ErrValidation.WithMessage("at least one attribute is required"))
		return
	}

	writer, ok := h.store.(Writer)
	if !ok {
		h.HandleError(c, pkgerrors.ErrConflict.WithMessage("attribute store is read-only"))
		return
	}
	for key, value := range values {
		if err := writer.PutAttribute(c.Request.Context(), owner, key, value); err != nil {
			if errors.Is(err, errReadOnly) {
				h.HandleError(c, pkgerrors.ErrConflict.WithMessage("attribute store is read-only"))
				return
			}
			h.HandleError(c, pkgerrors.Wrap(err, pkgerrors.ErrStorageUnavailable))
			return
		}
	}
	c.Status(http.StatusNoContent)
}
