package auth

import (
	"github.com/gin-gonic/gin"

	"entityquery/internal/evaluation"
	"entityquery/internal/logger"
	"entityquery/pkg/errors"
)

// BaseHandler holds the error and principal plumbing shared by the API
// handlers.
type BaseHandler struct {
	Logger logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= 500 {
		h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.Logger.DebugwCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

// Principal returns the caller, writing a 401 when the auth middleware did
// not run.
func (h *BaseHandler) Principal(c *gin.Context) (evaluation.Principal, bool) {
	principal, ok := PrincipalFromContext(c.Request.Context())
	if !ok {
		h.HandleError(c, errors.ErrUnauthorized)
		return evaluation.Principal{}, false
	}
	return principal, true
}

// BindJSON decodes the body into dst. Malformed predicates keep their
// configuration error code; any other decoding failure is a validation
// error.
func (h *BaseHandler) BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.HandleError(c, errors.Wrap(err, errors.ErrValidation))
		return false
	}
	return true
}
