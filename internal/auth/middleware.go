package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"entityquery/internal/config"
	"entityquery/internal/constants"
	"entityquery/internal/evaluation"
	"entityquery/internal/logger"
	"entityquery/pkg/errors"
	"entityquery/pkg/logging"
)

const (
	HeaderTenantID   = "X-Tenant-Id"
	HeaderCustomerID = "X-Customer-Id"
	HeaderUserID     = "X-User-Id"
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, principal evaluation.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

func PrincipalFromContext(ctx context.Context) (evaluation.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(evaluation.Principal)
	return principal, ok
}

// Middleware attaches the caller's principal to the request context. With
// auth enabled it comes from a bearer token; otherwise from the X-Tenant-Id,
// X-Customer-Id and X-User-Id headers, which is meant for trusted networks
// only.
func Middleware(cfg config.AuthConfig, log logger.Logger) gin.HandlerFunc {
	tokens := NewTokenService([]byte(cfg.JWTSecret), cfg.Issuer)

	return func(c *gin.Context) {
		var principal evaluation.Principal
		if cfg.Enabled {
			raw, ok := bearerToken(c.GetHeader("Authorization"))
			if !ok {
				abortUnauthorized(c, "missing bearer token")
				return
			}
			claims, err := tokens.Verify(raw)
			if err != nil {
				log.WarnwCtx(c.Request.Context(), "Rejected token", "error", err, "path", c.Request.URL.Path)
				abortUnauthorized(c, "invalid token")
				return
			}
			principal = claims.Principal()
		} else {
			principal = evaluation.Principal{
				TenantID:   c.GetHeader(HeaderTenantID),
				CustomerID: c.GetHeader(HeaderCustomerID),
				UserID:     c.GetHeader(HeaderUserID),
			}
			if principal.TenantID == "" {
				abortUnauthorized(c, HeaderTenantID+" header is required")
				return
			}
			if principal.CustomerID == "" {
				principal.CustomerID = constants.NullUUID
			}
		}

		ctx := WithPrincipal(c.Request.Context(), principal)
		ctx = logging.WithTenantID(ctx, principal.TenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errors.ToErrorResponse(errors.ErrUnauthorized.WithMessage("%s", message)))
}
