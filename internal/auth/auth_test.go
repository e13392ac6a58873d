package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entityquery/internal/config"
	"entityquery/internal/constants"
	"entityquery/internal/evaluation"
	"entityquery/internal/logger"
)

const secret = "test-secret"

func newRouter(cfg config.AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(cfg, logger.NopLogger()))
	router.GET("/whoami", func(c *gin.Context) {
		principal, _ := PrincipalFromContext(c.Request.Context())
		c.JSON(http.StatusOK, principal)
	})
	return router
}

func TestTokenService_RoundTrip(t *testing.T) {
	tokens := NewTokenService([]byte(secret), "entityquery")
	signed, err := tokens.Issue(evaluation.Principal{TenantID: "tenant-1", UserID: "user-1"}, time.Minute)
	require.NoError(t, err)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, evaluation.Principal{
		TenantID:   "tenant-1",
		CustomerID: constants.NullUUID,
		UserID:     "user-1",
	}, claims.Principal())
}

func TestTokenService_Rejects(t *testing.T) {
	tokens := NewTokenService([]byte(secret), "entityquery")
	principal := evaluation.Principal{TenantID: "tenant-1", UserID: "user-1"}

	expired, err := tokens.Issue(principal, -time.Minute)
	require.NoError(t, err)

	foreign, err := NewTokenService([]byte("other-secret"), "entityquery").Issue(principal, time.Minute)
	require.NoError(t, err)

	wrongIssuer, err := NewTokenService([]byte(secret), "someone-else").Issue(principal, time.Minute)
	require.NoError(t, err)

	noTenant, err := tokens.Issue(evaluation.Principal{UserID: "user-1"}, time.Minute)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{TenantID: "tenant-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expired,
		"wrong secret": foreign,
		"wrong issuer": wrongIssuer,
		"no tenant":    noTenant,
		"alg none":     unsigned,
		"garbage":      "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Verify(token)
			assert.Error(t, err)
		})
	}
}

func TestMiddleware_Bearer(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, JWTSecret: secret, Issuer: "entityquery"}
	router := newRouter(cfg)

	signed, err := NewTokenService([]byte(secret), "entityquery").
		Issue(evaluation.Principal{TenantID: "tenant-1", CustomerID: "customer-1", UserID: "user-1"}, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + signed, http.StatusOK},
		{"lowercase scheme", "bearer " + signed, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"basic", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"invalid", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"TenantID":"tenant-1","CustomerID":"customer-1","UserID":"user-1"}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}

func TestMiddleware_Headers(t *testing.T) {
	router := newRouter(config.AuthConfig{Enabled: false})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderTenantID, "tenant-1")
	req.Header.Set(HeaderUserID, "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"TenantID":"tenant-1","CustomerID":"`+constants.NullUUID+`","UserID":"user-1"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBaseHandler_PrincipalRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &BaseHandler{Logger: logger.NopLogger()}
	router := gin.New()
	router.GET("/", func(c *gin.Context) {
		if _, ok := h.Principal(c); ok {
			c.Status(http.StatusOK)
		}
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
