package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"entityquery/internal/constants"
	"entityquery/internal/evaluation"
)

// Claims carries the ThingsBoard style principal ids. The user id travels
// in the standard "sub" claim when userId is absent.
type Claims struct {
	TenantID   string `json:"tenantId"`
	CustomerID string `json:"customerId,omitempty"`
	UserID     string `json:"userId,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the evaluation principal. A missing
// customer becomes the null id.
func (c *Claims) Principal() evaluation.Principal {
	principal := evaluation.Principal{
		TenantID:   c.TenantID,
		CustomerID: c.CustomerID,
		UserID:     c.UserID,
	}
	if principal.UserID == "" {
		principal.UserID = c.Subject
	}
	if principal.CustomerID == "" {
		principal.CustomerID = constants.NullUUID
	}
	return principal
}

// TokenService issues and verifies HMAC signed tokens.
type TokenService struct {
	secret []byte
	issuer string
}

func NewTokenService(secret []byte, issuer string) *TokenService {
	return &TokenService{secret: secret, issuer: issuer}
}

// Issue signs a token for principal valid for ttl. It backs the CLI token
// command and tests.
func (ts *TokenService) Issue(principal evaluation.Principal, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		TenantID:   principal.TenantID,
		CustomerID: principal.CustomerID,
		UserID:     principal.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   principal.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (ts *TokenService) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if ts.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return ts.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.TenantID == "" {
		return nil, fmt.Errorf("token carries no tenantId")
	}
	return claims, nil
}
