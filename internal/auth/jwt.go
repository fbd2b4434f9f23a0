package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the claim set accepted on bearer tokens: the tenant whose
// mapping sessions the caller may touch plus its role.
type TokenClaims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// VerifyToken validates an HS256 bearer token and resolves the caller
// identity. Tokens must carry a tenant, a known role, and an expiry; the
// parser enforces the expiry itself.
func VerifyToken(token string, secret []byte) (Identity, error) {
	if token == "" {
		return Identity{}, errors.New("auth: empty token")
	}
	if len(secret) == 0 {
		return Identity{}, errors.New("auth: empty secret")
	}

	claims := &TokenClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("auth: parse token: %w", err)
	}
	if !parsed.Valid {
		return Identity{}, errors.New("auth: invalid token")
	}
	if claims.TenantID == "" {
		return Identity{}, errors.New("auth: token carries no tenant")
	}
	role, ok := NormalizeRole(claims.Role)
	if !ok {
		return Identity{}, fmt.Errorf("auth: unknown role %q", claims.Role)
	}
	return Identity{
		TenantID: claims.TenantID,
		Subject:  claims.Subject,
		Role:     role,
	}, nil
}
