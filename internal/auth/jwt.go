// internal/auth/jwt.go
package auth

import (
	"fmt"
	"time"

	"pos-service/pkg/models"

	"github.com/golang-jwt/jwt/v4"
)

// Claims is the identity a bearer token carries: the user, their store
// affiliation, and the flattened permission list resolved from their role.
type Claims struct {
	UserID      uint     `json:"uid"`
	Username    string   `json:"username"`
	StoreID     uint     `json:"storeId"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token carries an administrative override.
func (c *Claims) IsAdmin() bool {
	return IsAdmin(c.Permissions)
}

// CanAccessStore reports whether the token may act on storeID: either the
// user belongs to it or an administrative claim spans all stores.
func (c *Claims) CanAccessStore(storeID uint) bool {
	return c.IsAdmin() || c.StoreID == storeID
}

// GenerateToken issues an HS256 token for a user with their role's
// permissions flattened into the claim set.
func GenerateToken(secret string, ttl time.Duration, user *models.User, permissions []string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:      user.ID,
		Username:    user.Username,
		StoreID:     user.StoreID,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies the signature and expiry and returns the claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
