// Package jwtmw issues HS256 tokens and guards routes that require them.
package jwtmw

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"product_backend/internal/api"
	"product_backend/internal/shared/apperror"
)

// Context keys set by AuthRequired. Read them through UserID and Email.
const (
	contextUserID = "userID"
	contextEmail  = "email"
)

// AuthRequired returns a Gin middleware function that validates JWT tokens
// and restricts access to authenticated users only.
func AuthRequired(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		// 1. Get Authorization header
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			api.AbortWithError(c, apperror.NewUnauthorized("missing bearer token", nil))
			return
		}
		tokenStr := strings.TrimPrefix(auth, "Bearer ")

		// 2. Server misconfiguration (JWT_SECRET not set)
		if len(key) == 0 {
			api.AbortWithError(c, apperror.NewInternal("server misconfigured", nil))
			return
		}

		// 3. Parse and verify JWT signature (only HMAC allowed)
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return key, nil
		}, jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			api.AbortWithError(c, apperror.NewUnauthorized("invalid token", err))
			return
		}

		// 4. Extract claims (payload)
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			api.AbortWithError(c, apperror.NewUnauthorized("invalid token", nil))
			return
		}
		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			api.AbortWithError(c, apperror.NewUnauthorized("invalid token", err))
			return
		}
		c.Set(contextUserID, userID)
		if email, ok := claims["email"].(string); ok {
			c.Set(contextEmail, email)
		}

		// 5. Pass control to the next handler
		c.Next()
	}
}

// UserID returns the authenticated user id stored by AuthRequired.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(contextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Email returns the authenticated email stored by AuthRequired, or "".
func Email(c *gin.Context) string {
	return c.GetString(contextEmail)
}
