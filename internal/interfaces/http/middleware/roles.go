package middleware

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/qcdash/backend/internal/domain/identity"
	"github.com/qcdash/backend/internal/interfaces/http/dto"
)

// RequireRoles lets the request through only when the caller's role is listed.
// It must run after the JWT middleware.
func RequireRoles(roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Not authorized to access this route", GetRequestID(c)))
			return
		}

		if !slices.Contains(roles, identity.Role(claims.Role)) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden,
				fmt.Sprintf("User role %s is not authorized to access this route", claims.Role),
				GetRequestID(c)))
			return
		}

		c.Next()
	}
}
