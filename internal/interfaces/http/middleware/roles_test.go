package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/qcdash/backend/internal/domain/identity"
	"github.com/qcdash/backend/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
)

func TestRequireRoles(t *testing.T) {
	withRole := func(role string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if role != "" {
				c.Set(JWTClaimsKey, &auth.Claims{UserID: "u1", Role: role})
			}
			c.Next()
		}
	}

	tests := []struct {
		name string
		role string
		want int
	}{
		{"admin allowed", string(identity.RoleAdmin), http.StatusOK},
		{"manager allowed", string(identity.RoleManager), http.StatusOK},
		{"inspector forbidden", string(identity.RoleInspector), http.StatusForbidden},
		{"no claims unauthorized", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(withRole(tt.role), RequireRoles(identity.RoleAdmin, identity.RoleManager))
			router.GET("/test", okHandler)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
