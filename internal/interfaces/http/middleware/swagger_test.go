package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func swaggerRouter(cfg SwaggerConfig, jwt gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg, jwt), okHandler)
	return router
}

func serveSwagger(router *gin.Engine, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestSwaggerProtection(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, serveSwagger(swaggerRouter(SwaggerConfig{}, nil), "10.0.0.1:1234"))
	})

	t.Run("open", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serveSwagger(swaggerRouter(SwaggerConfig{Enabled: true}, nil), "10.0.0.1:1234"))
	})

	t.Run("ip allow list", func(t *testing.T) {
		router := swaggerRouter(SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.168.1.0/24", "10.0.0.7", "bogus"}}, nil)

		assert.Equal(t, http.StatusOK, serveSwagger(router, "192.168.1.20:5000"))
		assert.Equal(t, http.StatusOK, serveSwagger(router, "10.0.0.7:5000"))
		assert.Equal(t, http.StatusForbidden, serveSwagger(router, "10.0.0.8:5000"))
	})

	t.Run("auth required", func(t *testing.T) {
		deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
		router := swaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true}, deny)

		assert.Equal(t, http.StatusUnauthorized, serveSwagger(router, "10.0.0.1:1234"))
	})
}
