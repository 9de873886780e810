package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/qcdash/backend/internal/infrastructure/auth"
	"github.com/qcdash/backend/internal/interfaces/http/handler"
	"github.com/qcdash/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "/api/v1", r.BasePath())

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouter_SetupAppliesMiddlewareToAPIOnly(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("mark")) })

	r := NewRouter(engine).Use(func(c *gin.Context) {
		c.Set("mark", "api")
		c.Next()
	})
	g := NewDomainGroup("test", "/test")
	g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("mark")) })
	r.Register(g).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/test/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "api", w.Body.String())

	w = serve(engine, http.MethodGet, "/health")
	assert.Equal(t, "", w.Body.String())
}

func TestDomainGroup_RegisterRoutes(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("items", "/items")
	ok := func(status int) gin.HandlerFunc {
		return func(c *gin.Context) { c.Status(status) }
	}
	g.GET("", ok(http.StatusOK))
	g.POST("", ok(http.StatusCreated))
	g.PUT("/:id", ok(http.StatusAccepted))
	g.DELETE("/:id", ok(http.StatusNoContent))
	g.RegisterRoutes(engine.Group("/api/v1"))

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/items").Code)
	assert.Equal(t, http.StatusCreated, serve(engine, http.MethodPost, "/api/v1/items").Code)
	assert.Equal(t, http.StatusAccepted, serve(engine, http.MethodPut, "/api/v1/items/1").Code)
	assert.Equal(t, http.StatusNoContent, serve(engine, http.MethodDelete, "/api/v1/items/1").Code)
}

func TestDomainGroup_SubgroupInheritsMiddleware(t *testing.T) {
	engine := gin.New()
	calls := 0
	g := NewDomainGroup("parent", "/parent").Use(func(c *gin.Context) {
		calls++
		c.Next()
	})
	g.Group("child", "/child").GET("/leaf", func(c *gin.Context) { c.Status(http.StatusOK) })
	g.RegisterRoutes(engine.Group(""))

	w := serve(engine, http.MethodGet, "/parent/child/leaf")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, calls)
}

func TestDomainGroup_Routes(t *testing.T) {
	g := NewDomainGroup("catalog", "/products")
	g.GET("", func(*gin.Context) {})
	g.GET("/:id", func(*gin.Context) {})
	g.Group("images", "/images").POST("/", func(*gin.Context) {})

	assert.Equal(t, "catalog", g.Name())
	assert.Equal(t, "/products", g.Prefix())
	assert.Equal(t, []Route{
		{Method: http.MethodGet, Path: "/products"},
		{Method: http.MethodGet, Path: "/products/:id"},
		{Method: http.MethodPost, Path: "/products/images"},
	}, g.Routes())
}

func emptyHandlers() Handlers {
	return Handlers{
		Auth:       &handler.AuthHandler{},
		User:       &handler.UserHandler{},
		Product:    &handler.ProductHandler{},
		Inspection: &handler.InspectionHandler{},
		Defect:     &handler.DefectHandler{},
		Alert:      &handler.AlertHandler{},
		Analytics:  &handler.AnalyticsHandler{},
		AI:         &handler.AIHandler{},
	}
}

func TestAPIGroups_Routes(t *testing.T) {
	var routes []Route
	for _, g := range APIGroups(emptyHandlers()) {
		routes = append(routes, g.Routes()...)
	}

	expected := []Route{
		{http.MethodPost, "/auth/register"},
		{http.MethodPost, "/auth/login"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/auth/forgot-password"},
		{http.MethodPut, "/auth/reset-password/:token"},
		{http.MethodGet, "/users"},
		{http.MethodDelete, "/users/:id"},
		{http.MethodPost, "/products/:id/image"},
		{http.MethodGet, "/inspections/export"},
		{http.MethodPut, "/inspections/:id/complete"},
		{http.MethodPost, "/inspections/:id/images"},
		{http.MethodGet, "/defects/stats"},
		{http.MethodPost, "/defects/bulk"},
		{http.MethodPut, "/defects/:id/resolve"},
		{http.MethodGet, "/defects/export"},
		{http.MethodPut, "/alerts/read-all"},
		{http.MethodGet, "/alerts/ws"},
		{http.MethodGet, "/analytics"},
		{http.MethodGet, "/analytics/inspections"},
		{http.MethodGet, "/analytics/report"},
		{http.MethodPost, "/ai/detect"},
		{http.MethodPost, "/ai/bulk-analyze"},
		{http.MethodGet, "/ai/stats"},
		{http.MethodGet, "/ai/model-status"},
	}
	for _, r := range expected {
		assert.Contains(t, routes, r)
	}
}

func TestAPIGroups_RoleChecks(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine).Use(func(c *gin.Context) {
		c.Set(middleware.JWTClaimsKey, &auth.Claims{UserID: "u-1", Role: "inspector"})
		c.Next()
	})
	RegisterAPI(r, emptyHandlers())
	r.Setup()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users"},
		{http.MethodDelete, "/api/v1/users/1"},
		{http.MethodGet, "/api/v1/alerts"},
		{http.MethodPut, "/api/v1/alerts/read-all"},
		{http.MethodDelete, "/api/v1/inspections/1"},
		{http.MethodDelete, "/api/v1/defects/1"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(engine, tt.method, tt.path)
			require.Equal(t, http.StatusForbidden, w.Code)
			assert.Contains(t, w.Body.String(), "User role inspector is not authorized to access this route")
		})
	}
}
