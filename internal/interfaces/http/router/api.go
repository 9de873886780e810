package router

import (
	"github.com/gin-gonic/gin"
	"github.com/qcdash/backend/internal/domain/identity"
	"github.com/qcdash/backend/internal/interfaces/http/handler"
	"github.com/qcdash/backend/internal/interfaces/http/middleware"
)

// Handlers bundles the HTTP handlers of the quality control API
type Handlers struct {
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Product    *handler.ProductHandler
	Inspection *handler.InspectionHandler
	Defect     *handler.DefectHandler
	Alert      *handler.AlertHandler
	Analytics  *handler.AnalyticsHandler
	AI         *handler.AIHandler
}

var (
	adminOnly      = []identity.Role{identity.RoleAdmin}
	supervisors    = []identity.Role{identity.RoleAdmin, identity.RoleManager}
	catalogEditors = []identity.Role{identity.RoleAdmin, identity.RoleManager, identity.RoleInspector}
)

func requireRoles(roles []identity.Role) gin.HandlerFunc {
	return middleware.RequireRoles(roles...)
}

// APIGroups builds the domain route groups. Authentication is applied by the
// Router middleware; the groups only add role checks.
func APIGroups(h Handlers) []*DomainGroup {
	auth := NewDomainGroup("auth", "/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/me", h.Auth.Me)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.PUT("/reset-password/:token", h.Auth.ResetPassword)

	users := NewDomainGroup("users", "/users")
	users.GET("", requireRoles(adminOnly), h.User.List)
	users.GET("/:id", requireRoles(adminOnly), h.User.GetByID)
	users.PUT("/:id", h.User.Update)
	users.DELETE("/:id", requireRoles(adminOnly), h.User.Delete)

	products := NewDomainGroup("catalog", "/products")
	products.GET("", h.Product.List)
	products.GET("/:id", h.Product.GetByID)
	products.POST("", requireRoles(catalogEditors), h.Product.Create)
	products.PUT("/:id", requireRoles(catalogEditors), h.Product.Update)
	products.DELETE("/:id", requireRoles(catalogEditors), h.Product.Delete)
	products.POST("/:id/image", requireRoles(catalogEditors), h.Product.UploadImage)

	inspections := NewDomainGroup("inspection", "/inspections")
	inspections.GET("", h.Inspection.List)
	inspections.GET("/export", h.Inspection.Export)
	inspections.GET("/:id", h.Inspection.GetByID)
	inspections.POST("", h.Inspection.Create)
	inspections.PUT("/:id", h.Inspection.Update)
	inspections.DELETE("/:id", requireRoles(supervisors), h.Inspection.Delete)
	inspections.POST("/:id/images", h.Inspection.AddImages)
	inspections.PUT("/:id/complete", h.Inspection.Complete)

	defects := NewDomainGroup("defect", "/defects")
	defects.GET("", h.Defect.List)
	defects.GET("/stats", h.Defect.Stats)
	defects.GET("/export", h.Defect.Export)
	defects.POST("", h.Defect.Create)
	defects.POST("/bulk", h.Defect.BulkCreate)
	defects.GET("/:id", h.Defect.GetByID)
	defects.PUT("/:id", h.Defect.Update)
	defects.PUT("/:id/resolve", h.Defect.Resolve)
	defects.DELETE("/:id", requireRoles(supervisors), h.Defect.Delete)

	alerts := NewDomainGroup("alert", "/alerts").Use(requireRoles(supervisors))
	alerts.GET("", h.Alert.List)
	alerts.GET("/ws", h.Alert.Feed)
	alerts.PUT("/read-all", h.Alert.MarkAllRead)
	alerts.GET("/:id", h.Alert.GetByID)
	alerts.PUT("/:id/read", h.Alert.MarkRead)
	alerts.DELETE("/:id", h.Alert.Delete)

	analytics := NewDomainGroup("analytics", "/analytics")
	analytics.GET("", h.Analytics.Dashboard)
	analytics.GET("/inspections", h.Analytics.InspectionStatus)
	analytics.GET("/report", h.Analytics.Report)

	ai := NewDomainGroup("detection", "/ai")
	ai.POST("/detect", h.AI.Detect)
	ai.POST("/bulk-analyze", h.AI.BulkAnalyze)
	ai.GET("/stats", h.AI.Stats)
	ai.GET("/model-status", h.AI.ModelStatus)

	return []*DomainGroup{auth, users, products, inspections, defects, alerts, analytics, ai}
}

// RegisterAPI registers every domain group on r
func RegisterAPI(r *Router, h Handlers) {
	for _, g := range APIGroups(h) {
		r.Register(g)
	}
}
