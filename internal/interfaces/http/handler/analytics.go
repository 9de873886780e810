package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	analyticsapp "github.com/qcdash/backend/internal/application/analytics"
)

// AnalyticsHandler handles dashboard analytics endpoints
type AnalyticsHandler struct {
	BaseHandler
	analyticsService *analyticsapp.Service
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(analyticsService *analyticsapp.Service) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Dashboard godoc
// @ID           getDashboard
// @Summary      Quality dashboard
// @Description  Overall metrics, defect breakdowns, trends, product rates, inspector performance and AI metrics
// @Tags         analytics
// @Produce      json
// @Param        start_date query string false "From" format(date)
// @Param        end_date query string false "To" format(date)
// @Param        product query string false "Product ID" format(uuid)
// @Success      200 {object} APIResponse[analyticsapp.DashboardResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /analytics [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	q, ok := h.dashboardQuery(c)
	if !ok {
		return
	}
	dashboard, err := h.analyticsService.Dashboard(c.Request.Context(), q)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dashboard)
}

// InspectionStatus godoc
// @ID           getInspectionStatus
// @Summary      Inspection status breakdown
// @Tags         analytics
// @Produce      json
// @Param        period query string false "Window" Enums(day, week, month, year) default(week)
// @Success      200 {object} APIResponse[analyticsapp.InspectionStatusResponse]
// @Security     BearerAuth
// @Router       /analytics/inspections [get]
func (h *AnalyticsHandler) InspectionStatus(c *gin.Context) {
	report, err := h.analyticsService.InspectionStatus(c.Request.Context(), c.Query("period"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, report)
}

// Report godoc
// @ID           getQualityReport
// @Summary      Quality report
// @Description  The dashboard rendered as an HTML page or a PDF
// @Tags         analytics
// @Produce      text/html
// @Produce      application/pdf
// @Param        format query string false "Output" Enums(html, pdf) default(html)
// @Param        start_date query string false "From" format(date)
// @Param        end_date query string false "To" format(date)
// @Param        product query string false "Product ID" format(uuid)
// @Success      200 {file} file
// @Failure      400 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /analytics/report [get]
func (h *AnalyticsHandler) Report(c *gin.Context) {
	q, ok := h.dashboardQuery(c)
	if !ok {
		return
	}
	report, err := h.analyticsService.Report(c.Request.Context(), q, c.Query("format"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	disposition := "inline"
	if report.ContentType == "application/pdf" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", disposition+`; filename="`+report.Filename+`"`)
	c.Data(http.StatusOK, report.ContentType, report.Body)
}

func (h *AnalyticsHandler) dashboardQuery(c *gin.Context) (analyticsapp.DashboardQuery, bool) {
	var q analyticsapp.DashboardQuery
	var ok bool
	if q.From, q.To, ok = h.dateRange(c); !ok {
		return q, false
	}
	if q.ProductID, ok = h.optionalID(c, c.Query("product"), "product"); !ok {
		return q, false
	}
	return q, true
}
