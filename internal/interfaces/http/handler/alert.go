package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	alertapp "github.com/qcdash/backend/internal/application/alert"
	"github.com/qcdash/backend/internal/interfaces/http/dto"
)

// AlertFeed serves the live alert websocket
type AlertFeed interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// AlertHandler handles alert endpoints
type AlertHandler struct {
	BaseHandler
	alertService *alertapp.AlertService
	feed         AlertFeed
}

// NewAlertHandler creates a new AlertHandler. A nil feed disables the websocket.
func NewAlertHandler(alertService *alertapp.AlertService, feed AlertFeed) *AlertHandler {
	return &AlertHandler{alertService: alertService, feed: feed}
}

// List godoc
// @ID           listAlerts
// @Summary      List alerts
// @Description  Newest first
// @Tags         alerts
// @Produce      json
// @Param        read query bool false "Read state"
// @Param        type query string false "Alert type" Enums(high-defect-rate, inspection-failed, critical-defect, other)
// @Param        severity query string false "Severity" Enums(low, medium, high, critical)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(10)
// @Success      200 {object} APIResponse[[]alertapp.AlertResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	var q alertapp.ListAlertsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	items, total, err := h.alertService.List(c.Request.Context(), q)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	page, size := paging(q.Page, q.PageSize)
	h.SuccessWithMeta(c, items, total, page, size)
}

// GetByID godoc
// @ID           getAlert
// @Summary      Get an alert
// @Tags         alerts
// @Produce      json
// @Param        id path string true "Alert ID" format(uuid)
// @Success      200 {object} APIResponse[alertapp.AlertResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /alerts/{id} [get]
func (h *AlertHandler) GetByID(c *gin.Context) {
	id, ok := h.paramID(c, "id", "alert")
	if !ok {
		return
	}
	a, err := h.alertService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, a)
}

// MarkRead godoc
// @ID           markAlertRead
// @Summary      Mark an alert as read
// @Tags         alerts
// @Produce      json
// @Param        id path string true "Alert ID" format(uuid)
// @Success      200 {object} APIResponse[alertapp.AlertResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /alerts/{id}/read [put]
func (h *AlertHandler) MarkRead(c *gin.Context) {
	id, ok := h.paramID(c, "id", "alert")
	if !ok {
		return
	}
	a, err := h.alertService.MarkRead(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, a)
}

// MarkAllRead godoc
// @ID           markAllAlertsRead
// @Summary      Mark every alert as read
// @Tags         alerts
// @Produce      json
// @Success      200 {object} APIResponse[CountData]
// @Security     BearerAuth
// @Router       /alerts/read-all [put]
func (h *AlertHandler) MarkAllRead(c *gin.Context) {
	n, err := h.alertService.MarkAllRead(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, CountData{Count: n})
}

// Delete godoc
// @ID           deleteAlert
// @Summary      Delete an alert
// @Tags         alerts
// @Produce      json
// @Param        id path string true "Alert ID" format(uuid)
// @Success      200 {object} APIResponse[dto.MessageResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /alerts/{id} [delete]
func (h *AlertHandler) Delete(c *gin.Context) {
	id, ok := h.paramID(c, "id", "alert")
	if !ok {
		return
	}
	if err := h.alertService.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.MessageResponse{Message: "Alert deleted"})
}

// Feed godoc
// @ID           alertFeed
// @Summary      Live alert feed
// @Description  Websocket. Each message is {"type":"alert.created","data":Alert}.
// @Tags         alerts
// @Success      101
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /alerts/ws [get]
func (h *AlertHandler) Feed(c *gin.Context) {
	if h.feed == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Alert feed is not available")
		return
	}
	h.feed.ServeWS(c.Writer, c.Request)
}
