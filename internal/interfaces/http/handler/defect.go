package handler

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	defectapp "github.com/qcdash/backend/internal/application/defect"
	"github.com/qcdash/backend/internal/application/upload"
	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/infrastructure/export"
	"github.com/qcdash/backend/internal/interfaces/http/dto"
)

// DefectHandler handles defect endpoints
type DefectHandler struct {
	BaseHandler
	defectService *defectapp.Service
}

// NewDefectHandler creates a new DefectHandler
func NewDefectHandler(defectService *defectapp.Service) *DefectHandler {
	return &DefectHandler{defectService: defectService}
}

// Create godoc
// @ID           createDefect
// @Summary      Report a defect
// @Description  Accepts JSON, or multipart form fields plus an optional image. In a form, measurements is a JSON object string.
// @Tags         defects
// @Accept       json
// @Accept       multipart/form-data
// @Produce      json
// @Param        request body defectapp.CreateDefectRequest true "Defect"
// @Success      201 {object} APIResponse[defectapp.DefectResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /defects [post]
func (h *DefectHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req defectapp.CreateDefectRequest
	var img *upload.Image
	if isMultipart(c) {
		if err := c.ShouldBind(&req); err != nil {
			h.BindError(c, err)
			return
		}
		inspectionID, ok := h.requiredFormID(c, "inspection_id", "inspection")
		if !ok {
			return
		}
		productID, ok := h.requiredFormID(c, "product_id", "product")
		if !ok {
			return
		}
		req.InspectionID, req.ProductID = inspectionID, productID
		if req.Measurements, ok = h.formMeasurements(c); !ok {
			return
		}
		var err error
		if img, err = formImage(c, "image"); err != nil {
			h.uploadError(c, err)
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	d, err := h.defectService.Create(c.Request.Context(), actor.ID, req, img)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, d)
}

// BulkCreate godoc
// @ID           bulkCreateDefects
// @Summary      Report several defects
// @Description  Items are processed independently; failures are listed by index
// @Tags         defects
// @Accept       json
// @Produce      json
// @Param        request body defectapp.BulkCreateRequest true "Defects"
// @Success      201 {object} APIResponse[defectapp.BulkResult]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /defects/bulk [post]
func (h *DefectHandler) BulkCreate(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req defectapp.BulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	result, err := h.defectService.BulkCreate(c.Request.Context(), actor.ID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, result)
}

// List godoc
// @ID           listDefects
// @Summary      List defects
// @Tags         defects
// @Produce      json
// @Param        product query string false "Product ID" format(uuid)
// @Param        inspection query string false "Inspection ID" format(uuid)
// @Param        type query string false "Defect type"
// @Param        severity query string false "Severity" Enums(minor, major, critical)
// @Param        status query string false "Status" Enums(open, investigating, resolved, rejected)
// @Param        root_cause query string false "Root cause"
// @Param        start_date query string false "Created on or after" format(date)
// @Param        end_date query string false "Created on or before" format(date)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(10)
// @Param        order_by query string false "Sort field" default(created_at)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]defectapp.DefectResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /defects [get]
func (h *DefectHandler) List(c *gin.Context) {
	q, ok := h.listQuery(c)
	if !ok {
		return
	}
	items, total, err := h.defectService.List(c.Request.Context(), q)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	page, size := paging(q.Page, q.PageSize)
	h.SuccessWithMeta(c, items, total, page, size)
}

// Export godoc
// @ID           exportDefects
// @Summary      Export defects
// @Description  Spreadsheet of every defect matching the list filters
// @Tags         defects
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      text/csv
// @Param        format query string false "File format" Enums(xlsx, csv) default(xlsx)
// @Param        product query string false "Product ID" format(uuid)
// @Param        severity query string false "Severity"
// @Param        start_date query string false "Created on or after" format(date)
// @Param        end_date query string false "Created on or before" format(date)
// @Success      200 {file} file
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /defects/export [get]
func (h *DefectHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	q, ok := h.listQuery(c)
	if !ok {
		return
	}
	items, err := h.defectService.ListAll(c.Request.Context(), q)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.sendTable(c, format, "defects", defectTable(items))
}

// Stats godoc
// @ID           defectStats
// @Summary      Defect statistics
// @Description  Counts by type, severity, root cause and status plus a daily severity trend
// @Tags         defects
// @Produce      json
// @Param        product query string false "Product ID" format(uuid)
// @Param        start_date query string false "From" format(date)
// @Param        end_date query string false "To" format(date)
// @Success      200 {object} APIResponse[defectapp.StatsResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /defects/stats [get]
func (h *DefectHandler) Stats(c *gin.Context) {
	productID, ok := h.optionalID(c, c.Query("product"), "product")
	if !ok {
		return
	}
	from, to, ok := h.dateRange(c)
	if !ok {
		return
	}
	stats, err := h.defectService.Stats(c.Request.Context(), defectapp.StatsQuery{ProductID: productID, From: from, To: to})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stats)
}

// GetByID godoc
// @ID           getDefect
// @Summary      Get a defect
// @Tags         defects
// @Produce      json
// @Param        id path string true "Defect ID" format(uuid)
// @Success      200 {object} APIResponse[defectapp.DefectResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /defects/{id} [get]
func (h *DefectHandler) GetByID(c *gin.Context) {
	id, ok := h.paramID(c, "id", "defect")
	if !ok {
		return
	}
	d, err := h.defectService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, d)
}

// Update godoc
// @ID           updateDefect
// @Summary      Update a defect
// @Description  Moving to resolved records who resolved it and when. A new image replaces the old one.
// @Tags         defects
// @Accept       json
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Defect ID" format(uuid)
// @Param        request body defectapp.UpdateDefectRequest true "Fields to change"
// @Success      200 {object} APIResponse[defectapp.DefectResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /defects/{id} [put]
func (h *DefectHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id", "defect")
	if !ok {
		return
	}

	var req defectapp.UpdateDefectRequest
	var img *upload.Image
	if isMultipart(c) {
		if err := c.ShouldBind(&req); err != nil {
			h.BindError(c, err)
			return
		}
		if req.Measurements, ok = h.formMeasurements(c); !ok {
			return
		}
		var err error
		if img, err = formImage(c, "image"); err != nil {
			h.uploadError(c, err)
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	d, err := h.defectService.Update(c.Request.Context(), actor.ID, id, req, img)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, d)
}

// Resolve godoc
// @ID           resolveDefect
// @Summary      Resolve a defect
// @Tags         defects
// @Accept       json
// @Produce      json
// @Param        id path string true "Defect ID" format(uuid)
// @Param        request body defectapp.ResolveDefectRequest true "Resolution notes"
// @Success      200 {object} APIResponse[defectapp.DefectResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /defects/{id}/resolve [put]
func (h *DefectHandler) Resolve(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.paramID(c, "id", "defect")
	if !ok {
		return
	}
	var req defectapp.ResolveDefectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	d, err := h.defectService.Resolve(c.Request.Context(), actor.ID, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, d)
}

// Delete godoc
// @ID           deleteDefect
// @Summary      Delete a defect
// @Tags         defects
// @Produce      json
// @Param        id path string true "Defect ID" format(uuid)
// @Success      200 {object} APIResponse[dto.MessageResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /defects/{id} [delete]
func (h *DefectHandler) Delete(c *gin.Context) {
	id, ok := h.paramID(c, "id", "defect")
	if !ok {
		return
	}
	if err := h.defectService.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.MessageResponse{Message: "Defect deleted"})
}

func (h *DefectHandler) listQuery(c *gin.Context) (defectapp.ListDefectsQuery, bool) {
	var q defectapp.ListDefectsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return q, false
	}
	var ok bool
	if q.ProductID, ok = h.optionalID(c, c.Query("product"), "product"); !ok {
		return q, false
	}
	if q.InspectionID, ok = h.optionalID(c, c.Query("inspection"), "inspection"); !ok {
		return q, false
	}
	if q.From, q.To, ok = h.dateRange(c); !ok {
		return q, false
	}
	return q, true
}

func (h *DefectHandler) requiredFormID(c *gin.Context, field, resource string) (uuid.UUID, bool) {
	id, ok := h.optionalID(c, c.PostForm(field), resource)
	if !ok {
		return uuid.Nil, false
	}
	if id == nil {
		h.BadRequest(c, "Please provide "+field)
		return uuid.Nil, false
	}
	return *id, true
}

// formMeasurements decodes the measurements form field, a JSON object
func (h *DefectHandler) formMeasurements(c *gin.Context) (*defect.Measurements, bool) {
	raw := strings.TrimSpace(c.PostForm("measurements"))
	if raw == "" {
		return nil, true
	}
	var m defect.Measurements
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		h.BadRequest(c, "Invalid measurements")
		return nil, false
	}
	return &m, true
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func defectTable(items []defectapp.DefectResponse) export.Table {
	t := export.Table{
		Sheet: "Defects",
		Headers: []string{"ID", "Created", "Product", "Inspection", "Type", "Severity", "Status",
			"Root Cause", "Detected By", "AI Confidence", "Location", "Description", "Age (days)", "Resolved"},
		Rows: make([][]any, len(items)),
	}
	for i, d := range items {
		t.Rows[i] = []any{d.ID.String(), d.CreatedAt, d.ProductName, d.InspectionID.String(), d.Type,
			d.Severity, d.Status, d.RootCause, d.DetectedBy, d.AIConfidence, d.Location, d.Description,
			d.AgeInDays, d.ResolvedAt}
	}
	return t
}
