package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	inspectionapp "github.com/qcdash/backend/internal/application/inspection"
	"github.com/qcdash/backend/internal/infrastructure/export"
	"github.com/qcdash/backend/internal/interfaces/http/dto"
)

// InspectionHandler handles inspection endpoints
type InspectionHandler struct {
	BaseHandler
	inspectionService *inspectionapp.Service
}

// NewInspectionHandler creates a new InspectionHandler
func NewInspectionHandler(inspectionService *inspectionapp.Service) *InspectionHandler {
	return &InspectionHandler{inspectionService: inspectionService}
}

// List godoc
// @ID           listInspections
// @Summary      List inspections
// @Description  Newest first. date selects one whole day (YYYY-MM-DD).
// @Tags         inspections
// @Produce      json
// @Param        product query string false "Product ID" format(uuid)
// @Param        inspector query string false "Inspector ID" format(uuid)
// @Param        status query string false "Status" Enums(pending, completed, failed)
// @Param        date query string false "Day" format(date)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(10)
// @Param        order_by query string false "Sort field" default(date)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]inspectionapp.InspectionResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections [get]
func (h *InspectionHandler) List(c *gin.Context) {
	q, ok := h.listQuery(c)
	if !ok {
		return
	}
	items, total, err := h.inspectionService.List(c.Request.Context(), q)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	page, size := paging(q.Page, q.PageSize)
	h.SuccessWithMeta(c, items, total, page, size)
}

// Export godoc
// @ID           exportInspections
// @Summary      Export inspections
// @Description  Spreadsheet of every inspection matching the list filters
// @Tags         inspections
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      text/csv
// @Param        format query string false "File format" Enums(xlsx, csv) default(xlsx)
// @Param        product query string false "Product ID" format(uuid)
// @Param        inspector query string false "Inspector ID" format(uuid)
// @Param        status query string false "Status" Enums(pending, completed, failed)
// @Param        date query string false "Day" format(date)
// @Success      200 {file} file
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections/export [get]
func (h *InspectionHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	q, ok := h.listQuery(c)
	if !ok {
		return
	}
	items, err := h.inspectionService.ListAll(c.Request.Context(), q)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.sendTable(c, format, "inspections", inspectionTable(items))
}

// GetByID godoc
// @ID           getInspection
// @Summary      Get an inspection with its defects
// @Tags         inspections
// @Produce      json
// @Param        id path string true "Inspection ID" format(uuid)
// @Success      200 {object} APIResponse[inspectionapp.DetailResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections/{id} [get]
func (h *InspectionHandler) GetByID(c *gin.Context) {
	id, ok := h.paramID(c, "id", "inspection")
	if !ok {
		return
	}
	detail, err := h.inspectionService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, detail)
}

// Create godoc
// @ID           createInspection
// @Summary      Record an inspection
// @Description  The caller is recorded as the inspector
// @Tags         inspections
// @Accept       json
// @Produce      json
// @Param        request body inspectionapp.CreateInspectionRequest true "Inspection"
// @Success      201 {object} APIResponse[inspectionapp.InspectionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections [post]
func (h *InspectionHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req inspectionapp.CreateInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	item, err := h.inspectionService.Create(c.Request.Context(), actor.ID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, item)
}

// Update godoc
// @ID           updateInspection
// @Summary      Update an inspection
// @Tags         inspections
// @Accept       json
// @Produce      json
// @Param        id path string true "Inspection ID" format(uuid)
// @Param        request body inspectionapp.UpdateInspectionRequest true "Fields to change"
// @Success      200 {object} APIResponse[inspectionapp.InspectionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections/{id} [put]
func (h *InspectionHandler) Update(c *gin.Context) {
	id, ok := h.paramID(c, "id", "inspection")
	if !ok {
		return
	}
	var req inspectionapp.UpdateInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	item, err := h.inspectionService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, item)
}

// Delete godoc
// @ID           deleteInspection
// @Summary      Delete an inspection
// @Description  Also deletes its defects and their images
// @Tags         inspections
// @Produce      json
// @Param        id path string true "Inspection ID" format(uuid)
// @Success      200 {object} APIResponse[dto.MessageResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections/{id} [delete]
func (h *InspectionHandler) Delete(c *gin.Context) {
	id, ok := h.paramID(c, "id", "inspection")
	if !ok {
		return
	}
	if err := h.inspectionService.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.MessageResponse{Message: "Inspection deleted"})
}

// AddImages godoc
// @ID           addInspectionImages
// @Summary      Attach images to an inspection
// @Tags         inspections
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Inspection ID" format(uuid)
// @Param        images formData file true "Image files (up to 5)"
// @Success      200 {object} APIResponse[inspectionapp.InspectionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections/{id}/images [post]
func (h *InspectionHandler) AddImages(c *gin.Context) {
	id, ok := h.paramID(c, "id", "inspection")
	if !ok {
		return
	}
	images, err := formImages(c, "images")
	if err != nil {
		h.uploadError(c, err)
		return
	}
	item, err := h.inspectionService.AddImages(c.Request.Context(), id, images)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, item)
}

// Complete godoc
// @ID           completeInspection
// @Summary      Complete an inspection
// @Description  Counts the defects; the inspection fails when any were found
// @Tags         inspections
// @Produce      json
// @Param        id path string true "Inspection ID" format(uuid)
// @Success      200 {object} APIResponse[inspectionapp.InspectionResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inspections/{id}/complete [put]
func (h *InspectionHandler) Complete(c *gin.Context) {
	id, ok := h.paramID(c, "id", "inspection")
	if !ok {
		return
	}
	item, err := h.inspectionService.Complete(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, item)
}

func (h *InspectionHandler) listQuery(c *gin.Context) (inspectionapp.ListInspectionsQuery, bool) {
	var q inspectionapp.ListInspectionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return q, false
	}
	var ok bool
	if q.ProductID, ok = h.optionalID(c, c.Query("product"), "product"); !ok {
		return q, false
	}
	if q.InspectorID, ok = h.optionalID(c, c.Query("inspector"), "inspector"); !ok {
		return q, false
	}
	if raw := c.Query("date"); raw != "" {
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.BadRequest(c, "Invalid date format")
			return q, false
		}
		q.Day = &day
	}
	return q, true
}

func inspectionTable(items []inspectionapp.InspectionResponse) export.Table {
	t := export.Table{
		Sheet: "Inspections",
		Headers: []string{"ID", "Date", "Product", "Batch", "Inspector", "Status",
			"Total Inspected", "Defects Found", "Defect Rate (%)", "Notes"},
		Rows: make([][]any, len(items)),
	}
	for i, it := range items {
		t.Rows[i] = []any{it.ID.String(), it.Date, it.ProductName, it.BatchNumber, it.InspectorName,
			it.Status, it.TotalInspected, it.DefectsFound, it.DefectRate, it.Notes}
	}
	return t
}

// sendTable writes t as an attachment named after base
func (h *BaseHandler) sendTable(c *gin.Context, format export.Format, base string, t export.Table) {
	var buf bytes.Buffer
	if err := export.Write(&buf, format, t); err != nil {
		_ = c.Error(err)
		h.InternalError(c, "Failed to build export")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+format.Filename(base)+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
