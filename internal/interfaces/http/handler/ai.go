package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	detectionapp "github.com/qcdash/backend/internal/application/detection"
	"github.com/qcdash/backend/internal/domain/detection"
)

// AIHandler handles the image classification endpoints
type AIHandler struct {
	BaseHandler
	detectionService *detectionapp.Service
}

// NewAIHandler creates a new AIHandler
func NewAIHandler(detectionService *detectionapp.Service) *AIHandler {
	return &AIHandler{detectionService: detectionService}
}

// Detect godoc
// @ID           detectDefect
// @Summary      Classify one image
// @Description  With an inspection the image is attached to it and a detected defect is recorded
// @Tags         ai
// @Accept       multipart/form-data
// @Produce      json
// @Param        image formData file true "Product image"
// @Param        inspection_id formData string false "Inspection ID" format(uuid)
// @Success      200 {object} APIResponse[detectionapp.DetectResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ai/detect [post]
func (h *AIHandler) Detect(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	img, err := formImage(c, "image")
	if err != nil {
		h.uploadError(c, err)
		return
	}
	if img == nil {
		h.BadRequest(c, "Please upload an image")
		return
	}
	inspectionID, ok := h.optionalID(c, c.PostForm("inspection_id"), "inspection")
	if !ok {
		return
	}

	resp, err := h.detectionService.Detect(c.Request.Context(), actor.ID, *img, inspectionID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// BulkAnalyze godoc
// @ID           bulkAnalyzeImages
// @Summary      Classify several images of one inspection
// @Tags         ai
// @Accept       multipart/form-data
// @Produce      json
// @Param        images formData file true "Product images"
// @Param        inspection_id formData string true "Inspection ID" format(uuid)
// @Success      200 {object} APIResponse[detectionapp.BulkResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ai/bulk-analyze [post]
func (h *AIHandler) BulkAnalyze(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	images, err := formImages(c, "images")
	if err != nil {
		h.uploadError(c, err)
		return
	}
	id, ok := h.optionalID(c, c.PostForm("inspection_id"), "inspection")
	if !ok {
		return
	}
	var inspectionID uuid.UUID
	if id != nil {
		inspectionID = *id
	}

	resp, err := h.detectionService.BulkAnalyze(c.Request.Context(), actor.ID, inspectionID, images)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// Stats godoc
// @ID           aiStats
// @Summary      AI detection statistics
// @Description  Over AI-detected defects of the last 30 days
// @Tags         ai
// @Produce      json
// @Success      200 {object} APIResponse[detectionapp.StatsResponse]
// @Security     BearerAuth
// @Router       /ai/stats [get]
func (h *AIHandler) Stats(c *gin.Context) {
	stats, err := h.detectionService.Stats(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stats)
}

// ModelStatus godoc
// @ID           aiModelStatus
// @Summary      Classifier status
// @Tags         ai
// @Produce      json
// @Success      200 {object} APIResponse[detection.ModelStatus]
// @Security     BearerAuth
// @Router       /ai/model-status [get]
func (h *AIHandler) ModelStatus(c *gin.Context) {
	var status detection.ModelStatus = h.detectionService.ModelStatus(c.Request.Context())
	h.Success(c, status)
}
