package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/qcdash/backend/internal/application/identity"
	"github.com/qcdash/backend/internal/application/upload"
	"github.com/qcdash/backend/internal/domain/identity"
	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/qcdash/backend/internal/interfaces/http/dto"
	"github.com/qcdash/backend/internal/interfaces/http/middleware"
)

const dateLayout = "2006-01-02"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindError answers a failed ShouldBind. Validator errors get per-field
// details, anything else (malformed JSON, wrong types) a plain 400.
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); details != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			"Request validation failed", middleware.GetRequestID(c), details))
		return
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge, "Request body exceeds maximum allowed size")
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body")
}

// HandleDomainError converts domain errors to HTTP responses
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}
	_ = c.Error(err)
	h.InternalError(c, "An unexpected error occurred")
}

// actor builds the caller from JWT claims. It answers 401 itself when absent.
func (h *BaseHandler) actor(c *gin.Context) (identityapp.Actor, bool) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Not authorized to access this route")
		return identityapp.Actor{}, false
	}
	id, err := claims.GetUserUUID()
	if err != nil {
		h.Unauthorized(c, "Not authorized to access this route")
		return identityapp.Actor{}, false
	}
	return identityapp.Actor{ID: id, Role: identity.Role(claims.Role)}, true
}

// paramID parses a path UUID, answering 400 "Invalid <resource> ID" on failure
func (h *BaseHandler) paramID(c *gin.Context, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, fmt.Sprintf("Invalid %s ID", resource))
		return uuid.Nil, false
	}
	return id, true
}

// optionalID parses an optional UUID query or form value
func (h *BaseHandler) optionalID(c *gin.Context, raw, resource string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.BadRequest(c, fmt.Sprintf("Invalid %s ID", resource))
		return nil, false
	}
	return &id, true
}

// dateRange parses the start_date and end_date query parameters.
// A date-only end covers that whole day.
func (h *BaseHandler) dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := parseDate(c.Query("start_date"), false)
	if err != nil {
		h.BadRequest(c, "Invalid date format")
		return time.Time{}, time.Time{}, false
	}
	to, err := parseDate(c.Query("end_date"), true)
	if err != nil {
		h.BadRequest(c, "Invalid date format")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// formImage reads one optional multipart file. A missing field yields nil.
func formImage(c *gin.Context, field string) (*upload.Image, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	img, err := readFileHeader(fh)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// formImages reads every file sent under field
func formImages(c *gin.Context, field string) ([]upload.Image, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	headers := form.File[field]
	images := make([]upload.Image, 0, len(headers))
	for _, fh := range headers {
		img, err := readFileHeader(fh)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func readFileHeader(fh *multipart.FileHeader) (upload.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return upload.Image{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return upload.Image{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return upload.Image{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// uploadError answers a multipart parsing failure
func (h *BaseHandler) uploadError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		h.HandleDomainError(c, upload.ErrFileTooLarge)
		return
	}
	h.BadRequest(c, "Invalid multipart form")
}

const defaultPageSize = 10

// paging returns the page and page size a list query resolves to
func paging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	return page, pageSize
}
