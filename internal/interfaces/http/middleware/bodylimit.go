package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qcdash/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects bodies larger than maxBytes. Multipart image uploads are
// checked per file by the upload rules, so the limit should leave room for them.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeTooLarge, "Request body exceeds maximum allowed size", GetRequestID(c)))
			return
		}

		// streaming bodies without a length are cut off by the reader
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
