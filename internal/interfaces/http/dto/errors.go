package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked = "ERR_TOKEN_REVOKED"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
)

// Input error codes
const (
	ErrCodeBadRequest    = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput  = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON   = "ERR_INVALID_JSON"
	ErrCodeTooLarge      = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited   = "ERR_RATE_LIMITED"
	ErrCodeUnavailable   = "ERR_SERVICE_UNAVAILABLE"
	ErrCodeInvalidFormat = "INVALID_FORMAT"
)

// Quality control codes kept verbatim on the wire
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailExists        = "EMAIL_EXISTS"
	ErrCodeNameExists         = "NAME_EXISTS"
	ErrCodeProductNameExists  = "PRODUCT_NAME_EXISTS"
	ErrCodeCannotDeleteSelf   = "CANNOT_DELETE_SELF"
	ErrCodeProductInUse       = "PRODUCT_IN_USE"
	ErrCodeUserInUse          = "USER_IN_USE"
	ErrCodeInspectionNotFound = "INSPECTION_NOT_FOUND"
	ErrCodeInvalidResetToken  = "INVALID_TOKEN"
	ErrCodeEmailNotSent       = "EMAIL_NOT_SENT"
	ErrCodeInvalidImage       = "INVALID_IMAGE"
	ErrCodeFileTooLarge       = "FILE_TOO_LARGE"
	ErrCodeNoImages           = "NO_IMAGES"
	ErrCodeTooManyImages      = "TOO_MANY_IMAGES"
	ErrCodeModelUnavailable   = "MODEL_UNAVAILABLE"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeReportUnavailable  = "REPORT_UNAVAILABLE"
	ErrCodeReportFailed       = "REPORT_RENDER_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidInput:  http.StatusBadRequest,
	ErrCodeInvalidJSON:   http.StatusBadRequest,
	ErrCodeTooLarge:      http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:   http.StatusTooManyRequests,
	ErrCodeUnavailable:   http.StatusServiceUnavailable,
	ErrCodeInvalidFormat: http.StatusBadRequest,

	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeEmailExists:        http.StatusBadRequest,
	ErrCodeNameExists:         http.StatusBadRequest,
	ErrCodeProductNameExists:  http.StatusBadRequest,
	ErrCodeCannotDeleteSelf:   http.StatusBadRequest,
	ErrCodeProductInUse:       http.StatusConflict,
	ErrCodeUserInUse:          http.StatusConflict,
	ErrCodeInspectionNotFound: http.StatusNotFound,
	ErrCodeInvalidResetToken:  http.StatusBadRequest,
	ErrCodeEmailNotSent:       http.StatusInternalServerError,
	ErrCodeInvalidImage:       http.StatusBadRequest,
	ErrCodeFileTooLarge:       http.StatusRequestEntityTooLarge,
	ErrCodeNoImages:           http.StatusBadRequest,
	ErrCodeTooManyImages:      http.StatusBadRequest,
	ErrCodeModelUnavailable:   http.StatusServiceUnavailable,
	ErrCodeStorageUnavailable: http.StatusServiceUnavailable,
	ErrCodeReportUnavailable:  http.StatusServiceUnavailable,
	ErrCodeReportFailed:       http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unlisted INVALID_* codes are 400 and *_NOT_FOUND codes are 404; anything else is 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps shared domain codes to standardized codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_STATE":          ErrCodeInvalidState,
	"UNAUTHORIZED":           ErrCodeUnauthorized,
	"FORBIDDEN":              ErrCodeForbidden,
	"CONCURRENCY_CONFLICT":   ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":       ErrCodeValidation,
	"BAD_REQUEST":            ErrCodeBadRequest,
	"INTERNAL_ERROR":         ErrCodeInternal,
	"PASSWORD_HASH_ERROR":    ErrCodeInternal,
	"TOKEN_GENERATION_ERROR": ErrCodeInternal,
}

// NormalizeErrorCode converts a legacy error code to the standardized format.
// Codes already in the new format, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
