// Package upload holds the image rules and object storage port shared by the
// services that accept pictures.
package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/qcdash/backend/internal/domain/shared"
)

// Storage folders, relative to the configured folder prefix
const (
	FolderProducts    = "products"
	FolderDefects     = "defects"
	FolderInspections = "inspections"
	FolderAIDetection = "ai-detection"
)

var (
	ErrInvalidImage       = shared.NewDomainError("INVALID_IMAGE", "Only image files are allowed (jpeg, jpg, png, gif)")
	ErrFileTooLarge       = shared.NewDomainError("FILE_TOO_LARGE", "File size exceeds the upload limit")
	ErrStorageUnavailable = shared.NewDomainError("STORAGE_UNAVAILABLE", "Image storage is not configured")
	ErrNoImages           = shared.NewDomainError("NO_IMAGES", "Please upload at least one image")
	ErrTooManyImages      = shared.NewDomainError("TOO_MANY_IMAGES", "Too many images in one upload")
)

// Image is an uploaded file already read into memory
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the payload length in bytes
func (i Image) Size() int64 { return int64(len(i.Data)) }

// Ext returns the lower-cased file extension including the dot
func (i Image) Ext() string { return strings.ToLower(filepath.Ext(i.Filename)) }

// Stored is the location of an uploaded object
type Stored struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Storage uploads and deletes objects
type Storage interface {
	// Upload stores img under folder and returns its key and public URL
	Upload(ctx context.Context, folder string, img Image) (Stored, error)
	// Delete removes an object. Unknown keys are not an error.
	Delete(ctx context.Context, key string) error
	// Configured reports whether uploads can succeed
	Configured() bool
}

// Rules restrict what may be uploaded
type Rules struct {
	MaxSize           int64
	AllowedExtensions []string
	// MaxInspectionImages caps one inspection image upload
	MaxInspectionImages int
	// MaxBulkImages caps one bulk analysis
	MaxBulkImages int
}

// DefaultRules accepts jpeg, jpg, png and gif up to 5MB
func DefaultRules() Rules {
	return Rules{
		MaxSize:             5 << 20,
		AllowedExtensions:   []string{".jpeg", ".jpg", ".png", ".gif"},
		MaxInspectionImages: 5,
		MaxBulkImages:       10,
	}
}

// Check validates the extension, the image/* mime subtype and the size
func (r Rules) Check(img Image) error {
	ext := img.Ext()
	if !slices.Contains(r.AllowedExtensions, ext) {
		return ErrInvalidImage
	}
	if !r.allowsContentType(img.ContentType) {
		return ErrInvalidImage
	}
	if r.MaxSize > 0 && img.Size() > r.MaxSize {
		return shared.NewDomainError(ErrFileTooLarge.Code,
			fmt.Sprintf("File size exceeds the %dMB limit", r.MaxSize>>20))
	}
	return nil
}

// CheckAll validates every image and the batch size
func (r Rules) CheckAll(images []Image, limit int) error {
	if len(images) == 0 {
		return ErrNoImages
	}
	if limit > 0 && len(images) > limit {
		return shared.NewDomainError(ErrTooManyImages.Code,
			fmt.Sprintf("At most %d images can be uploaded at once", limit))
	}
	for _, img := range images {
		if err := r.Check(img); err != nil {
			return err
		}
	}
	return nil
}

func (r Rules) allowsContentType(contentType string) bool {
	mediaType, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	sub, ok := strings.CutPrefix(strings.TrimSpace(mediaType), "image/")
	if !ok {
		return false
	}
	return slices.Contains(r.AllowedExtensions, "."+sub)
}
