package storage

import (
	"fmt"
	"strings"

	"production_backend/platform/apperr"
)

// AllowedContentTypes are the file types accepted as design assets.
var AllowedContentTypes = map[string]bool{
	"image/jpeg":                   true,
	"image/png":                    true,
	"image/gif":                    true,
	"image/webp":                   true,
	"image/svg+xml":                true,
	"image/tiff":                   true,
	"image/vnd.adobe.photoshop":    true,
	"application/pdf":              true,
	"application/postscript":       true,
	"application/illustrator":      true,
	"application/zip":              true,
	"application/x-zip-compressed": true,
}

// ValidateContentType checks if the content type is allowed.
func (s *MinIOService) ValidateContentType(contentType string) error {
	normalized := strings.Split(contentType, ";")[0]
	normalized = strings.TrimSpace(strings.ToLower(normalized))

	if !AllowedContentTypes[normalized] {
		return apperr.Validation(fmt.Sprintf("content type %q is not allowed", contentType))
	}
	return nil
}

// ValidateFileSize checks if the file size is within limits.
func (s *MinIOService) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return apperr.Validation("file size must be greater than 0")
	}
	if s.maxFileSize > 0 && sizeBytes > s.maxFileSize {
		return apperr.Validation(fmt.Sprintf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, s.maxFileSize))
	}
	return nil
}
