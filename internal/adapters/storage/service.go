// Package storage issues presigned URLs for design files kept in an
// S3-compatible bucket. Clients upload and download directly; the API only
// records file keys.
package storage

import (
	"errors"
	"time"
)

// ErrObjectNotFound reports a key with no object behind it.
var ErrObjectNotFound = errors.New("storage: object not found")

// PresignedURL contains the URL and metadata for a presigned upload/download operation.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectInfo is what the bucket knows about a stored file.
type ObjectInfo struct {
	Size        int64
	ContentType string
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketDesignAssets() string
	IsMinIOEnabled() bool
}
