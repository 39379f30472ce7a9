package adapters

import (
	"context"
	"errors"

	"production_backend/internal/adapters/storage"
	designsvc "production_backend/internal/designjobs/service"
)

type presigner interface {
	GenerateUploadURL(ctx context.Context, folder, fileName, contentType string, sizeBytes int64) (*storage.PresignedURL, error)
	GenerateDownloadURL(ctx context.Context, fileKey string) (*storage.PresignedURL, error)
	StatObject(ctx context.Context, fileKey string) (*storage.ObjectInfo, error)
}

// DesignAssetStorage presigns design file transfers against object storage.
type DesignAssetStorage struct {
	store presigner
}

func NewDesignAssetStorage(store presigner) *DesignAssetStorage {
	return &DesignAssetStorage{store: store}
}

func (a *DesignAssetStorage) PresignUpload(ctx context.Context, folder, fileName, contentType string, sizeBytes int64) (designsvc.Presigned, error) {
	p, err := a.store.GenerateUploadURL(ctx, folder, fileName, contentType, sizeBytes)
	if err != nil {
		return designsvc.Presigned{}, err
	}
	return designsvc.Presigned{URL: p.URL, FileKey: p.FileKey, ExpiresAt: p.ExpiresAt}, nil
}

func (a *DesignAssetStorage) PresignDownload(ctx context.Context, fileKey string) (designsvc.Presigned, error) {
	p, err := a.store.GenerateDownloadURL(ctx, fileKey)
	if err != nil {
		return designsvc.Presigned{}, err
	}
	return designsvc.Presigned{URL: p.URL, FileKey: p.FileKey, ExpiresAt: p.ExpiresAt}, nil
}

func (a *DesignAssetStorage) Stat(ctx context.Context, fileKey string) (designsvc.StoredObject, error) {
	info, err := a.store.StatObject(ctx, fileKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return designsvc.StoredObject{}, designsvc.ErrAssetNotUploaded
	}
	if err != nil {
		return designsvc.StoredObject{}, err
	}
	return designsvc.StoredObject{Size: info.Size, ContentType: info.ContentType}, nil
}

var (
	_ designsvc.AssetStorage      = (*DesignAssetStorage)(nil)
	_ designsvc.OrderItemReader   = (*OrderItemsForDesign)(nil)
	_ designsvc.DesignerDirectory = (*DesignerDirectory)(nil)
)
