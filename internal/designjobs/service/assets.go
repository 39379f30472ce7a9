package service

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"production_backend/internal/access"
	"production_backend/internal/designjobs/repository"
	"production_backend/internal/designjobs/transport"
	"production_backend/platform/apperr"

	"github.com/google/uuid"
)

// Presigned is a time-limited object URL.
type Presigned struct {
	URL       string
	FileKey   string
	ExpiresAt time.Time
}

// StoredObject is the bucket's view of an uploaded file.
type StoredObject struct {
	Size        int64
	ContentType string
}

// ErrAssetNotUploaded is returned by Stat for a key with no object.
var ErrAssetNotUploaded = errors.New("design asset not uploaded")

// AssetStorage issues presigned URLs for design files.
type AssetStorage interface {
	PresignUpload(ctx context.Context, folder, fileName, contentType string, sizeBytes int64) (Presigned, error)
	PresignDownload(ctx context.Context, fileKey string) (Presigned, error)
	Stat(ctx context.Context, fileKey string) (StoredObject, error)
}

// PresignAssetUpload returns an upload URL under the job's folder.
func (s *Service) PresignAssetUpload(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.PresignAssetRequest) (transport.PresignAssetResponse, error) {
	job, err := s.assetJob(ctx, actor, id, "designjobs.PresignAssetUpload")
	if err != nil {
		return transport.PresignAssetResponse{}, err
	}
	p, err := s.assets.PresignUpload(ctx, assetFolder(job), path.Base(strings.TrimSpace(req.FileName)), req.ContentType, req.SizeBytes)
	if err != nil {
		return transport.PresignAssetResponse{}, err
	}
	return transport.PresignAssetResponse{UploadURL: p.URL, FileKey: p.FileKey, ExpiresAt: p.ExpiresAt}, nil
}

// RegisterAsset records an uploaded file as the job's next asset version.
func (s *Service) RegisterAsset(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.RegisterAssetRequest) (transport.AssetResponse, error) {
	job, err := s.assetJob(ctx, actor, id, "designjobs.RegisterAsset")
	if err != nil {
		return transport.AssetResponse{}, err
	}
	if !strings.HasPrefix(req.FileKey, assetFolder(job)+"/") {
		return transport.AssetResponse{}, apperr.Validation("file key does not belong to this design job")
	}

	// The bucket, not the client, is authoritative for size and type.
	stored, err := s.assets.Stat(ctx, req.FileKey)
	if errors.Is(err, ErrAssetNotUploaded) {
		return transport.AssetResponse{}, apperr.Validation("file has not been uploaded")
	}
	if err != nil {
		return transport.AssetResponse{}, err
	}
	contentType := stored.ContentType
	if contentType == "" {
		contentType = req.ContentType
	}

	asset, err := s.repo.CreateAsset(ctx, repository.Asset{
		ID:          uuid.New(),
		TenantID:    job.TenantID,
		DesignJobID: job.ID,
		FileKey:     req.FileKey,
		FileName:    strings.TrimSpace(req.FileName),
		ContentType: contentType,
		SizeBytes:   stored.Size,
		UploadedBy:  actor.UserID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return transport.AssetResponse{}, err
	}
	return toAssetResponse(*asset, ""), nil
}

// ListAssets returns every asset version with a download URL.
func (s *Service) ListAssets(ctx context.Context, actor access.Actor, id uuid.UUID) ([]transport.AssetResponse, error) {
	job, err := s.load(ctx, actor, id, "designjobs.ListAssets")
	if err != nil {
		return nil, err
	}
	assets, err := s.repo.ListAssets(ctx, job.TenantID, job.ID)
	if err != nil {
		return nil, err
	}

	out := make([]transport.AssetResponse, 0, len(assets))
	for _, a := range assets {
		url := ""
		if s.assets != nil {
			p, err := s.assets.PresignDownload(ctx, a.FileKey)
			if err != nil {
				return nil, err
			}
			url = p.URL
		}
		out = append(out, toAssetResponse(a, url))
	}
	return out, nil
}

func (s *Service) assetJob(ctx context.Context, actor access.Actor, id uuid.UUID, op string) (*repository.DesignJob, error) {
	if s.assets == nil {
		return nil, apperr.Internal("asset storage is not configured")
	}
	job, err := s.load(ctx, actor, id, op)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !isAssignee(job, actor) {
		return nil, apperr.Forbidden("only the assigned designer or an admin can upload assets")
	}
	return job, nil
}

func assetFolder(job *repository.DesignJob) string {
	return path.Join(job.TenantID.String(), "design-jobs", job.ID.String())
}

func toAssetResponse(a repository.Asset, downloadURL string) transport.AssetResponse {
	return transport.AssetResponse{
		ID:          a.ID,
		Version:     a.Version,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		UploadedBy:  a.UploadedBy,
		DownloadURL: downloadURL,
		CreatedAt:   a.CreatedAt,
	}
}
