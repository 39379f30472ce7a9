package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateDesignJobRequest struct {
	OrderItemID uuid.UUID  `json:"orderItemId" validate:"required"`
	Title       string     `json:"title" validate:"omitempty,notblank,max=200"`
	Brief       string     `json:"brief" validate:"max=5000"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	DueDate     *time.Time `json:"dueDate"`
}

type BulkCreateRequest struct {
	OrderItemIDs []uuid.UUID `json:"orderItemIds" validate:"required,min=1,max=200"`
	Priority     string      `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	DueDate      *time.Time  `json:"dueDate"`
}

type UpdateStatusRequest struct {
	StatusCode string `json:"statusCode" validate:"required"`
	Notes      string `json:"notes" validate:"max=2000"`
}

type AssignDesignerRequest struct {
	DesignerID        uuid.UUID `json:"designerId" validate:"required"`
	SkipCapacityCheck bool      `json:"skipCapacityCheck"`
	SkipSkillCheck    bool      `json:"skipSkillCheck"`
	Notes             string    `json:"notes" validate:"max=2000"`
}

type BulkAssignRequest struct {
	JobIDs               []uuid.UUID `json:"jobIds" validate:"required,min=1,max=500"`
	DesignerID           *uuid.UUID  `json:"designerId"`
	UseWorkloadBalancing bool        `json:"useWorkloadBalancing"`
	UseSkillMatching     bool        `json:"useSkillMatching"`
	CheckCapacity        bool        `json:"checkCapacity"`
}

type SubmitForReviewRequest struct {
	AssetVersions []int  `json:"assetVersions" validate:"required,min=1,dive,min=1"`
	Notes         string `json:"notes" validate:"max=2000"`
}

type ReviewRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved revision_required"`
	Feedback string `json:"feedback" validate:"max=5000"`
}

type CommentRequest struct {
	Body string `json:"body" validate:"required,notblank,max=5000"`
}

type PresignAssetRequest struct {
	FileName    string `json:"fileName" validate:"required,notblank,max=255"`
	ContentType string `json:"contentType" validate:"required,max=120"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

type RegisterAssetRequest struct {
	FileKey     string `json:"fileKey" validate:"required,max=500"`
	FileName    string `json:"fileName" validate:"required,notblank,max=255"`
	ContentType string `json:"contentType" validate:"required,max=120"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

type ListDesignJobsRequest struct {
	Status     string     `form:"status" validate:"omitempty,max=40"`
	AssigneeID *uuid.UUID `form:"assigneeId"`
	OrderID    *uuid.UUID `form:"orderId"`
	Page       int        `form:"page" validate:"omitempty,min=1"`
	PageSize   int        `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type DesignJobResponse struct {
	ID                  uuid.UUID  `json:"id"`
	OrderID             uuid.UUID  `json:"orderId"`
	OrderItemID         uuid.UUID  `json:"orderItemId"`
	Title               string     `json:"title"`
	Brief               string     `json:"brief"`
	Priority            string     `json:"priority"`
	RequiredSpecialties []string   `json:"requiredSpecialties"`
	Quantity            int        `json:"quantity"`
	AssigneeID          *uuid.UUID `json:"assigneeId,omitempty"`
	Status              string     `json:"status"`
	DueDate             *time.Time `json:"dueDate,omitempty"`
	CreatedBy           uuid.UUID  `json:"createdBy"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type DesignJobListResponse struct {
	Items    []DesignJobResponse `json:"items"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

type BulkCreateResponse struct {
	Created []DesignJobResponse `json:"created"`
	Count   int                 `json:"count"`
}

type AssignedResponse struct {
	JobID    uuid.UUID `json:"jobId"`
	WorkerID uuid.UUID `json:"designerId"`
}

type SkippedResponse struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

type BulkAssignResponse struct {
	Assigned []AssignedResponse `json:"assigned"`
	Skipped  []SkippedResponse  `json:"skipped"`
	Count    int                `json:"count"`
}

type LegalNextResponse struct {
	Current   string   `json:"current"`
	LegalNext []string `json:"legalNext"`
}

type EventResponse struct {
	ID        uuid.UUID   `json:"id"`
	Kind      string      `json:"kind"`
	ActorID   uuid.UUID   `json:"actorId"`
	Payload   interface{} `json:"payload"`
	CreatedAt time.Time   `json:"createdAt"`
}

type PresignAssetResponse struct {
	UploadURL string    `json:"uploadUrl"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AssetResponse struct {
	ID          uuid.UUID `json:"id"`
	Version     int       `json:"version"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	UploadedBy  uuid.UUID `json:"uploadedBy"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
