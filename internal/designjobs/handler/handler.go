package handler

import (
	"net/http"

	"production_backend/internal/access"
	"production_backend/internal/designjobs/service"
	"production_backend/internal/designjobs/transport"
	"production_backend/platform/httpkit"
	"production_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidJobID     = "invalid design job id"
)

// Handler handles HTTP requests for design jobs
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new design jobs handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the design job routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/bulk", h.BulkCreate)
	rg.POST("/bulk-assign", h.BulkAssign)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/next-statuses", h.ListLegalNext)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/assign", h.AssignDesigner)
	rg.POST("/:id/submit", h.SubmitForReview)
	rg.POST("/:id/review", h.Review)
	rg.POST("/:id/comments", h.AddComment)
	rg.GET("/:id/events", h.ListEvents)
	rg.GET("/:id/assets", h.ListAssets)
	rg.POST("/:id/assets/presign", h.PresignAssetUpload)
	rg.POST("/:id/assets", h.RegisterAsset)
}

// Create handles POST /api/v1/design-jobs
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateDesignJobRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.Create(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// BulkCreate handles POST /api/v1/design-jobs/bulk
func (h *Handler) BulkCreate(c *gin.Context) {
	var req transport.BulkCreateRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.BulkCreate(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// BulkAssign handles POST /api/v1/design-jobs/bulk-assign
func (h *Handler) BulkAssign(c *gin.Context) {
	var req transport.BulkAssignRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.BulkAssign(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// List handles GET /api/v1/design-jobs
func (h *Handler) List(c *gin.Context) {
	var req transport.ListDesignJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	result, err := h.svc.List(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get handles GET /api/v1/design-jobs/:id
func (h *Handler) Get(c *gin.Context) {
	id, actor, ok := idWithActor(c)
	if !ok {
		return
	}
	result, err := h.svc.Get(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListLegalNext handles GET /api/v1/design-jobs/:id/next-statuses
func (h *Handler) ListLegalNext(c *gin.Context) {
	id, actor, ok := idWithActor(c)
	if !ok {
		return
	}
	result, err := h.svc.ListLegalNext(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateStatus handles PATCH /api/v1/design-jobs/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}
	var req transport.UpdateStatusRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.UpdateStatus(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AssignDesigner handles POST /api/v1/design-jobs/:id/assign
func (h *Handler) AssignDesigner(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}
	var req transport.AssignDesignerRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.AssignDesigner(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SubmitForReview handles POST /api/v1/design-jobs/:id/submit
func (h *Handler) SubmitForReview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}
	var req transport.SubmitForReviewRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.SubmitForReview(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Review handles POST /api/v1/design-jobs/:id/review
func (h *Handler) Review(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}
	var req transport.ReviewRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.Review(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AddComment handles POST /api/v1/design-jobs/:id/comments
func (h *Handler) AddComment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}
	var req transport.CommentRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.AddComment(c.Request.Context(), actor, id, req)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// ListEvents handles GET /api/v1/design-jobs/:id/events
func (h *Handler) ListEvents(c *gin.Context) {
	id, actor, ok := idWithActor(c)
	if !ok {
		return
	}
	result, err := h.svc.ListEvents(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": result})
}

// ListAssets handles GET /api/v1/design-jobs/:id/assets
func (h *Handler) ListAssets(c *gin.Context) {
	id, actor, ok := idWithActor(c)
	if !ok {
		return
	}
	result, err := h.svc.ListAssets(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": result})
}

// PresignAssetUpload handles POST /api/v1/design-jobs/:id/assets/presign
func (h *Handler) PresignAssetUpload(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}
	var req transport.PresignAssetRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.PresignAssetUpload(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RegisterAsset handles POST /api/v1/design-jobs/:id/assets
func (h *Handler) RegisterAsset(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}
	var req transport.RegisterAssetRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.RegisterAsset(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) bindWithActor(c *gin.Context, req interface{}) (access.Actor, bool) {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return access.Actor{}, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return access.Actor{}, false
	}
	return access.MustGetActor(c)
}

func idWithActor(c *gin.Context) (uuid.UUID, access.Actor, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return uuid.UUID{}, access.Actor{}, false
	}
	actor, ok := access.MustGetActor(c)
	return id, actor, ok
}
