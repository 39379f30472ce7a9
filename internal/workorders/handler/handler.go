package handler

import (
	"net/http"

	"production_backend/internal/access"
	"production_backend/internal/workorders/service"
	"production_backend/internal/workorders/transport"
	"production_backend/platform/httpkit"
	"production_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// Handler handles HTTP requests for work orders
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new work orders handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the work order routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/bulk-generate", h.BulkGenerate)
	rg.POST("/bulk-assign", h.BulkAssign)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/assign", h.AssignManufacturer)
	rg.POST("/:id/delay", h.ReportDelay)
	rg.GET("/:id/events", h.ListEvents)
	rg.GET("/:id/label", h.Label)
	rg.GET("/:id/milestones", h.ListMilestones)
	rg.POST("/:id/milestones", h.CreateMilestone)
	rg.PATCH("/:id/milestones/:milestoneId", h.UpdateMilestone)
	rg.GET("/:id/materials", h.ListMaterialRequirements)
	rg.POST("/:id/materials", h.AddMaterialRequirement)
}

// RegisterManufacturerRoutes registers load reporting under /manufacturers.
func (h *Handler) RegisterManufacturerRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/capacity", h.ManufacturerCapacity)
}

// Create handles POST /api/v1/work-orders
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateWorkOrderRequest
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

// BulkGenerate handles POST /api/v1/work-orders/bulk-generate
func (h *Handler) BulkGenerate(c *gin.Context) {
	var req transport.BulkGenerateRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.BulkGenerate(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// BulkAssign handles POST /api/v1/work-orders/bulk-assign
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

// List handles GET /api/v1/work-orders
func (h *Handler) List(c *gin.Context) {
	var req transport.ListWorkOrdersRequest
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

// Get handles GET /api/v1/work-orders/:id
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

// UpdateStatus handles PATCH /api/v1/work-orders/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
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

// AssignManufacturer handles POST /api/v1/work-orders/:id/assign
func (h *Handler) AssignManufacturer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.AssignManufacturerRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.AssignManufacturer(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ReportDelay handles POST /api/v1/work-orders/:id/delay
func (h *Handler) ReportDelay(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.ReportDelayRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.ReportDelay(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListEvents handles GET /api/v1/work-orders/:id/events
func (h *Handler) ListEvents(c *gin.Context) {
	id, actor, ok := idWithActor(c)
	if !ok {
		return
	}
	result, err := h.svc.ListEvents(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Label handles GET /api/v1/work-orders/:id/label
func (h *Handler) Label(c *gin.Context) {
	id, actor, ok := idWithActor(c)
	if !ok {
		return
	}
	label, err := h.svc.TravelerLabel(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+label.Reference+`.png"`)
	c.Data(http.StatusOK, "image/png", label.PNG)
}

// ListMilestones handles GET /api/v1/work-orders/:id/milestones
func (h *Handler) ListMilestones(c *gin.Context) {
	id, actor, ok := idWithActor(c)
	if !ok {
		return
	}
	result, err := h.svc.ListMilestones(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateMilestone handles POST /api/v1/work-orders/:id/milestones
func (h *Handler) CreateMilestone(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.CreateMilestoneRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.CreateMilestone(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// UpdateMilestone handles PATCH /api/v1/work-orders/:id/milestones/:milestoneId
func (h *Handler) UpdateMilestone(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	milestoneID, ok := parseID(c, "milestoneId")
	if !ok {
		return
	}
	var req transport.UpdateMilestoneRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.UpdateMilestone(c.Request.Context(), actor, id, milestoneID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListMaterialRequirements handles GET /api/v1/work-orders/:id/materials
func (h *Handler) ListMaterialRequirements(c *gin.Context) {
	id, actor, ok := idWithActor(c)
	if !ok {
		return
	}
	result, err := h.svc.ListMaterialRequirements(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AddMaterialRequirement handles POST /api/v1/work-orders/:id/materials
func (h *Handler) AddMaterialRequirement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.AddMaterialRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.AddMaterialRequirement(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ManufacturerCapacity handles GET /api/v1/manufacturers/:id/capacity
func (h *Handler) ManufacturerCapacity(c *gin.Context) {
	id, actor, ok := idWithActor(c)
	if !ok {
		return
	}
	result, err := h.svc.ManufacturerCapacity(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
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

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func idWithActor(c *gin.Context) (uuid.UUID, access.Actor, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return uuid.UUID{}, access.Actor{}, false
	}
	actor, ok := access.MustGetActor(c)
	return id, actor, ok
}
