package handler

import (
	"net/http"

	"production_backend/internal/access"
	"production_backend/internal/purchasing/service"
	"production_backend/internal/purchasing/transport"
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

// Handler handles HTTP requests for purchase orders
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new purchasing handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the purchase order routes. Creating orders and
// recording receipts go through the idempotency guard.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, idempotent gin.HandlerFunc) {
	if idempotent == nil {
		idempotent = func(c *gin.Context) { c.Next() }
	}
	rg.GET("", h.List)
	rg.POST("", idempotent, h.Create)
	rg.POST("/bulk-generate", idempotent, h.BulkGenerate)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/receive", idempotent, h.ReceiveItems)
	rg.GET("/:id/events", h.ListEvents)
	rg.POST("/:id/lines", h.AddLine)
	rg.PATCH("/:id/lines/:lineId", h.UpdateLine)
	rg.DELETE("/:id/lines/:lineId", h.RemoveLine)
}

// Create handles POST /api/v1/purchase-orders
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreatePurchaseOrderRequest
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

// BulkGenerate handles POST /api/v1/purchase-orders/bulk-generate
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

// List handles GET /api/v1/purchase-orders
func (h *Handler) List(c *gin.Context) {
	var req transport.ListPurchaseOrdersRequest
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

// Get handles GET /api/v1/purchase-orders/:id
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

// UpdateStatus handles PATCH /api/v1/purchase-orders/:id/status
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

// Approve handles POST /api/v1/purchase-orders/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	id, actor, ok := idWithActor(c)
	if !ok {
		return
	}
	result, err := h.svc.Approve(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Cancel handles POST /api/v1/purchase-orders/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.CancelRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.Cancel(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ReceiveItems handles POST /api/v1/purchase-orders/:id/receive
func (h *Handler) ReceiveItems(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.ReceiveItemsRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.ReceiveItems(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListEvents handles GET /api/v1/purchase-orders/:id/events
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

// AddLine handles POST /api/v1/purchase-orders/:id/lines
func (h *Handler) AddLine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.LineRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.AddLine(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// UpdateLine handles PATCH /api/v1/purchase-orders/:id/lines/:lineId
func (h *Handler) UpdateLine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	lineID, ok := parseID(c, "lineId")
	if !ok {
		return
	}
	var req transport.UpdateLineRequest
	actor, ok := h.bindWithActor(c, &req)
	if !ok {
		return
	}
	result, err := h.svc.UpdateLine(c.Request.Context(), actor, id, lineID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RemoveLine handles DELETE /api/v1/purchase-orders/:id/lines/:lineId
func (h *Handler) RemoveLine(c *gin.Context) {
	id, actor, ok := idWithActor(c)
	if !ok {
		return
	}
	lineID, ok := parseID(c, "lineId")
	if !ok {
		return
	}
	result, err := h.svc.RemoveLine(c.Request.Context(), actor, id, lineID)
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
