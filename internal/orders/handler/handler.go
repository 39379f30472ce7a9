package handler

import (
	"net/http"

	"production_backend/internal/access"
	"production_backend/internal/orders/service"
	"production_backend/internal/orders/transport"
	"production_backend/platform/httpkit"
	"production_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for orders
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new orders handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the order routes. idempotent guards creation.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, idempotent gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.POST("", idempotent, h.Create)
	rg.GET("/:id", h.Get)
}

// Create handles POST /api/v1/orders
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
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

	result, err := h.svc.Create(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// List handles GET /api/v1/orders
func (h *Handler) List(c *gin.Context) {
	var req transport.ListOrdersRequest
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

// Get handles GET /api/v1/orders/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid order id", nil)
		return
	}
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
