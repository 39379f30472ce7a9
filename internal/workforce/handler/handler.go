package handler

import (
	"net/http"

	"production_backend/internal/access"
	"production_backend/internal/workforce/service"
	"production_backend/internal/workforce/transport"
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

// Handler handles HTTP requests for the workforce directory
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new workforce handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the tenant-scoped directory routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/designers", h.ListDesigners)
	rg.PUT("/designers/:id", h.UpsertDesignerProfile)

	rg.GET("/manufacturers", h.ListManufacturers)
	rg.POST("/manufacturers", h.CreateManufacturer)
	rg.GET("/manufacturers/:id", h.GetManufacturer)
	rg.PUT("/manufacturers/:id", h.UpdateManufacturer)

	rg.GET("/suppliers", h.ListSuppliers)
	rg.POST("/suppliers", h.CreateSupplier)
	rg.GET("/suppliers/:id", h.GetSupplier)

	rg.GET("/materials", h.ListMaterials)
	rg.POST("/materials", h.CreateMaterial)
}

// RegisterAdminRoutes registers member management under the admin group.
// idempotent guards member creation.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup, idempotent gin.HandlerFunc) {
	rg.GET("/members", h.ListMembers)
	rg.POST("/members", idempotent, h.CreateMember)
}

// CreateMember handles POST /api/v1/admin/members
func (h *Handler) CreateMember(c *gin.Context) {
	var req transport.CreateMemberRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}

	result, created, err := h.svc.CreateMember(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, result)
}

// ListMembers handles GET /api/v1/admin/members
func (h *Handler) ListMembers(c *gin.Context) {
	var req transport.ListMembersRequest
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

	result, err := h.svc.ListMembers(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListDesigners handles GET /api/v1/designers
func (h *Handler) ListDesigners(c *gin.Context) {
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	result, err := h.svc.ListDesigners(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpsertDesignerProfile handles PUT /api/v1/designers/:id
func (h *Handler) UpsertDesignerProfile(c *gin.Context) {
	userID, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpsertDesignerProfileRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.UpsertDesignerProfile(c.Request.Context(), actor, userID, req)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// ListManufacturers handles GET /api/v1/manufacturers
func (h *Handler) ListManufacturers(c *gin.Context) {
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	result, err := h.svc.ListManufacturers(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateManufacturer handles POST /api/v1/manufacturers
func (h *Handler) CreateManufacturer(c *gin.Context) {
	var req transport.CreateManufacturerRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	result, err := h.svc.CreateManufacturer(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// GetManufacturer handles GET /api/v1/manufacturers/:id
func (h *Handler) GetManufacturer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	result, err := h.svc.GetManufacturer(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateManufacturer handles PUT /api/v1/manufacturers/:id
func (h *Handler) UpdateManufacturer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateManufacturerRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	result, err := h.svc.UpdateManufacturer(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListSuppliers handles GET /api/v1/suppliers
func (h *Handler) ListSuppliers(c *gin.Context) {
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	result, err := h.svc.ListSuppliers(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateSupplier handles POST /api/v1/suppliers
func (h *Handler) CreateSupplier(c *gin.Context) {
	var req transport.CreateSupplierRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	result, err := h.svc.CreateSupplier(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// GetSupplier handles GET /api/v1/suppliers/:id
func (h *Handler) GetSupplier(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	result, err := h.svc.GetSupplier(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListMaterials handles GET /api/v1/materials
func (h *Handler) ListMaterials(c *gin.Context) {
	var req transport.ListMaterialsRequest
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
	result, err := h.svc.ListMaterials(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateMaterial handles POST /api/v1/materials
func (h *Handler) CreateMaterial(c *gin.Context) {
	var req transport.CreateMaterialRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	result, err := h.svc.CreateMaterial(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
