package handler

import (
	"net/http"
	"strings"

	"production_backend/internal/access"
	"production_backend/internal/search/service"
	"production_backend/internal/search/transport"
	"production_backend/platform/httpkit"
	"production_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.GlobalSearch)
}

// GlobalSearch handles GET /search?q=PO-2026&type=purchase_order,work_order
func (h *Handler) GlobalSearch(c *gin.Context) {
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}

	var req transport.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid search query", err.Error())
		return
	}
	req.Types = splitTypes(req.Types)
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.GlobalSearch(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// splitTypes accepts both ?type=a&type=b and ?type=a,b.
func splitTypes(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, t := range strings.Split(entry, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
