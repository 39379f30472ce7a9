package handler

import (
	"net/http"
	"strings"
	"time"

	"production_backend/internal/access"
	"production_backend/internal/notification/inapp"
	"production_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HTTPHandler serves the caller's notification inbox.
type HTTPHandler struct {
	svc *inapp.Service
}

func NewHTTPHandler(svc *inapp.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.CountUnread)
	rg.GET("/unread-by-resource", h.CountUnreadByResource)
	rg.PATCH("/:id/read", h.MarkRead)
	rg.PATCH("/read-all", h.MarkAllRead)
	rg.DELETE("/:id", h.Delete)
}

type listQuery struct {
	Page   int        `form:"page"`
	Limit  int        `form:"limit"`
	Unread bool       `form:"unread"`
	Since  *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
}

type unreadByResourceQuery struct {
	Types string `form:"types"`
}

// List handles GET /notifications. since and unread narrow the page for
// reconciliation after a reconnect.
func (h *HTTPHandler) List(c *gin.Context) {
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid notification query", err.Error())
		return
	}

	page := inapp.ListQuery{Page: q.Page, PageSize: q.Limit, UnreadOnly: q.Unread, Since: q.Since}
	items, total, err := h.svc.List(c.Request.Context(), actor, page)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"items": items,
		"total": total,
		"page":  max(q.Page, 1),
	})
}

func (h *HTTPHandler) CountUnread(c *gin.Context) {
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	count, err := h.svc.CountUnread(c.Request.Context(), actor, nil)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"count": count})
}

// CountUnreadByResource handles GET /notifications/unread-by-resource?types=design_job,work_order
func (h *HTTPHandler) CountUnreadByResource(c *gin.Context) {
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	var q unreadByResourceQuery
	_ = c.ShouldBindQuery(&q)

	var types []string
	if q.Types != "" {
		types = strings.Split(q.Types, ",")
	}
	count, err := h.svc.CountUnread(c.Request.Context(), actor, types)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"count": count})
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	h.withNotification(c, func(actor access.Actor, id uuid.UUID) {
		if err := h.svc.MarkRead(c.Request.Context(), actor, id); httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, gin.H{"status": "ok"})
	})
}

func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	updated, err := h.svc.MarkAllRead(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok", "updated": updated})
}

func (h *HTTPHandler) Delete(c *gin.Context) {
	h.withNotification(c, func(actor access.Actor, id uuid.UUID) {
		if err := h.svc.Delete(c.Request.Context(), actor, id); httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, gin.H{"status": "deleted"})
	})
}

// withNotification resolves the caller and the :id path parameter.
func (h *HTTPHandler) withNotification(c *gin.Context, fn func(access.Actor, uuid.UUID)) {
	actor, ok := access.MustGetActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid notification id", nil)
		return
	}
	fn(actor, id)
}
