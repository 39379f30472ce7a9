// Package access holds role names and tenant scoping checks shared by the
// lifecycle services.
package access

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"production_backend/platform/apperr"
	"production_backend/platform/httpkit"
)

// Roles carried in access tokens.
const (
	RoleAdmin      = "admin"
	RoleDesigner   = "designer"
	RoleProduction = "production"
	RolePurchasing = "purchasing"
)

// Actor is the caller of a lifecycle operation.
type Actor struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Roles    []string
}

// HasRole reports whether the actor holds role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor is a tenant administrator.
func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// EnsureTenant fails with Forbidden when an entity belongs to another tenant.
func EnsureTenant(entityTenant uuid.UUID, actor Actor, op string) error {
	if actor.TenantID == uuid.Nil || entityTenant != actor.TenantID {
		return apperr.Forbidden("resource belongs to another tenant").WithOp(op)
	}
	return nil
}

// RequireAdmin fails with Forbidden unless the actor is an administrator.
func RequireAdmin(actor Actor, op string) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("administrator role required").WithOp(op)
	}
	return nil
}

// FromIdentity builds the actor for an authenticated request scoped to tenantID.
func FromIdentity(id httpkit.Identity, tenantID uuid.UUID) Actor {
	return Actor{UserID: id.UserID(), TenantID: tenantID, Roles: id.Roles()}
}

// MustGetActor resolves the caller of a protected request. On failure the
// response has already been written and ok is false.
func MustGetActor(c *gin.Context) (Actor, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return Actor{}, false
	}
	tenantID, ok := httpkit.MustGetTenantID(c, id)
	if !ok {
		return Actor{}, false
	}
	return FromIdentity(id, tenantID), true
}
